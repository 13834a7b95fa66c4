package decoder

import (
	"testing"
	"time"

	"github.com/hatlonely/dbview/cfg/storage"
	"github.com/hatlonely/dbview/ref"
	. "github.com/smartystreets/goconvey/convey"
)

type controllerOptions struct {
	Debounce  time.Duration `cfg:"debounce" def:"150ms"`
	Prefetch  bool          `cfg:"prefetch" def:"true"`
	BatchSize int           `cfg:"batchSize" def:"20"`
	Location  string        `cfg:"location"`
}

type appOptions struct {
	Name     string            `cfg:"name"`
	Views    []string          `cfg:"views"`
	RowOrder controllerOptions `cfg:"rowOrder"`
}

var expected = appOptions{
	Name:  "tasks",
	Views: []string{"v1", "v2"},
	RowOrder: controllerOptions{
		Debounce:  time.Second,
		Prefetch:  false,
		BatchSize: 8,
		Location:  "Asia/Shanghai",
	},
}

var sources = []struct{ name, src string }{
	{"config.yaml", `
name: tasks
views: [v1, v2]
rowOrder:
  debounce: 1s
  prefetch: false
  batchSize: 8
  location: Asia/Shanghai
`},
	{"config.json", `{
  "name": "tasks",
  "views": ["v1", "v2"],
  "rowOrder": {"debounce": "1s", "prefetch": false, "batchSize": 8, "location": "Asia/Shanghai"}
}`},
	{"config.toml", `
name = "tasks"
views = ["v1", "v2"]

[rowOrder]
debounce = "1s"
prefetch = false
batchSize = 8
location = "Asia/Shanghai"
`},
	{"config.ini", `
name = tasks
views = v1,v2

[rowOrder]
debounce = 1s
prefetch = false
batchSize = 8
location = Asia/Shanghai
`},
}

func TestDecoders(t *testing.T) {
	Convey("TestDecoders", t, func() {
		for _, source := range sources {
			name, src := source.name, source.src
			Convey(name, func() {
				d, err := NewDecoderByExtension(name)
				So(err, ShouldBeNil)

				s, err := d.Decode([]byte(src))
				So(err, ShouldBeNil)
				var opts appOptions
				So(s.ConvertTo(&opts), ShouldBeNil)
				So(opts, ShouldResemble, expected)

				// 编码后再解码得到相同的配置
				buf, err := d.Encode(s)
				So(err, ShouldBeNil)
				again, err := d.Decode(buf)
				So(err, ShouldBeNil)
				var opts2 appOptions
				So(again.ConvertTo(&opts2), ShouldBeNil)
				So(opts2, ShouldResemble, expected)
			})
		}
	})
}

func TestNewDecoder(t *testing.T) {
	Convey("TestNewDecoder", t, func() {
		_, err := NewDecoderByExtension("config.xml")
		So(err, ShouldNotBeNil)

		d, err := NewDecoderWithOptions(ref.TypeOptionsOf[*TomlDecoder](nil))
		So(err, ShouldBeNil)
		So(d, ShouldHaveSameTypeAs, &TomlDecoder{})

		_, err = NewDecoderWithOptions(&ref.TypeOptions{Namespace: "missing", Type: "Decoder"})
		So(err, ShouldNotBeNil)

		_, err = NewYamlDecoder().Decode([]byte("a: [1"))
		So(err, ShouldNotBeNil)
		_, err = NewTomlDecoder().Encode(storage.NewMapStorage([]any{1}))
		So(err, ShouldNotBeNil)
		_, err = NewIniDecoder().Encode(storage.NewMapStorage("x"))
		So(err, ShouldNotBeNil)
	})
}
