package provider

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hatlonely/dbview/ref"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
)

func TestFileProvider(t *testing.T) {
	Convey("TestFileProvider", t, func() {
		path := filepath.Join(t.TempDir(), "config.yaml")
		So(os.WriteFile(path, []byte("a: 1\n"), 0644), ShouldBeNil)

		p, err := NewFileProviderWithOptions(&FileProviderOptions{FilePath: path})
		So(err, ShouldBeNil)
		defer p.Close()

		data, err := p.Load()
		So(err, ShouldBeNil)
		So(string(data), ShouldEqual, "a: 1\n")

		var mu sync.Mutex
		var changes []string
		p.OnChange(func(data []byte) error {
			mu.Lock()
			defer mu.Unlock()
			changes = append(changes, string(data))
			return nil
		})
		So(p.Watch(), ShouldBeNil)
		So(p.Watch(), ShouldBeNil)

		// 同目录下的其他文件不触发回调
		So(os.WriteFile(filepath.Join(filepath.Dir(path), "other.yaml"), []byte("b: 2\n"), 0644), ShouldBeNil)
		So(p.Save([]byte("a: 2\n")), ShouldBeNil)

		So(assert.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(changes) > 0 && changes[len(changes)-1] == "a: 2\n"
		}, 2*time.Second, 10*time.Millisecond), ShouldBeTrue)
		mu.Lock()
		for _, c := range changes {
			So(c, ShouldNotContainSubstring, "b: 2")
		}
		mu.Unlock()

		So(p.Close(), ShouldBeNil)
		So(p.Close(), ShouldBeNil)
	})
}

func TestNewProvider(t *testing.T) {
	Convey("TestNewProvider", t, func() {
		_, err := NewFileProviderWithOptions(nil)
		So(err, ShouldNotBeNil)

		p, err := NewProviderWithOptions(ref.TypeOptionsOf[*FileProvider](&FileProviderOptions{FilePath: "config.yaml"}))
		So(err, ShouldBeNil)
		So(p, ShouldHaveSameTypeAs, &FileProvider{})
		_, err = p.Load()
		So(err, ShouldNotBeNil)
	})
}
