package storage

import (
	"testing"
	"time"

	"github.com/hatlonely/dbview/ref"
	. "github.com/smartystreets/goconvey/convey"
)

type sortOptions struct {
	FieldID   string `cfg:"fieldId" validate:"required"`
	Condition int    `cfg:"condition"`
}

type Base struct {
	Name string `cfg:"name"`
}

type viewOptions struct {
	Base
	Debounce    time.Duration          `cfg:"debounce" def:"150ms"`
	Prefetch    bool                   `cfg:"prefetch" def:"true"`
	BatchSize   int                    `cfg:"batchSize" def:"20"`
	Ratio       float64                `cfg:"ratio"`
	Since       time.Time              `cfg:"since"`
	Tags        []string               `cfg:"tags"`
	Sorts       []sortOptions          `cfg:"sorts"`
	Labels      map[string]int         `cfg:"labels"`
	Store       *ref.TypeOptions       `cfg:"store"`
	Extra       any                    `cfg:"extra"`
	Ignored     string                 `cfg:"-"`
	Nested      *sortOptions           `cfg:"nested"`
	ByName      map[string]sortOptions `cfg:"byName"`
	Unspecified string
}

func TestMapStorageSub(t *testing.T) {
	Convey("TestMapStorageSub", t, func() {
		ms := NewMapStorage(map[string]any{
			"database": map[string]any{
				"views": []any{
					map[string]any{"id": "v1"},
					map[string]any{"id": "v2"},
				},
			},
		})

		So(ms.Sub("").(*MapStorage).Data(), ShouldResemble, ms.Data())
		So(ms.Sub("database.views[1].id").(*MapStorage).Data(), ShouldEqual, "v2")
		So(ms.Sub("database.views.0.id").(*MapStorage).Data(), ShouldEqual, "v1")
		So(ms.Sub("database.views[5]").(*MapStorage).Data(), ShouldBeNil)
		So(ms.Sub("database.missing.id").(*MapStorage).Data(), ShouldBeNil)

		So(ms.Sub("database").Equals(NewMapStorage(map[string]any{
			"views": []any{map[string]any{"id": "v1"}, map[string]any{"id": "v2"}},
		})), ShouldBeTrue)
		So(ms.Sub("database.views[0]").Equals(ms.Sub("database.views[1]")), ShouldBeFalse)
		So(ms.Equals(nil), ShouldBeFalse)
	})
}

func TestMapStorageConvertTo(t *testing.T) {
	Convey("TestMapStorageConvertTo", t, func() {
		Convey("没有配置时使用默认值", func() {
			var opts viewOptions
			So(NewMapStorage(map[string]any{}).ConvertTo(&opts), ShouldBeNil)
			So(opts.Debounce, ShouldEqual, 150*time.Millisecond)
			So(opts.Prefetch, ShouldBeTrue)
			So(opts.BatchSize, ShouldEqual, 20)
			So(opts.Store, ShouldBeNil)
			So(opts.Nested, ShouldBeNil)
		})

		Convey("配置覆盖默认值", func() {
			var opts viewOptions
			err := NewMapStorage(map[string]any{
				"name":      "tasks",
				"debounce":  "1s",
				"prefetch":  false,
				"batchsize": float64(5),
				"ratio":     1,
				"since":     "2023-11-14",
				"tags":      []any{"a", "b"},
				"sorts": []any{
					map[string]any{"fieldId": "score", "condition": 1},
				},
				"labels":      map[string]any{"x": int64(3)},
				"extra":       map[string]any{"k": "v"},
				"Ignored":     "x",
				"nested":      map[string]any{"fieldId": "name"},
				"byName":      map[string]any{"a": map[string]any{"condition": 2}},
				"unspecified": "y",
				"store": map[string]any{
					"namespace": "github.com/hatlonely/dbview/kv/store",
					"type":      "FreeCacheStore",
					"options":   map[string]any{"size": 1024},
				},
			}).ConvertTo(&opts)
			So(err, ShouldBeNil)
			So(opts.Name, ShouldEqual, "tasks")
			So(opts.Debounce, ShouldEqual, time.Second)
			So(opts.Prefetch, ShouldBeFalse)
			So(opts.BatchSize, ShouldEqual, 5)
			So(opts.Ratio, ShouldEqual, 1.0)
			So(opts.Since.Equal(time.Date(2023, 11, 14, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
			So(opts.Tags, ShouldResemble, []string{"a", "b"})
			So(opts.Sorts, ShouldResemble, []sortOptions{{FieldID: "score", Condition: 1}})
			So(opts.Labels, ShouldResemble, map[string]int{"x": 3})
			So(opts.Extra, ShouldResemble, map[string]any{"k": "v"})
			So(opts.Ignored, ShouldEqual, "")
			So(opts.Nested, ShouldResemble, &sortOptions{FieldID: "name"})
			So(opts.ByName, ShouldResemble, map[string]sortOptions{"a": {Condition: 2}})
			So(opts.Unspecified, ShouldEqual, "y")

			So(opts.Store.Namespace, ShouldEqual, "github.com/hatlonely/dbview/kv/store")
			So(opts.Store.Type, ShouldEqual, "FreeCacheStore")
			sub, ok := opts.Store.Options.(ref.Convertable)
			So(ok, ShouldBeTrue)
			var size struct {
				Size int `cfg:"size"`
			}
			So(sub.ConvertTo(&size), ShouldBeNil)
			So(size.Size, ShouldEqual, 1024)
		})

		Convey("字符串转换为其他类型", func() {
			var opts viewOptions
			So(NewMapStorage(map[string]any{
				"prefetch":  "false",
				"batchSize": "7",
				"ratio":     "0.5",
				"tags":      "a, b,c",
			}).ConvertTo(&opts), ShouldBeNil)
			So(opts.Prefetch, ShouldBeFalse)
			So(opts.BatchSize, ShouldEqual, 7)
			So(opts.Ratio, ShouldEqual, 0.5)
			So(opts.Tags, ShouldResemble, []string{"a", "b", "c"})
		})

		Convey("类型不匹配", func() {
			var opts viewOptions
			So(NewMapStorage(map[string]any{"batchSize": "abc"}).ConvertTo(&opts), ShouldNotBeNil)
			So(NewMapStorage(map[string]any{"debounce": "soon"}).ConvertTo(&opts), ShouldNotBeNil)
			So(NewMapStorage(map[string]any{"sorts": "x"}).ConvertTo(&opts), ShouldNotBeNil)
			So(NewMapStorage(map[string]any{"nested": []any{1}}).ConvertTo(&opts), ShouldNotBeNil)
			So(NewMapStorage(map[string]any{}).ConvertTo(opts), ShouldNotBeNil)
		})
	})
}

func TestSetDefaults(t *testing.T) {
	Convey("TestSetDefaults", t, func() {
		opts := viewOptions{BatchSize: 3}
		So(SetDefaults(&opts), ShouldBeNil)
		So(opts.BatchSize, ShouldEqual, 3)
		So(opts.Debounce, ShouldEqual, 150*time.Millisecond)

		So(SetDefaults(opts), ShouldNotBeNil)

		var bad struct {
			N int `def:"x"`
		}
		So(SetDefaults(&bad), ShouldNotBeNil)
	})
}
