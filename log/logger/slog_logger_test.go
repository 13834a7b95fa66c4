package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/hatlonely/dbview/log/writer"
	"github.com/hatlonely/dbview/ref"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSLog(t *testing.T) {
	Convey("SLog", t, func() {
		Convey("按级别过滤", func() {
			var buf bytes.Buffer
			l, err := NewSLogWithWriter(&buf, &SLogOptions{Level: "warn"})
			So(err, ShouldBeNil)
			l.Info("ignored")
			l.Warn("kept", "rowId", "r1")
			So(buf.String(), ShouldNotContainSubstring, "ignored")
			So(buf.String(), ShouldContainSubstring, "rowId=r1")
		})

		Convey("json 格式和分组", func() {
			var buf bytes.Buffer
			l, err := NewSLogWithWriter(&buf, &SLogOptions{Format: "json", Fields: map[string]any{"service": "dbview"}})
			So(err, ShouldBeNil)
			l.WithGroup("rowOrder").Info("recompute", "rows", 3)

			var m map[string]any
			So(json.Unmarshal(buf.Bytes(), &m), ShouldBeNil)
			So(m["service"], ShouldEqual, "dbview")
			So(m["rowOrder"].(map[string]any)["rows"], ShouldEqual, float64(3))
		})

		Convey("自定义时间格式", func() {
			var buf bytes.Buffer
			l, err := NewSLogWithWriter(&buf, &SLogOptions{TimeFormat: "2006"})
			So(err, ShouldBeNil)
			l.With("k", "v").Error("boom")
			So(buf.String(), ShouldContainSubstring, "k=v")
			So(buf.String(), ShouldNotContainSubstring, "T")
		})

		Convey("非法配置", func() {
			_, err := NewSLogWithOptions(&SLogOptions{Level: "verbose"})
			So(err, ShouldNotBeNil)
			_, err = NewSLogWithOptions(&SLogOptions{Format: "xml"})
			So(err, ShouldNotBeNil)
		})

		Convey("通过 ref 创建并输出到文件", func() {
			path := filepath.Join(t.TempDir(), "app.log")
			l, err := ref.NewWithOptions[Logger](ref.TypeOptionsOf[*SLog](&SLogOptions{
				Output: ref.TypeOptionsOf[*writer.FileWriter](&writer.FileWriterOptions{Path: path}),
			}))
			So(err, ShouldBeNil)
			l.Info("hello")
			So(l.(*SLog).Close(), ShouldBeNil)
		})
	})
}
