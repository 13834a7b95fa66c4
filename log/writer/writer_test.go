package writer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hatlonely/dbview/ref"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWriter(t *testing.T) {
	Convey("Writer", t, func() {
		dir := t.TempDir()

		Convey("默认输出到控制台", func() {
			w, err := NewWriterWithOptions(nil)
			So(err, ShouldBeNil)
			_, ok := w.(*ConsoleWriter)
			So(ok, ShouldBeTrue)
			So(w.Close(), ShouldBeNil)
		})

		Convey("文件输出", func() {
			path := filepath.Join(dir, "logs", "app.log")
			w, err := NewWriterWithOptions(ref.TypeOptionsOf[*FileWriter](&FileWriterOptions{Path: path}))
			So(err, ShouldBeNil)
			_, err = w.Write([]byte("hello\n"))
			So(err, ShouldBeNil)
			So(w.Close(), ShouldBeNil)
			So(w.Close(), ShouldBeNil)
			_, err = w.Write([]byte("closed\n"))
			So(err, ShouldNotBeNil)

			buf, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(buf), ShouldEqual, "hello\n")
		})

		Convey("文件路径为空", func() {
			_, err := NewFileWriterWithOptions(&FileWriterOptions{})
			So(err, ShouldNotBeNil)
		})

		Convey("多路输出", func() {
			a, b := filepath.Join(dir, "a.log"), filepath.Join(dir, "b.log")
			w, err := NewWriterWithOptions(ref.TypeOptionsOf[*MultiWriter](&MultiWriterOptions{
				Writers: []*ref.TypeOptions{
					ref.TypeOptionsOf[*FileWriter](&FileWriterOptions{Path: a}),
					ref.TypeOptionsOf[*FileWriter](&FileWriterOptions{Path: b}),
				},
			}))
			So(err, ShouldBeNil)
			n, err := w.Write([]byte("x"))
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
			So(w.Close(), ShouldBeNil)

			for _, p := range []string{a, b} {
				buf, _ := os.ReadFile(p)
				So(string(buf), ShouldEqual, "x")
			}

			_, err = NewMultiWriterWithOptions(&MultiWriterOptions{})
			So(err, ShouldNotBeNil)
		})
	})
}
