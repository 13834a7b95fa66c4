package uid

import (
	"testing"

	"github.com/google/uuid"
	"github.com/hatlonely/dbview/ref"
	. "github.com/smartystreets/goconvey/convey"
)

func TestUUIDGenerator(t *testing.T) {
	Convey("TestUUIDGenerator", t, func() {
		Convey("默认 v7 不带连字符", func() {
			g := NewUUIDGeneratorWithOptions(nil)
			id := g.Generate()
			So(id, ShouldHaveLength, 32)
			u, err := uuid.Parse(id)
			So(err, ShouldBeNil)
			So(u.Version(), ShouldEqual, uuid.Version(7))
			So(g.Generate(), ShouldNotEqual, id)
		})

		Convey("v4 带连字符", func() {
			id := NewUUIDGeneratorWithOptions(&UUIDOptions{Version: "v4", WithHyphens: true}).Generate()
			So(id, ShouldHaveLength, 36)
			u, err := uuid.Parse(id)
			So(err, ShouldBeNil)
			So(u.Version(), ShouldEqual, uuid.Version(4))
		})

		Convey("v7 按时间有序", func() {
			g := NewUUIDGeneratorWithOptions(&UUIDOptions{Version: "v7"})
			prev := g.Generate()
			for i := 0; i < 100; i++ {
				id := g.Generate()
				So(id > prev, ShouldBeTrue)
				prev = id
			}
		})
	})
}

func TestNewGeneratorWithOptions(t *testing.T) {
	Convey("TestNewGeneratorWithOptions", t, func() {
		g, err := NewGeneratorWithOptions(nil)
		So(err, ShouldBeNil)
		So(g.Generate(), ShouldHaveLength, 32)

		g, err = NewGeneratorWithOptions(ref.TypeOptionsOf[*UUIDGenerator](&UUIDOptions{WithHyphens: true}))
		So(err, ShouldBeNil)
		So(g.Generate(), ShouldHaveLength, 36)

		_, err = NewGeneratorWithOptions(&ref.TypeOptions{Namespace: "missing", Type: "Generator"})
		So(err, ShouldNotBeNil)
	})
}
