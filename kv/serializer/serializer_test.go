package serializer

import (
	"testing"

	"github.com/hatlonely/dbview/ref"
	. "github.com/smartystreets/goconvey/convey"
	"google.golang.org/protobuf/types/known/structpb"
)

type record struct {
	ID        string            `json:"id" msgpack:"id" bson:"id"`
	Cells     map[string]string `json:"cells" msgpack:"cells" bson:"cells"`
	CreatedAt int64             `json:"created_at" msgpack:"created_at" bson:"created_at"`
}

func TestSerializer(t *testing.T) {
	Convey("Serializer", t, func() {
		in := record{ID: "r1", Cells: map[string]string{"name": "A"}, CreatedAt: 1700000000123}

		for _, options := range []*ref.TypeOptions{
			nil,
			ref.TypeOptionsOf[*JSONSerializer[record]](nil),
			ref.TypeOptionsOf[*MsgPackSerializer[record]](nil),
			ref.TypeOptionsOf[*BSONSerializer[record]](nil),
			ref.TypeOptionsOf[*StructpbSerializer[record]](nil),
		} {
			s, err := NewByteSerializerWithOptions[record](options)
			So(err, ShouldBeNil)
			buf, err := s.Serialize(in)
			So(err, ShouldBeNil)
			out, err := s.Deserialize(buf)
			So(err, ShouldBeNil)
			So(out, ShouldResemble, in)
		}

		Convey("标量作为存储的键", func() {
			for _, options := range []*ref.TypeOptions{
				ref.TypeOptionsOf[*JSONSerializer[string]](nil),
				ref.TypeOptionsOf[*MsgPackSerializer[string]](nil),
				ref.TypeOptionsOf[*BSONSerializer[string]](nil),
			} {
				s, err := NewByteSerializerWithOptions[string](options)
				So(err, ShouldBeNil)
				buf, err := s.Serialize("tasks/r1")
				So(err, ShouldBeNil)
				out, err := s.Deserialize(buf)
				So(err, ShouldBeNil)
				So(out, ShouldEqual, "tasks/r1")
			}
		})

		Convey("数据损坏", func() {
			for _, options := range []*ref.TypeOptions{
				ref.TypeOptionsOf[*JSONSerializer[record]](nil),
				ref.TypeOptionsOf[*MsgPackSerializer[record]](nil),
				ref.TypeOptionsOf[*BSONSerializer[record]](nil),
			} {
				s, err := NewByteSerializerWithOptions[record](options)
				So(err, ShouldBeNil)
				_, err = s.Deserialize([]byte{0xc1})
				So(err, ShouldNotBeNil)
			}
		})

		Convey("未注册的类型", func() {
			_, err := NewByteSerializerWithOptions[record](&ref.TypeOptions{Namespace: "x", Type: "y"})
			So(err, ShouldNotBeNil)
		})

		Convey("protobuf 消息", func() {
			RegisterProtobuf[*structpb.Struct]()
			s, err := NewByteSerializerWithOptions[*structpb.Struct](ref.TypeOptionsOf[*ProtobufSerializer[*structpb.Struct]](nil))
			So(err, ShouldBeNil)
			msg, _ := structpb.NewStruct(map[string]any{"name": "A"})
			buf, err := s.Serialize(msg)
			So(err, ShouldBeNil)
			out, err := s.Deserialize(buf)
			So(err, ShouldBeNil)
			So(out.AsMap()["name"], ShouldEqual, "A")

			_, err = s.Deserialize([]byte{0xff})
			So(err, ShouldNotBeNil)
		})
	})
}
