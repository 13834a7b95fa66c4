package serializer

import (
	"encoding/json"
	"reflect"

	"github.com/hatlonely/dbview/ref"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ProtobufSerializer 用于生成的 protobuf 消息类型，T 必须是指针
type ProtobufSerializer[T proto.Message] struct{}

func NewProtobufSerializer[T proto.Message]() *ProtobufSerializer[T] {
	return &ProtobufSerializer[T]{}
}

// RegisterProtobuf protobuf 消息需要单独注册
func RegisterProtobuf[T proto.Message]() {
	ref.MustRegisterT[*ProtobufSerializer[T]](NewProtobufSerializer[T])
}

func (s *ProtobufSerializer[T]) Serialize(from T) ([]byte, error) {
	return proto.Marshal(from)
}

func (s *ProtobufSerializer[T]) Deserialize(to []byte) (T, error) {
	var zero T
	v := reflect.New(reflect.TypeOf(zero).Elem()).Interface().(T)
	if err := proto.Unmarshal(to, v); err != nil {
		return zero, errors.Wrap(err, "proto.Unmarshal failed")
	}
	return v, nil
}

// StructpbSerializer 将任意可 JSON 编码的值转为 google.protobuf.Struct 的二进制形式
// 和其他语言的客户端共享行文档时使用
type StructpbSerializer[T any] struct{}

func NewStructpbSerializer[T any]() *StructpbSerializer[T] {
	return &StructpbSerializer[T]{}
}

func (s *StructpbSerializer[T]) Serialize(from T) ([]byte, error) {
	buf, err := json.Marshal(from)
	if err != nil {
		return nil, errors.Wrap(err, "json.Marshal failed")
	}
	pb := &structpb.Value{}
	if err := pb.UnmarshalJSON(buf); err != nil {
		return nil, errors.Wrap(err, "structpb.Value.UnmarshalJSON failed")
	}
	return proto.Marshal(pb)
}

func (s *StructpbSerializer[T]) Deserialize(to []byte) (T, error) {
	var v T
	pb := &structpb.Value{}
	if err := proto.Unmarshal(to, pb); err != nil {
		return v, errors.Wrap(err, "proto.Unmarshal failed")
	}
	buf, err := pb.MarshalJSON()
	if err != nil {
		return v, errors.Wrap(err, "structpb.Value.MarshalJSON failed")
	}
	if err := json.Unmarshal(buf, &v); err != nil {
		return v, errors.Wrap(err, "json.Unmarshal failed")
	}
	return v, nil
}
