package serializer

import (
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// MsgPackSerializer 默认的序列化方式，体积小且保留数值类型
type MsgPackSerializer[T any] struct{}

func NewMsgPackSerializer[T any]() *MsgPackSerializer[T] {
	return &MsgPackSerializer[T]{}
}

func (s *MsgPackSerializer[T]) Serialize(from T) ([]byte, error) {
	buf, err := msgpack.Marshal(from)
	if err != nil {
		return nil, errors.Wrapf(err, "msgpack.Marshal %T failed", from)
	}
	return buf, nil
}

func (s *MsgPackSerializer[T]) Deserialize(to []byte) (T, error) {
	var v T
	if err := msgpack.Unmarshal(to, &v); err != nil {
		return v, errors.Wrapf(err, "msgpack.Unmarshal %T failed", v)
	}
	return v, nil
}
