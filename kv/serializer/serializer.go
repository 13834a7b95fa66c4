// Package serializer 存储层使用的值编解码
package serializer

import (
	"github.com/hatlonely/dbview/ref"
	"github.com/pkg/errors"
)

type Serializer[F, T any] interface {
	Serialize(from F) (T, error)
	Deserialize(to T) (F, error)
}

// register 泛型类型需要按具体的类型参数注册
func register[T any]() {
	ref.MustRegisterT[*JSONSerializer[T]](NewJSONSerializer[T])
	ref.MustRegisterT[*MsgPackSerializer[T]](NewMsgPackSerializer[T])
	ref.MustRegisterT[*BSONSerializer[T]](NewBSONSerializer[T])
	ref.MustRegisterT[*StructpbSerializer[T]](NewStructpbSerializer[T])
}

// DefaultOptions 默认使用 msgpack
func DefaultOptions[T any]() *ref.TypeOptions {
	return ref.TypeOptionsOf[*MsgPackSerializer[T]](nil)
}

// NewByteSerializerWithOptions 按配置创建序列化器，options 为 nil 时使用 msgpack
func NewByteSerializerWithOptions[T any](options *ref.TypeOptions) (Serializer[T, []byte], error) {
	register[T]()
	if options == nil {
		options = DefaultOptions[T]()
	}
	s, err := ref.NewWithOptions[Serializer[T, []byte]](options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.NewWithOptions failed")
	}
	return s, nil
}
