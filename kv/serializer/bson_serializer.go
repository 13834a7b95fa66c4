package serializer

import (
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
)

// bsonEnvelope bson 的顶层必须是文档，字符串键和数值这类标量包装在 v 字段中
type bsonEnvelope[T any] struct {
	V T `bson:"v"`
}

type BSONSerializer[T any] struct{}

func NewBSONSerializer[T any]() *BSONSerializer[T] {
	return &BSONSerializer[T]{}
}

func (s *BSONSerializer[T]) Serialize(from T) ([]byte, error) {
	buf, err := bson.Marshal(bsonEnvelope[T]{V: from})
	if err != nil {
		return nil, errors.Wrapf(err, "bson.Marshal %T failed", from)
	}
	return buf, nil
}

func (s *BSONSerializer[T]) Deserialize(to []byte) (T, error) {
	var e bsonEnvelope[T]
	if err := bson.Unmarshal(to, &e); err != nil {
		return e.V, errors.Wrapf(err, "bson.Unmarshal %T failed", e.V)
	}
	return e.V, nil
}
