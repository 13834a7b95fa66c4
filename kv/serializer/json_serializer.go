package serializer

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// JSONSerializer 便于排查问题的可读格式，数字反序列化到 any 时会变成 float64
type JSONSerializer[T any] struct{}

func NewJSONSerializer[T any]() *JSONSerializer[T] {
	return &JSONSerializer[T]{}
}

func (s *JSONSerializer[T]) Serialize(from T) ([]byte, error) {
	buf, err := json.Marshal(from)
	if err != nil {
		return nil, errors.Wrapf(err, "json.Marshal %T failed", from)
	}
	return buf, nil
}

func (s *JSONSerializer[T]) Deserialize(to []byte) (T, error) {
	var v T
	if err := json.Unmarshal(to, &v); err != nil {
		return v, errors.Wrapf(err, "json.Unmarshal %T failed", v)
	}
	return v, nil
}
