package decoder

import (
	"bytes"

	"github.com/hatlonely/dbview/cfg/storage"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type YamlDecoder struct {
	Indent int
}

func NewYamlDecoder() *YamlDecoder {
	return &YamlDecoder{Indent: 2}
}

func (d *YamlDecoder) Decode(data []byte) (storage.Storage, error) {
	var result any
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "yaml.Unmarshal failed")
	}
	return storage.NewMapStorage(result), nil
}

func (d *YamlDecoder) Encode(s storage.Storage) ([]byte, error) {
	data, err := dataOf(s)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(d.Indent)
	if err := enc.Encode(data); err != nil {
		return nil, errors.Wrap(err, "yaml.Encode failed")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "yaml.Encoder.Close failed")
	}
	return buf.Bytes(), nil
}
