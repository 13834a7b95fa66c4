package decoder

import (
	"bytes"

	"github.com/BurntSushi/toml"
	"github.com/hatlonely/dbview/cfg/storage"
	"github.com/pkg/errors"
)

type TomlDecoder struct {
	Indent string
}

func NewTomlDecoder() *TomlDecoder {
	return &TomlDecoder{Indent: "  "}
}

func (d *TomlDecoder) Decode(data []byte) (storage.Storage, error) {
	var result map[string]any
	if err := toml.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "toml.Unmarshal failed")
	}
	return storage.NewMapStorage(result), nil
}

// Encode toml 的顶层必须是表
func (d *TomlDecoder) Encode(s storage.Storage) ([]byte, error) {
	data, err := dataOf(s)
	if err != nil {
		return nil, err
	}
	if _, ok := data.(map[string]any); !ok {
		return nil, errors.Errorf("toml root must be a table, got %T", data)
	}
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = d.Indent
	if err := enc.Encode(data); err != nil {
		return nil, errors.Wrap(err, "toml.Encode failed")
	}
	return buf.Bytes(), nil
}
