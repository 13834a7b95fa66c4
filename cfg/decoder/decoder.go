// Package decoder 在配置文件的原始数据和配置存储之间转换
package decoder

import (
	"path/filepath"
	"strings"

	"github.com/hatlonely/dbview/cfg/storage"
	"github.com/hatlonely/dbview/ref"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegisterT[*JsonDecoder](NewJsonDecoder)
	ref.MustRegisterT[*YamlDecoder](NewYamlDecoder)
	ref.MustRegisterT[*TomlDecoder](NewTomlDecoder)
	ref.MustRegisterT[*IniDecoder](NewIniDecoder)
}

// Decoder 配置数据编解码器接口
type Decoder interface {
	// Decode 将原始数据解码为存储对象
	Decode(data []byte) (storage.Storage, error)
	// Encode 将存储对象编码为原始数据
	Encode(s storage.Storage) ([]byte, error)
}

func NewDecoderWithOptions(options *ref.TypeOptions) (Decoder, error) {
	d, err := ref.NewWithOptions[Decoder](options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.NewWithOptions failed")
	}
	return d, nil
}

// NewDecoderByExtension 按文件扩展名选择解码器
func NewDecoderByExtension(path string) (Decoder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return NewYamlDecoder(), nil
	case ".json":
		return NewJsonDecoder(), nil
	case ".toml":
		return NewTomlDecoder(), nil
	case ".ini":
		return NewIniDecoder(), nil
	}
	return nil, errors.Errorf("unsupported config file extension [%s]", filepath.Ext(path))
}

func dataOf(s storage.Storage) (any, error) {
	if ms, ok := s.(*storage.MapStorage); ok {
		return ms.Data(), nil
	}
	var data any
	if err := s.ConvertTo(&data); err != nil {
		return nil, errors.WithMessage(err, "storage.ConvertTo failed")
	}
	return data, nil
}
