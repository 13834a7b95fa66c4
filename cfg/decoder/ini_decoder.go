package decoder

import (
	"bytes"
	"sort"
	"strings"

	"github.com/hatlonely/dbview/cfg/storage"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/ini.v1"
)

// IniDecoder 默认分区的键在顶层，分区名中的点号表示多级嵌套，例如 [cache.store]
//
// 值都保留为字符串，转换为结构体时再按字段类型解析。
type IniDecoder struct{}

func NewIniDecoder() *IniDecoder {
	return &IniDecoder{}
}

func (d *IniDecoder) Decode(data []byte) (storage.Storage, error) {
	f, err := ini.LoadSources(ini.LoadOptions{SpaceBeforeInlineComment: true}, data)
	if err != nil {
		return nil, errors.Wrap(err, "ini.Load failed")
	}
	result := map[string]any{}
	for _, section := range f.Sections() {
		m := result
		if section.Name() != ini.DefaultSection {
			for _, part := range strings.Split(section.Name(), ".") {
				sub, ok := m[part].(map[string]any)
				if !ok {
					sub = map[string]any{}
					m[part] = sub
				}
				m = sub
			}
		}
		for _, key := range section.Keys() {
			m[key.Name()] = key.String()
		}
	}
	return storage.NewMapStorage(result), nil
}

// Encode 嵌套的表展开为带点号的分区，数组用逗号连接
func (d *IniDecoder) Encode(s storage.Storage) ([]byte, error) {
	data, err := dataOf(s)
	if err != nil {
		return nil, err
	}
	root, ok := data.(map[string]any)
	if !ok {
		return nil, errors.Errorf("ini root must be a map, got %T", data)
	}
	f := ini.Empty()
	if err := writeSection(f, ini.DefaultSection, root); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "ini.WriteTo failed")
	}
	return buf.Bytes(), nil
}

func writeSection(f *ini.File, name string, m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	section := f.Section(name)
	var children []string
	for _, k := range keys {
		switch v := m[k].(type) {
		case map[string]any:
			children = append(children, k)
		case []any:
			parts := make([]string, len(v))
			for i, item := range v {
				parts[i] = cast.ToString(item)
			}
			if _, err := section.NewKey(k, strings.Join(parts, ",")); err != nil {
				return errors.Wrapf(err, "ini new key [%s] failed", k)
			}
		default:
			if _, err := section.NewKey(k, cast.ToString(v)); err != nil {
				return errors.Wrapf(err, "ini new key [%s] failed", k)
			}
		}
	}
	for _, k := range children {
		child := k
		if name != ini.DefaultSection {
			child = name + "." + k
		}
		if err := writeSection(f, child, m[k].(map[string]any)); err != nil {
			return err
		}
	}
	return nil
}
