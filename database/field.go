package database

import (
	"strconv"

	"github.com/pkg/errors"
)

// FieldType 字段类型，数值与文档中存储的类型编号一一对应
type FieldType int

const (
	FieldTypeRichText FieldType = iota
	FieldTypeNumber
	FieldTypeDateTime
	FieldTypeSingleSelect
	FieldTypeMultiSelect
	FieldTypeCheckbox
	FieldTypeURL
	FieldTypeChecklist
	FieldTypeLastEditedTime
	FieldTypeCreatedTime
	FieldTypeRelation
	FieldTypeAISummaries
	FieldTypeAITranslations
	FieldTypeTime
	FieldTypeFileMedia
	FieldTypePerson
	FieldTypeRollup
)

var fieldTypeNames = map[FieldType]string{
	FieldTypeRichText:       "RichText",
	FieldTypeNumber:         "Number",
	FieldTypeDateTime:       "DateTime",
	FieldTypeSingleSelect:   "SingleSelect",
	FieldTypeMultiSelect:    "MultiSelect",
	FieldTypeCheckbox:       "Checkbox",
	FieldTypeURL:            "URL",
	FieldTypeChecklist:      "Checklist",
	FieldTypeLastEditedTime: "LastEditedTime",
	FieldTypeCreatedTime:    "CreatedTime",
	FieldTypeRelation:       "Relation",
	FieldTypeAISummaries:    "AISummaries",
	FieldTypeAITranslations: "AITranslations",
	FieldTypeTime:           "Time",
	FieldTypeFileMedia:      "FileMedia",
	FieldTypePerson:         "Person",
	FieldTypeRollup:         "Rollup",
}

func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return "FieldType(" + strconv.Itoa(int(t)) + ")"
}

// Key 返回类型选项 map 中使用的 key
func (t FieldType) Key() string {
	return strconv.Itoa(int(t))
}

func (t FieldType) Valid() bool {
	_, ok := fieldTypeNames[t]
	return ok
}

// IsTextLike 可以直接以文本形式比较和过滤的类型
func (t FieldType) IsTextLike() bool {
	switch t {
	case FieldTypeRichText, FieldTypeURL, FieldTypeAISummaries, FieldTypeAITranslations:
		return true
	}
	return false
}

func (t FieldType) IsSelect() bool {
	return t == FieldTypeSingleSelect || t == FieldTypeMultiSelect
}

// Field 数据库的列定义
type Field struct {
	ID        string    `json:"id" msgpack:"id"`
	Name      string    `json:"name" msgpack:"name"`
	Type      FieldType `json:"type" msgpack:"type"`
	IsPrimary bool      `json:"is_primary" msgpack:"is_primary"`

	// TypeOption 以字段类型编号为 key，保留历史类型的配置，切换类型后可以无损切回
	TypeOption map[string]any `json:"type_option" msgpack:"type_option"`

	CreatedAt      int64 `json:"created_at" msgpack:"created_at"`
	LastModifiedAt int64 `json:"last_modified" msgpack:"last_modified"`
}

// TypeOptionOf 返回指定类型下保存的原始配置
func (f *Field) TypeOptionOf(t FieldType) (any, bool) {
	if f == nil || f.TypeOption == nil {
		return nil, false
	}
	v, ok := f.TypeOption[t.Key()]
	return v, ok
}

// SetTypeOption 设置当前类型的配置
func (f *Field) SetTypeOption(payload any) {
	if f.TypeOption == nil {
		f.TypeOption = map[string]any{}
	}
	f.TypeOption[f.Type.Key()] = payload
}

// SwitchType 切换字段类型，旧类型的配置保留在 TypeOption 中
func (f *Field) SwitchType(t FieldType, modifiedAt int64) {
	f.Type = t
	f.LastModifiedAt = modifiedAt
}

// Clone 浅拷贝字段，TypeOption map 会被复制
func (f *Field) Clone() *Field {
	if f == nil {
		return nil
	}
	c := *f
	if f.TypeOption != nil {
		c.TypeOption = make(map[string]any, len(f.TypeOption))
		for k, v := range f.TypeOption {
			c.TypeOption[k] = v
		}
	}
	return &c
}

var (
	ErrNoPrimaryField       = errors.New("database has no primary field")
	ErrMultiplePrimaryField = errors.New("database has more than one primary field")
)

// ValidateFields 检查每个数据库恰好有一个主字段
func ValidateFields(fields []*Field) error {
	primary := 0
	for _, f := range fields {
		if f != nil && f.IsPrimary {
			primary++
		}
	}
	switch {
	case primary == 0:
		return ErrNoPrimaryField
	case primary > 1:
		return errors.WithMessagef(ErrMultiplePrimaryField, "found %d", primary)
	}
	return nil
}

// Fields 按 id 索引的字段集合
type Fields map[string]*Field

func NewFields(fields ...*Field) Fields {
	m := make(Fields, len(fields))
	for _, f := range fields {
		if f != nil {
			m[f.ID] = f
		}
	}
	return m
}

func (fs Fields) Get(id string) (*Field, bool) {
	f, ok := fs[id]
	return f, ok && f != nil
}

// Primary 返回主字段，不存在时返回 nil
func (fs Fields) Primary() *Field {
	for _, f := range fs {
		if f.IsPrimary {
			return f
		}
	}
	return nil
}
