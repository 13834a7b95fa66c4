package typeoption

import (
	"encoding/json"
	"reflect"

	"github.com/hatlonely/dbview/database"
	"github.com/pkg/errors"
)

// Option 字段类型配置
type Option interface {
	FieldType() database.FieldType
}

type SelectOptionItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// SelectOption 单选/多选的候选项，顺序即排序依据
type SelectOption struct {
	Type         database.FieldType `json:"-"`
	Options      []SelectOptionItem `json:"options"`
	DisableColor bool               `json:"disable_color,omitempty"`
}

func (o *SelectOption) FieldType() database.FieldType { return o.Type }

// Index 返回选项在列表中的位置，不存在时返回 -1
func (o *SelectOption) Index(id string) int {
	for i, item := range o.Options {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// Name 返回选项名称，不存在时返回空字符串
func (o *SelectOption) Name(id string) string {
	if i := o.Index(id); i >= 0 {
		return o.Options[i].Name
	}
	return ""
}

// IDByName 按名称查找选项 id，用于从文本转换
func (o *SelectOption) IDByName(name string) (string, bool) {
	for _, item := range o.Options {
		if item.Name == name {
			return item.ID, true
		}
	}
	return "", false
}

type DateFormat int

const (
	DateFormatLocal DateFormat = iota
	DateFormatUS
	DateFormatISO
	DateFormatFriendly
	DateFormatDayMonthYear
)

type TimeFormat int

const (
	TimeFormatTwelveHour TimeFormat = iota
	TimeFormatTwentyFourHour
)

// DateOption 日期及创建/修改时间字段的显示配置
type DateOption struct {
	Type        database.FieldType `json:"-"`
	DateFormat  DateFormat         `json:"date_format"`
	TimeFormat  TimeFormat         `json:"time_format"`
	IncludeTime bool               `json:"include_time"`
	TimezoneID  string             `json:"timezone_id,omitempty"`
}

func (o *DateOption) FieldType() database.FieldType { return o.Type }

type NumberFormat int

const (
	NumberFormatNum NumberFormat = iota
	NumberFormatUSD
	NumberFormatCanadianDollar
	NumberFormatEUR
	NumberFormatPound
	NumberFormatYen
	NumberFormatPercent
)

type NumberOption struct {
	Format NumberFormat `json:"format"`
	Scale  int          `json:"scale"`
	Symbol string       `json:"symbol,omitempty"`
	Name   string       `json:"name,omitempty"`
}

func (o *NumberOption) FieldType() database.FieldType { return database.FieldTypeNumber }

// RelationOption 关联字段指向的数据库
type RelationOption struct {
	DatabaseID string `json:"database_id"`
}

func (o *RelationOption) FieldType() database.FieldType { return database.FieldTypeRelation }

// RollupOption 汇总字段配置：沿 RelationFieldID 找到关联行，取 TargetFieldID 的值做 Calculation
type RollupOption struct {
	RelationFieldID string          `json:"relation_field_id"`
	TargetFieldID   string          `json:"target_field_id"`
	Calculation     CalculationType `json:"calculation_type"`
}

func (o *RollupOption) FieldType() database.FieldType { return database.FieldTypeRollup }

type TimeOption struct {
	TimeFormat TimeFormat `json:"time_format"`
}

func (o *TimeOption) FieldType() database.FieldType { return database.FieldTypeTime }

type ChecklistOption struct{}

func (o *ChecklistOption) FieldType() database.FieldType { return database.FieldTypeChecklist }

type URLOption struct {
	URL     string `json:"url,omitempty"`
	Content string `json:"content,omitempty"`
}

func (o *URLOption) FieldType() database.FieldType { return database.FieldTypeURL }

type FileMediaOption struct {
	HideFileNames bool `json:"hide_file_names"`
}

func (o *FileMediaOption) FieldType() database.FieldType { return database.FieldTypeFileMedia }

// EmptyOption 无配置的类型（文本、复选框等）
type EmptyOption struct {
	Type database.FieldType `json:"-"`
}

func (o *EmptyOption) FieldType() database.FieldType { return o.Type }

// newDefault 返回指定类型的默认配置
func newDefault(t database.FieldType) Option {
	switch t {
	case database.FieldTypeSingleSelect, database.FieldTypeMultiSelect:
		return &SelectOption{Type: t, Options: []SelectOptionItem{}}
	case database.FieldTypeDateTime, database.FieldTypeCreatedTime, database.FieldTypeLastEditedTime:
		return &DateOption{Type: t, DateFormat: DateFormatFriendly, TimeFormat: TimeFormatTwentyFourHour}
	case database.FieldTypeNumber:
		return &NumberOption{}
	case database.FieldTypeRelation:
		return &RelationOption{}
	case database.FieldTypeRollup:
		return &RollupOption{Calculation: CalculationCount}
	case database.FieldTypeTime:
		return &TimeOption{TimeFormat: TimeFormatTwentyFourHour}
	case database.FieldTypeChecklist:
		return &ChecklistOption{}
	case database.FieldTypeURL:
		return &URLOption{}
	case database.FieldTypeFileMedia:
		return &FileMediaOption{}
	default:
		return &EmptyOption{Type: t}
	}
}

// Get 解码字段当前类型下的配置
// 只读取当前类型对应的 key，其他历史类型的配置保持不变；
// 配置缺失或格式错误时返回该类型的默认配置
func Get(field *database.Field) Option {
	if field == nil {
		return &EmptyOption{}
	}
	return decode(field, field.Type)
}

func decode(field *database.Field, t database.FieldType) Option {
	opt := newDefault(t)
	payload, ok := field.TypeOptionOf(t)
	if !ok || payload == nil {
		return opt
	}
	if err := convert(payload, opt); err != nil {
		return newDefault(t)
	}
	return opt
}

// convert 将文档中的配置（map 或结构体）转为目标结构
func convert(payload any, dst Option) error {
	var buf []byte
	switch v := payload.(type) {
	case string:
		buf = []byte(v)
	case []byte:
		buf = v
	default:
		var err error
		buf, err = json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "json.Marshal failed")
		}
	}
	if err := json.Unmarshal(buf, dst); err != nil {
		return errors.Wrap(err, "json.Unmarshal failed")
	}
	return nil
}

// Put 将配置写入字段当前类型的 key 下
func Put(field *database.Field, opt Option) error {
	if field == nil || opt == nil {
		return errors.New("field or option is nil")
	}
	if reflect.TypeOf(opt) != reflect.TypeOf(newDefault(field.Type)) {
		return errors.Errorf("option %T does not match field type %s", opt, field.Type)
	}
	buf, err := json.Marshal(opt)
	if err != nil {
		return errors.Wrap(err, "json.Marshal failed")
	}
	var payload map[string]any
	if err := json.Unmarshal(buf, &payload); err != nil {
		return errors.Wrap(err, "json.Unmarshal failed")
	}
	field.SetTypeOption(payload)
	return nil
}

func Select(field *database.Field) *SelectOption {
	if field != nil && field.Type.IsSelect() {
		if o, ok := Get(field).(*SelectOption); ok {
			return o
		}
	}
	return &SelectOption{Options: []SelectOptionItem{}}
}

func Date(field *database.Field) *DateOption {
	if o, ok := Get(field).(*DateOption); ok {
		return o
	}
	return &DateOption{DateFormat: DateFormatFriendly, TimeFormat: TimeFormatTwentyFourHour}
}

func Number(field *database.Field) *NumberOption {
	if o, ok := Get(field).(*NumberOption); ok {
		return o
	}
	return &NumberOption{}
}

func Relation(field *database.Field) *RelationOption {
	if o, ok := Get(field).(*RelationOption); ok {
		return o
	}
	return &RelationOption{}
}

func Rollup(field *database.Field) *RollupOption {
	if o, ok := Get(field).(*RollupOption); ok {
		return o
	}
	return &RollupOption{Calculation: CalculationCount}
}

func Time(field *database.Field) *TimeOption {
	if o, ok := Get(field).(*TimeOption); ok {
		return o
	}
	return &TimeOption{TimeFormat: TimeFormatTwentyFourHour}
}

// GetAs 按指定类型解码配置，用于单元格在历史类型与当前类型之间的惰性转换
func GetAs(field *database.Field, t database.FieldType) Option {
	if field == nil {
		return newDefault(t)
	}
	return decode(field, t)
}
