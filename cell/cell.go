package cell

import (
	"github.com/hatlonely/dbview/database"
)

// Cell 解析后的单元格值，按字段类型区分的联合类型
type Cell interface {
	FieldType() database.FieldType
	IsEmpty() bool
	isCell()
}

// TextCell 文本类单元格：RichText、AISummaries、AITranslations 以及兜底的原样透传
type TextCell struct {
	Type database.FieldType
	Data string
}

// NumberCell Data 为 nil 表示空值或非数字内容
type NumberCell struct {
	Data *float64
}

// DateTimeCell 时间戳单位为秒
type DateTimeCell struct {
	Timestamp    *int64
	EndTimestamp *int64
	IsRange      bool
	IncludeTime  bool
}

type SelectCell struct {
	Type      database.FieldType
	OptionIDs []string
}

type CheckboxCell struct {
	Checked bool
}

type URLCell struct {
	Data string
}

type ChecklistItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type ChecklistCell struct {
	Options           []ChecklistItem `json:"options"`
	SelectedOptionIDs []string        `json:"selected_option_ids"`
}

// RelationCell 关联到其他数据库的行 id 列表
type RelationCell struct {
	RowIDs []string
}

// RollupCell 汇总结果，RawNumeric 仅在数值型计算时有值
type RollupCell struct {
	Data       string
	RawNumeric *float64
	List       []string
}

// TimeCell 毫秒时长
// Empty 表示原始数据为空字符串，Data 为 nil 且 Empty 为 false 表示格式非法
type TimeCell struct {
	Data  *int64
	Empty bool
}

type File struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	FileType   int    `json:"file_type,omitempty"`
	UploadType int    `json:"upload_type,omitempty"`
}

type FileMediaCell struct {
	Files []File
}

type PersonCell struct {
	UserIDs []string
}

// TimestampCell 创建时间和最后修改时间，取自行元数据，单位为秒
type TimestampCell struct {
	Type        database.FieldType
	Timestamp   int64
	IncludeTime bool
}

func (c *TextCell) FieldType() database.FieldType      { return c.Type }
func (c *NumberCell) FieldType() database.FieldType    { return database.FieldTypeNumber }
func (c *DateTimeCell) FieldType() database.FieldType  { return database.FieldTypeDateTime }
func (c *SelectCell) FieldType() database.FieldType    { return c.Type }
func (c *CheckboxCell) FieldType() database.FieldType  { return database.FieldTypeCheckbox }
func (c *URLCell) FieldType() database.FieldType       { return database.FieldTypeURL }
func (c *ChecklistCell) FieldType() database.FieldType { return database.FieldTypeChecklist }
func (c *RelationCell) FieldType() database.FieldType  { return database.FieldTypeRelation }
func (c *RollupCell) FieldType() database.FieldType    { return database.FieldTypeRollup }
func (c *TimeCell) FieldType() database.FieldType      { return database.FieldTypeTime }
func (c *FileMediaCell) FieldType() database.FieldType { return database.FieldTypeFileMedia }
func (c *PersonCell) FieldType() database.FieldType    { return database.FieldTypePerson }
func (c *TimestampCell) FieldType() database.FieldType { return c.Type }

func (c *TextCell) IsEmpty() bool      { return len(c.Data) == 0 }
func (c *NumberCell) IsEmpty() bool    { return c.Data == nil }
func (c *DateTimeCell) IsEmpty() bool  { return c.Timestamp == nil }
func (c *SelectCell) IsEmpty() bool    { return len(c.OptionIDs) == 0 }
func (c *CheckboxCell) IsEmpty() bool  { return false }
func (c *URLCell) IsEmpty() bool       { return len(c.Data) == 0 }
func (c *ChecklistCell) IsEmpty() bool { return len(c.Options) == 0 }
func (c *RelationCell) IsEmpty() bool  { return len(c.RowIDs) == 0 }
func (c *RollupCell) IsEmpty() bool    { return c.Data == "" && c.RawNumeric == nil && len(c.List) == 0 }
func (c *TimeCell) IsEmpty() bool      { return c.Data == nil }
func (c *FileMediaCell) IsEmpty() bool { return len(c.Files) == 0 }
func (c *PersonCell) IsEmpty() bool    { return len(c.UserIDs) == 0 }
func (c *TimestampCell) IsEmpty() bool { return c.Timestamp == 0 }

func (*TextCell) isCell()      {}
func (*NumberCell) isCell()    {}
func (*DateTimeCell) isCell()  {}
func (*SelectCell) isCell()    {}
func (*CheckboxCell) isCell()  {}
func (*URLCell) isCell()       {}
func (*ChecklistCell) isCell() {}
func (*RelationCell) isCell()  {}
func (*RollupCell) isCell()    {}
func (*TimeCell) isCell()      {}
func (*FileMediaCell) isCell() {}
func (*PersonCell) isCell()    {}
func (*TimestampCell) isCell() {}

// Percentage 已完成的检查项比例，没有检查项时为 0
func (c *ChecklistCell) Percentage() float64 {
	if len(c.Options) == 0 {
		return 0
	}
	selected := make(map[string]struct{}, len(c.SelectedOptionIDs))
	for _, id := range c.SelectedOptionIDs {
		selected[id] = struct{}{}
	}
	done := 0
	for _, o := range c.Options {
		if _, ok := selected[o.ID]; ok {
			done++
		}
	}
	return float64(done) / float64(len(c.Options))
}

// Valid 时长是否为合法值
func (c *TimeCell) Valid() bool {
	return c.Data != nil
}
