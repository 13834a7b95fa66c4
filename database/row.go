package database

import (
	"encoding/json"
	"strconv"
	"strings"
)

// 原始单元格中使用的 key，与文档中的存储结构保持一致
const (
	CellKeyData         = "data"
	CellKeyFieldType    = "field_type"
	CellKeyEndTimestamp = "end_timestamp"
	CellKeyIsRange      = "is_range"
	CellKeyIncludeTime  = "include_time"
	CellKeyCreatedAt    = "created_at"
	CellKeyLastModified = "last_modified"
)

// RawCell 文档中存储的单元格原始数据，结构不做任何假设
type RawCell map[string]any

// NewRawCell 创建一个只包含 data 和 field_type 的单元格
func NewRawCell(fieldType FieldType, data any) RawCell {
	return RawCell{
		CellKeyData:      data,
		CellKeyFieldType: int(fieldType),
	}
}

func (c RawCell) Data() any {
	if c == nil {
		return nil
	}
	return c[CellKeyData]
}

// FieldType 返回单元格写入时的字段类型，缺失时返回 false
func (c RawCell) FieldType() (FieldType, bool) {
	if c == nil {
		return 0, false
	}
	v, ok := c[CellKeyFieldType]
	if !ok {
		return 0, false
	}
	n, ok := AsInt64(v)
	if !ok {
		return 0, false
	}
	return FieldType(n), true
}

func (c RawCell) Bool(key string) bool {
	if c == nil {
		return false
	}
	switch v := c[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		n, ok := AsInt64(v)
		return ok && n != 0
	}
}

func (c RawCell) Clone() RawCell {
	if c == nil {
		return nil
	}
	out := make(RawCell, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// AsInt64 宽松地将文档中的数值类型转为 int64
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float32:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return 0, false
			}
			return int64(f), true
		}
		return i, true
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

// RowMeta 行附带的富文本文档信息
type RowMeta struct {
	DocumentID      string `json:"document_id" msgpack:"document_id"`
	Icon            string `json:"icon" msgpack:"icon"`
	Cover           string `json:"cover" msgpack:"cover"`
	IsEmptyDocument bool   `json:"is_empty_document" msgpack:"is_empty_document"`
}

// Row 行文档中的数据
type Row struct {
	ID             string             `json:"id" msgpack:"id"`
	Cells          map[string]RawCell `json:"cells" msgpack:"cells"`
	CreatedAt      int64              `json:"created_at" msgpack:"created_at"`
	LastModifiedAt int64              `json:"last_modified" msgpack:"last_modified"`
	Meta           RowMeta            `json:"meta" msgpack:"meta"`
}

// Cell 返回字段对应的原始单元格，行或单元格不存在时返回 nil
func (r *Row) Cell(fieldID string) RawCell {
	if r == nil || r.Cells == nil {
		return nil
	}
	return r.Cells[fieldID]
}

func (r *Row) Clone() *Row {
	if r == nil {
		return nil
	}
	c := *r
	c.Cells = make(map[string]RawCell, len(r.Cells))
	for k, v := range r.Cells {
		c.Cells[k] = v.Clone()
	}
	return &c
}

// RowOrder 视图中的行顺序条目
type RowOrder struct {
	ID     string `json:"id" msgpack:"id"`
	Height int    `json:"height" msgpack:"height"`
}

// RowDocs 按行 id 索引的已加载行文档
type RowDocs map[string]*Row

func (d RowDocs) Get(id string) (*Row, bool) {
	r, ok := d[id]
	return r, ok && r != nil
}

// RowIDs 提取行 id 列表
func RowIDs(rows []RowOrder) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}
