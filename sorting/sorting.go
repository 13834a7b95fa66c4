package sorting

import (
	"cmp"
	"slices"
	"strings"

	"github.com/hatlonely/dbview/cell"
	"github.com/hatlonely/dbview/database"
	"github.com/hatlonely/dbview/typeoption"
)

// Resolvers 关联和汇总字段的值由派生值缓存提供，未就绪时按空值排序
type Resolvers struct {
	RelationText func(rowID, fieldID string) (string, bool)
	RollupValue  func(rowID, fieldID string) (database.DerivedValue, bool)
}

type keyKind int

const (
	kindText keyKind = iota
	// kindNumber 空值不论升序降序都排在最后
	kindNumber
	// kindScore 没有空值的数值：复选框、检查清单完成度
	kindScore
	kindSelect
)

type key struct {
	empty bool
	num   float64
	text  string
	index []int
}

type comparator struct {
	field *database.Field
	kind  keyKind
	desc  bool
}

// SortBy 按排序条件稳定排序，第一个条件优先级最高，全部相等时保持输入顺序
//
// 引用不存在字段的排序条件被跳过；行文档未加载时其全部排序键为空。
func SortBy(rows []database.RowOrder, sorts []*database.Sort, fields database.Fields, docs database.RowDocs, res Resolvers) []database.RowOrder {
	comparators := make([]comparator, 0, len(sorts))
	for _, s := range sorts {
		if s == nil {
			continue
		}
		field, ok := fields.Get(s.FieldID)
		if !ok {
			continue
		}
		comparators = append(comparators, comparator{
			field: field,
			kind:  kindOf(field),
			desc:  s.Condition == database.SortDescending,
		})
	}

	out := slices.Clone(rows)
	if len(comparators) == 0 {
		return out
	}

	type entry struct {
		row  database.RowOrder
		keys []key
	}
	entries := make([]entry, len(out))
	for i, r := range out {
		row, _ := docs.Get(r.ID)
		if row == nil {
			row = &database.Row{ID: r.ID}
		}
		keys := make([]key, len(comparators))
		for j, c := range comparators {
			keys[j] = extract(row, c, res)
		}
		entries[i] = entry{row: r, keys: keys}
	}

	slices.SortStableFunc(entries, func(a, b entry) int {
		for i, c := range comparators {
			if r := c.compare(a.keys[i], b.keys[i]); r != 0 {
				return r
			}
		}
		return 0
	})

	for i, e := range entries {
		out[i] = e.row
	}
	return out
}

func kindOf(field *database.Field) keyKind {
	switch field.Type {
	case database.FieldTypeNumber, database.FieldTypeDateTime, database.FieldTypeTime,
		database.FieldTypeCreatedTime, database.FieldTypeLastEditedTime:
		return kindNumber
	case database.FieldTypeCheckbox, database.FieldTypeChecklist:
		return kindScore
	case database.FieldTypeSingleSelect, database.FieldTypeMultiSelect:
		return kindSelect
	case database.FieldTypeRollup:
		// 日期汇总的 RawNumeric 为时间戳，按数值排序
		if calc := typeoption.Rollup(field).Calculation; calc.IsNumeric() || calc.IsDate() {
			return kindNumber
		}
	}
	return kindText
}

func extract(row *database.Row, c comparator, res Resolvers) key {
	field := c.field
	switch field.Type {
	case database.FieldTypeRelation:
		if res.RelationText == nil {
			return key{empty: true}
		}
		text, ok := res.RelationText(row.ID, field.ID)
		if !ok {
			return key{empty: true}
		}
		return textKey(text)
	case database.FieldTypeRollup:
		var v database.DerivedValue
		ok := false
		if res.RollupValue != nil {
			v, ok = res.RollupValue(row.ID, field.ID)
		}
		if c.kind == kindNumber {
			if !ok || v.RawNumeric == nil {
				return key{empty: true}
			}
			return key{num: *v.RawNumeric}
		}
		if !ok {
			return key{empty: true}
		}
		return textKey(v.Text)
	}

	switch v := cell.Of(row, field).(type) {
	case *cell.NumberCell:
		if v.Data == nil {
			return key{empty: true}
		}
		return key{num: *v.Data}
	case *cell.DateTimeCell:
		if v.Timestamp == nil {
			return key{empty: true}
		}
		return key{num: float64(*v.Timestamp)}
	case *cell.TimeCell:
		if v.Data == nil {
			return key{empty: true}
		}
		return key{num: float64(*v.Data)}
	case *cell.TimestampCell:
		if v.IsEmpty() {
			return key{empty: true}
		}
		return key{num: float64(v.Timestamp)}
	case *cell.CheckboxCell:
		if v.Checked {
			return key{num: 1}
		}
		return key{}
	case *cell.ChecklistCell:
		return key{num: v.Percentage()}
	case *cell.SelectCell:
		opt := typeoption.Select(field)
		index := make([]int, 0, len(v.OptionIDs))
		for _, id := range v.OptionIDs {
			// 已被删除的选项排在所有有效选项之后
			i := opt.Index(id)
			if i < 0 {
				i = len(opt.Options)
			}
			index = append(index, i)
		}
		return key{index: index, empty: len(index) == 0}
	case *cell.PersonCell:
		return textKey(strings.Join(v.UserIDs, ","))
	case cell.Cell:
		return textKey(cell.Text(v, field))
	}
	return key{empty: true}
}

func textKey(s string) key {
	return key{text: strings.ToLower(s), empty: s == ""}
}

func (c comparator) compare(a, b key) int {
	if c.kind == kindNumber {
		switch {
		case a.empty && b.empty:
			return 0
		case a.empty:
			return 1
		case b.empty:
			return -1
		}
	}

	var r int
	switch c.kind {
	case kindNumber, kindScore:
		r = cmp.Compare(a.num, b.num)
	case kindSelect:
		r = slices.Compare(a.index, b.index)
	default:
		r = strings.Compare(a.text, b.text)
	}
	if c.desc {
		return -r
	}
	return r
}
