package filter

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/hatlonely/dbview/cell"
	"github.com/hatlonely/dbview/database"
)

// Resolvers 关联和汇总字段的显示文本来自其他数据库，由派生值缓存提供
// 返回 false 表示依赖尚未加载，此时行被暂时保留，等依赖就绪后重新计算
type Resolvers struct {
	RelationText func(rowID, fieldID string) (string, bool)
	RollupText   func(rowID, fieldID string) (string, bool)

	// Location 日期按天比较时使用的时区，为空时使用 UTC
	Location *time.Location
}

// FilterBy 返回通过全部过滤条件的行，保持输入顺序
//
// 引用不存在字段的条件被忽略；行文档未加载时按空行处理。
func FilterBy(rows []database.RowOrder, filters []*database.Filter, fields database.Fields, docs database.RowDocs, res Resolvers) []database.RowOrder {
	active := make([]*database.Filter, 0, len(filters))
	for _, f := range filters {
		if f != nil {
			active = append(active, f)
		}
	}
	if len(active) == 0 {
		return rows
	}

	out := make([]database.RowOrder, 0, len(rows))
	for _, r := range rows {
		row, ok := docs.Get(r.ID)
		if !ok {
			row = &database.Row{ID: r.ID}
		}
		pass := true
		for _, f := range active {
			if !Match(row, f, fields, res) {
				pass = false
				break
			}
		}
		if pass {
			out = append(out, r)
		}
	}
	return out
}

// Match 判断单行是否通过过滤条件，And/Or 节点递归计算子条件
func Match(row *database.Row, f *database.Filter, fields database.Fields, res Resolvers) bool {
	pass, _ := match(row, f, fields, res)
	return pass
}

// match 第二个返回值表示条件是否生效，字段不存在的条件不参与 Or 的计算
func match(row *database.Row, f *database.Filter, fields database.Fields, res Resolvers) (bool, bool) {
	if f == nil {
		return true, false
	}
	switch f.FilterType {
	case database.FilterTypeAnd:
		applied := false
		for _, child := range f.Children {
			pass, ok := match(row, child, fields, res)
			if !ok {
				continue
			}
			applied = true
			if !pass {
				return false, true
			}
		}
		return true, applied
	case database.FilterTypeOr:
		applied := false
		for _, child := range f.Children {
			pass, ok := match(row, child, fields, res)
			if !ok {
				continue
			}
			applied = true
			if pass {
				return true, true
			}
		}
		return !applied, applied
	}

	field, ok := fields.Get(f.FieldID)
	if !ok {
		return true, false
	}
	return matchField(row, field, f, res), true
}

func matchField(row *database.Row, field *database.Field, f *database.Filter, res Resolvers) bool {
	c := cell.Of(row, field)
	switch field.Type {
	case database.FieldTypeRichText, database.FieldTypeURL, database.FieldTypeAISummaries,
		database.FieldTypeAITranslations, database.FieldTypeFileMedia:
		return matchText(cell.Text(c, field), TextCondition(f.Condition), f.Content)
	case database.FieldTypeRelation:
		text, ok := resolve(res.RelationText, row.ID, field.ID)
		if !ok {
			return true
		}
		return matchText(text, TextCondition(f.Condition), f.Content)
	case database.FieldTypeRollup:
		text, ok := resolve(res.RollupText, row.ID, field.ID)
		if !ok {
			return true
		}
		return matchText(text, TextCondition(f.Condition), f.Content)
	case database.FieldTypeNumber:
		return matchNumber(c.(*cell.NumberCell).Data, NumberCondition(f.Condition), f.Content)
	case database.FieldTypeTime:
		var v *float64
		if t := c.(*cell.TimeCell); t.Data != nil {
			ms := float64(*t.Data)
			v = &ms
		}
		return matchNumber(v, NumberCondition(f.Condition), f.Content)
	case database.FieldTypeCheckbox:
		return matchCheckbox(c.(*cell.CheckboxCell).Checked, CheckboxCondition(f.Condition))
	case database.FieldTypeSingleSelect, database.FieldTypeMultiSelect:
		return matchSelect(c.(*cell.SelectCell).OptionIDs, field.Type == database.FieldTypeSingleSelect, SelectCondition(f.Condition), f.Content)
	case database.FieldTypePerson:
		return matchSelect(c.(*cell.PersonCell).UserIDs, false, SelectCondition(f.Condition), f.Content)
	case database.FieldTypeDateTime:
		d := c.(*cell.DateTimeCell)
		return matchDate(d.Timestamp, d.IncludeTime, DateCondition(f.Condition), f.Content, res.Location)
	case database.FieldTypeCreatedTime, database.FieldTypeLastEditedTime:
		ts := c.(*cell.TimestampCell)
		var v *int64
		if !ts.IsEmpty() {
			v = &ts.Timestamp
		}
		return matchDate(v, ts.IncludeTime, DateCondition(f.Condition), f.Content, res.Location)
	case database.FieldTypeChecklist:
		return matchChecklist(c.(*cell.ChecklistCell), ChecklistCondition(f.Condition))
	}
	return true
}

func resolve(fn func(rowID, fieldID string) (string, bool), rowID, fieldID string) (string, bool) {
	if fn == nil {
		return "", false
	}
	return fn(rowID, fieldID)
}

// matchText 包含、前缀、后缀判断区分大小写
func matchText(text string, cond TextCondition, content string) bool {
	if cond.takesContent() && content == "" {
		return true
	}
	switch cond {
	case TextIs:
		return text == content
	case TextIsNot:
		return text != content
	case TextContains:
		return strings.Contains(text, content)
	case TextDoesNotContain:
		return !strings.Contains(text, content)
	case TextStartsWith:
		return strings.HasPrefix(text, content)
	case TextEndsWith:
		return strings.HasSuffix(text, content)
	case TextIsEmpty:
		return strings.TrimSpace(text) == ""
	case TextIsNotEmpty:
		return strings.TrimSpace(text) != ""
	}
	return true
}

// matchNumber 空单元格只满足 IsEmpty 和 NotEqual
func matchNumber(v *float64, cond NumberCondition, content string) bool {
	switch cond {
	case NumberIsEmpty:
		return v == nil
	case NumberIsNotEmpty:
		return v != nil
	}
	target := cell.ParseNumber(content)
	if target == nil {
		return true
	}
	if v == nil {
		return cond == NumberNotEqual
	}
	switch cond {
	case NumberEqual:
		return *v == *target
	case NumberNotEqual:
		return *v != *target
	case NumberGreaterThan:
		return *v > *target
	case NumberLessThan:
		return *v < *target
	case NumberGreaterThanOrEqualTo:
		return *v >= *target
	case NumberLessThanOrEqualTo:
		return *v <= *target
	}
	return true
}

func matchCheckbox(checked bool, cond CheckboxCondition) bool {
	switch cond {
	case CheckboxIsChecked:
		return checked
	case CheckboxIsUnchecked:
		return !checked
	}
	return true
}

// matchSelect content 为逗号分隔的选项 id
// 单选 Is 表示所选项属于目标集合，多选 Is 表示所选集合与目标集合相同
func matchSelect(selected []string, single bool, cond SelectCondition, content string) bool {
	switch cond {
	case SelectIsEmpty:
		return len(selected) == 0
	case SelectIsNotEmpty:
		return len(selected) > 0
	}
	targets := splitIDs(content)
	if len(targets) == 0 {
		return true
	}

	is := func() bool {
		if single {
			return len(selected) == 1 && contains(targets, selected[0])
		}
		if len(selected) != len(targets) {
			return false
		}
		for _, id := range selected {
			if !contains(targets, id) {
				return false
			}
		}
		return true
	}
	hasAny := func() bool {
		for _, id := range selected {
			if contains(targets, id) {
				return true
			}
		}
		return false
	}

	switch cond {
	case SelectIs:
		return is()
	case SelectIsNot:
		return !is()
	case SelectContains:
		return hasAny()
	case SelectDoesNotContain:
		return !hasAny()
	}
	return true
}

func splitIDs(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// DateContent 日期过滤条件的内容，时间戳单位为秒
type DateContent struct {
	Timestamp *int64 `json:"timestamp,omitempty"`
	Start     *int64 `json:"start,omitempty"`
	End       *int64 `json:"end,omitempty"`
}

// ParseDateContent 解析日期过滤条件，时间戳可以是数字或数字字符串
func ParseDateContent(content string) DateContent {
	var raw map[string]any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return DateContent{}
	}
	get := func(key string) *int64 {
		v, ok := database.AsInt64(raw[key])
		if !ok {
			return nil
		}
		return &v
	}
	return DateContent{Timestamp: get("timestamp"), Start: get("start"), End: get("end")}
}

// matchDate 默认按天比较；单元格包含时间时，先后关系按秒比较，DateIs 仍然按天比较
func matchDate(ts *int64, includeTime bool, cond DateCondition, content string, loc *time.Location) bool {
	switch cond {
	case DateIsEmpty:
		return ts == nil
	case DateIsNotEmpty:
		return ts != nil
	}
	if loc == nil {
		loc = time.UTC
	}
	dc := ParseDateContent(content)

	if cond == DateWithin {
		if dc.Start == nil || dc.End == nil {
			return true
		}
		if ts == nil {
			return false
		}
		day := startOfDay(*ts, loc)
		return day >= startOfDay(*dc.Start, loc) && day <= startOfDay(*dc.End, loc)
	}

	if dc.Timestamp == nil {
		return true
	}
	if ts == nil {
		return false
	}

	value, target := startOfDay(*ts, loc), startOfDay(*dc.Timestamp, loc)
	if cond == DateIs {
		return value == target
	}
	if includeTime {
		value, target = *ts, *dc.Timestamp
	}
	switch cond {
	case DateBefore:
		return value < target
	case DateAfter:
		return value > target
	case DateOnOrBefore:
		return value <= target
	case DateOnOrAfter:
		return value >= target
	}
	return true
}

func startOfDay(ts int64, loc *time.Location) int64 {
	t := time.Unix(ts, 0).In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc).Unix()
}

func matchChecklist(c *cell.ChecklistCell, cond ChecklistCondition) bool {
	complete := len(c.Options) > 0 && c.Percentage() >= 1
	switch cond {
	case ChecklistIsComplete:
		return complete
	case ChecklistIsIncomplete:
		return !complete
	}
	return true
}
