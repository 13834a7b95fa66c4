package cell

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hatlonely/dbview/database"
	"github.com/hatlonely/dbview/typeoption"
)

// Parse 将原始单元格解析为字段当前类型的值
//
// 解析是纯函数且总是成功：非法输入得到该类型的空值。
// 单元格记录的类型与字段当前类型不一致时（字段切换过类型），
// 先按记录的类型解析并渲染为文本，再按当前类型解析。
func Parse(raw database.RawCell, field *database.Field) Cell {
	if field == nil {
		return &TextCell{Data: toString(raw.Data())}
	}
	if stored, ok := raw.FieldType(); ok && stored != field.Type && stored.Valid() {
		raw = convert(raw, stored, field)
	}
	return parseAs(raw, field, field.Type)
}

// Of 读取行中字段对应的单元格，创建时间和最后修改时间取自行元数据
func Of(row *database.Row, field *database.Field) Cell {
	if field == nil {
		return &TextCell{}
	}
	switch field.Type {
	case database.FieldTypeCreatedTime, database.FieldTypeLastEditedTime:
		c := &TimestampCell{Type: field.Type, IncludeTime: typeoption.Date(field).IncludeTime}
		if row != nil {
			if field.Type == database.FieldTypeCreatedTime {
				c.Timestamp = row.CreatedAt
			} else {
				c.Timestamp = row.LastModifiedAt
			}
		}
		return c
	}
	var raw database.RawCell
	if row != nil {
		raw = row.Cell(field.ID)
	}
	return Parse(raw, field)
}

func parseAs(raw database.RawCell, field *database.Field, t database.FieldType) Cell {
	data := raw.Data()
	switch t {
	case database.FieldTypeRichText, database.FieldTypeAISummaries, database.FieldTypeAITranslations:
		return &TextCell{Type: t, Data: toString(data)}
	case database.FieldTypeNumber:
		return &NumberCell{Data: ParseNumber(data)}
	case database.FieldTypeDateTime:
		return parseDateTime(raw)
	case database.FieldTypeSingleSelect, database.FieldTypeMultiSelect:
		ids := toStringList(data)
		if t == database.FieldTypeSingleSelect && len(ids) > 1 {
			ids = ids[:1]
		}
		return &SelectCell{Type: t, OptionIDs: ids}
	case database.FieldTypeCheckbox:
		return &CheckboxCell{Checked: ParseCheckbox(data)}
	case database.FieldTypeURL:
		return &URLCell{Data: toString(data)}
	case database.FieldTypeChecklist:
		return parseChecklist(data)
	case database.FieldTypeRelation:
		return &RelationCell{RowIDs: toStringList(data)}
	case database.FieldTypeRollup:
		return parseRollup(data)
	case database.FieldTypeTime:
		return ParseTime(data)
	case database.FieldTypeFileMedia:
		return &FileMediaCell{Files: parseFiles(data)}
	case database.FieldTypePerson:
		return &PersonCell{UserIDs: toStringList(data)}
	case database.FieldTypeCreatedTime, database.FieldTypeLastEditedTime:
		ts, _ := database.AsInt64(data)
		return &TimestampCell{Type: t, Timestamp: ts, IncludeTime: typeoption.GetAs(field, t).(*typeoption.DateOption).IncludeTime}
	default:
		return &TextCell{Type: t, Data: toString(data)}
	}
}

// convert 惰性类型转换：按记录类型解析、渲染为文本，再封装为当前类型的原始单元格
func convert(raw database.RawCell, stored database.FieldType, field *database.Field) database.RawCell {
	src := parseAs(raw, field, stored)

	var text string
	switch {
	case field.Type.IsTextLike(), field.Type.IsSelect(), stored.IsSelect():
		text = textAs(src, field, stored)
	default:
		text = Format(src)
	}

	out := database.RawCell{
		database.CellKeyData:      text,
		database.CellKeyFieldType: int(field.Type),
	}
	if field.Type.IsSelect() {
		out[database.CellKeyData] = selectIDsFromText(text, typeoption.Select(field))
	}
	if d, ok := src.(*DateTimeCell); ok && field.Type == database.FieldTypeDateTime {
		out[database.CellKeyIncludeTime] = d.IncludeTime
	}
	return out
}

// selectIDsFromText 将逗号分隔的选项名（或 id）映射为当前选项 id，未知名称被丢弃
func selectIDsFromText(text string, opt *typeoption.SelectOption) string {
	var ids []string
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if id, ok := opt.IDByName(part); ok {
			ids = append(ids, id)
		} else if opt.Index(part) >= 0 {
			ids = append(ids, part)
		}
	}
	return strings.Join(ids, ",")
}

var checkboxTrue = map[string]struct{}{
	"yes": {}, "true": {}, "1": {}, "checked": {}, "x": {}, "[x]": {}, "on": {},
}

// ParseCheckbox 布尔、数值（非 0 即选中）或字符串（大小写不敏感的白名单）
func ParseCheckbox(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		_, ok := checkboxTrue[strings.ToLower(strings.TrimSpace(b))]
		return ok
	default:
		n, ok := database.AsInt64(v)
		return ok && n != 0
	}
}

var numberNoise = regexp.MustCompile(`[^0-9.\-eE+]`)

// ParseNumber 解析数值，允许千分位和货币符号，无法解析时返回 nil
func ParseNumber(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		f = n
	case float32:
		f = float64(n)
	case json.Number:
		x, err := n.Float64()
		if err != nil {
			return nil
		}
		f = x
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return nil
		}
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			x, err = strconv.ParseFloat(numberNoise.ReplaceAllString(s, ""), 64)
			if err != nil {
				return nil
			}
		}
		f = x
	case bool:
		return nil
	default:
		x, ok := database.AsInt64(v)
		if !ok {
			return nil
		}
		f = float64(x)
	}
	return &f
}

var (
	decimalPattern = regexp.MustCompile(`^\d+$`)
	clockPattern   = regexp.MustCompile(`^(\d{1,2}):(\d{1,2})(?::(\d{1,2}))?$`)
)

// ParseTime 解析时长单元格
// 纯数字字符串视为毫秒原样保留；HH:MM[:SS] 转为毫秒；空字符串为空值；其他为非法值
func ParseTime(v any) *TimeCell {
	switch t := v.(type) {
	case nil:
		return &TimeCell{Empty: true}
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return &TimeCell{Empty: true}
		}
		if decimalPattern.MatchString(s) {
			ms, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return &TimeCell{}
			}
			return &TimeCell{Data: &ms}
		}
		m := clockPattern.FindStringSubmatch(s)
		if m == nil {
			return &TimeCell{}
		}
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		seconds := 0
		if m[3] != "" {
			seconds, _ = strconv.Atoi(m[3])
		}
		if hours > 23 || minutes > 59 || seconds > 59 {
			return &TimeCell{}
		}
		ms := int64(hours)*3600000 + int64(minutes)*60000 + int64(seconds)*1000
		return &TimeCell{Data: &ms}
	default:
		ms, ok := database.AsInt64(v)
		if !ok || ms < 0 {
			return &TimeCell{}
		}
		return &TimeCell{Data: &ms}
	}
}

// 超过该值的时间戳视为毫秒
const millisecondThreshold = 100000000000

func parseTimestamp(v any) *int64 {
	ts, ok := database.AsInt64(v)
	if !ok {
		return nil
	}
	if ts > millisecondThreshold || ts < -millisecondThreshold {
		ts /= 1000
	}
	return &ts
}

func parseDateTime(raw database.RawCell) *DateTimeCell {
	c := &DateTimeCell{
		Timestamp:   parseTimestamp(raw.Data()),
		IsRange:     raw.Bool(database.CellKeyIsRange),
		IncludeTime: raw.Bool(database.CellKeyIncludeTime),
	}
	if raw != nil {
		c.EndTimestamp = parseTimestamp(raw[database.CellKeyEndTimestamp])
	}
	return c
}

func parseChecklist(v any) *ChecklistCell {
	c := &ChecklistCell{}
	if err := decodeJSON(v, c); err != nil {
		return &ChecklistCell{}
	}
	return c
}

func parseRollup(v any) *RollupCell {
	c := &RollupCell{Data: toString(v)}
	if list, ok := v.([]any); ok {
		c.List = toStringList(list)
		c.Data = strings.Join(c.List, ", ")
	}
	return c
}

func parseFiles(v any) []File {
	var files []File
	if err := decodeJSON(v, &files); err != nil {
		return nil
	}
	return files
}

// decodeJSON 文档中的复合值可能是 JSON 字符串，也可能是嵌套 map
func decodeJSON(v any, dst any) error {
	var buf []byte
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(x) == "" {
			return nil
		}
		buf = []byte(x)
	case []byte:
		buf = x
	default:
		var err error
		if buf, err = json.Marshal(x); err != nil {
			return err
		}
	}
	return json.Unmarshal(buf, dst)
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprint(v)
	}
}

// toStringList 列表、JSON 数组字符串或逗号分隔字符串
func toStringList(v any) []string {
	var out []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	switch l := v.(type) {
	case nil:
	case []string:
		for _, s := range l {
			add(s)
		}
	case []any:
		for _, item := range l {
			if item != nil {
				add(toString(item))
			}
		}
	case string:
		s := strings.TrimSpace(l)
		if strings.HasPrefix(s, "[") {
			var items []any
			if err := json.Unmarshal([]byte(s), &items); err == nil {
				return toStringList(items)
			}
		}
		for _, part := range strings.Split(s, ",") {
			add(part)
		}
	default:
		add(toString(v))
	}
	return out
}
