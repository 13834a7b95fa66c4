package cell

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hatlonely/dbview/database"
	"github.com/hatlonely/dbview/typeoption"
)

// Format 渲染单元格在文档中的规范存储形式
func Format(c Cell) string {
	switch v := c.(type) {
	case *TextCell:
		return v.Data
	case *NumberCell:
		if v.Data == nil {
			return ""
		}
		return strconv.FormatFloat(*v.Data, 'f', -1, 64)
	case *DateTimeCell:
		if v.Timestamp == nil {
			return ""
		}
		return strconv.FormatInt(*v.Timestamp, 10)
	case *SelectCell:
		return strings.Join(v.OptionIDs, ",")
	case *CheckboxCell:
		if v.Checked {
			return "Yes"
		}
		return "No"
	case *URLCell:
		return v.Data
	case *ChecklistCell:
		if v.IsEmpty() {
			return ""
		}
		buf, _ := json.Marshal(v)
		return string(buf)
	case *RelationCell:
		return strings.Join(v.RowIDs, ",")
	case *RollupCell:
		return v.Data
	case *TimeCell:
		if v.Data == nil {
			return ""
		}
		return strconv.FormatInt(*v.Data, 10)
	case *FileMediaCell:
		if len(v.Files) == 0 {
			return ""
		}
		buf, _ := json.Marshal(v.Files)
		return string(buf)
	case *PersonCell:
		return strings.Join(v.UserIDs, ",")
	case *TimestampCell:
		if v.Timestamp == 0 {
			return ""
		}
		return strconv.FormatInt(v.Timestamp, 10)
	}
	return ""
}

// Raw 将单元格写回为原始单元格
func Raw(c Cell) database.RawCell {
	raw := database.NewRawCell(c.FieldType(), Format(c))
	if d, ok := c.(*DateTimeCell); ok {
		raw[database.CellKeyIncludeTime] = d.IncludeTime
		raw[database.CellKeyIsRange] = d.IsRange
		if d.EndTimestamp != nil {
			raw[database.CellKeyEndTimestamp] = strconv.FormatInt(*d.EndTimestamp, 10)
		}
	}
	return raw
}

// Text 单元格的显示文本，用于文本过滤、文本排序以及主字段展示
// 关联和汇总字段依赖其他数据库，这里只返回存储内容，解析后的文本由派生值缓存提供
func Text(c Cell, field *database.Field) string {
	if c == nil {
		return ""
	}
	return textAs(c, field, c.FieldType())
}

func textAs(c Cell, field *database.Field, t database.FieldType) string {
	switch v := c.(type) {
	case *NumberCell:
		if v.Data == nil {
			return ""
		}
		opt, _ := typeoption.GetAs(field, database.FieldTypeNumber).(*typeoption.NumberOption)
		return FormatNumber(*v.Data, opt)
	case *DateTimeCell:
		if v.Timestamp == nil {
			return ""
		}
		opt, _ := typeoption.GetAs(field, database.FieldTypeDateTime).(*typeoption.DateOption)
		s := FormatDate(*v.Timestamp, opt, v.IncludeTime, time.UTC)
		if v.IsRange && v.EndTimestamp != nil {
			s += " → " + FormatDate(*v.EndTimestamp, opt, v.IncludeTime, time.UTC)
		}
		return s
	case *SelectCell:
		opt, ok := typeoption.GetAs(field, t).(*typeoption.SelectOption)
		names := make([]string, 0, len(v.OptionIDs))
		for _, id := range v.OptionIDs {
			if ok {
				if name := opt.Name(id); name != "" {
					names = append(names, name)
				}
			}
		}
		return strings.Join(names, ",")
	case *ChecklistCell:
		names := make([]string, 0, len(v.Options))
		for _, o := range v.Options {
			names = append(names, o.Name)
		}
		return strings.Join(names, ",")
	case *TimeCell:
		if v.Data == nil {
			return ""
		}
		return FormatTime(*v.Data)
	case *FileMediaCell:
		names := make([]string, 0, len(v.Files))
		for _, f := range v.Files {
			names = append(names, f.Name)
		}
		return strings.Join(names, ",")
	case *TimestampCell:
		if v.Timestamp == 0 {
			return ""
		}
		opt, _ := typeoption.GetAs(field, t).(*typeoption.DateOption)
		return FormatDate(v.Timestamp, opt, v.IncludeTime, time.UTC)
	}
	return Format(c)
}

// FormatTime 将毫秒渲染为 HH:MM，秒不为 0 时渲染为 HH:MM:SS
func FormatTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / 3600000
	minutes := ms % 3600000 / 60000
	seconds := ms % 60000 / 1000
	if seconds > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", hours, minutes)
}

// FormatNumber 按数字格式配置渲染
func FormatNumber(f float64, opt *typeoption.NumberOption) string {
	if opt == nil {
		opt = &typeoption.NumberOption{}
	}
	prec := -1
	if opt.Scale > 0 {
		prec = opt.Scale
	}
	s := strconv.FormatFloat(f, 'f', prec, 64)
	switch opt.Format {
	case typeoption.NumberFormatUSD:
		return "$" + s
	case typeoption.NumberFormatCanadianDollar:
		return "CA$" + s
	case typeoption.NumberFormatEUR:
		return "€" + s
	case typeoption.NumberFormatPound:
		return "£" + s
	case typeoption.NumberFormatYen:
		return "¥" + s
	case typeoption.NumberFormatPercent:
		return s + "%"
	}
	if opt.Symbol != "" {
		return opt.Symbol + s
	}
	return s
}

var dateLayouts = map[typeoption.DateFormat]string{
	typeoption.DateFormatLocal:        "01/02/2006",
	typeoption.DateFormatUS:           "2006/01/02",
	typeoption.DateFormatISO:          "2006-01-02",
	typeoption.DateFormatFriendly:     "Jan 02, 2006",
	typeoption.DateFormatDayMonthYear: "02/01/2006",
}

// FormatDate 按日期配置渲染秒级时间戳，时间格式受用户的 TimeFormat 偏好影响
func FormatDate(ts int64, opt *typeoption.DateOption, includeTime bool, loc *time.Location) string {
	if opt == nil {
		opt = &typeoption.DateOption{DateFormat: typeoption.DateFormatFriendly, TimeFormat: typeoption.TimeFormatTwentyFourHour}
	}
	if loc == nil {
		loc = time.UTC
	}
	if opt.TimezoneID != "" {
		if l, err := time.LoadLocation(opt.TimezoneID); err == nil {
			loc = l
		}
	}
	layout, ok := dateLayouts[opt.DateFormat]
	if !ok {
		layout = dateLayouts[typeoption.DateFormatFriendly]
	}
	if includeTime || opt.IncludeTime {
		if opt.TimeFormat == typeoption.TimeFormatTwelveHour {
			layout += " 03:04 PM"
		} else {
			layout += " 15:04"
		}
	}
	return time.Unix(ts, 0).In(loc).Format(layout)
}
