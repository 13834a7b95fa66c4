package derived

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hatlonely/dbview/cell"
	"github.com/hatlonely/dbview/database"
	"github.com/hatlonely/dbview/typeoption"
)

// Value 派生值：关联字段的显示文本或汇总结果
type Value = database.DerivedValue

const secondsPerDay = 24 * 60 * 60

// Calculate 对关联行上目标字段的单元格做汇总
//
// 数值型计算的输入为数字、时长以及日期（秒），没有可用输入时结果为空值。
// 日期计算的 RawNumeric 为秒级时间戳，DateRange 为天数。
func Calculate(calc typeoption.CalculationType, cells []cell.Cell, target *database.Field, loc *time.Location) Value {
	switch calc {
	case typeoption.CalculationAverage, typeoption.CalculationMax, typeoption.CalculationMedian,
		typeoption.CalculationMin, typeoption.CalculationSum:
		return aggregate(calc, numbersOf(cells), target)
	case typeoption.CalculationCount:
		return count(len(cells))
	case typeoption.CalculationCountEmpty:
		return count(countIf(cells, isEmpty))
	case typeoption.CalculationCountNonEmpty:
		return count(len(cells) - countIf(cells, isEmpty))
	case typeoption.CalculationCountChecked:
		return count(countIf(cells, isChecked(target)))
	case typeoption.CalculationCountUnchecked:
		return count(len(cells) - countIf(cells, isChecked(target)))
	case typeoption.CalculationPercentChecked:
		return percent(countIf(cells, isChecked(target)), len(cells))
	case typeoption.CalculationPercentUnchecked:
		return percent(len(cells)-countIf(cells, isChecked(target)), len(cells))
	case typeoption.CalculationPercentEmpty:
		return percent(countIf(cells, isEmpty), len(cells))
	case typeoption.CalculationPercentNotEmpty:
		return percent(len(cells)-countIf(cells, isEmpty), len(cells))
	case typeoption.CalculationDateEarliest, typeoption.CalculationDateLatest, typeoption.CalculationDateRange:
		return dateAggregate(calc, cells, target, loc)
	case typeoption.CalculationCountUnique:
		return count(len(unique(textsOf(cells, target))))
	case typeoption.CalculationShowOriginal:
		return list(textsOf(cells, target))
	case typeoption.CalculationShowUnique:
		return list(unique(textsOf(cells, target)))
	case typeoption.CalculationSingleValue:
		return singleValue(cells, target)
	}
	return Value{}
}

func numeric(f float64) *float64 { return &f }

func numberOf(c cell.Cell) (float64, bool) {
	switch v := c.(type) {
	case *cell.NumberCell:
		if v.Data != nil {
			return *v.Data, true
		}
	case *cell.TimeCell:
		if v.Data != nil {
			return float64(*v.Data), true
		}
	case *cell.DateTimeCell:
		if v.Timestamp != nil {
			return float64(*v.Timestamp), true
		}
	case *cell.TimestampCell:
		if v.Timestamp != 0 {
			return float64(v.Timestamp), true
		}
	case *cell.RollupCell:
		if v.RawNumeric != nil {
			return *v.RawNumeric, true
		}
	}
	return 0, false
}

func numbersOf(cells []cell.Cell) []float64 {
	nums := make([]float64, 0, len(cells))
	for _, c := range cells {
		if f, ok := numberOf(c); ok {
			nums = append(nums, f)
		}
	}
	return nums
}

func timestampOf(c cell.Cell) (int64, bool) {
	switch v := c.(type) {
	case *cell.DateTimeCell:
		if v.Timestamp != nil {
			return *v.Timestamp, true
		}
	case *cell.TimestampCell:
		if v.Timestamp != 0 {
			return v.Timestamp, true
		}
	}
	return 0, false
}

func textsOf(cells []cell.Cell, target *database.Field) []string {
	texts := make([]string, 0, len(cells))
	for _, c := range cells {
		if text := cell.Text(c, target); text != "" {
			texts = append(texts, text)
		}
	}
	return texts
}

func unique(texts []string) []string {
	seen := make(map[string]struct{}, len(texts))
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// isEmpty 未勾选的复选框视为空
func isEmpty(c cell.Cell) bool {
	if v, ok := c.(*cell.CheckboxCell); ok {
		return !v.Checked
	}
	return c == nil || c.IsEmpty()
}

func isChecked(target *database.Field) func(cell.Cell) bool {
	return func(c cell.Cell) bool {
		switch v := c.(type) {
		case *cell.CheckboxCell:
			return v.Checked
		case *cell.ChecklistCell:
			return len(v.Options) > 0 && v.Percentage() >= 1
		case nil:
			return false
		}
		return cell.ParseCheckbox(cell.Text(c, target))
	}
}

func countIf(cells []cell.Cell, pred func(cell.Cell) bool) int {
	n := 0
	for _, c := range cells {
		if pred(c) {
			n++
		}
	}
	return n
}

func count(n int) Value {
	return Value{Text: strconv.Itoa(n), RawNumeric: numeric(float64(n))}
}

func percent(n, total int) Value {
	p := 0.0
	if total > 0 {
		p = float64(n) / float64(total) * 100
	}
	p = math.Round(p*100) / 100
	return Value{Text: strconv.FormatFloat(p, 'f', -1, 64) + "%", RawNumeric: numeric(p)}
}

func list(texts []string) Value {
	if len(texts) == 0 {
		return Value{}
	}
	return Value{Text: strings.Join(texts, ", "), List: texts}
}

func aggregate(calc typeoption.CalculationType, nums []float64, target *database.Field) Value {
	if len(nums) == 0 {
		if calc == typeoption.CalculationSum {
			return formatted(0, target)
		}
		return Value{}
	}
	var f float64
	switch calc {
	case typeoption.CalculationAverage:
		for _, n := range nums {
			f += n
		}
		f /= float64(len(nums))
	case typeoption.CalculationSum:
		for _, n := range nums {
			f += n
		}
	case typeoption.CalculationMax:
		f = slices.Max(nums)
	case typeoption.CalculationMin:
		f = slices.Min(nums)
	case typeoption.CalculationMedian:
		sorted := slices.Clone(nums)
		slices.Sort(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 0 {
			f = (sorted[mid-1] + sorted[mid]) / 2
		} else {
			f = sorted[mid]
		}
	}
	return formatted(f, target)
}

// formatted 目标为数字字段时沿用其显示格式，时长字段渲染为 HH:MM
func formatted(f float64, target *database.Field) Value {
	v := Value{RawNumeric: numeric(f)}
	switch {
	case target != nil && target.Type == database.FieldTypeNumber:
		v.Text = cell.FormatNumber(f, typeoption.Number(target))
	case target != nil && target.Type == database.FieldTypeTime:
		v.Text = cell.FormatTime(int64(f))
	default:
		v.Text = strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
	}
	return v
}

func dateAggregate(calc typeoption.CalculationType, cells []cell.Cell, target *database.Field, loc *time.Location) Value {
	var stamps []int64
	includeTime := false
	for _, c := range cells {
		if ts, ok := timestampOf(c); ok {
			stamps = append(stamps, ts)
		}
		switch v := c.(type) {
		case *cell.DateTimeCell:
			includeTime = includeTime || v.IncludeTime
		case *cell.TimestampCell:
			includeTime = includeTime || v.IncludeTime
		}
	}
	if len(stamps) == 0 {
		return Value{}
	}
	earliest, latest := slices.Min(stamps), slices.Max(stamps)

	var opt *typeoption.DateOption
	if target != nil {
		opt = typeoption.Date(target)
	}
	switch calc {
	case typeoption.CalculationDateEarliest:
		return Value{Text: cell.FormatDate(earliest, opt, includeTime, loc), RawNumeric: numeric(float64(earliest))}
	case typeoption.CalculationDateLatest:
		return Value{Text: cell.FormatDate(latest, opt, includeTime, loc), RawNumeric: numeric(float64(latest))}
	}
	days := (latest - earliest) / secondsPerDay
	return Value{Text: strconv.FormatInt(days, 10) + " days", RawNumeric: numeric(float64(days))}
}

func singleValue(cells []cell.Cell, target *database.Field) Value {
	for _, c := range cells {
		if isEmpty(c) {
			continue
		}
		text := cell.Text(c, target)
		if text == "" {
			continue
		}
		v := Value{Text: text}
		if f, ok := numberOf(c); ok {
			v.RawNumeric = numeric(f)
		}
		return v
	}
	return Value{}
}
