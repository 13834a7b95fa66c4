package typeoption

import "strconv"

// CalculationType 汇总字段的计算方式
type CalculationType int

const (
	CalculationAverage CalculationType = iota
	CalculationMax
	CalculationMedian
	CalculationMin
	CalculationSum
	CalculationCount
	CalculationCountEmpty
	CalculationCountNonEmpty
	CalculationCountChecked
	CalculationCountUnchecked
	CalculationPercentChecked
	CalculationPercentUnchecked
	CalculationPercentEmpty
	CalculationPercentNotEmpty
	CalculationDateEarliest
	CalculationDateLatest
	CalculationDateRange
	CalculationCountUnique
	CalculationShowOriginal
	CalculationShowUnique
	CalculationSingleValue
)

var calculationNames = [...]string{
	"Average", "Max", "Median", "Min", "Sum", "Count", "CountEmpty", "CountNonEmpty",
	"CountChecked", "CountUnchecked", "PercentChecked", "PercentUnchecked", "PercentEmpty",
	"PercentNotEmpty", "DateEarliest", "DateLatest", "DateRange", "CountUnique",
	"ShowOriginal", "ShowUnique", "SingleValue",
}

func (c CalculationType) String() string {
	if c >= 0 && int(c) < len(calculationNames) {
		return calculationNames[c]
	}
	return "CalculationType(" + strconv.Itoa(int(c)) + ")"
}

// IsNumeric 结果为数值的计算方式
func (c CalculationType) IsNumeric() bool {
	switch c {
	case CalculationShowOriginal, CalculationShowUnique, CalculationSingleValue,
		CalculationDateEarliest, CalculationDateLatest:
		return false
	}
	return true
}

// IsDate 以日期为输入的计算方式
func (c CalculationType) IsDate() bool {
	return c == CalculationDateEarliest || c == CalculationDateLatest || c == CalculationDateRange
}

// IsList 结果为列表的计算方式
func (c CalculationType) IsList() bool {
	return c == CalculationShowOriginal || c == CalculationShowUnique
}
