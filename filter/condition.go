package filter

import (
	"strconv"
)

// 过滤条件编号只在字段类型内唯一，例如 0 对文本字段是 TextIs，对数字字段是 NumberEqual

type TextCondition int

const (
	TextIs TextCondition = iota
	TextIsNot
	TextContains
	TextDoesNotContain
	TextStartsWith
	TextEndsWith
	TextIsEmpty
	TextIsNotEmpty
)

type NumberCondition int

const (
	NumberEqual NumberCondition = iota
	NumberNotEqual
	NumberGreaterThan
	NumberLessThan
	NumberGreaterThanOrEqualTo
	NumberLessThanOrEqualTo
	NumberIsEmpty
	NumberIsNotEmpty
)

type CheckboxCondition int

const (
	CheckboxIsChecked CheckboxCondition = iota
	CheckboxIsUnchecked
)

type SelectCondition int

const (
	SelectIs SelectCondition = iota
	SelectIsNot
	SelectContains
	SelectDoesNotContain
	SelectIsEmpty
	SelectIsNotEmpty
)

type DateCondition int

const (
	DateIs DateCondition = iota
	DateBefore
	DateAfter
	DateOnOrBefore
	DateOnOrAfter
	DateWithin
	DateIsEmpty
	DateIsNotEmpty
)

type ChecklistCondition int

const (
	ChecklistIsComplete ChecklistCondition = iota
	ChecklistIsIncomplete
)

var textConditionNames = []string{"Is", "IsNot", "Contains", "DoesNotContain", "StartsWith", "EndsWith", "IsEmpty", "IsNotEmpty"}
var numberConditionNames = []string{"Equal", "NotEqual", "GreaterThan", "LessThan", "GreaterThanOrEqualTo", "LessThanOrEqualTo", "IsEmpty", "IsNotEmpty"}
var selectConditionNames = []string{"Is", "IsNot", "Contains", "DoesNotContain", "IsEmpty", "IsNotEmpty"}
var dateConditionNames = []string{"Is", "Before", "After", "OnOrBefore", "OnOrAfter", "Within", "IsEmpty", "IsNotEmpty"}

func conditionName(names []string, prefix string, c int) string {
	if c >= 0 && c < len(names) {
		return prefix + names[c]
	}
	return prefix + "Condition(" + strconv.Itoa(c) + ")"
}

func (c TextCondition) String() string   { return conditionName(textConditionNames, "Text", int(c)) }
func (c NumberCondition) String() string { return conditionName(numberConditionNames, "Number", int(c)) }
func (c SelectCondition) String() string { return conditionName(selectConditionNames, "Select", int(c)) }
func (c DateCondition) String() string   { return conditionName(dateConditionNames, "Date", int(c)) }

func (c CheckboxCondition) String() string {
	return conditionName([]string{"IsChecked", "IsUnchecked"}, "Checkbox", int(c))
}

func (c ChecklistCondition) String() string {
	return conditionName([]string{"IsComplete", "IsIncomplete"}, "Checklist", int(c))
}

// takesContent 条件是否需要比较对象，IsEmpty/IsNotEmpty 之类的条件不需要
func (c TextCondition) takesContent() bool   { return c != TextIsEmpty && c != TextIsNotEmpty }
func (c NumberCondition) takesContent() bool { return c != NumberIsEmpty && c != NumberIsNotEmpty }
func (c SelectCondition) takesContent() bool { return c != SelectIsEmpty && c != SelectIsNotEmpty }
func (c DateCondition) takesContent() bool   { return c != DateIsEmpty && c != DateIsNotEmpty }
