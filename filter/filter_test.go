package filter

import (
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/hatlonely/dbview/database"
	. "github.com/smartystreets/goconvey/convey"
)

// newFixture 每行一个字段值，空字符串表示单元格缺失
func newFixture(field *database.Field, values []string) ([]database.RowOrder, database.RowDocs) {
	rows := make([]database.RowOrder, 0, len(values))
	docs := database.RowDocs{}
	for i, v := range values {
		id := "row-" + strconv.Itoa(i)
		rows = append(rows, database.RowOrder{ID: id, Height: 36})
		row := &database.Row{ID: id, Cells: map[string]database.RawCell{}}
		if v != "" {
			row.Cells[field.ID] = database.NewRawCell(field.Type, v)
		}
		docs[id] = row
	}
	return rows, docs
}

func dataFilter(fieldID string, cond int, content string) *database.Filter {
	return &database.Filter{ID: fieldID + "-" + strconv.Itoa(cond), FieldID: fieldID, FilterType: database.FilterTypeData, Condition: cond, Content: content}
}

func TestTextFilter(t *testing.T) {
	Convey("文本过滤", t, func() {
		name := &database.Field{ID: "name", Type: database.FieldTypeRichText, IsPrimary: true}
		fields := database.NewFields(name)
		rows, docs := newFixture(name, []string{"A", "B", "C", "D", "E", "", "", "", "", ""})

		for _, c := range []struct {
			cond    TextCondition
			content string
			want    int
		}{
			{TextIs, "A", 1},
			{TextIsNot, "A", 9},
			{TextContains, "A", 1},
			{TextContains, "a", 0},
			{TextDoesNotContain, "A", 9},
			{TextStartsWith, "B", 1},
			{TextEndsWith, "E", 1},
			{TextIsEmpty, "", 5},
			{TextIsNotEmpty, "", 5},
			{TextIs, "", 10},
		} {
			got := FilterBy(rows, []*database.Filter{dataFilter("name", int(c.cond), c.content)}, fields, docs, Resolvers{})
			So(len(got), ShouldEqual, c.want)
		}
	})
}

func TestNumberFilter(t *testing.T) {
	Convey("数字过滤", t, func() {
		num := &database.Field{ID: "num", Type: database.FieldTypeNumber}
		fields := database.NewFields(num)
		rows, docs := newFixture(num, []string{"-1", "-2", "0.1", "0.2", "1", "2", "10", "11", "12", ""})

		values := func(got []database.RowOrder) []string {
			var out []string
			for _, r := range got {
				out = append(out, fmt.Sprint(docs[r.ID].Cell("num").Data()))
			}
			return out
		}

		got := FilterBy(rows, []*database.Filter{dataFilter("num", int(NumberEqual), "1")}, fields, docs, Resolvers{})
		So(values(got), ShouldResemble, []string{"1"})

		got = FilterBy(rows, []*database.Filter{dataFilter("num", int(NumberGreaterThan), "1")}, fields, docs, Resolvers{})
		So(values(got), ShouldResemble, []string{"2", "10", "11", "12"})

		got = FilterBy(rows, []*database.Filter{dataFilter("num", int(NumberLessThanOrEqualTo), "1")}, fields, docs, Resolvers{})
		So(values(got), ShouldResemble, []string{"-1", "-2", "0.1", "0.2", "1"})

		got = FilterBy(rows, []*database.Filter{dataFilter("num", int(NumberIsEmpty), "")}, fields, docs, Resolvers{})
		So(got, ShouldHaveLength, 1)
		So(got[0].ID, ShouldEqual, "row-9")

		got = FilterBy(rows, []*database.Filter{dataFilter("num", int(NumberIsNotEmpty), "")}, fields, docs, Resolvers{})
		So(got, ShouldHaveLength, 9)

		got = FilterBy(rows, []*database.Filter{dataFilter("num", int(NumberNotEqual), "1")}, fields, docs, Resolvers{})
		So(got, ShouldHaveLength, 9)

		got = FilterBy(rows, []*database.Filter{dataFilter("num", int(NumberLessThan), "0")}, fields, docs, Resolvers{})
		So(values(got), ShouldResemble, []string{"-1", "-2"})

		got = FilterBy(rows, []*database.Filter{dataFilter("num", int(NumberGreaterThanOrEqualTo), "abc")}, fields, docs, Resolvers{})
		So(got, ShouldHaveLength, 10)
	})
}

func TestConjunction(t *testing.T) {
	Convey("多个过滤条件取交集，与应用顺序无关", t, func() {
		name := &database.Field{ID: "name", Type: database.FieldTypeRichText, IsPrimary: true}
		num := &database.Field{ID: "num", Type: database.FieldTypeNumber}
		fields := database.NewFields(name, num)

		rows := []database.RowOrder{}
		docs := database.RowDocs{}
		for i, n := range []string{"1", "2", "3", "4", "5", "6"} {
			id := "r" + n
			rows = append(rows, database.RowOrder{ID: id})
			docs[id] = &database.Row{ID: id, Cells: map[string]database.RawCell{
				"name": database.NewRawCell(database.FieldTypeRichText, []string{"apple", "banana", "apricot"}[i%3]),
				"num":  database.NewRawCell(database.FieldTypeNumber, n),
			}}
		}

		f1 := dataFilter("name", int(TextStartsWith), "ap")
		f2 := dataFilter("num", int(NumberGreaterThan), "2")

		both := FilterBy(rows, []*database.Filter{f1, f2}, fields, docs, Resolvers{})
		chained := FilterBy(FilterBy(rows, []*database.Filter{f1}, fields, docs, Resolvers{}), []*database.Filter{f2}, fields, docs, Resolvers{})
		reversed := FilterBy(FilterBy(rows, []*database.Filter{f2}, fields, docs, Resolvers{}), []*database.Filter{f1}, fields, docs, Resolvers{})

		So(database.RowIDs(both), ShouldResemble, []string{"r3", "r4", "r6"})
		So(chained, ShouldResemble, both)
		So(reversed, ShouldResemble, both)
	})
}

func TestFilterEdgeCases(t *testing.T) {
	Convey("异常输入不影响计算", t, func() {
		name := &database.Field{ID: "name", Type: database.FieldTypeRichText, IsPrimary: true}
		fields := database.NewFields(name)
		rows, docs := newFixture(name, []string{"A", "B", ""})

		Convey("字段不存在时忽略条件", func() {
			got := FilterBy(rows, []*database.Filter{dataFilter("deleted", int(TextIs), "A")}, fields, docs, Resolvers{})
			So(got, ShouldResemble, rows)
		})

		Convey("行文档缺失按空行处理", func() {
			delete(docs, "row-0")
			got := FilterBy(rows, []*database.Filter{dataFilter("name", int(TextIsEmpty), "")}, fields, docs, Resolvers{})
			So(database.RowIDs(got), ShouldResemble, []string{"row-0", "row-2"})
		})

		Convey("nil 条件被忽略", func() {
			got := FilterBy(rows, []*database.Filter{nil}, fields, docs, Resolvers{})
			So(got, ShouldResemble, rows)
		})
	})
}

func TestGroupFilter(t *testing.T) {
	Convey("And/Or 分组", t, func() {
		name := &database.Field{ID: "name", Type: database.FieldTypeRichText, IsPrimary: true}
		fields := database.NewFields(name)
		rows, docs := newFixture(name, []string{"A", "B", "C", ""})

		or := &database.Filter{ID: "or", FilterType: database.FilterTypeOr, Children: []*database.Filter{
			dataFilter("name", int(TextIs), "A"),
			dataFilter("name", int(TextIs), "C"),
			dataFilter("deleted", int(TextIs), "B"),
		}}
		got := FilterBy(rows, []*database.Filter{or}, fields, docs, Resolvers{})
		So(database.RowIDs(got), ShouldResemble, []string{"row-0", "row-2"})

		and := &database.Filter{ID: "and", FilterType: database.FilterTypeAnd, Children: []*database.Filter{
			or,
			dataFilter("name", int(TextIsNot), "A"),
		}}
		got = FilterBy(rows, []*database.Filter{and}, fields, docs, Resolvers{})
		So(database.RowIDs(got), ShouldResemble, []string{"row-2"})

		empty := &database.Filter{ID: "empty", FilterType: database.FilterTypeOr}
		So(FilterBy(rows, []*database.Filter{empty}, fields, docs, Resolvers{}), ShouldHaveLength, 4)
	})
}

func TestCheckboxAndSelectFilter(t *testing.T) {
	Convey("复选框", t, func() {
		done := &database.Field{ID: "done", Type: database.FieldTypeCheckbox}
		fields := database.NewFields(done)
		rows, docs := newFixture(done, []string{"Yes", "No", "", "true"})

		got := FilterBy(rows, []*database.Filter{dataFilter("done", int(CheckboxIsChecked), "")}, fields, docs, Resolvers{})
		So(database.RowIDs(got), ShouldResemble, []string{"row-0", "row-3"})
		got = FilterBy(rows, []*database.Filter{dataFilter("done", int(CheckboxIsUnchecked), "")}, fields, docs, Resolvers{})
		So(database.RowIDs(got), ShouldResemble, []string{"row-1", "row-2"})
	})

	Convey("选项", t, func() {
		tags := &database.Field{ID: "tags", Type: database.FieldTypeMultiSelect}
		fields := database.NewFields(tags)
		rows, docs := newFixture(tags, []string{"a", "a,b", "b", ""})

		cases := []struct {
			cond    SelectCondition
			content string
			want    []string
		}{
			{SelectIs, "a", []string{"row-0"}},
			{SelectIs, "b,a", []string{"row-1"}},
			{SelectIsNot, "a", []string{"row-1", "row-2", "row-3"}},
			{SelectContains, "a", []string{"row-0", "row-1"}},
			{SelectDoesNotContain, "a", []string{"row-2", "row-3"}},
			{SelectIsEmpty, "", []string{"row-3"}},
			{SelectIsNotEmpty, "", []string{"row-0", "row-1", "row-2"}},
		}
		for _, c := range cases {
			got := FilterBy(rows, []*database.Filter{dataFilter("tags", int(c.cond), c.content)}, fields, docs, Resolvers{})
			So(database.RowIDs(got), ShouldResemble, c.want)
		}

		status := &database.Field{ID: "status", Type: database.FieldTypeSingleSelect}
		rows, docs = newFixture(status, []string{"todo", "done", ""})
		got := FilterBy(rows, []*database.Filter{dataFilter("status", int(SelectIs), "todo,doing")}, database.NewFields(status), docs, Resolvers{})
		So(database.RowIDs(got), ShouldResemble, []string{"row-0"})
	})
}

func TestDateFilter(t *testing.T) {
	Convey("日期过滤", t, func() {
		due := &database.Field{ID: "due", Type: database.FieldTypeDateTime}
		fields := database.NewFields(due)

		day := func(d int, hour int) string {
			return strconv.FormatInt(time.Date(2024, 3, d, hour, 0, 0, 0, time.UTC).Unix(), 10)
		}
		rows, docs := newFixture(due, []string{day(1, 8), day(2, 9), day(2, 20), day(3, 10), ""})
		target := fmt.Sprintf(`{"timestamp":%s}`, day(2, 12))

		cases := []struct {
			cond    DateCondition
			content string
			want    []string
		}{
			{DateIs, target, []string{"row-1", "row-2"}},
			{DateBefore, target, []string{"row-0"}},
			{DateAfter, target, []string{"row-3"}},
			{DateOnOrBefore, target, []string{"row-0", "row-1", "row-2"}},
			{DateOnOrAfter, target, []string{"row-1", "row-2", "row-3"}},
			{DateWithin, fmt.Sprintf(`{"start":%s,"end":"%s"}`, day(2, 23), day(3, 0)), []string{"row-1", "row-2", "row-3"}},
			{DateIsEmpty, "", []string{"row-4"}},
			{DateIsNotEmpty, "", []string{"row-0", "row-1", "row-2", "row-3"}},
			{DateBefore, "", []string{"row-0", "row-1", "row-2", "row-3", "row-4"}},
		}
		for _, c := range cases {
			got := FilterBy(rows, []*database.Filter{dataFilter("due", int(c.cond), c.content)}, fields, docs, Resolvers{})
			So(database.RowIDs(got), ShouldResemble, c.want)
		}

		Convey("包含时间时按秒比较先后", func() {
			for _, id := range []string{"row-1", "row-2"} {
				docs[id].Cells["due"][database.CellKeyIncludeTime] = true
			}
			got := FilterBy(rows, []*database.Filter{dataFilter("due", int(DateBefore), target)}, fields, docs, Resolvers{})
			So(database.RowIDs(got), ShouldResemble, []string{"row-0", "row-1"})
			got = FilterBy(rows, []*database.Filter{dataFilter("due", int(DateIs), target)}, fields, docs, Resolvers{})
			So(database.RowIDs(got), ShouldResemble, []string{"row-1", "row-2"})
		})

		Convey("按配置的时区计算日期", func() {
			loc := time.FixedZone("UTC+8", 8*3600)
			// 3 月 2 日 20:00 UTC 在东八区是 3 月 3 日
			got := FilterBy(rows, []*database.Filter{dataFilter("due", int(DateIs), target)}, fields, docs, Resolvers{Location: loc})
			So(database.RowIDs(got), ShouldResemble, []string{"row-1"})
		})
	})
}

func TestDerivedFilter(t *testing.T) {
	Convey("关联和汇总字段", t, func() {
		rel := &database.Field{ID: "rel", Type: database.FieldTypeRelation}
		rollup := &database.Field{ID: "total", Type: database.FieldTypeRollup}
		fields := database.NewFields(rel, rollup)
		rows, docs := newFixture(rel, []string{"x", "y", "z"})

		res := Resolvers{
			RelationText: func(rowID, fieldID string) (string, bool) {
				switch rowID {
				case "row-0":
					return "Alpha, Beta", true
				case "row-1":
					return "Gamma", true
				}
				return "", false
			},
			RollupText: func(rowID, fieldID string) (string, bool) {
				return "3", rowID != "row-2"
			},
		}

		got := FilterBy(rows, []*database.Filter{dataFilter("rel", int(TextContains), "Beta")}, fields, docs, res)
		So(database.RowIDs(got), ShouldResemble, []string{"row-0", "row-2"})

		got = FilterBy(rows, []*database.Filter{dataFilter("total", int(TextIs), "4")}, fields, docs, res)
		So(database.RowIDs(got), ShouldResemble, []string{"row-2"})

		got = FilterBy(rows, []*database.Filter{dataFilter("rel", int(TextIs), "Gamma")}, fields, docs, Resolvers{})
		So(got, ShouldHaveLength, 3)
	})
}

func TestChecklistAndTimeFilter(t *testing.T) {
	Convey("检查清单", t, func() {
		todo := &database.Field{ID: "todo", Type: database.FieldTypeChecklist}
		rows, docs := newFixture(todo, []string{
			`{"options":[{"id":"1","name":"a"}],"selected_option_ids":["1"]}`,
			`{"options":[{"id":"1","name":"a"},{"id":"2","name":"b"}],"selected_option_ids":["1"]}`,
			"",
		})
		fields := database.NewFields(todo)
		got := FilterBy(rows, []*database.Filter{dataFilter("todo", int(ChecklistIsComplete), "")}, fields, docs, Resolvers{})
		So(database.RowIDs(got), ShouldResemble, []string{"row-0"})
		got = FilterBy(rows, []*database.Filter{dataFilter("todo", int(ChecklistIsIncomplete), "")}, fields, docs, Resolvers{})
		So(database.RowIDs(got), ShouldResemble, []string{"row-1", "row-2"})
	})

	Convey("时长按毫秒比较", t, func() {
		dur := &database.Field{ID: "dur", Type: database.FieldTypeTime}
		rows, docs := newFixture(dur, []string{"09:30", "34200000", "10:00", "bad"})
		fields := database.NewFields(dur)
		got := FilterBy(rows, []*database.Filter{dataFilter("dur", int(NumberEqual), "34200000")}, fields, docs, Resolvers{})
		So(database.RowIDs(got), ShouldResemble, []string{"row-0", "row-1"})
		got = FilterBy(rows, []*database.Filter{dataFilter("dur", int(NumberIsEmpty), "")}, fields, docs, Resolvers{})
		So(database.RowIDs(got), ShouldResemble, []string{"row-3"})
	})
}

func TestConditionString(t *testing.T) {
	Convey("条件名称", t, func() {
		So(TextContains.String(), ShouldEqual, "TextContains")
		So(NumberLessThanOrEqualTo.String(), ShouldEqual, "NumberLessThanOrEqualTo")
		So(DateWithin.String(), ShouldEqual, "DateWithin")
		So(CheckboxIsUnchecked.String(), ShouldEqual, "CheckboxIsUnchecked")
		So(SelectCondition(99).String(), ShouldEqual, "SelectCondition(99)")
	})
}
