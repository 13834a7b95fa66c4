package sorting

import (
	"fmt"
	"math/rand"
	"strconv"
	"testing"

	"github.com/hatlonely/dbview/database"
	"github.com/hatlonely/dbview/typeoption"
	. "github.com/smartystreets/goconvey/convey"
)

func newFixture(field *database.Field, values []string) ([]database.RowOrder, database.RowDocs) {
	rows := make([]database.RowOrder, 0, len(values))
	docs := database.RowDocs{}
	for i, v := range values {
		id := "row-" + strconv.Itoa(i)
		rows = append(rows, database.RowOrder{ID: id})
		row := &database.Row{ID: id, Cells: map[string]database.RawCell{}}
		if v != "" {
			row.Cells[field.ID] = database.NewRawCell(field.Type, v)
		}
		docs[id] = row
	}
	return rows, docs
}

func valuesOf(rows []database.RowOrder, docs database.RowDocs, fieldID string) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		v := docs[r.ID].Cell(fieldID).Data()
		if v == nil {
			out = append(out, "")
			continue
		}
		out = append(out, fmt.Sprint(v))
	}
	return out
}

func sortOn(fieldID string, cond database.SortCondition) []*database.Sort {
	return []*database.Sort{{ID: "s-" + fieldID, FieldID: fieldID, Condition: cond}}
}

func TestNumberSort(t *testing.T) {
	Convey("数字排序，空值始终在最后", t, func() {
		num := &database.Field{ID: "num", Type: database.FieldTypeNumber}
		fields := database.NewFields(num)
		rows, docs := newFixture(num, []string{"-1", "-2", "0.1", "0.2", "1", "2", "10", "11", "12", ""})

		asc := SortBy(rows, sortOn("num", database.SortAscending), fields, docs, Resolvers{})
		So(valuesOf(asc, docs, "num"), ShouldResemble, []string{"-2", "-1", "0.1", "0.2", "1", "2", "10", "11", "12", ""})

		desc := SortBy(rows, sortOn("num", database.SortDescending), fields, docs, Resolvers{})
		So(valuesOf(desc, docs, "num"), ShouldResemble, []string{"12", "11", "10", "2", "1", "0.2", "0.1", "-1", "-2", ""})

		Convey("非数字内容按空值处理", func() {
			rows, docs := newFixture(num, []string{"abc", "3", "", "1"})
			got := SortBy(rows, sortOn("num", database.SortDescending), fields, docs, Resolvers{})
			So(database.RowIDs(got), ShouldResemble, []string{"row-1", "row-3", "row-0", "row-2"})
		})
	})
}

func TestSortProperties(t *testing.T) {
	Convey("排序是幂等且稳定的", t, func() {
		name := &database.Field{ID: "name", Type: database.FieldTypeRichText, IsPrimary: true}
		num := &database.Field{ID: "num", Type: database.FieldTypeNumber}
		fields := database.NewFields(name, num)

		r := rand.New(rand.NewSource(42))
		rows := make([]database.RowOrder, 0, 50)
		docs := database.RowDocs{}
		for i := 0; i < 50; i++ {
			id := "row-" + strconv.Itoa(i)
			rows = append(rows, database.RowOrder{ID: id})
			cells := map[string]database.RawCell{
				"name": database.NewRawCell(database.FieldTypeRichText, []string{"a", "B", "c"}[r.Intn(3)]),
			}
			if n := r.Intn(5); n > 0 {
				cells["num"] = database.NewRawCell(database.FieldTypeNumber, strconv.Itoa(n))
			}
			docs[id] = &database.Row{ID: id, Cells: cells}
		}
		sorts := []*database.Sort{
			{ID: "s1", FieldID: "name", Condition: database.SortAscending},
			{ID: "s2", FieldID: "num", Condition: database.SortDescending},
		}

		once := SortBy(rows, sorts, fields, docs, Resolvers{})
		twice := SortBy(once, sorts, fields, docs, Resolvers{})
		So(twice, ShouldResemble, once)

		// 排序键完全相同的行保持输入中的相对顺序
		position := map[string]int{}
		for i, row := range rows {
			position[row.ID] = i
		}
		for i := 1; i < len(once); i++ {
			a, b := docs[once[i-1].ID], docs[once[i].ID]
			if fmt.Sprint(a.Cell("name").Data()) == fmt.Sprint(b.Cell("name").Data()) &&
				fmt.Sprint(a.Cell("num").Data()) == fmt.Sprint(b.Cell("num").Data()) {
				So(position[once[i-1].ID], ShouldBeLessThan, position[once[i].ID])
			}
		}

		So(len(once), ShouldEqual, len(rows))
		So(SortBy(rows, sorts, fields, docs, Resolvers{})[0].ID, ShouldEqual, once[0].ID)
	})
}

func TestTextSort(t *testing.T) {
	Convey("文本忽略大小写", t, func() {
		name := &database.Field{ID: "name", Type: database.FieldTypeRichText, IsPrimary: true}
		fields := database.NewFields(name)
		rows, docs := newFixture(name, []string{"banana", "Apple", "cherry", "apple"})

		got := SortBy(rows, sortOn("name", database.SortAscending), fields, docs, Resolvers{})
		So(valuesOf(got, docs, "name"), ShouldResemble, []string{"Apple", "apple", "banana", "cherry"})

		got = SortBy(rows, sortOn("name", database.SortDescending), fields, docs, Resolvers{})
		So(valuesOf(got, docs, "name"), ShouldResemble, []string{"cherry", "banana", "Apple", "apple"})
	})
}

func TestCheckboxAndSelectSort(t *testing.T) {
	Convey("复选框未选中在前", t, func() {
		done := &database.Field{ID: "done", Type: database.FieldTypeCheckbox}
		rows, docs := newFixture(done, []string{"Yes", "No", "Yes", ""})
		got := SortBy(rows, sortOn("done", database.SortAscending), database.NewFields(done), docs, Resolvers{})
		So(database.RowIDs(got), ShouldResemble, []string{"row-1", "row-3", "row-0", "row-2"})
	})

	Convey("选项按配置顺序排序", t, func() {
		status := &database.Field{ID: "status", Type: database.FieldTypeSingleSelect}
		So(typeoption.Put(status, &typeoption.SelectOption{Options: []typeoption.SelectOptionItem{
			{ID: "todo", Name: "Zeta"}, {ID: "doing", Name: "Alpha"}, {ID: "done", Name: "Mid"},
		}}), ShouldBeNil)
		rows, docs := newFixture(status, []string{"done", "todo", "", "doing", "removed"})

		got := SortBy(rows, sortOn("status", database.SortAscending), database.NewFields(status), docs, Resolvers{})
		So(database.RowIDs(got), ShouldResemble, []string{"row-2", "row-1", "row-3", "row-0", "row-4"})
	})

	Convey("多选按选项序列比较", t, func() {
		tags := &database.Field{ID: "tags", Type: database.FieldTypeMultiSelect}
		So(typeoption.Put(tags, &typeoption.SelectOption{Options: []typeoption.SelectOptionItem{
			{ID: "a", Name: "A"}, {ID: "b", Name: "B"},
		}}), ShouldBeNil)
		rows, docs := newFixture(tags, []string{"b", "a,b", "a"})
		got := SortBy(rows, sortOn("tags", database.SortAscending), database.NewFields(tags), docs, Resolvers{})
		So(database.RowIDs(got), ShouldResemble, []string{"row-2", "row-1", "row-0"})
	})
}

func TestDateAndTimeSort(t *testing.T) {
	Convey("日期和时长空值在最后", t, func() {
		due := &database.Field{ID: "due", Type: database.FieldTypeDateTime}
		rows, docs := newFixture(due, []string{"1700000000", "", "1600000000"})
		got := SortBy(rows, sortOn("due", database.SortDescending), database.NewFields(due), docs, Resolvers{})
		So(database.RowIDs(got), ShouldResemble, []string{"row-0", "row-2", "row-1"})

		dur := &database.Field{ID: "dur", Type: database.FieldTypeTime}
		rows, docs = newFixture(dur, []string{"10:00", "bad", "09:30"})
		got = SortBy(rows, sortOn("dur", database.SortAscending), database.NewFields(dur), docs, Resolvers{})
		So(database.RowIDs(got), ShouldResemble, []string{"row-2", "row-0", "row-1"})
	})

	Convey("创建时间取自行元数据", t, func() {
		created := &database.Field{ID: "created", Type: database.FieldTypeCreatedTime}
		rows := []database.RowOrder{{ID: "a"}, {ID: "b"}, {ID: "c"}}
		docs := database.RowDocs{
			"a": {ID: "a", CreatedAt: 300},
			"b": {ID: "b", CreatedAt: 100},
		}
		got := SortBy(rows, sortOn("created", database.SortAscending), database.NewFields(created), docs, Resolvers{})
		So(database.RowIDs(got), ShouldResemble, []string{"b", "a", "c"})
	})
}

func TestMultiKeySort(t *testing.T) {
	Convey("多个排序条件依次比较", t, func() {
		group := &database.Field{ID: "group", Type: database.FieldTypeRichText, IsPrimary: true}
		score := &database.Field{ID: "score", Type: database.FieldTypeNumber}
		fields := database.NewFields(group, score)

		rows := []database.RowOrder{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}}
		docs := database.RowDocs{}
		for _, d := range []struct{ id, group, score string }{
			{"1", "b", "1"}, {"2", "a", "1"}, {"3", "b", "5"}, {"4", "a", "3"},
		} {
			docs[d.id] = &database.Row{ID: d.id, Cells: map[string]database.RawCell{
				"group": database.NewRawCell(database.FieldTypeRichText, d.group),
				"score": database.NewRawCell(database.FieldTypeNumber, d.score),
			}}
		}
		sorts := []*database.Sort{
			{ID: "s1", FieldID: "group", Condition: database.SortAscending},
			{ID: "s2", FieldID: "score", Condition: database.SortDescending},
		}
		got := SortBy(rows, sorts, fields, docs, Resolvers{})
		So(database.RowIDs(got), ShouldResemble, []string{"4", "2", "3", "1"})

		Convey("字段被删除时跳过该条件", func() {
			sorts = append([]*database.Sort{{ID: "s0", FieldID: "deleted"}}, sorts...)
			So(database.RowIDs(SortBy(rows, sorts, fields, docs, Resolvers{})), ShouldResemble, []string{"4", "2", "3", "1"})
		})

		Convey("没有生效的排序条件时返回副本", func() {
			got := SortBy(rows, []*database.Sort{{ID: "x", FieldID: "deleted"}}, fields, docs, Resolvers{})
			So(got, ShouldResemble, rows)
			got[0].Height = 99
			So(rows[0].Height, ShouldEqual, 0)
		})

		Convey("行文档缺失时排序键为空", func() {
			delete(docs, "3")
			So(database.RowIDs(SortBy(rows, sortOn("score", database.SortAscending), fields, docs, Resolvers{})), ShouldResemble, []string{"1", "2", "4", "3"})
		})
	})
}

func TestDerivedSort(t *testing.T) {
	Convey("关联和汇总字段", t, func() {
		rel := &database.Field{ID: "rel", Type: database.FieldTypeRelation}
		total := &database.Field{ID: "total", Type: database.FieldTypeRollup}
		So(typeoption.Put(total, &typeoption.RollupOption{RelationFieldID: "rel", TargetFieldID: "price", Calculation: typeoption.CalculationSum}), ShouldBeNil)
		fields := database.NewFields(rel, total)
		rows := []database.RowOrder{{ID: "a"}, {ID: "b"}, {ID: "c"}}
		docs := database.RowDocs{}

		numbers := map[string]float64{"a": 5, "c": 2}
		res := Resolvers{
			RelationText: func(rowID, fieldID string) (string, bool) {
				text, ok := map[string]string{"a": "zoo", "b": "Apple"}[rowID]
				return text, ok
			},
			RollupValue: func(rowID, fieldID string) (database.DerivedValue, bool) {
				n, ok := numbers[rowID]
				if !ok {
					return database.DerivedValue{}, false
				}
				return database.DerivedValue{Text: fmt.Sprint(n), RawNumeric: &n}, true
			},
		}

		got := SortBy(rows, sortOn("rel", database.SortAscending), fields, docs, res)
		So(database.RowIDs(got), ShouldResemble, []string{"c", "b", "a"})

		got = SortBy(rows, sortOn("total", database.SortDescending), fields, docs, res)
		So(database.RowIDs(got), ShouldResemble, []string{"a", "c", "b"})

		got = SortBy(rows, sortOn("total", database.SortAscending), fields, docs, Resolvers{})
		So(database.RowIDs(got), ShouldResemble, []string{"a", "b", "c"})
	})
}
