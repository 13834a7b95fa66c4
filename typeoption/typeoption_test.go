package typeoption

import (
	"testing"

	"github.com/hatlonely/dbview/database"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGet(t *testing.T) {
	Convey("Get", t, func() {
		Convey("读取当前类型的单选配置", func() {
			field := &database.Field{
				ID:   "status",
				Type: database.FieldTypeSingleSelect,
				TypeOption: map[string]any{
					database.FieldTypeSingleSelect.Key(): map[string]any{
						"options": []any{
							map[string]any{"id": "todo", "name": "Todo"},
							map[string]any{"id": "done", "name": "Done"},
						},
					},
				},
			}
			opt := Select(field)
			So(opt.Options, ShouldHaveLength, 2)
			So(opt.Index("done"), ShouldEqual, 1)
			So(opt.Index("missing"), ShouldEqual, -1)
			So(opt.Name("todo"), ShouldEqual, "Todo")
			So(opt.FieldType(), ShouldEqual, database.FieldTypeSingleSelect)
		})

		Convey("只读取当前类型的配置", func() {
			field := &database.Field{
				ID:   "status",
				Type: database.FieldTypeRichText,
				TypeOption: map[string]any{
					database.FieldTypeSingleSelect.Key(): map[string]any{
						"options": []any{map[string]any{"id": "todo", "name": "Todo"}},
					},
				},
			}
			So(Select(field).Options, ShouldBeEmpty)
			_, ok := Get(field).(*EmptyOption)
			So(ok, ShouldBeTrue)

			field.SwitchType(database.FieldTypeSingleSelect, 0)
			So(Select(field).Options, ShouldHaveLength, 1)
		})

		Convey("配置缺失返回默认值", func() {
			field := &database.Field{ID: "r", Type: database.FieldTypeRelation}
			So(Relation(field).DatabaseID, ShouldEqual, "")

			field = &database.Field{ID: "u", Type: database.FieldTypeRollup}
			So(Rollup(field).Calculation, ShouldEqual, CalculationCount)
		})

		Convey("配置格式错误返回默认值", func() {
			field := &database.Field{
				ID:   "d",
				Type: database.FieldTypeDateTime,
				TypeOption: map[string]any{
					database.FieldTypeDateTime.Key(): "{not json",
				},
			}
			opt := Date(field)
			So(opt.IncludeTime, ShouldBeFalse)
			So(opt.DateFormat, ShouldEqual, DateFormatFriendly)

			field.TypeOption[database.FieldTypeDateTime.Key()] = map[string]any{"include_time": "yes"}
			So(Date(field).IncludeTime, ShouldBeFalse)
		})

		Convey("读取汇总配置", func() {
			field := &database.Field{
				ID:   "total",
				Type: database.FieldTypeRollup,
				TypeOption: map[string]any{
					database.FieldTypeRollup.Key(): `{"relation_field_id":"rel","target_field_id":"price","calculation_type":4}`,
				},
			}
			opt := Rollup(field)
			So(opt.RelationFieldID, ShouldEqual, "rel")
			So(opt.TargetFieldID, ShouldEqual, "price")
			So(opt.Calculation, ShouldEqual, CalculationSum)
		})

		Convey("nil 字段", func() {
			So(Get(nil), ShouldNotBeNil)
			So(Select(nil).Options, ShouldBeEmpty)
		})
	})
}

func TestPut(t *testing.T) {
	Convey("Put", t, func() {
		Convey("写入后可读回", func() {
			field := &database.Field{ID: "rel", Type: database.FieldTypeRelation}
			err := Put(field, &RelationOption{DatabaseID: "db-2"})
			So(err, ShouldBeNil)
			So(Relation(field).DatabaseID, ShouldEqual, "db-2")
		})

		Convey("类型不匹配返回错误", func() {
			field := &database.Field{ID: "rel", Type: database.FieldTypeRelation}
			err := Put(field, &NumberOption{})
			So(err, ShouldNotBeNil)
		})

		Convey("切换类型不丢失历史配置", func() {
			field := &database.Field{ID: "s", Type: database.FieldTypeMultiSelect}
			So(Put(field, &SelectOption{Options: []SelectOptionItem{{ID: "a", Name: "A"}}}), ShouldBeNil)

			field.SwitchType(database.FieldTypeNumber, 1)
			So(Put(field, &NumberOption{Format: NumberFormatUSD}), ShouldBeNil)

			field.SwitchType(database.FieldTypeMultiSelect, 2)
			So(Select(field).Options, ShouldHaveLength, 1)
			field.SwitchType(database.FieldTypeNumber, 3)
			So(Number(field).Format, ShouldEqual, NumberFormatUSD)
		})
	})
}

func TestCalculationType(t *testing.T) {
	Convey("CalculationType", t, func() {
		So(CalculationSingleValue, ShouldEqual, 20)
		So(CalculationSum.String(), ShouldEqual, "Sum")
		So(CalculationType(42).String(), ShouldEqual, "CalculationType(42)")
		So(CalculationSum.IsNumeric(), ShouldBeTrue)
		So(CalculationShowOriginal.IsNumeric(), ShouldBeFalse)
		So(CalculationShowUnique.IsList(), ShouldBeTrue)
		So(CalculationDateRange.IsDate(), ShouldBeTrue)
		So(CalculationDateRange.IsNumeric(), ShouldBeTrue)
	})
}
