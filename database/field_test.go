package database

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestValidateFields(t *testing.T) {
	Convey("ValidateFields", t, func() {
		Convey("恰好一个主字段", func() {
			err := ValidateFields([]*Field{
				{ID: "name", Type: FieldTypeRichText, IsPrimary: true},
				{ID: "age", Type: FieldTypeNumber},
			})
			So(err, ShouldBeNil)
		})

		Convey("没有主字段", func() {
			err := ValidateFields([]*Field{{ID: "age", Type: FieldTypeNumber}})
			So(err, ShouldEqual, ErrNoPrimaryField)
		})

		Convey("多个主字段", func() {
			err := ValidateFields([]*Field{
				{ID: "a", IsPrimary: true},
				{ID: "b", IsPrimary: true},
			})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "more than one primary field")
		})
	})
}

func TestFieldSwitchType(t *testing.T) {
	Convey("Field.SwitchType", t, func() {
		f := &Field{ID: "f", Type: FieldTypeSingleSelect}
		f.SetTypeOption(map[string]any{"options": []any{}})

		f.SwitchType(FieldTypeRichText, 10)
		So(f.Type, ShouldEqual, FieldTypeRichText)
		So(f.LastModifiedAt, ShouldEqual, 10)

		_, ok := f.TypeOptionOf(FieldTypeSingleSelect)
		So(ok, ShouldBeTrue)
		_, ok = f.TypeOptionOf(FieldTypeRichText)
		So(ok, ShouldBeFalse)
	})
}

func TestRawCell(t *testing.T) {
	Convey("RawCell", t, func() {
		Convey("读取字段类型", func() {
			c := NewRawCell(FieldTypeCheckbox, "Yes")
			ft, ok := c.FieldType()
			So(ok, ShouldBeTrue)
			So(ft, ShouldEqual, FieldTypeCheckbox)
			So(c.Data(), ShouldEqual, "Yes")
		})

		Convey("字段类型为字符串或浮点", func() {
			ft, ok := RawCell{CellKeyFieldType: "2"}.FieldType()
			So(ok, ShouldBeTrue)
			So(ft, ShouldEqual, FieldTypeDateTime)

			ft, ok = RawCell{CellKeyFieldType: float64(5)}.FieldType()
			So(ok, ShouldBeTrue)
			So(ft, ShouldEqual, FieldTypeCheckbox)
		})

		Convey("nil 单元格", func() {
			var c RawCell
			So(c.Data(), ShouldBeNil)
			_, ok := c.FieldType()
			So(ok, ShouldBeFalse)
			So(c.Bool(CellKeyIncludeTime), ShouldBeFalse)
		})

		Convey("布尔属性", func() {
			c := RawCell{CellKeyIncludeTime: "true", CellKeyIsRange: 1}
			So(c.Bool(CellKeyIncludeTime), ShouldBeTrue)
			So(c.Bool(CellKeyIsRange), ShouldBeTrue)
		})
	})
}

func TestFieldTypeString(t *testing.T) {
	Convey("FieldType.String", t, func() {
		So(FieldTypeRollup.String(), ShouldEqual, "Rollup")
		So(FieldTypeRollup.Key(), ShouldEqual, "16")
		So(FieldType(99).Valid(), ShouldBeFalse)
		So(FieldType(99).String(), ShouldEqual, "FieldType(99)")
	})
}
