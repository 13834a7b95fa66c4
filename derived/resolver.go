package derived

import (
	"context"
	"strings"
	"time"

	"github.com/hatlonely/dbview/cell"
	"github.com/hatlonely/dbview/database"
	"github.com/hatlonely/dbview/document"
	"github.com/hatlonely/dbview/typeoption"
	"github.com/pkg/errors"
)

var (
	ErrFieldNotFound       = errors.New("field not found")
	ErrNotDerivedField     = errors.New("field is neither relation nor rollup")
	ErrRelatedNotAvailable = errors.New("related database not available")
)

// Dependency 派生值依赖的文档节点，RowID 和 FieldID 都为空表示依赖整个数据库的字段集合
type Dependency struct {
	DatabaseID string
	RowID      string
	FieldID    string
}

func (d Dependency) key() string {
	switch {
	case d.RowID != "":
		return "row:" + d.DatabaseID + ":" + d.RowID
	case d.FieldID != "":
		return "field:" + d.DatabaseID + ":" + d.FieldID
	}
	return "db:" + d.DatabaseID
}

// Resolution 一次解析的结果以及解析过程中读取过的节点
type Resolution struct {
	Value     Value
	Deps      []Dependency
	Databases []document.Database
}

func (r *Resolution) dependOn(databaseID, rowID, fieldID string) {
	r.Deps = append(r.Deps, Dependency{DatabaseID: databaseID, RowID: rowID, FieldID: fieldID})
}

// Resolver 解析关联字段的显示文本和汇总字段的计算结果
type Resolver struct {
	db       document.Database
	loader   document.DatabaseLoader
	opener   document.RowOpener
	location *time.Location
}

// NewResolver opener 为空时只读取常驻内存的行，loader 为空时关联数据库不可用
func NewResolver(db document.Database, loader document.DatabaseLoader, opener document.RowOpener) *Resolver {
	return &Resolver{db: db, loader: loader, opener: opener, location: time.UTC}
}

// WithLocation 设置汇总日期的显示时区
func (r *Resolver) WithLocation(loc *time.Location) *Resolver {
	if loc != nil {
		r.location = loc
	}
	return r
}

func (r *Resolver) Database() document.Database { return r.db }

func (r *Resolver) Resolve(ctx context.Context, rowID, fieldID string) (*Resolution, error) {
	res := &Resolution{}
	res.dependOn(r.db.ID(), "", fieldID)
	res.dependOn(r.db.ID(), rowID, "")

	field, ok := r.db.Field(fieldID)
	if !ok {
		return nil, errors.Wrapf(ErrFieldNotFound, "field [%s]", fieldID)
	}
	row, err := r.row(ctx, r.db, rowID)
	if err != nil {
		return nil, err
	}

	switch field.Type {
	case database.FieldTypeRelation:
		err = r.resolveRelation(ctx, res, row, field)
	case database.FieldTypeRollup:
		err = r.resolveRollup(ctx, res, row, field)
	default:
		err = errors.Wrapf(ErrNotDerivedField, "field [%s] type [%s]", fieldID, field.Type)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// row 常驻的行直接读取，否则打开行文档读取后立即销毁
func (r *Resolver) row(ctx context.Context, db document.Database, rowID string) (*database.Row, error) {
	if row, ok := db.Row(rowID); ok {
		return row, nil
	}
	if r.opener == nil {
		return nil, errors.Wrapf(document.ErrRowNotFound, "row [%s/%s] is not resident", db.ID(), rowID)
	}
	doc, provider, err := r.opener.OpenRow(ctx, db.ID(), rowID)
	if err != nil {
		return nil, errors.WithMessagef(err, "open row [%s/%s] failed", db.ID(), rowID)
	}
	row := doc.Row.Clone()
	_ = provider.Destroy()
	doc.Destroy()
	return row, nil
}

func (r *Resolver) related(ctx context.Context, res *Resolution, databaseID string) (document.Database, error) {
	if databaseID == "" || r.loader == nil {
		return nil, errors.Wrapf(ErrRelatedNotAvailable, "database [%s]", databaseID)
	}
	viewID, ok := r.loader.ViewIDFromDatabaseID(ctx, databaseID)
	if !ok {
		return nil, errors.Wrapf(ErrRelatedNotAvailable, "database [%s] has no view", databaseID)
	}
	db, err := r.loader.LoadView(ctx, viewID)
	if err != nil {
		return nil, errors.WithMessagef(err, "load view [%s] failed", viewID)
	}
	res.Databases = append(res.Databases, db)
	res.dependOn(db.ID(), "", "")
	return db, nil
}

// relatedRows 读取关联行，已被删除的行跳过
func (r *Resolver) relatedRows(ctx context.Context, res *Resolution, db document.Database, rowIDs []string) ([]*database.Row, error) {
	rows := make([]*database.Row, 0, len(rowIDs))
	for _, id := range rowIDs {
		res.dependOn(db.ID(), id, "")
		row, err := r.row(ctx, db, id)
		if errors.Is(err, document.ErrRowNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (r *Resolver) resolveRelation(ctx context.Context, res *Resolution, row *database.Row, field *database.Field) error {
	ids := relationRowIDs(row, field)
	if len(ids) == 0 {
		return nil
	}
	db, err := r.related(ctx, res, typeoption.Relation(field).DatabaseID)
	if err != nil {
		return err
	}
	primary := db.Fields().Primary()
	if primary == nil {
		return nil
	}
	res.dependOn(db.ID(), "", primary.ID)

	rows, err := r.relatedRows(ctx, res, db, ids)
	if err != nil {
		return err
	}
	texts := make([]string, 0, len(rows))
	for _, related := range rows {
		if text := cell.Text(cell.Of(related, primary), primary); text != "" {
			texts = append(texts, text)
		}
	}
	res.Value = Value{Text: strings.Join(texts, ", "), List: texts}
	return nil
}

func (r *Resolver) resolveRollup(ctx context.Context, res *Resolution, row *database.Row, field *database.Field) error {
	opt := typeoption.Rollup(field)
	res.dependOn(r.db.ID(), "", opt.RelationFieldID)

	relationField, ok := r.db.Field(opt.RelationFieldID)
	if !ok || relationField.Type != database.FieldTypeRelation {
		return nil
	}
	ids := relationRowIDs(row, relationField)
	db, err := r.related(ctx, res, typeoption.Relation(relationField).DatabaseID)
	if err != nil {
		return err
	}
	res.dependOn(db.ID(), "", opt.TargetFieldID)
	target, ok := db.Field(opt.TargetFieldID)
	if !ok {
		return nil
	}

	rows, err := r.relatedRows(ctx, res, db, ids)
	if err != nil {
		return err
	}
	cells := make([]cell.Cell, len(rows))
	for i, related := range rows {
		cells[i] = cell.Of(related, target)
	}
	res.Value = Calculate(opt.Calculation, cells, target, r.location)
	return nil
}

func relationRowIDs(row *database.Row, field *database.Field) []string {
	if c, ok := cell.Of(row, field).(*cell.RelationCell); ok {
		return c.RowIDs
	}
	return nil
}
