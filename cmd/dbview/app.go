package main

import (
	"context"
	"time"

	"github.com/hatlonely/dbview/database"
	"github.com/hatlonely/dbview/derived"
	"github.com/hatlonely/dbview/document"
	"github.com/hatlonely/dbview/log"
	"github.com/hatlonely/dbview/log/logger"
	"github.com/hatlonely/dbview/ref"
	"github.com/hatlonely/dbview/roworder"
	"github.com/hatlonely/dbview/typeoption"
	"github.com/hatlonely/dbview/uid"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

type Options struct {
	Logger *ref.TypeOptions `cfg:"logger"`
	// ID 行和视图 ID 的生成器，为空时使用 v7 UUID
	ID       *ref.TypeOptions               `cfg:"id"`
	RowStore document.StoreRowOpenerOptions `cfg:"rowStore"`
	Cache    derived.Options                `cfg:"cache"`
	RowOrder roworder.Options               `cfg:"rowOrder"`
	View     ViewOptions                    `cfg:"view"`
	// Wait 不监听配置时，启动后等待后台加载和派生值计算完成的时间
	Wait time.Duration `cfg:"wait" def:"500ms"`
}

type ViewOptions struct {
	Sorts   []SortOptions   `cfg:"sorts" validate:"dive"`
	Filters []FilterOptions `cfg:"filters" validate:"dive"`
}

type SortOptions struct {
	Field string `cfg:"field" validate:"required"`
	Desc  bool   `cfg:"desc"`
}

// FilterOptions Condition 按字段类型解释，例如数字字段的 2 表示大于
type FilterOptions struct {
	Field     string `cfg:"field" validate:"required"`
	Condition int    `cfg:"condition"`
	Content   string `cfg:"content"`
}

// App 示例任务库，一半的行常驻内存，另一半只在行文档存储中，由后台加载
type App struct {
	logger     logger.Logger
	gen        uid.Generator
	opener     *document.StoreRowOpener
	tasks      *document.MemDatabase
	people     *document.MemDatabase
	viewID     string
	cache      *derived.Cache
	controller *roworder.Controller
}

func NewAppWithOptions(ctx context.Context, options *Options) (*App, error) {
	l, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		return nil, errors.WithMessage(err, "log.NewLoggerWithOptions failed")
	}
	log.SetDefault(l)
	gen, err := uid.NewGeneratorWithOptions(options.ID)
	if err != nil {
		return nil, errors.WithMessage(err, "uid.NewGeneratorWithOptions failed")
	}
	opener, err := document.NewStoreRowOpenerWithOptions(&options.RowStore)
	if err != nil {
		return nil, errors.WithMessage(err, "document.NewStoreRowOpenerWithOptions failed")
	}

	app := &App{logger: l.WithGroup("app"), gen: gen, opener: opener}
	if err := app.seed(ctx); err != nil {
		_ = opener.Close()
		return nil, errors.WithMessage(err, "seed failed")
	}
	if err := app.ApplyView(&options.View); err != nil {
		_ = opener.Close()
		return nil, err
	}

	loader := document.NewMemLoader()
	loader.Add(app.people, "people")
	if app.cache, err = derived.NewCacheWithOptions(&options.Cache, derived.NewResolver(app.tasks, loader, opener)); err != nil {
		_ = opener.Close()
		return nil, errors.WithMessage(err, "derived.NewCacheWithOptions failed")
	}
	if app.controller, err = roworder.NewControllerWithOptions(&options.RowOrder, app.tasks, app.viewID); err != nil {
		_ = app.cache.Close()
		_ = opener.Close()
		return nil, errors.WithMessage(err, "roworder.NewControllerWithOptions failed")
	}
	app.controller.WithCache(app.cache).WithRowOpener(opener)
	return app, nil
}

func (a *App) seed(ctx context.Context) error {
	var err error
	if a.people, err = document.NewMemDatabase("people",
		&database.Field{ID: "name", Name: "Name", Type: database.FieldTypeRichText, IsPrimary: true},
	); err != nil {
		return err
	}
	owners := map[string]string{}
	for _, name := range []string{"zoe", "adam", "mia"} {
		id := a.gen.Generate()
		owners[name] = id
		a.people.PutRow(&database.Row{ID: id, Cells: map[string]database.RawCell{
			"name": database.NewRawCell(database.FieldTypeRichText, name),
		}})
	}
	a.people.PutView(&database.View{ID: "people", DatabaseID: "people"})

	owner := &database.Field{ID: "owner", Name: "Owner", Type: database.FieldTypeRelation}
	if err := typeoption.Put(owner, &typeoption.RelationOption{DatabaseID: "people"}); err != nil {
		return err
	}
	if a.tasks, err = document.NewMemDatabase("tasks",
		&database.Field{ID: "name", Name: "Name", Type: database.FieldTypeRichText, IsPrimary: true},
		&database.Field{ID: "score", Name: "Score", Type: database.FieldTypeNumber},
		&database.Field{ID: "done", Name: "Done", Type: database.FieldTypeCheckbox},
		owner,
	); err != nil {
		return err
	}

	samples := []struct {
		name, score, owner string
		done               bool
	}{
		{"write plan", "3", "zoe", true},
		{"review", "5", "adam", false},
		{"deploy", "1", "mia", false},
		{"test", "4", "zoe", false},
		{"docs", "", "adam", true},
		{"release", "2", "", false},
	}
	var stored []*database.Row
	var rowOrders []database.RowOrder
	for i, s := range samples {
		row := &database.Row{ID: a.gen.Generate(), Cells: map[string]database.RawCell{
			"name": database.NewRawCell(database.FieldTypeRichText, s.name),
			"done": database.NewRawCell(database.FieldTypeCheckbox, cast.ToString(s.done)),
		}}
		if s.score != "" {
			row.Cells["score"] = database.NewRawCell(database.FieldTypeNumber, s.score)
		}
		if s.owner != "" {
			row.Cells["owner"] = database.NewRawCell(database.FieldTypeRelation, owners[s.owner])
		}
		rowOrders = append(rowOrders, database.RowOrder{ID: row.ID})
		if i < len(samples)/2 {
			a.tasks.PutRow(row)
		} else {
			stored = append(stored, row)
		}
	}
	if err := a.opener.SaveRows(ctx, "tasks", stored...); err != nil {
		return err
	}

	a.viewID = a.gen.Generate()
	a.tasks.PutView(&database.View{ID: a.viewID, DatabaseID: "tasks", Name: "All tasks", RowOrders: rowOrders})
	return nil
}

// ApplyView 替换视图的排序和过滤条件
func (a *App) ApplyView(options *ViewOptions) error {
	sorts := make([]*database.Sort, 0, len(options.Sorts))
	for _, s := range options.Sorts {
		condition := database.SortAscending
		if s.Desc {
			condition = database.SortDescending
		}
		sorts = append(sorts, &database.Sort{ID: a.gen.Generate(), FieldID: s.Field, Condition: condition})
	}
	filters := make([]*database.Filter, 0, len(options.Filters))
	for _, f := range options.Filters {
		filters = append(filters, &database.Filter{
			ID: a.gen.Generate(), FieldID: f.Field, FilterType: database.FilterTypeData,
			Condition: f.Condition, Content: f.Content,
		})
	}
	if err := a.tasks.SetSorts(a.viewID, sorts); err != nil {
		return errors.WithMessage(err, "SetSorts failed")
	}
	if err := a.tasks.SetFilters(a.viewID, filters); err != nil {
		return errors.WithMessage(err, "SetFilters failed")
	}
	a.logger.Info("view applied", "sorts", len(sorts), "filters", len(filters))
	return nil
}

func (a *App) Start(ctx context.Context) error {
	a.controller.Subscribe(func(rows []database.RowOrder) {
		a.logger.Info("row order changed", "rows", a.Names(rows))
	})
	return a.controller.Start(ctx)
}

// Names 行的名称，优先读常驻的行，其次读后台加载的行
func (a *App) Names(rows []database.RowOrder) []string {
	loader := a.controller.Loader()
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		row, ok := a.tasks.Row(r.ID)
		if !ok && loader != nil {
			row, ok = loader.Row(r.ID)
		}
		if !ok {
			names = append(names, r.ID)
			continue
		}
		names = append(names, cast.ToString(row.Cell("name").Data()))
	}
	return names
}

func (a *App) Rows() []database.RowOrder {
	return a.controller.Rows()
}

func (a *App) Close() error {
	_ = a.controller.Close()
	_ = a.cache.Close()
	return a.opener.Close()
}
