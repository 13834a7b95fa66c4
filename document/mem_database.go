package document

import (
	"context"
	"sync"

	"github.com/hatlonely/dbview/database"
	"github.com/pkg/errors"
)

// MemDatabase 内存中的数据库文档，修改方法在释放锁之后发布变更事件
type MemDatabase struct {
	id  string
	bus *Bus

	mu     sync.RWMutex
	fields database.Fields
	views  map[string]*database.View
	rows   map[string]*database.Row
}

func NewMemDatabase(id string, fields ...*database.Field) (*MemDatabase, error) {
	if err := database.ValidateFields(fields); err != nil {
		return nil, errors.WithMessage(err, "database.ValidateFields failed")
	}
	cloned := make([]*database.Field, len(fields))
	for i, f := range fields {
		cloned[i] = f.Clone()
	}
	return &MemDatabase{
		id:     id,
		bus:    NewBus(),
		fields: database.NewFields(cloned...),
		views:  map[string]*database.View{},
		rows:   map[string]*database.Row{},
	}, nil
}

func (d *MemDatabase) ID() string { return d.id }

func (d *MemDatabase) Subscribe(fn func(Event)) func() {
	return d.bus.Subscribe(fn)
}

// Fields 返回字段集合的副本
func (d *MemDatabase) Fields() database.Fields {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fs := make(database.Fields, len(d.fields))
	for id, f := range d.fields {
		fs[id] = f.Clone()
	}
	return fs
}

func (d *MemDatabase) Field(id string) (*database.Field, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	f, ok := d.fields[id]
	if !ok {
		return nil, false
	}
	return f.Clone(), true
}

func (d *MemDatabase) View(viewID string) (*database.View, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.views[viewID]
	if !ok {
		return nil, false
	}
	return v.Clone(), true
}

func (d *MemDatabase) Row(rowID string) (*database.Row, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.rows[rowID]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// ResidentCount 已加载的行文档数量
func (d *MemDatabase) ResidentCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rows)
}

func (d *MemDatabase) PutView(view *database.View) {
	v := view.Clone()
	v.DatabaseID = d.id
	d.mu.Lock()
	d.views[v.ID] = v
	d.mu.Unlock()

	d.bus.Publish(Event{Type: EventRowOrdersChanged, DatabaseID: d.id, ViewID: v.ID})
	d.bus.Publish(Event{Type: EventFiltersChanged, DatabaseID: d.id, ViewID: v.ID})
	d.bus.Publish(Event{Type: EventSortsChanged, DatabaseID: d.id, ViewID: v.ID})
}

func (d *MemDatabase) updateView(viewID string, typ EventType, fn func(v *database.View)) error {
	d.mu.Lock()
	v, ok := d.views[viewID]
	if !ok {
		d.mu.Unlock()
		return errors.Wrapf(ErrViewNotFound, "view [%s]", viewID)
	}
	fn(v)
	d.mu.Unlock()

	d.bus.Publish(Event{Type: typ, DatabaseID: d.id, ViewID: viewID})
	return nil
}

func (d *MemDatabase) SetRowOrders(viewID string, rows []database.RowOrder) error {
	rows = append([]database.RowOrder(nil), rows...)
	return d.updateView(viewID, EventRowOrdersChanged, func(v *database.View) { v.RowOrders = rows })
}

// InsertRowOrder 在 index 位置插入行，index 越界时追加到末尾
func (d *MemDatabase) InsertRowOrder(viewID string, index int, row database.RowOrder) error {
	return d.updateView(viewID, EventRowOrdersChanged, func(v *database.View) {
		if index < 0 || index > len(v.RowOrders) {
			index = len(v.RowOrders)
		}
		v.RowOrders = append(v.RowOrders[:index], append([]database.RowOrder{row}, v.RowOrders[index:]...)...)
	})
}

func (d *MemDatabase) SetFilters(viewID string, filters []*database.Filter) error {
	cloned := make([]*database.Filter, len(filters))
	for i, f := range filters {
		cloned[i] = f.Clone()
	}
	return d.updateView(viewID, EventFiltersChanged, func(v *database.View) { v.Filters = cloned })
}

func (d *MemDatabase) SetSorts(viewID string, sorts []*database.Sort) error {
	cloned := make([]*database.Sort, 0, len(sorts))
	for _, s := range sorts {
		if s != nil {
			c := *s
			cloned = append(cloned, &c)
		}
	}
	return d.updateView(viewID, EventSortsChanged, func(v *database.View) { v.Sorts = cloned })
}

// PutField 新增或替换字段，替换后仍需满足唯一主字段
func (d *MemDatabase) PutField(field *database.Field) error {
	f := field.Clone()
	d.mu.Lock()
	next := make([]*database.Field, 0, len(d.fields)+1)
	for id, existing := range d.fields {
		if id != f.ID {
			next = append(next, existing)
		}
	}
	next = append(next, f)
	if err := database.ValidateFields(next); err != nil {
		d.mu.Unlock()
		return errors.WithMessage(err, "database.ValidateFields failed")
	}
	d.fields[f.ID] = f
	d.mu.Unlock()

	d.bus.Publish(Event{Type: EventFieldsChanged, DatabaseID: d.id, FieldID: f.ID})
	return nil
}

// SwitchFieldType 修改字段类型，历史类型配置保留
func (d *MemDatabase) SwitchFieldType(fieldID string, t database.FieldType, modifiedAt int64) error {
	d.mu.Lock()
	f, ok := d.fields[fieldID]
	if !ok {
		d.mu.Unlock()
		return errors.Errorf("field [%s] not found", fieldID)
	}
	f.SwitchType(t, modifiedAt)
	d.mu.Unlock()

	d.bus.Publish(Event{Type: EventFieldsChanged, DatabaseID: d.id, FieldID: fieldID})
	return nil
}

func (d *MemDatabase) DeleteField(fieldID string) error {
	d.mu.Lock()
	f, ok := d.fields[fieldID]
	if !ok {
		d.mu.Unlock()
		return nil
	}
	if f.IsPrimary {
		d.mu.Unlock()
		return errors.Errorf("cannot delete primary field [%s]", fieldID)
	}
	delete(d.fields, fieldID)
	d.mu.Unlock()

	d.bus.Publish(Event{Type: EventFieldsChanged, DatabaseID: d.id, FieldID: fieldID})
	return nil
}

// PutRow 行文档通过前台路径加载或整体替换
func (d *MemDatabase) PutRow(row *database.Row) {
	r := row.Clone()
	d.mu.Lock()
	_, existed := d.rows[r.ID]
	d.rows[r.ID] = r
	d.mu.Unlock()

	typ := EventRowLoaded
	if existed {
		typ = EventRowChanged
	}
	d.bus.Publish(Event{Type: typ, DatabaseID: d.id, RowID: r.ID})
}

// UpdateCell 修改已加载行的单元格
func (d *MemDatabase) UpdateCell(rowID, fieldID string, raw database.RawCell, modifiedAt int64) error {
	d.mu.Lock()
	r, ok := d.rows[rowID]
	if !ok {
		d.mu.Unlock()
		return errors.Wrapf(ErrRowNotFound, "row [%s]", rowID)
	}
	if r.Cells == nil {
		r.Cells = map[string]database.RawCell{}
	}
	r.Cells[fieldID] = raw.Clone()
	r.LastModifiedAt = modifiedAt
	d.mu.Unlock()

	d.bus.Publish(Event{Type: EventRowChanged, DatabaseID: d.id, RowID: rowID, FieldID: fieldID})
	return nil
}

// UnloadRow 行文档不再常驻内存
func (d *MemDatabase) UnloadRow(rowID string) {
	d.mu.Lock()
	_, existed := d.rows[rowID]
	delete(d.rows, rowID)
	d.mu.Unlock()

	if existed {
		d.bus.Publish(Event{Type: EventRowUnloaded, DatabaseID: d.id, RowID: rowID})
	}
}

// MemLoader 按数据库 id 查找内存数据库，用于关联和汇总字段的解析
type MemLoader struct {
	mu        sync.RWMutex
	viewIDs   map[string]string
	databases map[string]Database
}

func NewMemLoader() *MemLoader {
	return &MemLoader{viewIDs: map[string]string{}, databases: map[string]Database{}}
}

// Add 注册数据库及其默认视图
func (l *MemLoader) Add(db Database, viewID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.viewIDs[db.ID()] = viewID
	l.databases[viewID] = db
}

func (l *MemLoader) ViewIDFromDatabaseID(ctx context.Context, databaseID string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	viewID, ok := l.viewIDs[databaseID]
	return viewID, ok
}

func (l *MemLoader) LoadView(ctx context.Context, viewID string) (Database, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	db, ok := l.databases[viewID]
	if !ok {
		return nil, errors.Wrapf(ErrViewNotFound, "view [%s]", viewID)
	}
	return db, nil
}
