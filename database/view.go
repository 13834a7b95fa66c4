package database

// FilterType 过滤器节点类型
type FilterType int

const (
	FilterTypeAnd FilterType = iota
	FilterTypeOr
	FilterTypeData
)

// Filter 视图上的单个过滤条件
//
// Condition 的取值只在字段类型范围内唯一，必须与被过滤字段的类型一起解释。
// FilterType 为 And/Or 时 Children 为子条件，Data 时为叶子条件。
type Filter struct {
	ID         string     `json:"id" msgpack:"id"`
	FieldID    string     `json:"field_id" msgpack:"field_id"`
	FilterType FilterType `json:"filter_type" msgpack:"filter_type"`
	Condition  int        `json:"condition" msgpack:"condition"`
	Content    string     `json:"content" msgpack:"content"`
	Children   []*Filter  `json:"children,omitempty" msgpack:"children,omitempty"`
}

// SortCondition 排序方向
type SortCondition int

const (
	SortAscending SortCondition = iota
	SortDescending
)

func (c SortCondition) String() string {
	if c == SortDescending {
		return "desc"
	}
	return "asc"
}

// Sort 视图上的排序条件，列表顺序决定优先级
type Sort struct {
	ID        string        `json:"id" msgpack:"id"`
	FieldID   string        `json:"field_id" msgpack:"field_id"`
	Condition SortCondition `json:"condition" msgpack:"condition"`
}

// View 数据库视图，RowOrders 为文档中持久化的基础行顺序
type View struct {
	ID         string     `json:"id" msgpack:"id"`
	DatabaseID string     `json:"database_id" msgpack:"database_id"`
	Name       string     `json:"name" msgpack:"name"`
	RowOrders  []RowOrder `json:"row_orders" msgpack:"row_orders"`
	Filters    []*Filter  `json:"filters" msgpack:"filters"`
	Sorts      []*Sort    `json:"sorts" msgpack:"sorts"`
}

// Clone 深拷贝视图中的切片，避免调用方修改文档内部状态
func (v *View) Clone() *View {
	if v == nil {
		return nil
	}
	c := *v
	c.RowOrders = append([]RowOrder(nil), v.RowOrders...)
	c.Filters = make([]*Filter, len(v.Filters))
	for i, f := range v.Filters {
		c.Filters[i] = f.Clone()
	}
	c.Sorts = make([]*Sort, len(v.Sorts))
	for i, s := range v.Sorts {
		if s != nil {
			cs := *s
			c.Sorts[i] = &cs
		}
	}
	return &c
}

func (f *Filter) Clone() *Filter {
	if f == nil {
		return nil
	}
	c := *f
	if f.Children != nil {
		c.Children = make([]*Filter, len(f.Children))
		for i, child := range f.Children {
			c.Children[i] = child.Clone()
		}
	}
	return &c
}

// HasSortsOrFilters 是否存在生效的排序或过滤
func (v *View) HasSortsOrFilters() bool {
	return v != nil && (len(v.Sorts) > 0 || len(v.Filters) > 0)
}
