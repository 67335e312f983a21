package docstore

// Op is a filter comparison operator, spelled the MongoDB way.
type Op string

// Supported operators.
const (
	OpEq  Op = "$eq"
	OpNe  Op = "$ne"
	OpGt  Op = "$gt"
	OpGte Op = "$gte"
	OpLt  Op = "$lt"
	OpLte Op = "$lte"
	OpIn  Op = "$in"
)

// SortOrder is the direction of a sort key.
type SortOrder int

// Sort directions.
const (
	Asc  SortOrder = 1
	Desc SortOrder = -1
)

// Filter is one field condition. All filters of a query must hold.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// SortKey orders results by one field.
type SortKey struct {
	Field string
	Order SortOrder
}

// Query selects, orders and pages documents.
type Query struct {
	Filters []Filter
	Sorts   []SortKey
	Limit   int64
	Skip    int64
}

// NewQuery returns an empty query matching every document.
func NewQuery() *Query {
	return &Query{}
}

// Where adds a filter on field.
func (q *Query) Where(field string, op Op, value any) *Query {
	q.Filters = append(q.Filters, Filter{Field: field, Op: op, Value: value})
	return q
}

// Eq is shorthand for Where(field, OpEq, value).
func (q *Query) Eq(field string, value any) *Query {
	return q.Where(field, OpEq, value)
}

// Sort appends a sort key. Earlier keys take precedence.
func (q *Query) Sort(field string, order SortOrder) *Query {
	q.Sorts = append(q.Sorts, SortKey{Field: field, Order: order})
	return q
}

// WithLimit caps the number of results. Zero means no limit.
func (q *Query) WithLimit(n int64) *Query {
	q.Limit = n
	return q
}

// WithSkip skips the first n results.
func (q *Query) WithSkip(n int64) *Query {
	q.Skip = n
	return q
}

// ByID returns a query matching a single id.
func ByID(id string) *Query {
	return NewQuery().Eq(IDField, id)
}
