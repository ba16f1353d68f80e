package query

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort orders results by one field.
type Sort struct {
	Field     string
	Direction Direction
}

// Facet requests value counts for a field.
type Facet struct {
	Field    string
	Limit    int // 0 = engine default, -1 = unlimited
	MinCount int
}

// Spec is a complete search request: condition tree, filters, ordering,
// pagination and facets. Offset and Limit must be non-negative.
type Spec struct {
	Condition Condition
	Filters   []Condition
	Sort      []Sort
	Offset    int
	Limit     int
	Fields    []string
	Facets    []Facet
}
