package query

// Operator is a leaf comparison.
type Operator string

// Leaf operators.
const (
	OpEquals   Operator = "equals"
	OpRange    Operator = "range"
	OpWildcard Operator = "wildcard"
	OpFuzzy    Operator = "fuzzy"
)

// Combinator joins child conditions.
type Combinator string

// Boolean combinators.
const (
	And Combinator = "AND"
	Or  Combinator = "OR"
	Not Combinator = "NOT"
)

// Condition is a node of a query expression tree: either a leaf
// (field, operator, value) or a combinator over children. The zero value is
// the empty tree.
type Condition struct {
	field     string
	op        Operator
	value     any
	low       any
	high      any
	exclusive bool

	combinator Combinator
	children   []Condition
}

// Leaf creates a leaf condition with an arbitrary operator.
// Unsupported operators are rejected at translation time.
func Leaf(field string, op Operator, value any) Condition {
	return Condition{field: field, op: op, value: value}
}

// Equals matches field exactly against value.
func Equals(field string, value any) Condition { return Leaf(field, OpEquals, value) }

// Wildcard matches values of field starting with prefix.
func Wildcard(field string, prefix any) Condition { return Leaf(field, OpWildcard, prefix) }

// Fuzzy matches values of field approximately equal to value.
func Fuzzy(field string, value any) Condition { return Leaf(field, OpFuzzy, value) }

// Range matches low <= field <= high. A nil or empty bound is open.
func Range(field string, low, high any) Condition {
	return Condition{field: field, op: OpRange, low: low, high: high}
}

// RangeExclusive matches low < field < high. A nil or empty bound is open.
func RangeExclusive(field string, low, high any) Condition {
	return Condition{field: field, op: OpRange, low: low, high: high, exclusive: true}
}

// AllOf requires every child to match.
func AllOf(children ...Condition) Condition { return Condition{combinator: And, children: children} }

// AnyOf requires at least one child to match.
func AnyOf(children ...Condition) Condition { return Condition{combinator: Or, children: children} }

// Negate matches documents the child does not match.
func Negate(child Condition) Condition {
	return Condition{combinator: Not, children: []Condition{child}}
}

// Combine creates a combinator node with an arbitrary combinator.
// Unsupported combinators are rejected at translation time.
func Combine(c Combinator, children ...Condition) Condition {
	return Condition{combinator: c, children: children}
}

// IsLeaf reports whether the node is a leaf.
func (c Condition) IsLeaf() bool { return c.combinator == "" && c.op != "" }

// IsEmpty reports whether the tree contains no leaf.
func (c Condition) IsEmpty() bool {
	if c.IsLeaf() {
		return false
	}
	for _, child := range c.children {
		if !child.IsEmpty() {
			return false
		}
	}
	return true
}

// Field returns the leaf field name.
func (c Condition) Field() string { return c.field }

// Operator returns the leaf operator.
func (c Condition) Operator() Operator { return c.op }

// Value returns the leaf value.
func (c Condition) Value() any { return c.value }

// Bounds returns the range bounds and whether they are exclusive.
func (c Condition) Bounds() (low, high any, exclusive bool) { return c.low, c.high, c.exclusive }

// Combinator returns the node combinator, empty for leaves.
func (c Condition) Combinator() Combinator { return c.combinator }

// Children returns the child conditions of a combinator node.
func (c Condition) Children() []Condition { return c.children }
