package solrsync

import (
	"github.com/kailas-cloud/solrsync/internal/domain/search/query"
	"github.com/kailas-cloud/solrsync/internal/domain/search/result"
)

// Condition is a node of a query tree. Field names are record field names.
type Condition = query.Condition

// Direction is a sort direction.
type Direction = query.Direction

// Sort directions.
const (
	Asc  = query.Asc
	Desc = query.Desc
)

// FacetCount is one bucket of a field facet.
type FacetCount = result.FacetCount

// Eq matches field equal to value. Values with whitespace match as a phrase.
func Eq(field string, value any) Condition { return query.Equals(field, value) }

// Prefix matches field values starting with prefix.
func Prefix(field, prefix string) Condition { return query.Wildcard(field, prefix) }

// Fuzzy matches field values similar to value.
func Fuzzy(field string, value any) Condition { return query.Fuzzy(field, value) }

// Between matches low <= field <= high. A nil bound is open.
func Between(field string, low, high any) Condition { return query.Range(field, low, high) }

// BetweenExclusive matches low < field < high. A nil bound is open.
func BetweenExclusive(field string, low, high any) Condition {
	return query.RangeExclusive(field, low, high)
}

// And matches when every condition matches.
func And(conds ...Condition) Condition { return query.AllOf(conds...) }

// Or matches when any condition matches.
func Or(conds ...Condition) Condition { return query.AnyOf(conds...) }

// Not matches when cond does not.
func Not(cond Condition) Condition { return query.Negate(cond) }
