package chi

import (
	"strings"

	"github.com/kailas-cloud/solrsync/internal/domain"
	"github.com/kailas-cloud/solrsync/internal/domain/search/query"
)

func conditionFromJSON(c ConditionJSON) (query.Condition, error) {
	kinds := 0
	if c.Field != "" || c.Op != "" {
		kinds++
	}
	if c.And != nil {
		kinds++
	}
	if c.Or != nil {
		kinds++
	}
	if c.Not != nil {
		kinds++
	}
	switch {
	case kinds == 0:
		return query.Condition{}, nil
	case kinds > 1:
		return query.Condition{}, domain.NewTranslationError("condition mixes leaf and combinator keys")
	}

	switch {
	case c.And != nil:
		children, err := conditionsFromJSON(c.And)
		if err != nil {
			return query.Condition{}, err
		}
		return query.AllOf(children...), nil
	case c.Or != nil:
		children, err := conditionsFromJSON(c.Or)
		if err != nil {
			return query.Condition{}, err
		}
		return query.AnyOf(children...), nil
	case c.Not != nil:
		child, err := conditionFromJSON(*c.Not)
		if err != nil {
			return query.Condition{}, err
		}
		return query.Negate(child), nil
	}

	switch query.Operator(c.Op) {
	case query.OpRange:
		if c.Exclusive {
			return query.RangeExclusive(c.Field, c.Low, c.High), nil
		}
		return query.Range(c.Field, c.Low, c.High), nil
	case "":
		return query.Equals(c.Field, c.Value), nil
	default:
		// unsupported operators are rejected by the translator
		return query.Leaf(c.Field, query.Operator(c.Op), c.Value), nil
	}
}

func conditionsFromJSON(cs []ConditionJSON) ([]query.Condition, error) {
	out := make([]query.Condition, 0, len(cs))
	for _, c := range cs {
		cond, err := conditionFromJSON(c)
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}

func specFromRequest(req SearchRequest) (query.Spec, error) {
	cond, err := conditionFromJSON(req.Query)
	if err != nil {
		return query.Spec{}, err
	}
	filters, err := conditionsFromJSON(req.Filters)
	if err != nil {
		return query.Spec{}, err
	}

	spec := query.Spec{
		Condition: cond,
		Filters:   filters,
		Offset:    req.Offset,
		Limit:     req.Limit,
		Fields:    req.Fields,
	}
	for _, s := range req.Sort {
		spec.Sort = append(spec.Sort, query.Sort{Field: s.Field, Direction: query.Direction(strings.ToLower(s.Direction))})
	}
	for _, f := range req.Facets {
		spec.Facets = append(spec.Facets, query.Facet{Field: f.Field, Limit: f.Limit, MinCount: f.MinCount})
	}
	return spec, nil
}
