package result

import (
	"encoding/json"
	"iter"
	"strconv"
)

// Hit is a single raw document returned by the search engine.
type Hit struct {
	fields map[string]any
}

// NewHit wraps a raw field map.
func NewHit(fields map[string]any) Hit { return Hit{fields: fields} }

// Fields returns the raw field map.
func (h Hit) Fields() map[string]any { return h.fields }

// ID returns the unique key of the hit.
func (h Hit) ID() string {
	s, _ := h.fields["id"].(string)
	return s
}

// Score returns the relevance score, if the engine returned one.
func (h Hit) Score() (float64, bool) {
	switch v := h.fields["score"].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// FacetCount is one bucket of a field facet.
type FacetCount struct {
	Value string
	Count int64
}

// SearchResult is one page of search hits plus pagination metadata.
type SearchResult struct {
	total    int64
	start    int64
	maxScore *float64
	hits     []Hit
	facets   map[string][]FacetCount
	qtime    int
}

// New creates a SearchResult. maxScore is nil when the engine did not score.
func New(total, start int64, maxScore *float64, hits []Hit) SearchResult {
	return SearchResult{total: total, start: start, maxScore: maxScore, hits: hits}
}

// WithFacets attaches facet counts.
func (r SearchResult) WithFacets(facets map[string][]FacetCount) SearchResult {
	r.facets = facets
	return r
}

// WithQTime attaches the engine-reported query time in milliseconds.
func (r SearchResult) WithQTime(ms int) SearchResult {
	r.qtime = ms
	return r
}

// TotalHits returns the number of documents matching the query (numFound).
func (r SearchResult) TotalHits() int64 { return r.total }

// Start returns the offset of the first hit on this page.
func (r SearchResult) Start() int64 { return r.start }

// MaxScore returns the best relevance score, nil when unscored.
func (r SearchResult) MaxScore() *float64 { return r.maxScore }

// Len returns the number of hits on this page.
func (r SearchResult) Len() int { return len(r.hits) }

// Facets returns facet counts by field.
func (r SearchResult) Facets() map[string][]FacetCount { return r.facets }

// QTime returns the engine-reported query time in milliseconds.
func (r SearchResult) QTime() int { return r.qtime }

// Hits returns a lazy sequence over the hits of this page only. The sequence
// can be ranged over any number of times and never fetches further pages.
func (r SearchResult) Hits() iter.Seq[Hit] {
	return func(yield func(Hit) bool) {
		for _, h := range r.hits {
			if !yield(h) {
				return
			}
		}
	}
}

// HasMore reports whether hits exist beyond this page.
func (r SearchResult) HasMore() bool {
	return r.start+int64(len(r.hits)) < r.total
}

// NextOffset returns the offset of the following page.
func (r SearchResult) NextOffset() int64 { return r.start + int64(len(r.hits)) }
