package solrsync

import domdoc "github.com/kailas-cloud/solrsync/internal/domain/document"

// IDStrategy controls how a primary key becomes a Solr unique key.
type IDStrategy = domdoc.IDStrategy

// ID strategies.
const (
	IDTypePK = domdoc.IDTypePK // "Book:1" (default)
	IDPK     = domdoc.IDPK     // "1"; only safe with one type per core
	IDUUID   = domdoc.IDUUID   // UUIDv5 of "Book:1"
)

// IndexOption configures an Index.
type IndexOption func(*indexConfig)

type indexConfig struct {
	strategy   IDStrategy
	plainNames bool
	defaults   map[string]any
	computed   []computedField
}

type computedField struct {
	name       string
	fieldType  FieldType
	expression string
}

// WithIDStrategy sets how unique keys are derived.
func WithIDStrategy(s IDStrategy) IndexOption {
	return func(c *indexConfig) { c.strategy = s }
}

// PlainFieldNames indexes fields under their own names instead of the
// type-suffixed dynamic names (title_t, year_i, ...).
func PlainFieldNames() IndexOption {
	return func(c *indexConfig) { c.plainNames = true }
}

// WithDefault indexes v when the field is nil or absent in a record.
func WithDefault(name string, v any) IndexOption {
	return func(c *indexConfig) {
		if c.defaults == nil {
			c.defaults = make(map[string]any)
		}
		c.defaults[name] = v
	}
}

// Computed adds an index-only field evaluated from the record's fields,
// e.g. Computed("display", Text, `title + " (" + string(year) + ")"`).
func Computed(name string, ft FieldType, expression string) IndexOption {
	return func(c *indexConfig) {
		c.computed = append(c.computed, computedField{name: name, fieldType: ft, expression: expression})
	}
}
