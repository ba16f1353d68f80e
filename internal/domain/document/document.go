package document

import "slices"

// Entry is one named field of an indexable document with its string-encoded values.
type Entry struct {
	name   string
	values []string
	multi  bool
}

// NewEntry creates an Entry. Values are copied.
func NewEntry(name string, values []string, multi bool) Entry {
	return Entry{name: name, values: slices.Clone(values), multi: multi}
}

// Name returns the Solr field name.
func (e Entry) Name() string { return e.name }

// Values returns the encoded values in order.
func (e Entry) Values() []string { return slices.Clone(e.values) }

// MultiValued reports whether the entry was declared as a sequence.
func (e Entry) MultiValued() bool { return e.multi }

// Document is a Solr-addressable document (immutable value object):
// a unique key plus an ordered list of field entries.
type Document struct {
	id      string
	entries []Entry
}

// New creates a Document. Entries are copied.
func New(id string, entries []Entry) Document {
	return Document{id: id, entries: slices.Clone(entries)}
}

// ID returns the unique document key.
func (d Document) ID() string { return d.id }

// Entries returns the field entries in declaration order.
func (d Document) Entries() []Entry { return slices.Clone(d.entries) }

// Get returns the values of the named entry.
func (d Document) Get(name string) ([]string, bool) {
	for _, e := range d.entries {
		if e.name == name {
			return e.Values(), true
		}
	}
	return nil, false
}

// Len returns the number of field entries.
func (d Document) Len() int { return len(d.entries) }
