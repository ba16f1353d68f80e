package record

import (
	"fmt"
	"maps"
	"regexp"

	"github.com/kailas-cloud/solrsync/internal/domain"
)

var (
	typeRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	idRegex   = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// Record is a row of the primary store: a typed, keyed field map.
// It is the host-side counterpart of an indexed document.
type Record struct {
	recordType string
	id         string
	fields     map[string]any
}

// New validates and creates a Record.
// Type: ^[A-Za-z][A-Za-z0-9_]*$. ID: ^[A-Za-z0-9_.-]+$, 1-256 chars.
func New(recordType, id string, fields map[string]any) (Record, error) {
	if !typeRegex.MatchString(recordType) {
		return Record{}, fmt.Errorf("record type %q must start with a letter and be alphanumeric: %w", recordType, domain.ErrInvalidRecord)
	}
	if id == "" {
		return Record{}, fmt.Errorf("record ID is required: %w", domain.ErrInvalidRecord)
	}
	if len(id) > 256 {
		return Record{}, fmt.Errorf("record ID too long (max 256): %w", domain.ErrInvalidRecord)
	}
	if !idRegex.MatchString(id) {
		return Record{}, fmt.Errorf("record ID %q contains invalid characters: %w", id, domain.ErrInvalidRecord)
	}
	return Record{recordType: recordType, id: id, fields: maps.Clone(fields)}, nil
}

// Reconstruct creates a Record without validation (storage hydration).
func Reconstruct(recordType, id string, fields map[string]any) Record {
	return Record{recordType: recordType, id: id, fields: fields}
}

// Type returns the record type, e.g. "Book".
func (r Record) Type() string { return r.recordType }

// ID returns the primary key.
func (r Record) ID() string { return r.id }

// Fields returns the field map. Callers must not mutate it.
func (r Record) Fields() map[string]any { return r.fields }

// Field returns a single field value.
func (r Record) Field(name string) (any, bool) {
	v, ok := r.fields[name]
	return v, ok
}
