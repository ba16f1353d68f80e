package record

import (
	"fmt"
	"maps"
	"slices"

	"github.com/kailas-cloud/solrsync/internal/domain"
)

// MaxPatchFields is the maximum number of fields in one patch.
const MaxPatchFields = 256

// Patch is a partial record update.
// Absent fields are unchanged. A nil value removes that field.
type Patch struct {
	set   map[string]any
	unset []string
}

// NewPatch validates and creates a Patch. At least one field must be provided.
func NewPatch(fields map[string]any) (Patch, error) {
	if len(fields) == 0 {
		return Patch{}, fmt.Errorf("at least one field must be provided: %w", domain.ErrInvalidRecord)
	}
	if len(fields) > MaxPatchFields {
		return Patch{}, fmt.Errorf("too many fields (max %d): %w", MaxPatchFields, domain.ErrInvalidRecord)
	}

	p := Patch{set: make(map[string]any, len(fields))}
	for name, v := range fields {
		if name == "" {
			return Patch{}, fmt.Errorf("empty field name: %w", domain.ErrInvalidRecord)
		}
		if v == nil {
			p.unset = append(p.unset, name)
			continue
		}
		p.set[name] = v
	}
	slices.Sort(p.unset)
	return p, nil
}

// Set returns the fields to add or replace.
func (p Patch) Set() map[string]any { return p.set }

// Unset returns the names of the fields to remove, sorted.
func (p Patch) Unset() []string { return p.unset }

// Apply returns a copy of rec with the patch merged into its fields.
func (p Patch) Apply(rec Record) Record {
	fields := maps.Clone(rec.fields)
	if fields == nil {
		fields = make(map[string]any, len(p.set))
	}
	maps.Copy(fields, p.set)
	for _, name := range p.unset {
		delete(fields, name)
	}
	return Record{recordType: rec.recordType, id: rec.id, fields: fields}
}
