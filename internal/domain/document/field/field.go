package field

import (
	"fmt"
	"regexp"
)

// Type is the Solr value type of a field.
type Type string

// Field type constants.
const (
	Text    Type = "text"
	String  Type = "string"
	Integer Type = "integer"
	Float   Type = "float"
	Boolean Type = "boolean"
	Date    Type = "date"
)

// suffixes follow the dynamicField conventions of the stock acts_as_solr schema.xml.
var suffixes = map[Type]string{
	Text:    "_t",
	String:  "_s",
	Integer: "_i",
	Float:   "_f",
	Boolean: "_b",
	Date:    "_d",
}

var (
	nameRegex          = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	reservedFieldNames = map[string]bool{
		"id": true, "score": true, "type_s": true, "pk_s": true,
	}
)

// ParseType converts a config string into a Type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if _, ok := suffixes[t]; !ok {
		return "", fmt.Errorf("invalid field type %q", s)
	}
	return t, nil
}

// Suffix returns the dynamic field suffix for the type.
func (t Type) Suffix() string { return suffixes[t] }

// Field is an immutable declaration of one indexed record field.
type Field struct {
	name         string
	fieldType    Type
	multiValued  bool
	optional     bool
	hasDefault   bool
	defaultValue any
	expression   string
}

// Option customizes a Field.
type Option func(*Field)

// MultiValued marks the field as an ordered sequence of values.
func MultiValued() Option { return func(f *Field) { f.multiValued = true } }

// Optional lets the field be absent from a record without failing the mapping.
func Optional() Option { return func(f *Field) { f.optional = true } }

// WithDefault sets the value used when the record lacks the field.
func WithDefault(v any) Option {
	return func(f *Field) {
		f.hasDefault = true
		f.defaultValue = v
	}
}

// WithExpression computes the field from other record fields.
func WithExpression(src string) Option { return func(f *Field) { f.expression = src } }

// New validates and creates a Field.
// Name: ^[A-Za-z_][A-Za-z0-9_]*$, max 64 chars, not reserved.
func New(name string, ft Type, opts ...Option) (Field, error) {
	if name == "" {
		return Field{}, fmt.Errorf("field name is required")
	}
	if len(name) > 64 {
		return Field{}, fmt.Errorf("field name %q too long (max 64)", name)
	}
	if !nameRegex.MatchString(name) {
		return Field{}, fmt.Errorf("field name %q contains invalid characters", name)
	}
	if reservedFieldNames[name] {
		return Field{}, fmt.Errorf("field name %q is reserved", name)
	}
	if _, ok := suffixes[ft]; !ok {
		return Field{}, fmt.Errorf("invalid field type %q for %q", ft, name)
	}

	f := Field{name: name, fieldType: ft}
	for _, o := range opts {
		o(&f)
	}
	return f, nil
}

// Name returns the record field name.
func (f Field) Name() string { return f.name }

// FieldType returns the Solr value type.
func (f Field) FieldType() Type { return f.fieldType }

// MultiValued reports whether the field holds a sequence.
func (f Field) MultiValued() bool { return f.multiValued }

// Optional reports whether the field may be absent.
func (f Field) Optional() bool { return f.optional }

// Default returns the configured default value.
func (f Field) Default() (any, bool) { return f.defaultValue, f.hasDefault }

// Expression returns the computed-field expression source, if any.
func (f Field) Expression() string { return f.expression }

// SolrName returns the index field name, with the dynamic suffix when requested.
func (f Field) SolrName(dynamic bool) string {
	if dynamic {
		return f.name + f.fieldType.Suffix()
	}
	return f.name
}
