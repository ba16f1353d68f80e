package document

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/google/uuid"

	"github.com/kailas-cloud/solrsync/internal/domain"
	"github.com/kailas-cloud/solrsync/internal/domain/document/field"
)

// IDStrategy controls how a record's primary key becomes a Solr unique key.
type IDStrategy string

// Supported id strategies.
const (
	// IDTypePK prefixes the key with the record type: "Book:1".
	IDTypePK IDStrategy = "type_pk"
	// IDPK uses the bare primary key. Only safe with one type per core.
	IDPK IDStrategy = "pk"
	// IDUUID derives a name-based UUIDv5 from "Type:pk".
	IDUUID IDStrategy = "uuid"
)

// ParseIDStrategy converts a config string into an IDStrategy. Empty means IDTypePK.
func ParseIDStrategy(s string) (IDStrategy, error) {
	switch IDStrategy(s) {
	case "":
		return IDTypePK, nil
	case IDTypePK, IDPK, IDUUID:
		return IDStrategy(s), nil
	default:
		return "", fmt.Errorf("invalid id strategy %q", s)
	}
}

// Schema declares how records of one type map to index documents.
type Schema struct {
	recordType string
	strategy   IDStrategy
	dynamic    bool
	fields     []field.Field
	programs   map[string]*vm.Program
}

// NewSchema validates field declarations and compiles computed-field expressions.
// dynamic enables acts_as_solr style type suffixes on Solr field names.
func NewSchema(recordType string, strategy IDStrategy, dynamic bool, fields []field.Field) (*Schema, error) {
	if recordType == "" {
		return nil, fmt.Errorf("record type is required: %w", domain.ErrInvalidRecord)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema %s: at least one field is required", recordType)
	}
	if strategy == "" {
		strategy = IDTypePK
	}

	s := &Schema{
		recordType: recordType,
		strategy:   strategy,
		dynamic:    dynamic,
		fields:     fields,
		programs:   make(map[string]*vm.Program),
	}

	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.Name()] {
			return nil, fmt.Errorf("schema %s: duplicate field %q", recordType, f.Name())
		}
		seen[f.Name()] = true

		if f.Expression() == "" {
			continue
		}
		prog, err := expr.Compile(f.Expression(), expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("schema %s: compile expression for %q: %w", recordType, f.Name(), err)
		}
		s.programs[f.Name()] = prog
	}

	return s, nil
}

// Type returns the record type the schema describes.
func (s *Schema) Type() string { return s.recordType }

// Fields returns the declared fields.
func (s *Schema) Fields() []field.Field { return s.fields }

// Dynamic reports whether Solr field names carry type suffixes.
func (s *Schema) Dynamic() bool { return s.dynamic }

// SolrName returns the index field name for a declared record field.
// Unknown names are returned unchanged so callers can target raw Solr fields.
func (s *Schema) SolrName(name string) string {
	for _, f := range s.fields {
		if f.Name() == name {
			return f.SolrName(s.dynamic)
		}
	}
	return name
}

// DocumentID returns the Solr unique key for a primary key.
func (s *Schema) DocumentID(pk string) string {
	typed := s.recordType + ":" + pk
	switch s.strategy {
	case IDPK:
		return pk
	case IDUUID:
		return uuid.NewSHA1(uuid.NameSpaceURL, []byte(typed)).String()
	default:
		return typed
	}
}
