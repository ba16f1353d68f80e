package document

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/expr-lang/expr"

	"github.com/kailas-cloud/solrsync/internal/domain"
	"github.com/kailas-cloud/solrsync/internal/domain/document/field"
	"github.com/kailas-cloud/solrsync/internal/domain/record"
)

// DateLayout is the Solr date format. Values are always UTC.
const DateLayout = "2006-01-02T15:04:05Z"

// Mapper converts records to documents and back using per-type schemas.
type Mapper struct {
	schemas map[string]*Schema
}

// NewMapper creates a Mapper over the given schemas.
func NewMapper(schemas ...*Schema) (*Mapper, error) {
	m := &Mapper{schemas: make(map[string]*Schema, len(schemas))}
	for _, s := range schemas {
		if _, dup := m.schemas[s.Type()]; dup {
			return nil, fmt.Errorf("duplicate schema for type %q", s.Type())
		}
		m.schemas[s.Type()] = s
	}
	return m, nil
}

// Schema returns the schema for a record type.
func (m *Mapper) Schema(recordType string) (*Schema, error) {
	s, ok := m.schemas[recordType]
	if !ok {
		return nil, fmt.Errorf("%q: %w", recordType, domain.ErrUnknownType)
	}
	return s, nil
}

// Types returns the configured record types in sorted order.
func (m *Mapper) Types() []string {
	return slices.Sorted(maps.Keys(m.schemas))
}

// ToDocument maps a record through the schema for its type.
func (m *Mapper) ToDocument(rec record.Record) (Document, error) {
	s, err := m.Schema(rec.Type())
	if err != nil {
		return Document{}, err
	}
	return s.ToDocument(rec)
}

// ToDocument builds the index document for rec.
// A declared field missing from rec is taken from its expression, then its
// default; otherwise it is skipped when optional and a MappingError when not.
func (s *Schema) ToDocument(rec record.Record) (Document, error) {
	if rec.Type() != s.recordType {
		return Document{}, &domain.MappingError{
			Reason: fmt.Sprintf("record type %q does not match schema %q", rec.Type(), s.recordType),
		}
	}

	entries := make([]Entry, 0, len(s.fields)+2)
	entries = append(entries,
		NewEntry(domain.TypeField, []string{s.recordType}, false),
		NewEntry(domain.PKField, []string{rec.ID()}, false),
	)

	for _, f := range s.fields {
		v, err := s.resolve(f, rec)
		if err != nil {
			return Document{}, err
		}
		if v == nil {
			continue
		}
		values, err := encodeValues(f, v)
		if err != nil {
			return Document{}, err
		}
		entries = append(entries, NewEntry(f.SolrName(s.dynamic), values, f.MultiValued()))
	}

	return New(s.DocumentID(rec.ID()), entries), nil
}

// resolve returns the raw value for f, or nil when an optional field is absent.
func (s *Schema) resolve(f field.Field, rec record.Record) (any, error) {
	if v, ok := rec.Field(f.Name()); ok && v != nil {
		return v, nil
	}

	if prog, ok := s.programs[f.Name()]; ok {
		out, err := expr.Run(prog, exprEnv(rec.Fields()))
		if err != nil {
			return nil, domain.NewMappingError(f.Name(), "evaluate expression: %v", err)
		}
		if out != nil {
			return out, nil
		}
	}

	if d, ok := f.Default(); ok {
		return d, nil
	}
	if f.Optional() {
		return nil, nil
	}
	return nil, domain.NewMappingError(f.Name(), "missing from record and no default configured")
}

// exprEnv copies fields for expression evaluation. Stored numbers arrive as
// json.Number and are unwrapped so arithmetic and comparisons work.
func exprEnv(fields map[string]any) map[string]any {
	env := make(map[string]any, len(fields))
	for k, v := range fields {
		if n, ok := v.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				v = i
			} else if f, err := n.Float64(); err == nil {
				v = f
			}
		}
		env[k] = v
	}
	return env
}

// FromDocument decodes a built document back into a record field map.
func (s *Schema) FromDocument(doc Document) (map[string]any, error) {
	hit := make(map[string]any, doc.Len())
	for _, e := range doc.entries {
		if e.multi {
			vals := make([]any, len(e.values))
			for i, v := range e.values {
				vals[i] = v
			}
			hit[e.name] = vals
			continue
		}
		if len(e.values) > 0 {
			hit[e.name] = e.values[0]
		}
	}
	return s.FromFields(hit)
}

// FromFields decodes a Solr hit (as returned by the response parser) into a
// record field map keyed by declared field names. Undeclared keys are dropped.
func (s *Schema) FromFields(hit map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		raw, ok := hit[f.SolrName(s.dynamic)]
		if !ok || raw == nil {
			continue
		}

		list, isList := raw.([]any)
		if f.MultiValued() {
			if !isList {
				list = []any{raw}
			}
			vals := make([]any, 0, len(list))
			for _, item := range list {
				v, err := decodeScalar(f.FieldType(), item)
				if err != nil {
					return nil, domain.NewMappingError(f.Name(), "%v", err)
				}
				vals = append(vals, v)
			}
			out[f.Name()] = vals
			continue
		}

		if isList {
			if len(list) == 0 {
				continue
			}
			raw = list[0]
		}
		v, err := decodeScalar(f.FieldType(), raw)
		if err != nil {
			return nil, domain.NewMappingError(f.Name(), "%v", err)
		}
		out[f.Name()] = v
	}
	return out, nil
}

// PrimaryKey extracts the record primary key from a Solr hit.
func PrimaryKey(hit map[string]any) (string, bool) {
	switch v := hit[domain.PKField].(type) {
	case string:
		return v, v != ""
	case []any:
		if len(v) > 0 {
			s, ok := v[0].(string)
			return s, ok && s != ""
		}
	}
	return "", false
}

func encodeValues(f field.Field, v any) ([]string, error) {
	rv := reflect.ValueOf(v)
	isSeq := (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8

	if !isSeq {
		s, err := encodeScalar(f.FieldType(), v)
		if err != nil {
			return nil, domain.NewMappingError(f.Name(), "%v", err)
		}
		return []string{s}, nil
	}

	if !f.MultiValued() {
		return nil, domain.NewMappingError(f.Name(), "sequence given for single-valued field")
	}
	out := make([]string, 0, rv.Len())
	for i := range rv.Len() {
		s, err := encodeScalar(f.FieldType(), rv.Index(i).Interface())
		if err != nil {
			return nil, domain.NewMappingError(f.Name(), "element %d: %v", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func encodeScalar(ft field.Type, v any) (string, error) {
	switch ft {
	case field.Text, field.String:
		return encodeString(v), nil
	case field.Integer:
		n, err := toInt(v)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	case field.Float:
		f, err := toFloat(v)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case field.Boolean:
		b, err := toBool(v)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	case field.Date:
		t, err := toTime(v)
		if err != nil {
			return "", err
		}
		return t.UTC().Format(DateLayout), nil
	default:
		return "", fmt.Errorf("unsupported field type %q", ft)
	}
}

func decodeScalar(ft field.Type, v any) (any, error) {
	switch ft {
	case field.Text, field.String:
		return encodeString(v), nil
	case field.Integer:
		return toInt(v)
	case field.Float:
		return toFloat(v)
	case field.Boolean:
		return toBool(v)
	case field.Date:
		return toTime(v)
	default:
		return nil, fmt.Errorf("unsupported field type %q", ft)
	}
}

func encodeString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(DateLayout)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}

func toInt(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return toInt(uint64(x))
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("integer %d overflows int64", x)
		}
		return int64(x), nil
	case float32:
		return floatToInt(float64(x))
	case float64:
		return floatToInt(x)
	case json.Number:
		return x.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	default:
		return 0, fmt.Errorf("cannot use %T as integer", v)
	}
}

func floatToInt(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%g is not an integer", f)
	}
	return int64(f), nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	default:
		n, err := toInt(v)
		if err != nil {
			return 0, fmt.Errorf("cannot use %T as float", v)
		}
		return float64(n), nil
	}
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(x))
	default:
		return false, fmt.Errorf("cannot use %T as boolean", v)
	}
}

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case string:
		for _, layout := range []string{time.RFC3339Nano, DateLayout, "2006-01-02"} {
			if t, err := time.Parse(layout, strings.TrimSpace(x)); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse %q as date", x)
	default:
		return time.Time{}, fmt.Errorf("cannot use %T as date", v)
	}
}
