package solrsync

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	domdoc "github.com/kailas-cloud/solrsync/internal/domain/document"
	"github.com/kailas-cloud/solrsync/internal/domain/document/field"
	domrec "github.com/kailas-cloud/solrsync/internal/domain/record"
)

const tagKey = "solrsync"

// FieldType is the Solr value type of an indexed field.
type FieldType = field.Type

// Field types.
const (
	Text    = field.Text
	String  = field.String
	Integer = field.Integer
	Float   = field.Float
	Boolean = field.Boolean
	Date    = field.Date
)

// schemaMeta holds parsed struct tag metadata, cached per Index.
type schemaMeta struct {
	typ    reflect.Type
	pkIdx  int
	fields []fieldMapping
}

// fieldMapping binds a struct field to a record field. Fields without a
// type are stored in the primary store but not indexed.
type fieldMapping struct {
	structIdx int
	name      string
	fieldType FieldType
	multi     bool
	optional  bool
}

func (f fieldMapping) indexed() bool { return f.fieldType != "" }

// parseSchema reflects on T and extracts solrsync struct tag metadata.
//
//	ID     int64     `solrsync:"id,pk"`
//	Title  string    `solrsync:"title,text"`
//	Tags   []string  `solrsync:"tags,string,multi"`
//	Year   int       `solrsync:"year,integer,optional"`
//	Notes  string    `solrsync:"notes"`        // stored, not indexed
//	Cache  []byte    `solrsync:"-"`
func parseSchema[T any]() (*schemaMeta, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("solrsync: type %v is not a struct", t)
	}

	meta := &schemaMeta{typ: t, pkIdx: -1}
	seen := make(map[string]bool)
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get(tagKey)
		if tag == "" || tag == "-" || !f.IsExported() {
			continue
		}
		if err := applyTag(meta, i, f, tag, seen); err != nil {
			return nil, err
		}
	}

	if meta.pkIdx == -1 {
		return nil, fmt.Errorf("solrsync: no field with `solrsync:\"...,pk\"` tag in %s", t)
	}
	return meta, nil
}

// applyTag processes a single struct field's solrsync tag.
func applyTag(meta *schemaMeta, idx int, f reflect.StructField, tag string, seen map[string]bool) error {
	parts := strings.Split(tag, ",")
	name := parts[0]
	if name == "" {
		name = f.Name
	}

	m := fieldMapping{structIdx: idx, name: name}
	for _, mod := range parts[1:] {
		switch mod {
		case "pk":
			if meta.pkIdx != -1 {
				return fmt.Errorf("solrsync: duplicate pk tag on field %s", f.Name)
			}
			if !pkKind(f.Type.Kind()) {
				return fmt.Errorf("solrsync: pk field %s must be a string or integer", f.Name)
			}
			meta.pkIdx = idx
			return nil
		case "multi":
			m.multi = true
		case "optional":
			m.optional = true
		default:
			ft, err := field.ParseType(mod)
			if err != nil {
				return fmt.Errorf("solrsync: unknown modifier %q on field %s", mod, f.Name)
			}
			m.fieldType = ft
		}
	}

	if m.multi && f.Type.Kind() != reflect.Slice {
		return fmt.Errorf("solrsync: multi field %s must be a slice", f.Name)
	}
	if (m.multi || m.optional) && !m.indexed() {
		return fmt.Errorf("solrsync: field %s has modifiers but no index type", f.Name)
	}
	if seen[name] {
		return fmt.Errorf("solrsync: duplicate field name %q", name)
	}
	seen[name] = true
	meta.fields = append(meta.fields, m)
	return nil
}

func pkKind(k reflect.Kind) bool {
	switch k {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

// buildSchema declares the indexed fields of meta plus any computed fields.
func (m *schemaMeta) buildSchema(recordType string, cfg *indexConfig) (*domdoc.Schema, error) {
	fields := make([]field.Field, 0, len(m.fields)+len(cfg.computed))
	for _, fm := range m.fields {
		if !fm.indexed() {
			continue
		}
		var opts []field.Option
		if fm.multi {
			opts = append(opts, field.MultiValued())
		}
		if fm.optional {
			opts = append(opts, field.Optional())
		}
		if d, ok := cfg.defaults[fm.name]; ok {
			opts = append(opts, field.WithDefault(d))
		}
		f, err := field.New(fm.name, fm.fieldType, opts...)
		if err != nil {
			return nil, fmt.Errorf("solrsync: %w", err)
		}
		fields = append(fields, f)
	}
	for _, c := range cfg.computed {
		f, err := field.New(c.name, c.fieldType, field.WithExpression(c.expression), field.Optional())
		if err != nil {
			return nil, fmt.Errorf("solrsync: computed field: %w", err)
		}
		fields = append(fields, f)
	}

	s, err := domdoc.NewSchema(recordType, cfg.strategy, !cfg.plainNames, fields)
	if err != nil {
		return nil, fmt.Errorf("solrsync: %w", err)
	}
	return s, nil
}

// toRecord converts a typed struct into a record using schema metadata.
// Nil pointers and nil slices are left out of the field map.
func (m *schemaMeta) toRecord(recordType string, item any) (domrec.Record, error) {
	v := reflect.ValueOf(item)

	fields := make(map[string]any, len(m.fields))
	for _, fm := range m.fields {
		fv := v.Field(fm.structIdx)
		switch fv.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
			if fv.IsNil() {
				continue
			}
		}
		fields[fm.name] = fv.Interface()
	}

	rec, err := domrec.New(recordType, fmt.Sprint(v.Field(m.pkIdx).Interface()), fields)
	if err != nil {
		return domrec.Record{}, fmt.Errorf("solrsync: %w", err)
	}
	return rec, nil
}

// fromFields rebuilds a typed struct from a primary key and a field map.
// Values are assigned through their JSON form, so numbers and dates decoded
// from the store or the index land in whatever Go type the struct declares.
func (m *schemaMeta) fromFields(id string, fields map[string]any) (any, error) {
	v := reflect.New(m.typ).Elem()

	if err := setPK(v.Field(m.pkIdx), id); err != nil {
		return nil, err
	}
	for _, fm := range m.fields {
		val, ok := fields[fm.name]
		if !ok || val == nil {
			continue
		}
		data, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("solrsync: field %q: %w", fm.name, err)
		}
		if err := json.Unmarshal(data, v.Field(fm.structIdx).Addr().Interface()); err != nil {
			return nil, fmt.Errorf("solrsync: field %q: %w", fm.name, err)
		}
	}
	return v.Interface(), nil
}

func setPK(v reflect.Value, id string) error {
	switch v.Kind() {
	case reflect.String:
		v.SetString(id)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(id, 10, v.Type().Bits())
		if err != nil {
			return fmt.Errorf("solrsync: pk %q: %w", id, err)
		}
		v.SetInt(n)
	default:
		n, err := strconv.ParseUint(id, 10, v.Type().Bits())
		if err != nil {
			return fmt.Errorf("solrsync: pk %q: %w", id, err)
		}
		v.SetUint(n)
	}
	return nil
}
