package query

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/kailas-cloud/solrsync/internal/domain"
)

// MaxDepth bounds the nesting of a condition tree.
const MaxDepth = 32

const solrDate = "2006-01-02T15:04:05Z"

var fieldRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// escaper backslash-escapes every character the Lucene query parser treats as syntax.
var escaper = strings.NewReplacer(
	`\`, `\\`,
	`+`, `\+`,
	`-`, `\-`,
	`!`, `\!`,
	`(`, `\(`,
	`)`, `\)`,
	`:`, `\:`,
	`^`, `\^`,
	`[`, `\[`,
	`]`, `\]`,
	`"`, `\"`,
	`{`, `\{`,
	`}`, `\}`,
	`~`, `\~`,
	`*`, `\*`,
	`?`, `\?`,
	`|`, `\|`,
	`&`, `\&`,
	`/`, `\/`,
)

// Escape backslash-escapes query syntax characters in s.
func Escape(s string) string { return escaper.Replace(s) }

// Translator renders Specs into Solr query syntax. It is stateless and safe
// for concurrent use.
type Translator struct {
	namer func(string) string
}

// NewTranslator creates a Translator. namer maps record field names to
// index field names; nil keeps names unchanged.
func NewTranslator(namer func(string) string) Translator {
	return Translator{namer: namer}
}

// Translate renders the spec's condition tree with the identity field namer.
func Translate(spec Spec) (string, error) { return Translator{}.Translate(spec) }

// Translate validates the spec and renders its condition tree as the q parameter.
func (t Translator) Translate(spec Spec) (string, error) {
	if spec.Offset < 0 {
		return "", domain.NewTranslationError("offset must be non-negative, got %d", spec.Offset)
	}
	if spec.Limit < 0 {
		return "", domain.NewTranslationError("limit must be non-negative, got %d", spec.Limit)
	}
	return t.Condition(spec.Condition)
}

// Condition renders one required condition tree. An empty tree is an error.
func (t Translator) Condition(c Condition) (string, error) {
	if c.IsEmpty() {
		return "", domain.NewTranslationError("empty condition tree")
	}
	return t.render(c, 0)
}

// Params renders the full select parameter set: q, fq, sort, start, rows, fl and facets.
func (t Translator) Params(spec Spec) (url.Values, error) {
	q, err := t.Translate(spec)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", q)

	for i, f := range spec.Filters {
		fq, err := t.Condition(f)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
		params.Add("fq", fq)
	}

	if len(spec.Sort) > 0 {
		sort, err := t.sort(spec.Sort)
		if err != nil {
			return nil, err
		}
		params.Set("sort", sort)
	}

	params.Set("start", strconv.Itoa(spec.Offset))
	params.Set("rows", strconv.Itoa(spec.Limit))

	if len(spec.Fields) > 0 {
		names := make([]string, 0, len(spec.Fields)+2)
		for _, f := range spec.Fields {
			if f != "*" && f != "score" && !fieldRegex.MatchString(f) {
				return nil, domain.NewTranslationError("invalid field name %q", f)
			}
			names = append(names, t.name(f))
		}
		// hits must stay resolvable to records
		for _, key := range []string{domain.IDField, domain.PKField} {
			if !slices.Contains(names, key) {
				names = append(names, key)
			}
		}
		params.Set("fl", strings.Join(names, ","))
	} else {
		params.Set("fl", "*,score")
	}

	if len(spec.Facets) > 0 {
		params.Set("facet", "true")
		for _, f := range spec.Facets {
			if !fieldRegex.MatchString(f.Field) {
				return nil, domain.NewTranslationError("invalid facet field %q", f.Field)
			}
			name := t.name(f.Field)
			params.Add("facet.field", name)
			if f.Limit != 0 {
				params.Set("f."+name+".facet.limit", strconv.Itoa(f.Limit))
			}
			if f.MinCount > 0 {
				params.Set("f."+name+".facet.mincount", strconv.Itoa(f.MinCount))
			}
		}
	}

	return params, nil
}

func (t Translator) sort(sorts []Sort) (string, error) {
	parts := make([]string, 0, len(sorts))
	for _, s := range sorts {
		if s.Field != "score" && !fieldRegex.MatchString(s.Field) {
			return "", domain.NewTranslationError("invalid sort field %q", s.Field)
		}
		dir := s.Direction
		if dir == "" {
			dir = Asc
		}
		if dir != Asc && dir != Desc {
			return "", domain.NewTranslationError("invalid sort direction %q", s.Direction)
		}
		parts = append(parts, t.name(s.Field)+" "+string(dir))
	}
	return strings.Join(parts, ","), nil
}

func (t Translator) name(field string) string {
	if t.namer == nil {
		return field
	}
	return t.namer(field)
}

// render returns "" for an empty subtree so combinators can skip it.
func (t Translator) render(c Condition, depth int) (string, error) {
	if depth > MaxDepth {
		return "", domain.NewTranslationError("condition tree deeper than %d", MaxDepth)
	}
	if c.IsLeaf() {
		return t.leaf(c)
	}
	if c.IsEmpty() {
		return "", nil
	}

	parts := make([]string, 0, len(c.children))
	for _, child := range c.children {
		s, err := t.render(child, depth+1)
		if err != nil {
			return "", err
		}
		if s != "" {
			parts = append(parts, s)
		}
	}

	switch c.combinator {
	case And, Or:
		if len(parts) == 1 {
			return parts[0], nil
		}
		return "(" + strings.Join(parts, " "+string(c.combinator)+" ") + ")", nil
	case Not:
		if len(parts) != 1 {
			return "", domain.NewTranslationError("NOT takes exactly one operand, got %d", len(parts))
		}
		// A purely negative clause matches nothing unless anchored to all documents.
		return "(*:* NOT " + parts[0] + ")", nil
	default:
		return "", domain.NewTranslationError("unsupported combinator %q", c.combinator)
	}
}

func (t Translator) leaf(c Condition) (string, error) {
	if !fieldRegex.MatchString(c.field) {
		return "", domain.NewTranslationError("invalid field name %q", c.field)
	}
	name := t.name(c.field)

	switch c.op {
	case OpEquals:
		v := formatValue(c.value)
		if v == "" {
			return "", domain.NewTranslationError("empty value for %s", c.field)
		}
		return name + ":" + term(v), nil
	case OpWildcard:
		return name + ":" + escapeSpaces(Escape(formatValue(c.value))) + "*", nil
	case OpFuzzy:
		v := formatValue(c.value)
		if v == "" {
			return "", domain.NewTranslationError("empty value for %s", c.field)
		}
		return name + ":" + escapeSpaces(Escape(v)) + "~", nil
	case OpRange:
		open, closing := "[", "]"
		if c.exclusive {
			open, closing = "{", "}"
		}
		return name + ":" + open + bound(c.low) + " TO " + bound(c.high) + closing, nil
	default:
		return "", domain.NewTranslationError("unsupported operator %q", c.op)
	}
}

// term escapes v and quotes it as a phrase when it contains whitespace.
func term(v string) string {
	escaped := Escape(v)
	if strings.IndexFunc(v, unicode.IsSpace) >= 0 {
		return `"` + escaped + `"`
	}
	return escaped
}

func bound(v any) string {
	s := formatValue(v)
	if s == "" || s == "*" {
		return "*"
	}
	return term(s)
}

func escapeSpaces(s string) string {
	if strings.IndexFunc(s, unicode.IsSpace) < 0 {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.UTC().Format(solrDate)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}
