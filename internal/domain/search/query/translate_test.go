package query

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/solrsync/internal/domain"
)

func TestTranslate_Leaves(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		want string
	}{
		{"equals", Equals("title", "Dune"), "title:Dune"},
		{"equals int", Equals("pages", 412), "pages:412"},
		{"equals phrase", Equals("title", "Dune Messiah"), `title:"Dune Messiah"`},
		{"wildcard", Wildcard("title", "Du"), "title:Du*"},
		{"wildcard empty", Wildcard("title", ""), "title:*"},
		{"wildcard with space", Wildcard("title", "Dune M"), `title:Dune\ M*`},
		{"fuzzy", Fuzzy("author", "Herbet"), "author:Herbet~"},
		{"range", Range("price", 1, 10), "price:[1 TO 10]"},
		{"range open low", Range("price", nil, 10), "price:[* TO 10]"},
		{"range open high", Range("price", "5", ""), "price:[5 TO *]"},
		{"range exclusive", RangeExclusive("price", 1.5, 2.5), "price:{1.5 TO 2.5}"},
		{"range negative", Range("temp", -5, 5), `temp:[\-5 TO 5]`},
		{
			"range date",
			Range("published", time.Date(1965, 8, 1, 0, 0, 0, 0, time.UTC), "*"),
			`published:[1965\-08\-01T00\:00\:00Z TO *]`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Translate(Spec{Condition: tc.cond})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTranslate_Combinators(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		want string
	}{
		{
			"and",
			AllOf(Equals("title", "Dune"), Equals("author", "Herbert")),
			"(title:Dune AND author:Herbert)",
		},
		{
			"or",
			AnyOf(Equals("title", "Dune"), Wildcard("title", "Found")),
			"(title:Dune OR title:Found*)",
		},
		{
			"not",
			Negate(Equals("title", "Dune")),
			"(*:* NOT title:Dune)",
		},
		{
			"nested",
			AllOf(
				AnyOf(Equals("a", "1"), Equals("b", "2")),
				Negate(AllOf(Equals("c", "3"), Equals("d", "4"))),
			),
			"((a:1 OR b:2) AND (*:* NOT (c:3 AND d:4)))",
		},
		{
			"single child collapses",
			AllOf(Equals("title", "Dune")),
			"title:Dune",
		},
		{
			"empty children skipped",
			AllOf(Equals("title", "Dune"), AnyOf(), Equals("pages", 1)),
			"(title:Dune AND pages:1)",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Translate(Spec{Condition: tc.cond})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTranslate_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{"empty tree", Spec{}},
		{"empty combinator", Spec{Condition: AllOf(AnyOf(), Negate(Condition{}))}},
		{"unsupported operator", Spec{Condition: Leaf("title", "near", "x")}},
		{"unsupported combinator", Spec{Condition: Combine("XOR", Equals("a", "1"), Equals("b", "2"))}},
		{"empty field", Spec{Condition: Equals("", "x")}},
		{"field with colon", Spec{Condition: Equals("a:b", "x")}},
		{"empty equals value", Spec{Condition: Equals("title", "")}},
		{"empty fuzzy value", Spec{Condition: Fuzzy("title", nil)}},
		{"negative offset", Spec{Condition: Equals("a", "1"), Offset: -1}},
		{"negative limit", Spec{Condition: Equals("a", "1"), Limit: -1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Translate(tc.spec)
			if !errors.Is(err, domain.ErrTranslation) {
				t.Errorf("expected ErrTranslation, got %v", err)
			}
		})
	}
}

func TestTranslate_TooDeep(t *testing.T) {
	c := Equals("a", "1")
	for range MaxDepth + 1 {
		c = AllOf(c, Equals("b", "2"))
	}
	if _, err := Translate(Spec{Condition: c}); !errors.Is(err, domain.ErrTranslation) {
		t.Errorf("expected ErrTranslation, got %v", err)
	}
}

func TestTranslate_EscapesReservedOnce(t *testing.T) {
	for _, r := range `:()[]+-!^"~*?\{}/` {
		value := "a" + string(r) + "b"
		got, err := Translate(Spec{Condition: Equals("f", value)})
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", r, err)
		}
		want := `f:a\` + string(r) + "b"
		if got != want {
			t.Errorf("%q: got %q, want %q", r, got, want)
		}
	}
}

func TestEscape_AlreadyEscapedInput(t *testing.T) {
	// A literal backslash followed by a colon becomes two escaped characters.
	if got := Escape(`a\:b`); got != `a\\\:b` {
		t.Errorf("got %q", got)
	}
}

func TestTranslator_Namer(t *testing.T) {
	tr := NewTranslator(func(s string) string { return s + "_t" })
	got, err := tr.Translate(Spec{Condition: AllOf(Equals("title", "Dune"), Range("pages", 1, 2))})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "(title_t:Dune AND pages_t:[1 TO 2])" {
		t.Errorf("got %q", got)
	}
}

func TestParams(t *testing.T) {
	tr := NewTranslator(func(s string) string {
		if s == "score" {
			return s
		}
		return s + "_s"
	})
	spec := Spec{
		Condition: Equals("title", "Dune"),
		Filters:   []Condition{Equals("lang", "en"), Range("year", 1960, 1970)},
		Sort:      []Sort{{Field: "score", Direction: Desc}, {Field: "title"}},
		Offset:    20,
		Limit:     10,
		Fields:    []string{"pk", "score"},
		Facets:    []Facet{{Field: "genre", Limit: 5, MinCount: 1}},
	}

	p, err := tr.Params(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	checks := map[string]string{
		"q":                        "title_s:Dune",
		"sort":                     "score desc,title_s asc",
		"start":                    "20",
		"rows":                     "10",
		"fl":                       "pk_s,score,id",
		"facet":                    "true",
		"facet.field":              "genre_s",
		"f.genre_s.facet.limit":    "5",
		"f.genre_s.facet.mincount": "1",
	}
	for k, want := range checks {
		if got := p.Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	fq := p["fq"]
	if len(fq) != 2 || fq[0] != "lang_s:en" || fq[1] != "year_s:[1960 TO 1970]" {
		t.Errorf("fq = %v", fq)
	}
}

func TestParams_ProjectionKeepsKeys(t *testing.T) {
	tr := NewTranslator(func(s string) string { return s + "_t" })
	p, err := tr.Params(Spec{Condition: Equals("title", "Dune"), Fields: []string{"title"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.Get("fl"); got != "title_t,id,pk_s" {
		t.Errorf("fl = %q, want title_t,id,pk_s", got)
	}
}

func TestParams_DefaultFieldList(t *testing.T) {
	p, err := NewTranslator(nil).Params(Spec{Condition: Equals("a", "1")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Get("fl") != "*,score" {
		t.Errorf("fl = %q", p.Get("fl"))
	}
	if p.Has("sort") || p.Has("facet") || p.Has("fq") {
		t.Errorf("unexpected params: %v", p)
	}
}

func TestParams_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{"empty filter", Spec{Condition: Equals("a", "1"), Filters: []Condition{{}}}},
		{"bad sort direction", Spec{Condition: Equals("a", "1"), Sort: []Sort{{Field: "a", Direction: "up"}}}},
		{"bad sort field", Spec{Condition: Equals("a", "1"), Sort: []Sort{{Field: "a b"}}}},
		{"bad facet field", Spec{Condition: Equals("a", "1"), Facets: []Facet{{Field: ""}}}},
		{"bad fl field", Spec{Condition: Equals("a", "1"), Fields: []string{"a,b"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewTranslator(nil).Params(tc.spec); !errors.Is(err, domain.ErrTranslation) {
				t.Errorf("expected ErrTranslation, got %v", err)
			}
		})
	}
}

// --- Property checks over random trees ---

const reservedChars = `:()[]+-!^"~*?\{}/`

func randomValue(rng *rand.Rand) string {
	const alphabet = "abc xyz" + reservedChars
	n := 1 + rng.IntN(6)
	var b strings.Builder
	for range n {
		b.WriteByte(alphabet[rng.IntN(len(alphabet))])
	}
	s := b.String()
	if strings.TrimSpace(s) == "" {
		return "v"
	}
	return s
}

func randomCondition(rng *rand.Rand, depth int) Condition {
	if depth >= 4 || rng.IntN(3) == 0 {
		v := randomValue(rng)
		switch rng.IntN(4) {
		case 0:
			return Equals("f", v)
		case 1:
			return Wildcard("f", v)
		case 2:
			return Fuzzy("f", v)
		default:
			return Range("f", v, randomValue(rng))
		}
	}
	switch rng.IntN(3) {
	case 0:
		return Negate(randomCondition(rng, depth+1))
	case 1:
		return AnyOf(randomCondition(rng, depth+1), randomCondition(rng, depth+1))
	default:
		return AllOf(randomCondition(rng, depth+1), randomCondition(rng, depth+1), randomCondition(rng, depth+1))
	}
}

// balanced reports whether unescaped grouping characters outside phrases nest correctly.
func balanced(s string) bool {
	var stack []byte
	pairs := map[byte]byte{')': '(', ']': '[', '}': '{'}
	inPhrase := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			i++
		case c == '"':
			inPhrase = !inPhrase
		case inPhrase:
		case c == '(' || c == '[' || c == '{':
			stack = append(stack, c)
		case c == ')' || c == ']' || c == '}':
			// Range brackets may mix: [a TO b} is legal Lucene, but we never emit it.
			if len(stack) == 0 || stack[len(stack)-1] != pairs[c] {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0 && !inPhrase
}

func TestTranslate_RandomTreesBalanced(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := range 500 {
		c := randomCondition(rng, 0)
		got, err := Translate(Spec{Condition: c})
		if err != nil {
			t.Fatalf("tree %d: unexpected error: %v", i, err)
		}
		if !balanced(got) {
			t.Fatalf("tree %d: unbalanced output %q", i, got)
		}
	}
}

func TestEscape_RandomValuesUnescapeToOriginal(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for range 500 {
		v := randomValue(rng)
		escaped := Escape(v)

		var b strings.Builder
		for i := 0; i < len(escaped); i++ {
			if escaped[i] == '\\' {
				i++
				if !strings.ContainsRune(reservedChars+"|&", rune(escaped[i])) {
					t.Fatalf("escaped non-reserved %q in %q", escaped[i], escaped)
				}
			} else if strings.ContainsRune(reservedChars, rune(escaped[i])) {
				t.Fatalf("unescaped reserved %q in %q", escaped[i], escaped)
			}
			b.WriteByte(escaped[i])
		}
		if b.String() != v {
			t.Fatalf("unescape(%q) = %q, want %q", escaped, b.String(), v)
		}
	}
}
