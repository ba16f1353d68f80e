package solr

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/solrsync/internal/domain"
	"github.com/kailas-cloud/solrsync/internal/domain/search/result"
)

// Parse decodes a select response in either encoding, picking XML when the
// body starts with '<'.
func Parse(raw []byte) (result.SearchResult, error) {
	if t := bytes.TrimSpace(raw); len(t) > 0 && t[0] == '<' {
		return ParseXML(raw)
	}
	return ParseLiteral(raw)
}

// ParseLiteral decodes a wt=json select response.
func ParseLiteral(raw []byte) (result.SearchResult, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var top any
	if err := dec.Decode(&top); err != nil {
		return result.SearchResult{}, &domain.ParseError{Reason: "decode json", Err: err}
	}
	root, ok := top.(map[string]any)
	if !ok {
		return result.SearchResult{}, &domain.ParseError{Reason: "top level is not an object"}
	}
	rawResp, ok := root["response"]
	if !ok {
		return result.SearchResult{}, &domain.ParseError{Reason: "missing response section"}
	}
	resp, ok := rawResp.(map[string]any)
	if !ok {
		return result.SearchResult{}, &domain.ParseError{Reason: "response section is not an object"}
	}

	total, err := jsonInt(resp["numFound"])
	if err != nil {
		return result.SearchResult{}, &domain.ParseError{Reason: "numFound", Err: err}
	}
	start, err := jsonInt(resp["start"])
	if err != nil {
		return result.SearchResult{}, &domain.ParseError{Reason: "start", Err: err}
	}

	var maxScore *float64
	if v, ok := resp["maxScore"]; ok && v != nil {
		n, ok := v.(json.Number)
		if !ok {
			return result.SearchResult{}, &domain.ParseError{Reason: fmt.Sprintf("maxScore has type %T", v)}
		}
		f, err := n.Float64()
		if err != nil {
			return result.SearchResult{}, &domain.ParseError{Reason: "maxScore", Err: err}
		}
		maxScore = &f
	}

	var hits []result.Hit
	switch docs := resp["docs"].(type) {
	case nil:
	case []any:
		hits = make([]result.Hit, 0, len(docs))
		for i, d := range docs {
			m, ok := d.(map[string]any)
			if !ok {
				return result.SearchResult{}, &domain.ParseError{Reason: fmt.Sprintf("docs[%d] is not an object", i)}
			}
			hits = append(hits, result.NewHit(m))
		}
	default:
		return result.SearchResult{}, &domain.ParseError{Reason: "docs is not a list"}
	}

	res := result.New(total, start, maxScore, hits)

	if header, ok := root["responseHeader"].(map[string]any); ok {
		if qt, err := jsonInt(header["QTime"]); err == nil {
			res = res.WithQTime(int(qt))
		}
	}
	if fc, ok := root["facet_counts"].(map[string]any); ok {
		facets, err := literalFacets(fc)
		if err != nil {
			return result.SearchResult{}, err
		}
		res = res.WithFacets(facets)
	}
	return res, nil
}

// literalFacets reads facet_fields in Solr's flat [value, count, ...] layout.
func literalFacets(fc map[string]any) (map[string][]result.FacetCount, error) {
	fields, ok := fc["facet_fields"].(map[string]any)
	if !ok {
		return nil, nil
	}
	out := make(map[string][]result.FacetCount, len(fields))
	for name, v := range fields {
		flat, ok := v.([]any)
		if !ok || len(flat)%2 != 0 {
			return nil, &domain.ParseError{Reason: fmt.Sprintf("facet %q is not a flat value/count list", name)}
		}
		counts := make([]result.FacetCount, 0, len(flat)/2)
		for i := 0; i < len(flat); i += 2 {
			count, err := jsonInt(flat[i+1])
			if err != nil {
				return nil, &domain.ParseError{Reason: fmt.Sprintf("facet %q count", name), Err: err}
			}
			counts = append(counts, result.FacetCount{Value: fmt.Sprint(flat[i]), Count: count})
		}
		out[name] = counts
	}
	return out, nil
}

func jsonInt(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("not an integer: %w", err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

// node is a generic XML element.
type node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Content  string     `xml:",chardata"`
	Children []node     `xml:",any"`
}

func (n *node) attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// find returns the first element, depth first, matching pred.
func (n *node) find(pred func(*node) bool) *node {
	if pred(n) {
		return n
	}
	for i := range n.Children {
		if m := n.Children[i].find(pred); m != nil {
			return m
		}
	}
	return nil
}

// child returns the direct child with the given name attribute.
func (n *node) child(name string) *node {
	for i := range n.Children {
		if n.Children[i].attr("name") == name {
			return &n.Children[i]
		}
	}
	return nil
}

func parseTree(raw []byte) (*node, error) {
	var root node
	if err := xml.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("decode xml: %w", err)
	}
	return &root, nil
}

// ParsePing reports whether raw contains an element named "status" whose
// content is OK. Malformed input yields false.
func ParsePing(raw []byte) bool {
	root, err := parseTree(raw)
	if err != nil {
		return false
	}
	return root.find(func(n *node) bool {
		return n.attr("name") == "status" && strings.TrimSpace(n.Content) == "OK"
	}) != nil
}

// ParseAck checks the responseHeader status of an XML update response.
func ParseAck(op string, raw []byte) error {
	root, err := parseTree(raw)
	if err != nil {
		return &domain.ParseError{Reason: op + " response", Err: err}
	}
	header := root.child("responseHeader")
	if header == nil {
		return &domain.ParseError{Reason: op + " response: missing responseHeader"}
	}
	status := header.child("status")
	if status == nil {
		return &domain.ParseError{Reason: op + " response: missing status"}
	}
	code, err := strconv.Atoi(strings.TrimSpace(status.Content))
	if err != nil {
		return &domain.ParseError{Reason: op + " response: status", Err: err}
	}
	if code != 0 {
		return &domain.TransportError{Op: op, Err: fmt.Errorf("solr status %d", code)}
	}
	return nil
}

// ParseXML decodes a wt=xml select response.
func ParseXML(raw []byte) (result.SearchResult, error) {
	root, err := parseTree(raw)
	if err != nil {
		return result.SearchResult{}, &domain.ParseError{Reason: "select response", Err: err}
	}
	res := root.find(func(n *node) bool {
		return n.XMLName.Local == "result" && n.attr("name") == "response"
	})
	if res == nil {
		return result.SearchResult{}, &domain.ParseError{Reason: "missing response result"}
	}

	total, err := attrInt(res, "numFound")
	if err != nil {
		return result.SearchResult{}, err
	}
	start, err := attrInt(res, "start")
	if err != nil {
		return result.SearchResult{}, err
	}
	var maxScore *float64
	if s := res.attr("maxScore"); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return result.SearchResult{}, &domain.ParseError{Reason: "maxScore", Err: err}
		}
		maxScore = &f
	}

	hits := make([]result.Hit, 0, len(res.Children))
	for i := range res.Children {
		d := &res.Children[i]
		if d.XMLName.Local != "doc" {
			continue
		}
		fields := make(map[string]any, len(d.Children))
		for j := range d.Children {
			f := &d.Children[j]
			v, err := xmlValue(f)
			if err != nil {
				return result.SearchResult{}, err
			}
			fields[f.attr("name")] = v
		}
		hits = append(hits, result.NewHit(fields))
	}

	out := result.New(total, start, maxScore, hits)

	if header := root.child("responseHeader"); header != nil {
		if qt := header.child("QTime"); qt != nil {
			if ms, err := strconv.Atoi(strings.TrimSpace(qt.Content)); err == nil {
				out = out.WithQTime(ms)
			}
		}
	}
	if fc := root.child("facet_counts"); fc != nil {
		if ff := fc.child("facet_fields"); ff != nil {
			facets := make(map[string][]result.FacetCount, len(ff.Children))
			for i := range ff.Children {
				field := &ff.Children[i]
				counts := make([]result.FacetCount, 0, len(field.Children))
				for j := range field.Children {
					c := &field.Children[j]
					n, err := strconv.ParseInt(strings.TrimSpace(c.Content), 10, 64)
					if err != nil {
						return result.SearchResult{}, &domain.ParseError{Reason: "facet count", Err: err}
					}
					counts = append(counts, result.FacetCount{Value: c.attr("name"), Count: n})
				}
				facets[field.attr("name")] = counts
			}
			out = out.WithFacets(facets)
		}
	}
	return out, nil
}

func attrInt(n *node, name string) (int64, error) {
	s := n.attr(name)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &domain.ParseError{Reason: name, Err: err}
	}
	return v, nil
}

// xmlValue converts a typed Solr XML element (str, int, float, arr, ...).
func xmlValue(n *node) (any, error) {
	text := strings.TrimSpace(n.Content)
	switch n.XMLName.Local {
	case "str", "date":
		return n.Content, nil
	case "int", "long":
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, &domain.ParseError{Reason: "field " + n.attr("name"), Err: err}
		}
		return v, nil
	case "float", "double":
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, &domain.ParseError{Reason: "field " + n.attr("name"), Err: err}
		}
		return v, nil
	case "bool":
		v, err := strconv.ParseBool(text)
		if err != nil {
			return nil, &domain.ParseError{Reason: "field " + n.attr("name"), Err: err}
		}
		return v, nil
	case "arr":
		values := make([]any, 0, len(n.Children))
		for i := range n.Children {
			v, err := xmlValue(&n.Children[i])
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return values, nil
	case "null":
		return nil, nil
	default:
		return n.Content, nil
	}
}
