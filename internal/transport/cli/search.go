package cli

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/solrsync/internal/domain"
	"github.com/kailas-cloud/solrsync/internal/domain/search/query"
	"github.com/kailas-cloud/solrsync/internal/domain/search/result"
)

type searchOptions struct {
	limit    int
	offset   int
	sort     []string
	fields   []string
	matchAny bool
	asJSON   bool
}

func (a *app) newSearchCmd() *cobra.Command {
	var opts searchOptions
	cmd := &cobra.Command{
		Use:   "search <type> <condition>...",
		Short: "Search indexed documents of a type",
		Long: `Runs a type-scoped search. Each condition is one of:

  field=value        exact match
  field=prefix*      prefix match
  field~value        fuzzy match
  field=low..high    inclusive range, either bound may be empty

Conditions are combined with AND, or with OR when --any is set.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.checkType(args[0]); err != nil {
				return err
			}
			spec, err := opts.spec(args[1:])
			if err != nil {
				return err
			}

			res, err := a.deps.Search.Search(cmd.Context(), args[0], spec)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			if opts.asJSON {
				return printSearchJSON(cmd, res)
			}
			printSearchTable(cmd, res)
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVarP(&opts.limit, "limit", "n", 0, "maximum number of hits (0 uses the configured page size)")
	f.IntVar(&opts.offset, "offset", 0, "number of hits to skip")
	f.StringSliceVar(&opts.sort, "sort", nil, "sort field, optionally suffixed with :asc or :desc")
	f.StringSliceVarP(&opts.fields, "fields", "f", nil, "fields to return")
	f.BoolVar(&opts.matchAny, "any", false, "match any condition instead of all")
	f.BoolVar(&opts.asJSON, "json", false, "output hits as JSON")
	return cmd
}

func (o searchOptions) spec(conds []string) (query.Spec, error) {
	children := make([]query.Condition, 0, len(conds))
	for _, c := range conds {
		cond, err := parseCondition(c)
		if err != nil {
			return query.Spec{}, err
		}
		children = append(children, cond)
	}
	combinator := query.And
	if o.matchAny {
		combinator = query.Or
	}

	spec := query.Spec{
		Condition: query.Combine(combinator, children...),
		Offset:    o.offset,
		Limit:     o.limit,
		Fields:    o.fields,
	}
	for _, s := range o.sort {
		field, dir, _ := strings.Cut(s, ":")
		dir = strings.ToLower(strings.TrimSpace(dir))
		if dir == "" {
			dir = string(query.Asc)
		}
		spec.Sort = append(spec.Sort, query.Sort{Field: field, Direction: query.Direction(dir)})
	}
	return spec, nil
}

// parseCondition reads one field=value, field=prefix*, field~value or
// field=low..high argument.
func parseCondition(s string) (query.Condition, error) {
	if field, value, ok := strings.Cut(s, "~"); ok && !strings.Contains(field, "=") {
		return query.Fuzzy(field, value), nil
	}
	field, value, ok := strings.Cut(s, "=")
	if !ok || field == "" {
		return query.Condition{}, domain.NewTranslationError("condition %q must look like field=value", s)
	}
	if low, high, isRange := strings.Cut(value, ".."); isRange {
		var lo, hi any
		if low != "" {
			lo = low
		}
		if high != "" {
			hi = high
		}
		return query.Range(field, lo, hi), nil
	}
	if prefix, isPrefix := strings.CutSuffix(value, "*"); isPrefix {
		return query.Wildcard(field, prefix), nil
	}
	return query.Equals(field, value), nil
}

type jsonPage struct {
	Total int64            `json:"total"`
	Start int64            `json:"start"`
	Hits  []map[string]any `json:"hits"`
}

func printSearchJSON(cmd *cobra.Command, res result.SearchResult) error {
	page := jsonPage{Total: res.TotalHits(), Start: res.Start(), Hits: make([]map[string]any, 0, res.Len())}
	for h := range res.Hits() {
		page.Hits = append(page.Hits, h.Fields())
	}
	data, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal hits: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printSearchTable(cmd *cobra.Command, res result.SearchResult) {
	if res.Len() == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Printf("%d-%d of %d\n\n", res.Start()+1, res.NextOffset(), res.TotalHits())
	i := res.Start()
	for h := range res.Hits() {
		i++
		if score, ok := h.Score(); ok {
			cmd.Printf("  [%d] %s (%.2f)\n", i, h.ID(), score)
		} else {
			cmd.Printf("  [%d] %s\n", i, h.ID())
		}
		fields := h.Fields()
		for _, name := range slices.Sorted(maps.Keys(fields)) {
			if name == domain.IDField || name == "score" {
				continue
			}
			cmd.Printf("      %s: %v\n", name, fields[name])
		}
	}
}
