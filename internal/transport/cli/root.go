// Package cli implements the solrsyncctl maintenance commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/solrsync/internal/domain"
	domrec "github.com/kailas-cloud/solrsync/internal/domain/record"
	"github.com/kailas-cloud/solrsync/internal/domain/search/query"
	"github.com/kailas-cloud/solrsync/internal/domain/search/result"
)

// IndexAdmin runs whole-index commands against the search engine.
type IndexAdmin interface {
	Healthy(ctx context.Context) bool
	Commit(ctx context.Context) error
	Optimize(ctx context.Context) error
	DeleteByQuery(ctx context.Context, q string) error
}

// Rebuilder reindexes every stored record of a type.
type Rebuilder interface {
	Rebuild(ctx context.Context, recordType string, batchSize int) (domrec.RebuildStatus, error)
}

// Searcher runs type-scoped searches.
type Searcher interface {
	Search(ctx context.Context, recordType string, spec query.Spec) (result.SearchResult, error)
}

// Deps are the services commands run against.
type Deps struct {
	Index   IndexAdmin
	Records Rebuilder
	Search  Searcher
	Types   []string
	Close   func()
}

// Loader builds Deps once flags are parsed. configPath wins over env when set.
type Loader func(ctx context.Context, configPath, env string) (*Deps, error)

type app struct {
	load       Loader
	deps       *Deps
	configPath string
	env        string
	version    string
}

// Execute runs the command tree with args from os.Args and releases the
// loaded services afterwards.
func Execute(ctx context.Context, load Loader, defaultEnv, version string) error {
	a := &app{load: load, env: defaultEnv, version: version}
	defer a.close()
	return a.rootCmd().ExecuteContext(ctx)
}

// NewRootCmd builds the solrsyncctl command tree.
func NewRootCmd(load Loader, defaultEnv, version string) *cobra.Command {
	return (&app{load: load, env: defaultEnv, version: version}).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "solrsyncctl",
		Short:         "Maintain the solrsync search index",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations["offline"] == "true" {
				return nil
			}
			deps, err := a.load(cmd.Context(), a.configPath, a.env)
			if err != nil {
				return fmt.Errorf("load: %w", err)
			}
			a.deps = deps
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a config file")
	root.PersistentFlags().StringVar(&a.env, "env", a.env, "environment whose config/<env>.yaml is loaded")

	root.AddCommand(
		a.newPingCmd(),
		a.newCommitCmd(),
		a.newOptimizeCmd(),
		a.newClearCmd(),
		a.newRebuildCmd(),
		a.newSearchCmd(),
		a.newVersionCmd(),
	)
	return root
}

func (a *app) close() {
	if a.deps != nil && a.deps.Close != nil {
		a.deps.Close()
	}
}

// checkType rejects record types with no configured schema.
func (a *app) checkType(recordType string) error {
	if !slices.Contains(a.deps.Types, recordType) {
		return fmt.Errorf("%q: %w", recordType, domain.ErrUnknownType)
	}
	return nil
}

var errUnhealthy = errors.New("solr ping failed")
