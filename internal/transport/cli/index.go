package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/solrsync/internal/domain"
	"github.com/kailas-cloud/solrsync/internal/domain/search/query"
)

func (a *app) newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the Solr core answers its ping handler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.deps.Index.Healthy(cmd.Context()) {
				return errUnhealthy
			}
			cmd.Println("OK")
			return nil
		},
	}
}

func (a *app) newCommitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commit",
		Short: "Make pending index writes visible",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.deps.Index.Commit(cmd.Context()); err != nil {
				return fmt.Errorf("commit: %w", err)
			}
			cmd.Println("committed")
			return nil
		},
	}
}

func (a *app) newOptimizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "optimize",
		Short: "Merge index segments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.deps.Index.Optimize(cmd.Context()); err != nil {
				return fmt.Errorf("optimize: %w", err)
			}
			cmd.Println("optimized")
			return nil
		},
	}
}

func (a *app) newClearCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "clear [type]",
		Short: "Delete indexed documents of one type, or of every type with --all",
		Long: `Deletes documents from the index and commits. The primary store is
left untouched; run rebuild to restore the documents.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var q string
			switch {
			case all && len(args) == 0:
				q = "*:*"
			case !all && len(args) == 1:
				if err := a.checkType(args[0]); err != nil {
					return err
				}
				q = domain.TypeField + ":" + query.Escape(args[0])
			default:
				return errors.New("pass exactly one of a type or --all")
			}

			ctx := cmd.Context()
			if err := a.deps.Index.DeleteByQuery(ctx, q); err != nil {
				return fmt.Errorf("delete: %w", err)
			}
			if err := a.deps.Index.Commit(ctx); err != nil {
				return fmt.Errorf("commit: %w", err)
			}
			cmd.Printf("cleared %s\n", q)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "delete every document in the core")
	return cmd
}
