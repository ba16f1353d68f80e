package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) newRebuildCmd() *cobra.Command {
	var (
		batchSize int
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "rebuild <type>",
		Short: "Reindex every stored record of a type",
		Long: `Deletes the type's documents from the index, then reads every stored
record in batches and re-adds it. Records that no longer map to a document
are skipped and counted. Runs in the foreground until done.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if batchSize < 0 {
				return fmt.Errorf("batch size must not be negative, got %d", batchSize)
			}
			if err := a.checkType(args[0]); err != nil {
				return err
			}

			st, err := a.deps.Records.Rebuild(cmd.Context(), args[0], batchSize)
			if asJSON {
				data, mErr := json.MarshalIndent(st, "", "  ")
				if mErr != nil {
					return fmt.Errorf("marshal status: %w", mErr)
				}
				cmd.Println(string(data))
			} else if st.Type != "" {
				cmd.Printf("%s: %s, indexed %d, skipped %d\n", st.Type, st.State, st.Indexed, st.Skipped)
			}
			if err != nil {
				return fmt.Errorf("rebuild %s: %w", args[0], err)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", 0, "records per batch (0 uses the configured size)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the final status as JSON")
	return cmd
}
