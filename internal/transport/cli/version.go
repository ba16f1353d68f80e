package cli

import "github.com/spf13/cobra"

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version number",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"offline": "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("solrsyncctl version %s\n", a.version)
		},
	}
}
