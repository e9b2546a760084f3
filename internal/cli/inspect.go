package cli

import (
	"github.com/spf13/cobra"
)

func newInspectCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print metadata of the current model artifact",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, root.configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			art, err := a.arts.Load(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), art.Meta)
		},
	}
}
