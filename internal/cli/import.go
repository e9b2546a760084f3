package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rushteam/gcnrec/store"
)

func newImportCommand(root *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy interaction data into the Redis store",
		Long: `Writes users, items and interactions into the Redis-backed interaction
store. The data comes from --file, or from the configured store when it is
not Redis (for example to snapshot Postgres into Redis).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, root.configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if a.kv == nil {
				return fmt.Errorf("import requires store.redis to be configured")
			}
			var snap *store.Snapshot
			if file != "" {
				snap, err = store.ReadSnapshotFile(file)
			} else {
				snap, err = store.ExportSnapshot(ctx, a.source)
			}
			if err != nil {
				return err
			}

			dst := store.NewKVInteractionStore(a.kv, a.cfg.Store.Prefix)
			if err := dst.ImportSnapshot(ctx, snap); err != nil {
				return fmt.Errorf("import into %s: %w", dst.Name(), err)
			}
			a.logger.Info().
				Int("users", len(snap.Users)).
				Int("items", len(snap.Items)).
				Int("interactions", len(snap.Interactions)).
				Msg("snapshot imported")
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON snapshot file")
	return cmd
}
