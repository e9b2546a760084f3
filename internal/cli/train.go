package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rushteam/gcnrec/recall"
	"github.com/rushteam/gcnrec/train"
)

func newTrainCommand(root *rootOptions) *cobra.Command {
	var (
		epochs  int
		publish bool
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a LightGCN model and save the artifact",
		Long: `Builds the interaction graph from the configured store, trains with BPR
loss and writes the propagated embeddings to the artifact store. A failed
run leaves any previous artifact untouched.

With a Redis connection configured, the mood-based popular lists used for
cold-start users are republished as well.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, root.configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.cfg.Train
			if epochs > 0 {
				cfg.Epochs = epochs
			}
			art, err := train.RunJob(ctx, a.source, a.arts, cfg, a.logger)
			if err != nil {
				return fmt.Errorf("train: %w", err)
			}

			if publish && a.kv != nil {
				catalog := recall.NewCatalog(nil)
				if err := catalog.Refresh(ctx, a.source); err != nil {
					return err
				}
				hot := &recall.MoodHot{Catalog: catalog, KV: a.kv}
				if err := hot.Publish(ctx); err != nil {
					return fmt.Errorf("publish mood lists: %w", err)
				}
				a.logger.Info().Int("items", catalog.Len()).Msg("mood lists published")
			}
			return printJSON(cmd.OutOrStdout(), art.Meta)
		},
	}
	cmd.Flags().IntVar(&epochs, "epochs", 0, "override train.epochs")
	cmd.Flags().BoolVar(&publish, "publish-hot", true, "republish mood popular lists when redis is configured")
	return cmd
}
