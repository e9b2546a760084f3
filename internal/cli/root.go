// Package cli 实现 gcnrec 命令行：离线训练、模型检查、单次推荐与在线服务。
package cli

import (
	"context"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
}

// NewRootCommand 构造命令树。
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "gcnrec",
		Short: "LightGCN hybrid recommender",
		Long: `gcnrec trains a LightGCN model on user-item interactions and serves
recommendations, falling back to mood-based popular content for users
with little history.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: $GCNREC_CONFIG or ./gcnrec.yaml)")

	root.AddCommand(
		newTrainCommand(opts),
		newRecommendCommand(opts),
		newInspectCommand(opts),
		newImportCommand(opts),
		newServeCommand(opts),
	)
	return root
}

// Execute 运行命令树。
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
