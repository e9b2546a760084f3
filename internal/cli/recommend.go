package cli

import (
	"github.com/spf13/cobra"

	"github.com/rushteam/gcnrec/core"
)

type recommendation struct {
	ID          string  `json:"id"`
	Score       float64 `json:"score"`
	Title       string  `json:"title,omitempty"`
	ProjectCode string  `json:"project_code,omitempty"`
	Source      string  `json:"source,omitempty"`
}

type recommendOutput struct {
	User  string           `json:"user"`
	Mood  string           `json:"mood"`
	Route string           `json:"route,omitempty"`
	Items []recommendation `json:"items"`
}

func newRecommendCommand(root *rootOptions) *cobra.Command {
	var (
		user        string
		mood        string
		limit       int
		projectCode string
	)
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend items for one user",
		Example: `  gcnrec recommend --user 42 --limit 10
  gcnrec recommend --user alice --mood calm --project-code abc`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, root.configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.loadServing(ctx)
			if err != nil {
				return err
			}

			if mood == "" {
				mood = a.cfg.Hybrid.DefaultMood
			}
			if limit <= 0 {
				limit = a.cfg.Hybrid.Limit
			}
			params := map[string]any{"mood": mood, "limit": limit}
			if projectCode != "" {
				params["project_code"] = projectCode
			}
			rctx := &core.RecommendContext{UserID: user, Scene: "cli", Params: params}

			items, err := s.pipeline.Run(ctx, rctx, nil)
			if err != nil {
				return err
			}

			out := recommendOutput{User: user, Mood: mood, Items: make([]recommendation, 0, len(items))}
			if lbl, ok := rctx.GetLabel("route"); ok {
				out.Route = lbl.Value
			}
			for _, it := range items {
				r := recommendation{ID: it.ID, Score: it.Score}
				r.Title, _ = it.Meta["title"].(string)
				r.ProjectCode, _ = it.Meta["project_code"].(string)
				r.Source = it.Labels["recall_source"].Value
				out.Items = append(out.Items, r)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id or username")
	cmd.Flags().StringVar(&mood, "mood", "", "mood for cold-start users (default: hybrid.default_mood)")
	cmd.Flags().IntVar(&limit, "limit", 0, "number of items (default: hybrid.limit)")
	cmd.Flags().StringVar(&projectCode, "project-code", "", "only return items of this project code")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
