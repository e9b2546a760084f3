package train

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rushteam/gcnrec/artifact"
	"github.com/rushteam/gcnrec/core"
	"github.com/rushteam/gcnrec/graph"
)

// RunJob 是离线训练任务：从交互存储构图、训练、写出模型文件。
// 训练失败时不会调用 dst.Save，已有的模型文件保持不变。
func RunJob(ctx context.Context, src core.InteractionStore, dst artifact.Store, cfg Config, logger zerolog.Logger) (*artifact.Artifact, error) {
	trainer, err := NewTrainer(cfg, logger)
	if err != nil {
		return nil, err
	}
	g, err := graph.Load(ctx, src, logger)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}
	return trainer.run(ctx, g, dst)
}

func (t *Trainer) run(ctx context.Context, g *graph.Graph, dst artifact.Store) (*artifact.Artifact, error) {
	res, err := t.Fit(ctx, g)
	if err != nil {
		return nil, err
	}

	a, err := artifact.New(g, res.Model, artifact.Meta{
		Epochs:             res.Epochs,
		FinalLoss:          res.FinalLoss(),
		TrainingDurationMS: res.Duration.Milliseconds(),
	})
	if err != nil {
		return nil, err
	}
	if err := dst.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("save artifact: %w", err)
	}
	t.logger.Info().
		Str("run_id", a.Meta.RunID).
		Str("store", dst.Name()).
		Str("checksum", a.Meta.Checksum).
		Int64("size_bytes", a.Meta.SizeBytes).
		Msg("artifact saved")
	return a, nil
}
