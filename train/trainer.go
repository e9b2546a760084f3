package train

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/gcnrec/core"
	"github.com/rushteam/gcnrec/graph"
	"github.com/rushteam/gcnrec/metrics"
	"github.com/rushteam/gcnrec/model"
)

// Result 是一次成功训练的产出。
type Result struct {
	Model    *model.LightGCN
	Snapshot *model.Snapshot

	// Losses 是每个 epoch 的总 loss
	Losses          []float64
	Epochs          int
	DroppedTriplets int
	Duration        time.Duration
}

// FinalLoss 返回最后一个 epoch 的 loss。
func (r *Result) FinalLoss() float64 {
	if len(r.Losses) == 0 {
		return 0
	}
	return r.Losses[len(r.Losses)-1]
}

// Trainer 用 BPR loss 训练 LightGCN。
//
// 每个 epoch：为全部正样本边重新采样负样本 → 前向传播 → 计算 loss 与梯度 →
// 检查 loss 有限 → 反向传播到 E0 → 全局范数裁剪 → Adam 更新。
// loss 一旦非有限立即中止并返回 core.ErrNumericInstability，不产出模型。
type Trainer struct {
	cfg    Config
	logger zerolog.Logger

	// lossTap 在 loss 有限性检查之前调用，可替换 loss 值
	lossTap func(epoch int, loss float64) float64
	// gradTap 在梯度裁剪之前调用，可修改 dL/dE0
	gradTap func(epoch int, grad *mat.Dense)
}

func NewTrainer(cfg Config, logger zerolog.Logger) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Trainer{
		cfg:    cfg,
		logger: logger.With().Str("component", "trainer").Logger(),
	}, nil
}

// Fit 在图 g 上训练，返回训练好的模型与推理快照。
func (t *Trainer) Fit(ctx context.Context, g *graph.Graph) (*Result, error) {
	start := time.Now()
	edges := g.Edges()
	if len(edges) == 0 {
		metrics.TrainRuns.WithLabelValues("no_data").Inc()
		return nil, fmt.Errorf("%w: graph has %d users, %d items, 0 edges", core.ErrNoTrainingData, g.NumUsers(), g.NumItems())
	}

	m := model.New(g, t.cfg.Model)
	sampler := NewSampler(g, t.cfg.Seed, t.cfg.MaxNegativeRetries)
	n, d := m.Emb.Table.Dims()
	opt := newAdam(t.cfg.LearningRate, n, d)
	grad := mat.NewDense(n, d, nil)

	t.logger.Info().
		Int("users", g.NumUsers()).
		Int("items", g.NumItems()).
		Int("edges", len(edges)).
		Int("epochs", t.cfg.Epochs).
		Int("dim", d).
		Int("layers", m.Layers).
		Msg("training started")

	logEvery := t.cfg.LogEvery
	if logEvery <= 0 {
		logEvery = DefaultLogEvery
	}

	res := &Result{Model: m, Losses: make([]float64, 0, t.cfg.Epochs)}
	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			metrics.TrainRuns.WithLabelValues("canceled").Inc()
			return nil, fmt.Errorf("training canceled at epoch %d: %w", epoch, err)
		}

		triplets, dropped := sampler.Sample(edges)
		res.DroppedTriplets += dropped
		metrics.TrainDroppedTriplets.Add(float64(dropped))
		if len(triplets) == 0 {
			metrics.TrainRuns.WithLabelValues("no_data").Inc()
			return nil, fmt.Errorf("%w: no negative item available for any edge", core.ErrNoTrainingData)
		}

		final, err := m.Forward(g)
		if err != nil {
			metrics.TrainRuns.WithLabelValues("error").Inc()
			return nil, err
		}
		parts := bprLoss(final, triplets, g.NumUsers(), t.cfg.L2Reg, grad)
		loss := parts.Total
		if t.lossTap != nil {
			loss = t.lossTap(epoch, loss)
		}
		if !isFinite(loss) {
			t.logger.Error().Int("epoch", epoch).Float64("loss", loss).Msg("loss is not finite, training aborted")
			metrics.TrainRuns.WithLabelValues("unstable").Inc()
			return nil, fmt.Errorf("%w: epoch %d/%d loss=%v", core.ErrNumericInstability, epoch, t.cfg.Epochs, loss)
		}

		gradE0, err := model.Propagate(g.Normalized, grad, m.Layers)
		if err != nil {
			metrics.TrainRuns.WithLabelValues("error").Inc()
			return nil, err
		}
		if t.gradTap != nil {
			t.gradTap(epoch, gradE0)
		}
		norm := clipGradNorm(gradE0, t.cfg.MaxGradNorm)
		opt.step(m.Emb.Table, gradE0)

		res.Losses = append(res.Losses, loss)
		res.Epochs = epoch
		metrics.TrainEpochs.Inc()
		metrics.TrainEpochLoss.Set(loss)

		ev := t.logger.Debug()
		if epoch%logEvery == 0 || epoch == t.cfg.Epochs {
			ev = t.logger.Info()
		}
		ev.Int("epoch", epoch).
			Float64("loss", loss).
			Float64("ranking", parts.Ranking).
			Float64("reg", parts.Reg).
			Float64("grad_norm", norm).
			Int("dropped", dropped).
			Msg("epoch done")
	}

	snap, err := m.Snapshot(g)
	if err != nil {
		metrics.TrainRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	// loss 在最后一次 Adam 更新之前计算，参数本身还要再查一次
	if !m.Emb.Finite() || !snap.Finite() {
		t.logger.Error().Int("epoch", res.Epochs).Msg("embeddings are not finite after the last update")
		metrics.TrainRuns.WithLabelValues("unstable").Inc()
		return nil, fmt.Errorf("%w: embeddings not finite after epoch %d", core.ErrNumericInstability, res.Epochs)
	}
	res.Snapshot = snap
	res.Duration = time.Since(start)

	metrics.TrainRuns.WithLabelValues("ok").Inc()
	metrics.TrainDuration.Observe(res.Duration.Seconds())
	t.logger.Info().
		Int("epochs", res.Epochs).
		Float64("final_loss", res.FinalLoss()).
		Int("dropped_triplets", res.DroppedTriplets).
		Dur("elapsed", res.Duration).
		Msg("training finished")
	return res, nil
}
