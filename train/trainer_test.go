package train

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/gcnrec/artifact"
	"github.com/rushteam/gcnrec/core"
	"github.com/rushteam/gcnrec/graph"
	"github.com/rushteam/gcnrec/model"
)

// denseGraph 构造 6 个用户、8 个物品的图：用户 u 交互物品 u、u+1、u+2（取模）。
func denseGraph(t *testing.T) *graph.Graph {
	t.Helper()
	var (
		users        []core.UserRecord
		items        []core.ItemRecord
		interactions []core.Interaction
	)
	for u := 0; u < 6; u++ {
		users = append(users, core.UserRecord{ID: fmt.Sprintf("u%d", u)})
	}
	for i := 0; i < 8; i++ {
		items = append(items, core.ItemRecord{ID: fmt.Sprintf("i%d", i)})
	}
	for u := 0; u < 6; u++ {
		for k := 0; k < 3; k++ {
			interactions = append(interactions, core.Interaction{
				UserID: fmt.Sprintf("u%d", u),
				ItemID: fmt.Sprintf("i%d", (u+k)%8),
			})
		}
	}
	g, err := graph.Build(users, items, interactions)
	require.NoError(t, err)
	return g
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Model.EmbedDim = 8
	cfg.Model.NumLayers = 2
	cfg.Epochs = 10
	cfg.LearningRate = 0.01
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "default", mutate: func(*Config) {}},
		{name: "zero epochs", mutate: func(c *Config) { c.Epochs = 0 }, wantErr: true},
		{name: "negative lr", mutate: func(c *Config) { c.LearningRate = -1 }, wantErr: true},
		{name: "negative l2", mutate: func(c *Config) { c.L2Reg = -1 }, wantErr: true},
		{name: "zero grad norm", mutate: func(c *Config) { c.MaxGradNorm = 0 }, wantErr: true},
		{name: "zero retries", mutate: func(c *Config) { c.MaxNegativeRetries = 0 }, wantErr: true},
		{name: "zero dim", mutate: func(c *Config) { c.Model.EmbedDim = 0 }, wantErr: true},
		{name: "zero layers ok", mutate: func(c *Config) { c.Model.NumLayers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 50, cfg.Epochs)
	assert.Equal(t, 1e-3, cfg.LearningRate)
	assert.Equal(t, 1e-4, cfg.L2Reg)
	assert.Equal(t, 1.0, cfg.MaxGradNorm)
	assert.Equal(t, 64, cfg.Model.EmbedDim)
	assert.Equal(t, 3, cfg.Model.NumLayers)
	assert.Equal(t, 0.1, cfg.Model.InitStd)
}

func TestSampler(t *testing.T) {
	g := denseGraph(t)
	s := NewSampler(g, 1, 100)

	triplets, dropped := s.Sample(g.Edges())
	assert.Zero(t, dropped)
	assert.Len(t, triplets, g.NumEdges())
	for _, tr := range triplets {
		assert.True(t, g.HasInteracted(tr.User, tr.Pos))
		assert.False(t, g.HasInteracted(tr.User, tr.Neg), "负样本不能是已交互物品")
	}
}

func TestSampler_DropsWhenNoNegative(t *testing.T) {
	// u1 交互了全部物品
	g, err := graph.Build(
		[]core.UserRecord{{ID: "u1"}, {ID: "u2"}},
		[]core.ItemRecord{{ID: "i1"}, {ID: "i2"}},
		[]core.Interaction{
			{UserID: "u1", ItemID: "i1"},
			{UserID: "u1", ItemID: "i2"},
			{UserID: "u2", ItemID: "i1"},
		},
	)
	require.NoError(t, err)

	triplets, dropped := NewSampler(g, 1, 100).Sample(g.Edges())
	assert.Equal(t, 2, dropped)
	require.Len(t, triplets, 1)
	assert.Equal(t, Triplet{User: 1, Pos: 0, Neg: 1}, triplets[0])
}

func TestBPRLoss_GradientMatchesFiniteDifference(t *testing.T) {
	g := denseGraph(t)
	final := model.NewEmbeddings(g.NumUsers(), g.NumItems(), 4, 0.5, 9).Table
	triplets, _ := NewSampler(g, 2, 100).Sample(g.Edges())
	const l2 = 0.1

	n, d := final.Dims()
	grad := mat.NewDense(n, d, nil)
	bprLoss(final, triplets, g.NumUsers(), l2, grad)

	scratch := mat.NewDense(n, d, nil)
	const h = 1e-6
	for _, pos := range [][2]int{{0, 0}, {2, 3}, {g.NumUsers() + 1, 1}, {g.NumUsers() + 7, 2}} {
		r, c := pos[0], pos[1]
		orig := final.At(r, c)
		final.Set(r, c, orig+h)
		plus := bprLoss(final, triplets, g.NumUsers(), l2, scratch).Total
		final.Set(r, c, orig-h)
		minus := bprLoss(final, triplets, g.NumUsers(), l2, scratch).Total
		final.Set(r, c, orig)

		numeric := (plus - minus) / (2 * h)
		assert.InDelta(t, numeric, grad.At(r, c), 1e-6, "grad[%d,%d]", r, c)
	}
}

func TestBPRLoss_Values(t *testing.T) {
	// 全零表示：x=0，ranking = log 2，正则为 0
	final := mat.NewDense(3, 2, nil)
	grad := mat.NewDense(3, 2, nil)
	parts := bprLoss(final, []Triplet{{User: 0, Pos: 0, Neg: 1}}, 1, 1e-4, grad)
	assert.InDelta(t, math.Ln2, parts.Ranking, 1e-12)
	assert.Zero(t, parts.Reg)
	assert.InDelta(t, math.Ln2, parts.Total, 1e-12)

	assert.Equal(t, LossParts{}, bprLoss(final, nil, 1, 1e-4, grad))
}

func TestClipGradNorm(t *testing.T) {
	g := mat.NewDense(1, 2, []float64{3, 4})
	norm := clipGradNorm(g, 1)
	assert.InDelta(t, 5, norm, 1e-12)
	assert.InDelta(t, 1, mat.Norm(g, 2), 1e-6)

	small := mat.NewDense(1, 2, []float64{0.3, 0.4})
	clipGradNorm(small, 1)
	assert.Equal(t, []float64{0.3, 0.4}, small.RawRowView(0))
}

func TestTrainer_Fit_LossDecreases(t *testing.T) {
	g := denseGraph(t)
	cfg := smallConfig()
	cfg.Epochs = 80
	cfg.LearningRate = 0.02

	tr, err := NewTrainer(cfg, zerolog.Nop())
	require.NoError(t, err)
	res, err := tr.Fit(context.Background(), g)
	require.NoError(t, err)

	require.Len(t, res.Losses, 80)
	assert.Equal(t, 80, res.Epochs)
	first := (res.Losses[0] + res.Losses[1] + res.Losses[2]) / 3
	last := (res.Losses[77] + res.Losses[78] + res.Losses[79]) / 3
	assert.Less(t, last, first)
	require.NotNil(t, res.Snapshot)
	assert.Equal(t, g.NumItems(), res.Snapshot.NumItems())
}

func TestTrainer_Fit_NoTrainingData(t *testing.T) {
	g, err := graph.Build(
		[]core.UserRecord{{ID: "u1"}},
		[]core.ItemRecord{{ID: "i1"}},
		nil,
	)
	require.NoError(t, err)

	tr, err := NewTrainer(smallConfig(), zerolog.Nop())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.gob")
	_, err = tr.run(context.Background(), g, artifact.NewFileStore(path))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNoTrainingData))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "不应写出模型文件")
}

func TestTrainer_NonFiniteLossKeepsPriorArtifact(t *testing.T) {
	g := denseGraph(t)
	path := filepath.Join(t.TempDir(), "model.gob")
	dst := artifact.NewFileStore(path)

	// 先产出一个正常的模型文件
	tr, err := NewTrainer(smallConfig(), zerolog.Nop())
	require.NoError(t, err)
	_, err = tr.run(context.Background(), g, dst)
	require.NoError(t, err)
	prior, err := os.ReadFile(path)
	require.NoError(t, err)

	cfg := smallConfig()
	cfg.Epochs = 50
	tr, err = NewTrainer(cfg, zerolog.Nop())
	require.NoError(t, err)
	var seen []int
	tr.lossTap = func(epoch int, loss float64) float64 {
		seen = append(seen, epoch)
		if epoch == 5 {
			return math.NaN()
		}
		return loss
	}

	_, err = tr.run(context.Background(), g, dst)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNumericInstability))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, seen, "应在第 5 个 epoch 停止")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, prior, after, "已有模型文件必须保持不变")
}

func TestTrainer_NonFiniteFinalUpdateKeepsPriorArtifact(t *testing.T) {
	g := denseGraph(t)
	path := filepath.Join(t.TempDir(), "model.gob")
	dst := artifact.NewFileStore(path)

	tr, err := NewTrainer(smallConfig(), zerolog.Nop())
	require.NoError(t, err)
	_, err = tr.run(context.Background(), g, dst)
	require.NoError(t, err)
	prior, err := os.ReadFile(path)
	require.NoError(t, err)

	cfg := smallConfig()
	tests := []struct {
		name string
		v    float64
	}{
		{"nan gradient", math.NaN()},
		{"inf gradient", math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := NewTrainer(cfg, zerolog.Nop())
			require.NoError(t, err)
			// loss 在每个 epoch 都有限，只有最后一次更新的梯度坏掉
			tr.gradTap = func(epoch int, grad *mat.Dense) {
				if epoch == cfg.Epochs {
					grad.Set(0, 0, tt.v)
				}
			}

			_, err = tr.run(context.Background(), g, dst)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrNumericInstability))

			after, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, prior, after)
		})
	}
}

func TestTrainer_Fit_Canceled(t *testing.T) {
	g := denseGraph(t)
	tr, err := NewTrainer(smallConfig(), zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tr.Fit(ctx, g)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrainer_Deterministic(t *testing.T) {
	g := denseGraph(t)
	run := func() []float64 {
		tr, err := NewTrainer(smallConfig(), zerolog.Nop())
		require.NoError(t, err)
		res, err := tr.Fit(context.Background(), g)
		require.NoError(t, err)
		return res.Losses
	}
	assert.Equal(t, run(), run())
}

type fakeSource struct {
	users        []core.UserRecord
	items        []core.ItemRecord
	interactions []core.Interaction
}

func (s *fakeSource) Name() string { return "fake" }
func (s *fakeSource) ListUsers(context.Context) ([]core.UserRecord, error) {
	return s.users, nil
}
func (s *fakeSource) ListItems(context.Context) ([]core.ItemRecord, error) {
	return s.items, nil
}
func (s *fakeSource) ListInteractions(context.Context) ([]core.Interaction, error) {
	return s.interactions, nil
}
func (s *fakeSource) CountUserInteractions(context.Context, string) (int, error) {
	return 0, nil
}

func TestRunJob(t *testing.T) {
	src := &fakeSource{
		users: []core.UserRecord{{ID: "u1"}, {ID: "u2"}},
		items: []core.ItemRecord{{ID: "i1"}, {ID: "i2"}, {ID: "i3"}},
		interactions: []core.Interaction{
			{UserID: "u1", ItemID: "i1"},
			{UserID: "u2", ItemID: "i2"},
		},
	}
	path := filepath.Join(t.TempDir(), "model.gob")

	a, err := RunJob(context.Background(), src, artifact.NewFileStore(path), smallConfig(), zerolog.Nop())
	require.NoError(t, err)
	assert.NotEmpty(t, a.Meta.RunID)
	assert.Equal(t, 2, a.Meta.NumUsers)
	assert.Equal(t, 3, a.Meta.NumItems)
	assert.Equal(t, 10, a.Meta.Epochs)

	loaded, err := artifact.NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, a.Meta.Checksum, loaded.Meta.Checksum)
	assert.Equal(t, []string{"u1", "u2"}, loaded.UserIDs)
}
