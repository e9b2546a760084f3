package recall

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/gcnrec/artifact"
	"github.com/rushteam/gcnrec/core"
	"github.com/rushteam/gcnrec/graph"
	"github.com/rushteam/gcnrec/metrics"
	"github.com/rushteam/gcnrec/model"
	"github.com/rushteam/gcnrec/pipeline"
	"github.com/rushteam/gcnrec/pkg/utils"
)

// ScoredItem 是带分数的推荐结果。
type ScoredItem struct {
	ItemID string  `json:"item_id"`
	Score  float64 `json:"score"`
}

// serving 是推理引擎的一份不可变状态，整体替换。
type serving struct {
	graph    *graph.Graph
	snap     *model.Snapshot
	runID    string
	loadedAt time.Time
}

// LightGCN 是基于 LightGCN 最终表示的推理引擎，同时是一个召回源。
//
// 模型通过 atomic.Pointer 整体替换：进行中的请求要么看到旧模型，要么看到新模型。
// 推理只读，无锁，可被任意多个 goroutine 并发调用。
type LightGCN struct {
	// Limit 是作为召回源时的默认召回条数
	Limit int

	state  atomic.Pointer[serving]
	logger zerolog.Logger
}

func NewLightGCN(logger zerolog.Logger) *LightGCN {
	return &LightGCN{
		Limit:  DefaultLimit,
		logger: logger.With().Str("component", "lightgcn").Logger(),
	}
}

func (e *LightGCN) Name() string        { return "recall.lightgcn" }
func (e *LightGCN) Kind() pipeline.Kind { return pipeline.KindRecall }

// Loaded 返回是否持有可用模型。
func (e *LightGCN) Loaded() bool { return e.state.Load() != nil }

// RunID 返回当前模型的训练批次 ID（未加载时为空）。
func (e *LightGCN) RunID() string {
	if st := e.state.Load(); st != nil {
		return st.runID
	}
	return ""
}

// Install 直接装载图与快照（训练后就地上线时使用）。
func (e *LightGCN) Install(g *graph.Graph, snap *model.Snapshot, runID string) error {
	if snap.NumUsers() != g.NumUsers() || snap.NumItems() != g.NumItems() {
		return fmt.Errorf("%w: snapshot %d users/%d items, graph %d/%d",
			core.ErrModelMismatch, snap.NumUsers(), snap.NumItems(), g.NumUsers(), g.NumItems())
	}
	e.state.Store(&serving{graph: g, snap: snap, runID: runID, loadedAt: time.Now()})
	metrics.ModelLoaded.Set(1)
	e.logger.Info().
		Str("run_id", runID).
		Int("users", g.NumUsers()).
		Int("items", g.NumItems()).
		Msg("model installed")
	return nil
}

// LoadArtifact 校验模型文件与图一致后，在 g 上传播一次得到快照并装载；
// 不一致时保留旧模型并返回 core.ErrModelMismatch。
func (e *LightGCN) LoadArtifact(g *graph.Graph, a *artifact.Artifact) error {
	snap, err := a.Snapshot(g)
	if err != nil {
		return err
	}
	return e.Install(g, snap, a.Meta.RunID)
}

// Reload 重新构图并加载最新模型文件。
func (e *LightGCN) Reload(ctx context.Context, src core.InteractionStore, arts artifact.Store) error {
	g, err := graph.Load(ctx, src, e.logger)
	if err != nil {
		return fmt.Errorf("build graph: %w", err)
	}
	a, err := arts.Load(ctx)
	if err != nil {
		return fmt.Errorf("load artifact from %s: %w", arts.Name(), err)
	}
	return e.LoadArtifact(g, a)
}

// Unload 卸载模型，之后的请求返回 core.ErrModelUnavailable。
func (e *LightGCN) Unload() {
	e.state.Store(nil)
	metrics.ModelLoaded.Set(0)
}

// InteractionCount 返回已加载图中用户交互过的不同物品数（未知用户或未加载返回 0）。
func (e *LightGCN) InteractionCount(userKey string) int {
	st := e.state.Load()
	if st == nil {
		return 0
	}
	u, ok := st.graph.ResolveUser(userKey)
	if !ok {
		return 0
	}
	return st.graph.InteractedCount(u)
}

// Recommend 返回用户的 top-limit 物品 ID，按分数降序。
//   - 未知用户返回空列表（不是错误）
//   - 用户交互过的物品永远不会出现
//   - 同分按物品索引升序
//   - 未加载模型返回 core.ErrModelUnavailable
func (e *LightGCN) Recommend(ctx context.Context, userKey string, limit int) ([]string, error) {
	scored, err := e.RecommendScored(ctx, userKey, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(scored))
	for k, s := range scored {
		ids[k] = s.ItemID
	}
	return ids, nil
}

// RecommendScored 同 Recommend，附带分数。
func (e *LightGCN) RecommendScored(ctx context.Context, userKey string, limit int) ([]ScoredItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st := e.state.Load()
	if st == nil {
		return nil, core.ErrModelUnavailable
	}
	u, ok := st.graph.ResolveUser(userKey)
	if !ok || limit <= 0 {
		return []ScoredItem{}, nil
	}

	scores := st.snap.ScoreAll(u, nil)
	for _, i := range st.graph.Interacted(u) {
		scores[i] = math.Inf(-1)
	}

	candidates := make([]int, 0, len(scores))
	for i, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, -1) {
			continue
		}
		candidates = append(candidates, i)
	}
	slices.SortFunc(candidates, func(a, b int) int {
		if c := cmp.Compare(scores[b], scores[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]ScoredItem, 0, len(candidates))
	for _, i := range candidates {
		id, _ := st.graph.Items.ID(i)
		out = append(out, ScoredItem{ItemID: id, Score: scores[i]})
	}
	return out, nil
}

// Recall 实现 Source：以 rctx.UserID 为用户，条数取 rctx.Params["limit"] 或 Limit。
func (e *LightGCN) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	scored, err := e.RecommendScored(ctx, rctx.UserID, limitFrom(rctx, e.Limit))
	if err != nil {
		return nil, err
	}
	out := make([]*core.Item, 0, len(scored))
	for rank, s := range scored {
		it := core.NewItem(s.ItemID)
		it.Score = s.Score
		it.PutLabel("recall_source", utils.Label{Value: "lightgcn", Source: "recall"})
		it.PutLabel("recall_rank", utils.Label{Value: strconv.Itoa(rank), Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}

// Process 实现 Node。
func (e *LightGCN) Process(ctx context.Context, rctx *core.RecommendContext, _ []*core.Item) ([]*core.Item, error) {
	return e.Recall(ctx, rctx)
}

var (
	_ Source        = (*LightGCN)(nil)
	_ pipeline.Node = (*LightGCN)(nil)
)
