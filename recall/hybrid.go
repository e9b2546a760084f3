package recall

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/gcnrec/core"
	"github.com/rushteam/gcnrec/metrics"
	"github.com/rushteam/gcnrec/pipeline"
	"github.com/rushteam/gcnrec/pkg/utils"
)

// DefaultInteractionThreshold 是走 LightGCN 所需的最少交互条数。
const DefaultInteractionThreshold = 5

// Route 是混合策略的路由结果。
type Route string

const (
	RouteLightGCN Route = "lightgcn"
	RouteFallback Route = "fallback"
)

// 降级原因。
const (
	ReasonNotLoaded   = "model_not_loaded"
	ReasonColdUser    = "below_threshold"
	ReasonCountError  = "count_error"
	ReasonModelError  = "model_error"
	ReasonEmptyResult = "empty_result"
)

// InteractionCounter 返回用户的交互条数。core.InteractionStore 满足该接口。
type InteractionCounter interface {
	CountUserInteractions(ctx context.Context, userID string) (int, error)
}

// Decision 描述一次路由决策。
type Decision struct {
	Route  Route  `json:"route"`
	Reason string `json:"reason,omitempty"`
	Count  int    `json:"count"`
}

// Hybrid 在 LightGCN 与心情热门之间路由：
// 模型已加载且交互条数 >= Threshold 时走 LightGCN，否则走 Fallback。
// LightGCN 出错或结果为空同样降级，调用方不会看到模型层的错误。
type Hybrid struct {
	Engine    *LightGCN
	Fallback  *MoodHot
	Counter   InteractionCounter
	Threshold int
	Limit     int
	Logger    zerolog.Logger
}

func (h *Hybrid) Name() string        { return "recall.hybrid" }
func (h *Hybrid) Kind() pipeline.Kind { return pipeline.KindRecall }

func (h *Hybrid) threshold() int {
	if h.Threshold <= 0 {
		return DefaultInteractionThreshold
	}
	return h.Threshold
}

// Decide 只做路由，不产生推荐。
func (h *Hybrid) Decide(ctx context.Context, userKey string) Decision {
	if h.Engine == nil || !h.Engine.Loaded() {
		return Decision{Route: RouteFallback, Reason: ReasonNotLoaded}
	}
	count, err := h.count(ctx, userKey)
	if err != nil {
		h.Logger.Warn().Err(err).Str("user", userKey).Msg("count interactions failed, falling back")
		return Decision{Route: RouteFallback, Reason: ReasonCountError}
	}
	if count < h.threshold() {
		return Decision{Route: RouteFallback, Reason: ReasonColdUser, Count: count}
	}
	return Decision{Route: RouteLightGCN, Count: count}
}

func (h *Hybrid) count(ctx context.Context, userKey string) (int, error) {
	if h.Counter != nil {
		return h.Counter.CountUserInteractions(ctx, userKey)
	}
	return h.Engine.InteractionCount(userKey), nil
}

// Recommend 返回物品 ID 与实际使用的路由决策。
func (h *Hybrid) Recommend(ctx context.Context, userKey, mood string, limit int) ([]string, Decision, error) {
	scored, d, err := h.recommend(ctx, userKey, mood, limit)
	if err != nil {
		return nil, d, err
	}
	ids := make([]string, len(scored))
	for k, s := range scored {
		ids[k] = s.ItemID
	}
	return ids, d, nil
}

func (h *Hybrid) recommend(ctx context.Context, userKey, mood string, limit int) ([]ScoredItem, Decision, error) {
	start := time.Now()
	d := h.Decide(ctx, userKey)

	if d.Route == RouteLightGCN {
		scored, err := h.Engine.RecommendScored(ctx, userKey, limit)
		switch {
		case err != nil:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, d, err
			}
			h.Logger.Warn().Err(err).Str("user", userKey).Msg("lightgcn failed, falling back")
			d = Decision{Route: RouteFallback, Reason: ReasonModelError, Count: d.Count}
		case len(scored) == 0 && limit > 0:
			d = Decision{Route: RouteFallback, Reason: ReasonEmptyResult, Count: d.Count}
		default:
			h.observe(d, start)
			return scored, d, nil
		}
	}

	metrics.HybridFallbacks.WithLabelValues(d.Reason).Inc()
	if h.Fallback == nil {
		return nil, d, core.ErrModelUnavailable
	}
	ids, err := h.Fallback.Recommend(ctx, mood, limit)
	if err != nil {
		return nil, d, err
	}
	scored := make([]ScoredItem, len(ids))
	for k, id := range ids {
		scored[k] = ScoredItem{ItemID: id, Score: float64(len(ids) - k)}
	}
	h.observe(d, start)
	return scored, d, nil
}

func (h *Hybrid) observe(d Decision, start time.Time) {
	metrics.RecommendRequests.WithLabelValues(string(d.Route)).Inc()
	metrics.RecommendDuration.WithLabelValues(string(d.Route)).Observe(time.Since(start).Seconds())
	h.Logger.Debug().
		Str("route", string(d.Route)).
		Str("reason", d.Reason).
		Int("count", d.Count).
		Dur("elapsed", time.Since(start)).
		Msg("recommend")
}

// Recall 实现 Source；路由结果写入 rctx 的 route 标签，以及每个物品的 route / route_reason / recall_source 标签。
func (h *Hybrid) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	mood := rctx.ParamString("mood", DefaultMood)
	scored, d, err := h.recommend(ctx, rctx.UserID, mood, limitFrom(rctx, h.Limit))
	if err != nil {
		return nil, err
	}
	rctx.PutLabel("route", utils.Label{Value: string(d.Route), Source: "recall.hybrid"})

	source := string(RouteLightGCN)
	if d.Route == RouteFallback {
		source = "mood_hot"
	}
	out := make([]*core.Item, 0, len(scored))
	for rank, s := range scored {
		it := core.NewItem(s.ItemID)
		it.Score = s.Score
		it.PutLabel("recall_source", utils.Label{Value: source, Source: "recall"})
		it.PutLabel("recall_rank", utils.Label{Value: strconv.Itoa(rank), Source: "recall"})
		it.PutLabel("route", utils.Label{Value: string(d.Route), Source: "recall.hybrid"})
		if d.Route == RouteFallback {
			it.PutLabel("route_reason", utils.Label{Value: d.Reason, Source: "recall.hybrid"})
			it.PutLabel("mood", utils.Label{Value: mood, Source: "recall"})
		}
		out = append(out, it)
	}
	return out, nil
}

// Process 实现 Node。
func (h *Hybrid) Process(ctx context.Context, rctx *core.RecommendContext, _ []*core.Item) ([]*core.Item, error) {
	return h.Recall(ctx, rctx)
}

var (
	_ Source        = (*Hybrid)(nil)
	_ pipeline.Node = (*Hybrid)(nil)
)
