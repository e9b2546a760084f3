package filter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/gcnrec/core"
	"github.com/rushteam/gcnrec/pipeline"
)

// FilterNode 组合多个过滤器，任一过滤器命中即移除该物品。
// 过滤器出错时视为未命中，记录日志后继续，不中断整条链路。
type FilterNode struct {
	Filters []Filter
	Logger  zerolog.Logger
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	removed := make(map[string]int, len(n.Filters))

	for _, item := range items {
		if item == nil {
			continue
		}

		reason := ""
		for _, f := range n.Filters {
			hit, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				n.Logger.Warn().Err(err).Str("filter", f.Name()).Str("item", item.ID).Msg("filter failed")
				continue
			}
			if hit {
				reason = f.Name()
				break
			}
		}
		if reason != "" {
			removed[reason]++
			continue
		}
		out = append(out, item)
	}

	if len(removed) > 0 {
		ev := n.Logger.Debug().Int("in", len(items)).Int("out", len(out))
		for name, c := range removed {
			ev = ev.Int(name, c)
		}
		ev.Msg("filtered")
	}
	return out, nil
}

var _ pipeline.Node = (*FilterNode)(nil)
