package rerank

import (
	"context"

	"github.com/rushteam/gcnrec/core"
	"github.com/rushteam/gcnrec/pipeline"
)

// Diversity 按分组打散：每组最多保留 MaxPerGroup 个排在前面，
// 超出的物品按原顺序挪到末尾（Drop 为 true 时直接丢弃）。
//
// 分组来源优先级：
//   - label[Key].Value
//   - meta[Key]（string）
//
// 无分组的物品原样保留。
type Diversity struct {
	Key         string // 默认 "project_code"
	MaxPerGroup int    // 默认 1
	Drop        bool
}

func (n *Diversity) Name() string {
	return "rerank.diversity"
}

func (n *Diversity) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *Diversity) group(it *core.Item, key string) string {
	if it.Labels != nil {
		if lbl, ok := it.Labels[key]; ok && lbl.Value != "" {
			return lbl.Value
		}
	}
	if it.Meta != nil {
		if s, ok := it.Meta[key].(string); ok {
			return s
		}
	}
	return ""
}

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	key := n.Key
	if key == "" {
		key = "project_code"
	}
	maxPer := n.MaxPerGroup
	if maxPer <= 0 {
		maxPer = 1
	}

	seen := make(map[string]int, 32)
	out := make([]*core.Item, 0, len(items))
	var tail []*core.Item

	for _, it := range items {
		if it == nil {
			continue
		}
		g := n.group(it, key)
		if g == "" {
			out = append(out, it)
			continue
		}
		if seen[g] >= maxPer {
			if !n.Drop {
				tail = append(tail, it)
			}
			continue
		}
		seen[g]++
		out = append(out, it)
	}
	return append(out, tail...), nil
}
