package pipeline

import (
	"context"

	"github.com/rushteam/gcnrec/core"
)

// Kind 用于标记 Node 所处阶段，方便观测与编排。
type Kind string

const (
	KindRecall      Kind = "recall"      // 召回：生成候选集（LightGCN / 冷启动）
	KindFilter      Kind = "filter"      // 过滤：剔除不符合约束的候选
	KindReRank      Kind = "rerank"      // 重排：截断、多样性
	KindPostProcess Kind = "postprocess" // 后处理
)

// Node 是 Pipeline 的最小可扩展单元，统一采用“输入 items -> 输出 items”的形态。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}

// NodeFunc 把函数适配为 Node。
type NodeFunc struct {
	NodeName string
	NodeKind Kind
	Fn       func(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error)
}

func (n NodeFunc) Name() string { return n.NodeName }
func (n NodeFunc) Kind() Kind   { return n.NodeKind }

func (n NodeFunc) Process(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	return n.Fn(ctx, rctx, items)
}
