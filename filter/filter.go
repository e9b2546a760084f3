package filter

import (
	"context"

	"github.com/rushteam/gcnrec/core"
)

// Filter 判断一个 Item 是否应被移除，返回 true 表示移除。
type Filter interface {
	Name() string
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}

// Func 把函数适配为 Filter。
type Func struct {
	Label string
	Fn    func(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}

func (f Func) Name() string { return f.Label }

func (f Func) ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	return f.Fn(ctx, rctx, item)
}
