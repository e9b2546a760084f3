package recall

import (
	"context"

	"github.com/rushteam/gcnrec/core"
	"github.com/rushteam/gcnrec/pkg/conv"
)

// Source 表示一个召回源（LightGCN / 心情热门 / 混合路由）。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// DefaultLimit 是 Recall 未指定条数时的默认召回量。
const DefaultLimit = 20

// limitFrom 读取 rctx.Params["limit"]，缺省时返回 def。
func limitFrom(rctx *core.RecommendContext, def int) int {
	if rctx != nil && rctx.Params != nil {
		if n, ok := conv.ToInt(rctx.Params["limit"]); ok && n > 0 {
			return n
		}
	}
	if def <= 0 {
		return DefaultLimit
	}
	return def
}
