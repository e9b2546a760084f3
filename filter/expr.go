package filter

import (
	"context"

	"github.com/rushteam/gcnrec/core"
	"github.com/rushteam/gcnrec/pkg/dsl"
)

// ExprFilter 用 CEL 表达式描述保留条件：表达式为 false 的物品被移除。
//
//	item.meta.project_code == rctx.params.project_code
type ExprFilter struct {
	Expr *dsl.Expr
}

// NewExprFilter 编译表达式。
func NewExprFilter(expr string) (*ExprFilter, error) {
	e, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{Expr: e}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(_ context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	keep, err := f.Expr.Eval(item, rctx)
	if err != nil {
		return false, err
	}
	return !keep, nil
}
