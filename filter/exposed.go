package filter

import (
	"context"
	"time"

	"github.com/rushteam/gcnrec/core"
	"github.com/rushteam/gcnrec/pipeline"
)

// DefaultExposedPrefix 是曝光记录的 key 前缀，实际 key 为 {prefix}:{userID}。
const DefaultExposedPrefix = "user:exposed"

// ExposedFilter 过滤用户近期已曝光的物品。
// 冷启动路径不看用户历史，同一批热门内容会反复出现，用它做去重。
type ExposedFilter struct {
	Lists     *IDListStore
	KeyPrefix string

	// Window 是曝光时间窗口，<= 0 表示不限
	Window time.Duration
}

// NewExposedFilter 创建已曝光过滤器。
func NewExposedFilter(lists *IDListStore, keyPrefix string, window time.Duration) *ExposedFilter {
	return &ExposedFilter{Lists: lists, KeyPrefix: keyPrefix, Window: window}
}

func (f *ExposedFilter) Name() string {
	return "filter.exposed"
}

func (f *ExposedFilter) key(userID string) string {
	prefix := f.KeyPrefix
	if prefix == "" {
		prefix = DefaultExposedPrefix
	}
	return prefix + ":" + userID
}

func (f *ExposedFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || rctx == nil || rctx.UserID == "" || f.Lists == nil {
		return false, nil
	}
	exposed, err := f.Lists.Get(ctx, f.key(rctx.UserID), f.Window)
	if err != nil {
		return false, err
	}
	for _, id := range exposed {
		if item.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// MarkExposed 记录一次曝光，同一批物品共用一个时间戳。
func (f *ExposedFilter) MarkExposed(ctx context.Context, userID string, itemIDs ...string) error {
	if f.Lists == nil || userID == "" || len(itemIDs) == 0 {
		return nil
	}
	return f.Lists.Append(ctx, f.key(userID), itemIDs...)
}

// ExposedFilters 找出流水线中配置的全部曝光过滤器，调用方在返回结果后据此回写曝光。
func ExposedFilters(nodes []pipeline.Node) []*ExposedFilter {
	var out []*ExposedFilter
	for _, n := range nodes {
		fn, ok := n.(*FilterNode)
		if !ok {
			continue
		}
		for _, f := range fn.Filters {
			if ef, ok := f.(*ExposedFilter); ok {
				out = append(out, ef)
			}
		}
	}
	return out
}
