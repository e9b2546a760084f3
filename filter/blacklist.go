package filter

import (
	"context"

	"github.com/rushteam/gcnrec/core"
)

// BlacklistFilter 过滤全局黑名单中的物品（如下架内容）。
// 静态列表与存储中的列表取并集。
type BlacklistFilter struct {
	ItemIDs []string

	// Lists / Key 可选，黑名单存放在 core.Store 中
	Lists *IDListStore
	Key   string

	static map[string]struct{}
}

// NewBlacklistFilter 创建黑名单过滤器，lists 可为 nil。
func NewBlacklistFilter(itemIDs []string, lists *IDListStore, key string) *BlacklistFilter {
	f := &BlacklistFilter{ItemIDs: itemIDs, Lists: lists, Key: key}
	f.static = make(map[string]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		f.static[id] = struct{}{}
	}
	return f
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

func (f *BlacklistFilter) ShouldFilter(
	ctx context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if f.static != nil {
		if _, ok := f.static[item.ID]; ok {
			return true, nil
		}
	} else {
		for _, id := range f.ItemIDs {
			if item.ID == id {
				return true, nil
			}
		}
	}

	if f.Lists == nil || f.Key == "" {
		return false, nil
	}
	blacklist, err := f.Lists.Get(ctx, f.Key, 0)
	if err != nil {
		return false, err
	}
	for _, id := range blacklist {
		if item.ID == id {
			return true, nil
		}
	}
	return false, nil
}
