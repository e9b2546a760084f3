package recall

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/rushteam/gcnrec/core"
	"github.com/rushteam/gcnrec/pipeline"
)

// Catalog 是物品目录的内存快照，供冷启动推荐排序与结果补全使用。
// Refresh 整体替换快照，读取无锁。
type Catalog struct {
	snap atomic.Pointer[catalogSnapshot]
}

type catalogSnapshot struct {
	items []core.ItemRecord // 保持存储返回的顺序
	byID  map[string]int
}

// NewCatalog 用给定物品构造目录。
func NewCatalog(items []core.ItemRecord) *Catalog {
	c := &Catalog{}
	c.Replace(items)
	return c
}

// Replace 整体替换目录内容。
func (c *Catalog) Replace(items []core.ItemRecord) {
	s := &catalogSnapshot{
		items: slices.Clone(items),
		byID:  make(map[string]int, len(items)),
	}
	for k, it := range s.items {
		if _, ok := s.byID[it.ID]; !ok {
			s.byID[it.ID] = k
		}
	}
	c.snap.Store(s)
}

// Refresh 从交互存储重新读取物品目录。
func (c *Catalog) Refresh(ctx context.Context, src core.InteractionStore) error {
	items, err := src.ListItems(ctx)
	if err != nil {
		return fmt.Errorf("list items from %s: %w", src.Name(), err)
	}
	c.Replace(items)
	return nil
}

// Items 返回目录中的全部物品（调用方不得修改）。
func (c *Catalog) Items() []core.ItemRecord {
	if s := c.snap.Load(); s != nil {
		return s.items
	}
	return nil
}

// Lookup 按 ID 查找物品。
func (c *Catalog) Lookup(id string) (core.ItemRecord, bool) {
	s := c.snap.Load()
	if s == nil {
		return core.ItemRecord{}, false
	}
	k, ok := s.byID[id]
	if !ok {
		return core.ItemRecord{}, false
	}
	return s.items[k], true
}

// Len 返回物品数。
func (c *Catalog) Len() int { return len(c.Items()) }

// EnrichNode 把目录中的物品信息写入 Item.Meta（title / tags / project_code / view_count / upvote_count），
// 供后续 CEL 过滤使用。目录中不存在的物品保持原样。
type EnrichNode struct {
	Catalog *Catalog
}

func (n *EnrichNode) Name() string        { return "recall.enrich" }
func (n *EnrichNode) Kind() pipeline.Kind { return pipeline.KindPostProcess }

func (n *EnrichNode) Process(_ context.Context, _ *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	if n.Catalog == nil {
		return items, nil
	}
	for _, it := range items {
		if it == nil {
			continue
		}
		rec, ok := n.Catalog.Lookup(it.ID)
		if !ok {
			continue
		}
		if it.Meta == nil {
			it.Meta = make(map[string]any, 5)
		}
		tags := make([]any, len(rec.Tags))
		for k, t := range rec.Tags {
			tags[k] = t
		}
		it.Meta["title"] = rec.Title
		it.Meta["tags"] = tags
		it.Meta["project_code"] = rec.Category
		it.Meta["view_count"] = rec.ViewCount
		it.Meta["upvote_count"] = rec.UpvoteCount
	}
	return items, nil
}

var _ pipeline.Node = (*EnrichNode)(nil)
