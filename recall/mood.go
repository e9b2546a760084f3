package recall

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/rushteam/gcnrec/core"
	"github.com/rushteam/gcnrec/pipeline"
	"github.com/rushteam/gcnrec/pkg/utils"
)

// DefaultMood 是请求未指定心情时使用的心情。
const DefaultMood = "inspired"

// MoodKeywords 是心情到标签关键词的映射，标签包含任一关键词（不区分大小写）即视为匹配。
var MoodKeywords = map[string][]string{
	"inspired":  {"tutorial", "learning", "success story", "inspirational", "career", "development"},
	"happy":     {"comedy", "funny", "feel good", "uplifting", "wholesome", "music"},
	"curious":   {"documentary", "science", "technology", "history", "space", "nature"},
	"calm":      {"meditation", "relaxing", "ambient", "nature sounds", "yoga", "mindfulness"},
	"motivated": {"fitness", "workout", "entrepreneurship", "productivity", "business"},
}

// Moods 返回已知心情（排序）。
func Moods() []string {
	out := make([]string, 0, len(MoodKeywords))
	for m := range MoodKeywords {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}

// RankByMood 选出标签匹配心情的物品，按浏览数降序、点赞数降序、目录顺序排列。
// 未知心情不做标签过滤，即全站热门。
func RankByMood(items []core.ItemRecord, mood string) []core.ItemRecord {
	keywords := MoodKeywords[strings.ToLower(strings.TrimSpace(mood))]
	out := make([]core.ItemRecord, 0, len(items))
	for _, it := range items {
		if len(keywords) == 0 || matchesAny(it.Tags, keywords) {
			out = append(out, it)
		}
	}
	slices.SortStableFunc(out, func(a, b core.ItemRecord) int {
		if a.ViewCount != b.ViewCount {
			if a.ViewCount > b.ViewCount {
				return -1
			}
			return 1
		}
		if a.UpvoteCount != b.UpvoteCount {
			if a.UpvoteCount > b.UpvoteCount {
				return -1
			}
			return 1
		}
		return 0
	})
	return out
}

func matchesAny(tags, keywords []string) bool {
	for _, tag := range tags {
		t := strings.ToLower(tag)
		for _, kw := range keywords {
			if strings.Contains(t, kw) {
				return true
			}
		}
	}
	return false
}

// MoodHot 是冷启动推荐：按心情挑选热门内容，不依赖用户历史。
//   - 配置了 KV 且存在预计算的有序集合 {KeyPrefix}{mood} 时直接读取（Publish 写入）
//   - 否则基于 Catalog 现场排序
//
// MoodHot 同时实现了 Source 和 Node 接口，心情取自 rctx.Params["mood"]。
type MoodHot struct {
	Catalog   *Catalog
	KV        core.KeyValueStore
	KeyPrefix string // 默认 "hot:mood:"
	Limit     int
}

func (r *MoodHot) Name() string        { return "recall.mood_hot" }
func (r *MoodHot) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *MoodHot) key(mood string) string {
	prefix := r.KeyPrefix
	if prefix == "" {
		prefix = "hot:mood:"
	}
	return prefix + strings.ToLower(mood)
}

// Recommend 返回 top-limit 物品 ID。
func (r *MoodHot) Recommend(ctx context.Context, mood string, limit int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}
	if mood == "" {
		mood = DefaultMood
	}

	if r.KV != nil {
		members, err := r.KV.ZRange(ctx, r.key(mood), 0, int64(limit-1))
		if err == nil && len(members) > 0 {
			return members, nil
		}
	}

	if r.Catalog == nil {
		return nil, fmt.Errorf("mood hot: no catalog configured")
	}
	ranked := RankByMood(r.Catalog.Items(), mood)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	ids := make([]string, len(ranked))
	for k, it := range ranked {
		ids[k] = it.ID
	}
	return ids, nil
}

// Publish 为每种心情预计算排序并写入 KV 的有序集合，分数保证 ZRange 顺序与 RankByMood 一致。
// 每个集合整体替换，并发读取不会看到写了一半的列表。
func (r *MoodHot) Publish(ctx context.Context) error {
	if r.KV == nil || r.Catalog == nil {
		return fmt.Errorf("mood hot: publish requires both KV and catalog")
	}
	for _, mood := range Moods() {
		ranked := RankByMood(r.Catalog.Items(), mood)
		members := make(map[string]float64, len(ranked))
		for k, it := range ranked {
			members[it.ID] = float64(len(ranked) - k)
		}
		key := r.key(mood)
		if err := r.KV.ZReplace(ctx, key, members); err != nil {
			return fmt.Errorf("publish %s: %w", key, err)
		}
	}
	return nil
}

// Recall 实现 Source 接口。
func (r *MoodHot) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	mood := rctx.ParamString("mood", DefaultMood)
	ids, err := r.Recommend(ctx, mood, limitFrom(rctx, r.Limit))
	if err != nil {
		return nil, err
	}
	out := make([]*core.Item, 0, len(ids))
	for rank, id := range ids {
		it := core.NewItem(id)
		it.Score = float64(len(ids) - rank)
		it.PutLabel("recall_source", utils.Label{Value: "mood_hot", Source: "recall"})
		it.PutLabel("mood", utils.Label{Value: mood, Source: "recall"})
		it.PutLabel("recall_rank", utils.Label{Value: strconv.Itoa(rank), Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}

// Process 实现 Node 接口，直接调用 Recall
func (r *MoodHot) Process(ctx context.Context, rctx *core.RecommendContext, _ []*core.Item) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

var (
	_ Source        = (*MoodHot)(nil)
	_ pipeline.Node = (*MoodHot)(nil)
)
