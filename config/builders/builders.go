// Package builders 把 pipeline 配置中的 node 类型映射到具体实现。
//
// 节点依赖运行时对象（推理引擎、物品目录、KV），由 Deps 注入后通过 NewFactory 注册。
package builders

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/gcnrec/core"
	"github.com/rushteam/gcnrec/filter"
	"github.com/rushteam/gcnrec/pipeline"
	"github.com/rushteam/gcnrec/pkg/conv"
	"github.com/rushteam/gcnrec/recall"
	"github.com/rushteam/gcnrec/rerank"
)

// Deps 是构建节点所需的运行时依赖，KV 与 Counter 可为 nil。
type Deps struct {
	Engine    *recall.LightGCN
	Catalog   *recall.Catalog
	KV        core.KeyValueStore
	Counter   recall.InteractionCounter
	Threshold int
	Logger    zerolog.Logger
}

// NewFactory 返回注册了全部内置节点的工厂：
//
//	recall.hybrid / recall.lightgcn / recall.mood
//	enrich / filter / rerank.topn / rerank.diversity
func NewFactory(deps Deps) *pipeline.NodeFactory {
	f := pipeline.NewNodeFactory()
	f.Register("recall.hybrid", deps.buildHybrid)
	f.Register("recall.lightgcn", deps.buildLightGCN)
	f.Register("recall.mood", deps.buildMood)
	f.Register("enrich", deps.buildEnrich)
	f.Register("filter", deps.buildFilter)
	f.Register("rerank.topn", buildTopN)
	f.Register("rerank.diversity", buildDiversity)
	return f
}

func (d Deps) mood(cfg map[string]any) *recall.MoodHot {
	return &recall.MoodHot{
		Catalog:   d.Catalog,
		KV:        d.KV,
		KeyPrefix: conv.ConfigGet(cfg, "key_prefix", ""),
		Limit:     int(conv.ConfigGetInt64(cfg, "limit", recall.DefaultLimit)),
	}
}

func (d Deps) buildHybrid(cfg map[string]any) (pipeline.Node, error) {
	if d.Engine == nil {
		return nil, fmt.Errorf("recall.hybrid requires an inference engine")
	}
	threshold := d.Threshold
	if v := conv.ConfigGetInt64(cfg, "threshold", 0); v > 0 {
		threshold = int(v)
	}
	return &recall.Hybrid{
		Engine:    d.Engine,
		Fallback:  d.mood(cfg),
		Counter:   d.Counter,
		Threshold: threshold,
		Limit:     int(conv.ConfigGetInt64(cfg, "limit", recall.DefaultLimit)),
		Logger:    d.Logger.With().Str("component", "hybrid").Logger(),
	}, nil
}

func (d Deps) buildLightGCN(cfg map[string]any) (pipeline.Node, error) {
	if d.Engine == nil {
		return nil, fmt.Errorf("recall.lightgcn requires an inference engine")
	}
	if v := conv.ConfigGetInt64(cfg, "limit", 0); v > 0 {
		d.Engine.Limit = int(v)
	}
	return d.Engine, nil
}

func (d Deps) buildMood(cfg map[string]any) (pipeline.Node, error) {
	if d.Catalog == nil && d.KV == nil {
		return nil, fmt.Errorf("recall.mood requires a catalog or a kv store")
	}
	return d.mood(cfg), nil
}

func (d Deps) buildEnrich(map[string]any) (pipeline.Node, error) {
	if d.Catalog == nil {
		return nil, fmt.Errorf("enrich requires a catalog")
	}
	return &recall.EnrichNode{Catalog: d.Catalog}, nil
}

// buildFilter 支持 expr / blacklist / exposed 三种过滤器：
//
//	filters:
//	  - {type: expr, expr: 'item.meta.view_count > 10'}
//	  - {type: blacklist, item_ids: [p1], key: blacklist}
//	  - {type: exposed, key_prefix: user:exposed, window_seconds: 86400}
func (d Deps) buildFilter(cfg map[string]any) (pipeline.Node, error) {
	raw, _ := cfg["filters"].([]any)
	filters := make([]filter.Filter, 0, len(raw))

	var lists *filter.IDListStore
	if d.KV != nil {
		lists = filter.NewIDListStore(d.KV)
	}

	for i, fc := range raw {
		m, ok := fc.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("filter #%d: expected a map, got %T", i, fc)
		}
		switch typ := conv.ConfigGet(m, "type", ""); typ {
		case "expr":
			f, err := filter.NewExprFilter(conv.ConfigGet(m, "expr", ""))
			if err != nil {
				return nil, fmt.Errorf("filter #%d: %w", i, err)
			}
			filters = append(filters, f)
		case "blacklist":
			filters = append(filters, filter.NewBlacklistFilter(
				conv.SliceAnyToString(m["item_ids"]), lists, conv.ConfigGet(m, "key", "")))
		case "exposed":
			if lists == nil {
				return nil, fmt.Errorf("filter #%d: exposed requires a kv store", i)
			}
			window := time.Duration(conv.ConfigGetInt64(m, "window_seconds", 0)) * time.Second
			filters = append(filters, filter.NewExposedFilter(lists, conv.ConfigGet(m, "key_prefix", ""), window))
		default:
			return nil, fmt.Errorf("filter #%d: unknown type %q", i, typ)
		}
	}
	return &filter.FilterNode{Filters: filters, Logger: d.Logger}, nil
}

func buildTopN(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.TopNNode{N: int(conv.ConfigGetInt64(cfg, "n", 0))}, nil
}

func buildDiversity(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.Diversity{
		Key:         conv.ConfigGet(cfg, "key", "project_code"),
		MaxPerGroup: int(conv.ConfigGetInt64(cfg, "max_per_group", 1)),
		Drop:        conv.ConfigGet(cfg, "drop", false),
	}, nil
}
