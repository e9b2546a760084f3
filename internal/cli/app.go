package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/rushteam/gcnrec/artifact"
	"github.com/rushteam/gcnrec/config"
	"github.com/rushteam/gcnrec/config/builders"
	"github.com/rushteam/gcnrec/core"
	"github.com/rushteam/gcnrec/pipeline"
	"github.com/rushteam/gcnrec/pkg/logging"
	"github.com/rushteam/gcnrec/recall"
	"github.com/rushteam/gcnrec/store"
)

// app 持有一次命令执行所需的全部连接，Close 时按打开的逆序释放。
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	source core.InteractionStore
	kv     core.KeyValueStore // 未配置 Redis 时为 nil
	arts   artifact.Store

	closers []func()
}

func openApp(ctx context.Context, cfgPath string, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logging.New(cfg.Log, logOut)}

	if cfg.Store.RedisConfigured() {
		rs, err := store.NewRedisStore(ctx, cfg.Store.Redis)
		if err != nil {
			return nil, err
		}
		a.kv = rs
		a.closers = append(a.closers, func() { _ = rs.Close() })
	}

	switch cfg.Store.Kind {
	case config.StoreMemory:
		snap, err := store.ReadSnapshotFile(cfg.Store.Snapshot)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.source = store.NewMemoryInteractionStoreFromSnapshot(snap)
	case config.StoreRedis:
		a.source = store.NewKVInteractionStore(a.kv, cfg.Store.Prefix)
	case config.StorePostgres:
		pg, err := store.NewPostgresInteractionStore(ctx, cfg.Store.Postgres)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.source = pg
		a.closers = append(a.closers, pg.Close)
	}

	switch cfg.Artifact.Kind {
	case config.ArtifactFile:
		a.arts = artifact.NewFileStore(cfg.Artifact.Path)
	case config.ArtifactKV:
		a.arts = artifact.NewKVStore(a.kv, cfg.Artifact.Key)
	}

	a.logger.Debug().
		Str("source", a.source.Name()).
		Str("artifacts", a.arts.Name()).
		Bool("kv", a.kv != nil).
		Msg("app opened")
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// serving 是在线推荐所需的对象：推理引擎、物品目录与 pipeline。
type serving struct {
	engine   *recall.LightGCN
	catalog  *recall.Catalog
	pipeline *pipeline.Pipeline
}

// loadServing 构建目录与 pipeline，并尝试加载模型。
// 模型不存在或与当前数据不一致时不报错，推荐全部走冷启动。
func (a *app) loadServing(ctx context.Context) (*serving, error) {
	s := &serving{
		engine:  recall.NewLightGCN(a.logger),
		catalog: recall.NewCatalog(nil),
	}
	if err := s.catalog.Refresh(ctx, a.source); err != nil {
		return nil, err
	}
	if err := a.reloadModel(ctx, s); err != nil {
		a.logger.Warn().Err(err).Msg("model not loaded, serving cold-start recommendations only")
	}

	pcfg, err := a.pipelineConfig()
	if err != nil {
		return nil, err
	}
	deps := builders.Deps{
		Engine:    s.engine,
		Catalog:   s.catalog,
		KV:        a.kv,
		Counter:   a.source,
		Threshold: a.cfg.Hybrid.Threshold,
		Logger:    a.logger,
	}
	s.pipeline, err = pcfg.Build(builders.NewFactory(deps))
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	return s, nil
}

// reload 刷新目录并重新加载模型，serve 的定时任务与 /v1/reload 使用。
func (a *app) reload(ctx context.Context, s *serving) error {
	if err := s.catalog.Refresh(ctx, a.source); err != nil {
		return err
	}
	return a.reloadModel(ctx, s)
}

func (a *app) reloadModel(ctx context.Context, s *serving) error {
	err := s.engine.Reload(ctx, a.source, a.arts)
	if errors.Is(err, core.ErrArtifactNotFound) {
		return fmt.Errorf("no model at %s: %w", a.arts.Name(), err)
	}
	return err
}

func (a *app) pipelineConfig() (*pipeline.Config, error) {
	if a.cfg.Pipeline.Path != "" {
		return pipeline.Load(a.cfg.Pipeline.Path)
	}
	return defaultPipeline(a.cfg), nil
}

// defaultPipeline 是未提供 pipeline 文件时的链路：
// hybrid 召回 → 补全物品信息 → 按 project_code 过滤 → 截断。
func defaultPipeline(cfg *config.Config) *pipeline.Config {
	pc := &pipeline.Config{}
	pc.Pipeline.Name = "default"
	pc.Pipeline.Nodes = []pipeline.NodeConfig{
		{Type: "recall.hybrid", Config: map[string]any{"limit": cfg.Hybrid.Limit}},
		{Type: "enrich"},
		{Type: "filter", Config: map[string]any{"filters": []any{
			map[string]any{"type": "expr", "expr": `!("project_code" in rctx.params) || item.meta.project_code == rctx.params.project_code`},
		}}},
		{Type: "rerank.topn", Config: map[string]any{"n": cfg.Hybrid.Limit}},
	}
	return pc
}
