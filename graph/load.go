package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/gcnrec/core"
	"github.com/rushteam/gcnrec/metrics"
)

// Load 并发读取 InteractionStore 的三份列表并构图。
// 任一读取失败即整体失败（读取错误原样包装后返回）。
func Load(ctx context.Context, s core.InteractionStore, logger zerolog.Logger) (*Graph, error) {
	start := time.Now()

	var (
		users        []core.UserRecord
		items        []core.ItemRecord
		interactions []core.Interaction
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		users, err = s.ListUsers(egCtx)
		if err != nil {
			return fmt.Errorf("list users from %s: %w", s.Name(), err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		items, err = s.ListItems(egCtx)
		if err != nil {
			return fmt.Errorf("list items from %s: %w", s.Name(), err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		interactions, err = s.ListInteractions(egCtx)
		if err != nil {
			return fmt.Errorf("list interactions from %s: %w", s.Name(), err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	g, err := Build(users, items, interactions)
	if err != nil {
		return nil, err
	}

	metrics.GraphNodes.WithLabelValues("user").Set(float64(g.NumUsers()))
	metrics.GraphNodes.WithLabelValues("item").Set(float64(g.NumItems()))
	metrics.GraphEdges.Set(float64(g.NumEdges()))
	metrics.GraphBuildDuration.Observe(time.Since(start).Seconds())

	logger.Info().
		Str("store", s.Name()).
		Int("users", g.Stats.NumUsers).
		Int("items", g.Stats.NumItems).
		Int("edges", g.Stats.NumEdges).
		Int("skipped", g.Stats.SkippedInteractions).
		Int("duplicates", g.Stats.DuplicateInteractions).
		Dur("elapsed", time.Since(start)).
		Msg("graph built")
	if g.Stats.SkippedInteractions > 0 {
		logger.Warn().Int("skipped", g.Stats.SkippedInteractions).Msg("interactions reference unknown users or items")
	}
	return g, nil
}
