package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rushteam/gcnrec/core"
)

// PostgresConfig 是 PostgreSQL 连接配置。
type PostgresConfig struct {
	DSN             string        `koanf:"dsn"`
	MaxConns        int32         `koanf:"max_conns"`
	MinConns        int32         `koanf:"min_conns"`
	MaxConnIdleTime time.Duration `koanf:"max_conn_idle_time"`
}

// PostgresInteractionStore 从业务库读取 users / posts / interactions 三张表。
// 所有列表按主键排序，保证稠密索引分配稳定。
type PostgresInteractionStore struct {
	pool *pgxpool.Pool
}

const (
	pgListUsers = `SELECT id::text, COALESCE(username, '') FROM users ORDER BY id`

	pgListItems = `
SELECT p.id::text, COALESCE(p.title, ''), COALESCE(p.tags, ''), COALESCE(c.project_code, ''),
       COALESCE(p.view_count, 0), COALESCE(p.upvote_count, 0)
FROM posts p
LEFT JOIN categories c ON c.id = p.category_id
ORDER BY p.id`

	pgListInteractions = `
SELECT user_id::text, post_id::text, COALESCE(interaction_type, 'view'), created_at
FROM interactions
ORDER BY id`

	pgCountUserInteractions = `
SELECT count(*)
FROM interactions i
JOIN users u ON u.id = i.user_id
WHERE u.id::text = $1 OR u.username = $1`
)

func NewPostgresInteractionStore(ctx context.Context, cfg PostgresConfig) (*PostgresInteractionStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresInteractionStore{pool: pool}, nil
}

func NewPostgresInteractionStoreFromPool(pool *pgxpool.Pool) *PostgresInteractionStore {
	return &PostgresInteractionStore{pool: pool}
}

func (s *PostgresInteractionStore) Name() string { return "postgres" }

func (s *PostgresInteractionStore) Close() { s.pool.Close() }

func (s *PostgresInteractionStore) ListUsers(ctx context.Context) ([]core.UserRecord, error) {
	rows, err := s.pool.Query(ctx, pgListUsers)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.UserRecord, error) {
		var u core.UserRecord
		err := row.Scan(&u.ID, &u.Username)
		return u, err
	})
}

func (s *PostgresInteractionStore) ListItems(ctx context.Context) ([]core.ItemRecord, error) {
	rows, err := s.pool.Query(ctx, pgListItems)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.ItemRecord, error) {
		var (
			it   core.ItemRecord
			tags string
		)
		err := row.Scan(&it.ID, &it.Title, &tags, &it.Category, &it.ViewCount, &it.UpvoteCount)
		it.Tags = ParseTags(tags)
		return it, err
	})
}

func (s *PostgresInteractionStore) ListInteractions(ctx context.Context) ([]core.Interaction, error) {
	rows, err := s.pool.Query(ctx, pgListInteractions)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Interaction, error) {
		var (
			in core.Interaction
			at *time.Time
		)
		err := row.Scan(&in.UserID, &in.ItemID, &in.Type, &at)
		if at != nil {
			in.CreatedAt = *at
		}
		return in, err
	})
}

func (s *PostgresInteractionStore) CountUserInteractions(ctx context.Context, userID string) (int, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, pgCountUserInteractions, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count interactions for %s: %w", userID, err)
	}
	return int(n), nil
}

// ParseTags 解析 posts.tags 列：JSON 数组或逗号分隔字符串，去除空白与空项。
func ParseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err == nil {
			return compactTags(tags)
		}
	}
	return compactTags(strings.Split(raw, ","))
}

func compactTags(tags []string) []string {
	out := tags[:0]
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

var _ core.InteractionStore = (*PostgresInteractionStore)(nil)
