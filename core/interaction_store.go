package core

import (
	"context"
	"time"
)

// UserRecord 是交互存储中的用户。
type UserRecord struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ItemRecord 是交互存储中的物品（内容）。
// Tags / Category / ViewCount / UpvoteCount 仅供冷启动的心情热门推荐使用，图模型只关心 ID。
type ItemRecord struct {
	ID          string   `json:"id"`
	Title       string   `json:"title,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Category    string   `json:"category,omitempty"` // project_code
	ViewCount   int64    `json:"view_count,omitempty"`
	UpvoteCount int64    `json:"upvote_count,omitempty"`
}

// Interaction 是一条用户-物品交互事件。
// Type 取值 view / like / inspire / rating 等；建图时所有类型折叠为同一条无权边。
type Interaction struct {
	UserID    string    `json:"user_id"`
	ItemID    string    `json:"item_id"`
	Type      string    `json:"type,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// InteractionStore 是交互数据存储的领域接口（外部协作方，只读）。
//
// 图构建每次只完整读取一次三份列表；列表的返回顺序决定了稠密索引的分配顺序，
// 实现方应保证顺序稳定（例如按主键排序）。
//
// 实现：
//   - store.MemoryInteractionStore（测试/开发）
//   - store.KVInteractionStore（基于 core.KeyValueStore，Redis / 内存）
//   - store.PostgresInteractionStore（pgx）
type InteractionStore interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// ListUsers 返回全部用户
	ListUsers(ctx context.Context) ([]UserRecord, error)

	// ListItems 返回全部物品
	ListItems(ctx context.Context) ([]ItemRecord, error)

	// ListInteractions 返回全部交互
	ListInteractions(ctx context.Context) ([]Interaction, error)

	// CountUserInteractions 返回某用户的交互条数（userID 也可以是用户名），混合策略据此路由
	CountUserInteractions(ctx context.Context, userID string) (int, error)
}
