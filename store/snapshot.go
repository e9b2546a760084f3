package store

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/rushteam/gcnrec/core"
)

// Snapshot 是交互数据的 JSON 导出格式，用于本地调试与导入 KV。
//
//	{"users": [...], "items": [...], "interactions": [...]}
type Snapshot struct {
	Users        []core.UserRecord  `json:"users"`
	Items        []core.ItemRecord  `json:"items"`
	Interactions []core.Interaction `json:"interactions"`
}

// ReadSnapshotFile 读取 JSON 快照。
func ReadSnapshotFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return &snap, nil
}

// ExportSnapshot 从任意交互存储导出快照。
func ExportSnapshot(ctx context.Context, src core.InteractionStore) (*Snapshot, error) {
	users, err := src.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	items, err := src.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	interactions, err := src.ListInteractions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	return &Snapshot{Users: users, Items: items, Interactions: interactions}, nil
}

// NewMemoryInteractionStoreFromSnapshot 用快照填充内存交互存储。
func NewMemoryInteractionStoreFromSnapshot(snap *Snapshot) *MemoryInteractionStore {
	s := NewMemoryInteractionStore()
	s.AddUsers(snap.Users...)
	s.AddItems(snap.Items...)
	s.AddInteractions(snap.Interactions...)
	return s
}

// ImportSnapshot 把快照整体写入 KV 交互存储。
func (s *KVInteractionStore) ImportSnapshot(ctx context.Context, snap *Snapshot) error {
	return s.Import(ctx, snap.Users, snap.Items, snap.Interactions)
}
