package store

import (
	"context"
	"slices"
	"sync"

	"github.com/rushteam/gcnrec/core"
)

// MemoryInteractionStore 是内存中的交互存储，用于测试与本地演示。
type MemoryInteractionStore struct {
	mu           sync.RWMutex
	users        []core.UserRecord
	items        []core.ItemRecord
	interactions []core.Interaction
}

func NewMemoryInteractionStore() *MemoryInteractionStore {
	return &MemoryInteractionStore{}
}

func (s *MemoryInteractionStore) Name() string { return "memory" }

func (s *MemoryInteractionStore) AddUsers(users ...core.UserRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, users...)
}

func (s *MemoryInteractionStore) AddItems(items ...core.ItemRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items...)
}

func (s *MemoryInteractionStore) AddInteractions(interactions ...core.Interaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interactions = append(s.interactions, interactions...)
}

func (s *MemoryInteractionStore) ListUsers(ctx context.Context) ([]core.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.users), nil
}

func (s *MemoryInteractionStore) ListItems(ctx context.Context) ([]core.ItemRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items), nil
}

func (s *MemoryInteractionStore) ListInteractions(ctx context.Context) ([]core.Interaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.interactions), nil
}

// CountUserInteractions 统计交互条数（含重复交互）；userID 找不到时按用户名匹配。
func (s *MemoryInteractionStore) CountUserInteractions(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id := userID
	if !slices.ContainsFunc(s.users, func(u core.UserRecord) bool { return u.ID == userID }) {
		for _, u := range s.users {
			if u.Username == userID {
				id = u.ID
				break
			}
		}
	}
	n := 0
	for _, in := range s.interactions {
		if in.UserID == id {
			n++
		}
	}
	return n, nil
}

var _ core.InteractionStore = (*MemoryInteractionStore)(nil)
