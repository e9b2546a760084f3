package store

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/rushteam/gcnrec/core"
)

// DefaultKVPrefix 是 KVInteractionStore 默认的 key 前缀。
const DefaultKVPrefix = "gcnrec:"

// KVInteractionStore 把交互快照保存在 KeyValueStore 中。
//
// 布局：
//
//	{prefix}users              JSON []UserRecord
//	{prefix}items              JSON []ItemRecord
//	{prefix}interactions       JSON []Interaction
//	{prefix}interaction_count  ZSET user_id -> 交互条数
//	{prefix}usernames          HASH username -> user_id
type KVInteractionStore struct {
	kv     core.KeyValueStore
	prefix string
}

func NewKVInteractionStore(kv core.KeyValueStore, prefix string) *KVInteractionStore {
	if prefix == "" {
		prefix = DefaultKVPrefix
	}
	return &KVInteractionStore{kv: kv, prefix: prefix}
}

func (s *KVInteractionStore) Name() string { return "kv:" + s.kv.Name() }

func (s *KVInteractionStore) key(name string) string { return s.prefix + name }

// Import 整体覆盖写入一份快照，并重建计数与用户名索引。
func (s *KVInteractionStore) Import(ctx context.Context, users []core.UserRecord, items []core.ItemRecord, interactions []core.Interaction) error {
	kvs := make(map[string][]byte, 3)
	for name, v := range map[string]any{"users": users, "items": items, "interactions": interactions} {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", name, err)
		}
		kvs[s.key(name)] = data
	}
	if err := s.kv.Delete(ctx, s.key("interaction_count")); err != nil {
		return fmt.Errorf("reset interaction counts: %w", err)
	}
	if err := s.kv.BatchSet(ctx, kvs); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	for _, u := range users {
		if u.Username == "" {
			continue
		}
		if err := s.kv.HSet(ctx, s.key("usernames"), u.Username, []byte(u.ID)); err != nil {
			return fmt.Errorf("index username %s: %w", u.Username, err)
		}
	}

	counts := make(map[string]int, len(users))
	for _, in := range interactions {
		counts[in.UserID]++
	}
	for id, n := range counts {
		if err := s.kv.ZAdd(ctx, s.key("interaction_count"), float64(n), id); err != nil {
			return fmt.Errorf("write interaction count for %s: %w", id, err)
		}
	}
	return nil
}

// AppendInteraction 追加一条交互并更新计数。读改写非原子，适合单写者的采集任务。
func (s *KVInteractionStore) AppendInteraction(ctx context.Context, in core.Interaction) error {
	list, err := s.ListInteractions(ctx)
	if err != nil {
		return err
	}
	list = append(list, in)
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal interactions: %w", err)
	}
	if err := s.kv.Set(ctx, s.key("interactions"), data); err != nil {
		return err
	}

	n, err := s.kv.ZScore(ctx, s.key("interaction_count"), in.UserID)
	if err != nil && !core.IsStoreNotFound(err) {
		return err
	}
	return s.kv.ZAdd(ctx, s.key("interaction_count"), n+1, in.UserID)
}

func (s *KVInteractionStore) ListUsers(ctx context.Context) ([]core.UserRecord, error) {
	var out []core.UserRecord
	if err := s.load(ctx, "users", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *KVInteractionStore) ListItems(ctx context.Context) ([]core.ItemRecord, error) {
	var out []core.ItemRecord
	if err := s.load(ctx, "items", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *KVInteractionStore) ListInteractions(ctx context.Context) ([]core.Interaction, error) {
	var out []core.Interaction
	if err := s.load(ctx, "interactions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountUserInteractions 读取计数 ZSET；userID 不存在时按用户名解析。未知用户返回 0。
func (s *KVInteractionStore) CountUserInteractions(ctx context.Context, userID string) (int, error) {
	n, err := s.kv.ZScore(ctx, s.key("interaction_count"), userID)
	if err == nil {
		return int(n), nil
	}
	if !core.IsStoreNotFound(err) {
		return 0, err
	}

	id, err := s.kv.HGet(ctx, s.key("usernames"), userID)
	if core.IsStoreNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err = s.kv.ZScore(ctx, s.key("interaction_count"), string(id))
	if core.IsStoreNotFound(err) {
		return 0, nil
	}
	return int(n), err
}

// load 读取并解析 JSON；key 不存在视为空列表。
func (s *KVInteractionStore) load(ctx context.Context, name string, v any) error {
	data, err := s.kv.Get(ctx, s.key(name))
	if core.IsStoreNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s (%d bytes): %w", name, len(data), err)
	}
	return nil
}

var _ core.InteractionStore = (*KVInteractionStore)(nil)
