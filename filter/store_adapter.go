package filter

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/rushteam/gcnrec/core"
)

// IDListStore 从 core.Store 读取 JSON 编码的物品 ID 列表。
//
// 支持两种格式：
//   - ["i1", "i2"]
//   - [{"item_id": "i1", "timestamp": 1700000000}]（带时间戳，可按时间窗口截取）
//
// key 不存在时返回空列表。
type IDListStore struct {
	store core.Store
	now   func() time.Time
}

// NewIDListStore 包装 core.Store。
func NewIDListStore(s core.Store) *IDListStore {
	return &IDListStore{store: s, now: time.Now}
}

type timedID struct {
	ItemID    string `json:"item_id"`
	Timestamp int64  `json:"timestamp"`
}

// Get 读取列表；window > 0 时只保留时间窗口内的带时间戳记录。
func (a *IDListStore) Get(ctx context.Context, key string, window time.Duration) ([]string, error) {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err == nil {
		return ids, nil
	}

	var timed []timedID
	if err := json.Unmarshal(data, &timed); err != nil {
		return nil, fmt.Errorf("decode id list %s: %w", key, err)
	}
	cutoff := a.now().Add(-window).Unix()
	ids = make([]string, 0, len(timed))
	for _, t := range timed {
		if window > 0 && t.Timestamp < cutoff {
			continue
		}
		ids = append(ids, t.ItemID)
	}
	return ids, nil
}

// Put 以纯 ID 列表格式写入。
func (a *IDListStore) Put(ctx context.Context, key string, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, key, data)
}

// Append 追加带时间戳的记录，整批只读写一次。
func (a *IDListStore) Append(ctx context.Context, key string, itemIDs ...string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	var timed []timedID
	data, err := a.store.Get(ctx, key)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &timed); err != nil {
			timed = nil
			var ids []string
			if json.Unmarshal(data, &ids) != nil {
				return fmt.Errorf("decode id list %s: %w", key, err)
			}
			for _, id := range ids {
				timed = append(timed, timedID{ItemID: id})
			}
		}
	case !core.IsStoreNotFound(err):
		return err
	}
	ts := a.now().Unix()
	for _, id := range itemIDs {
		timed = append(timed, timedID{ItemID: id, Timestamp: ts})
	}
	out, err := json.Marshal(timed)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, key, out)
}
