package artifact

import (
	"context"
	"fmt"

	"github.com/rushteam/gcnrec/core"
)

// DefaultKey 是 KVStore 默认使用的 key。
const DefaultKey = "model:lightgcn:latest"

// KVStore 把模型文件作为单个 value 保存在 core.Store（Redis / 内存）中。
// 单 key 的 Set 本身是原子替换。
type KVStore struct {
	Store core.Store
	Key   string
}

func NewKVStore(s core.Store, key string) *KVStore {
	if key == "" {
		key = DefaultKey
	}
	return &KVStore{Store: s, Key: key}
}

func (s *KVStore) Name() string { return "kv:" + s.Store.Name() }

func (s *KVStore) Save(ctx context.Context, a *Artifact) error {
	data, err := Encode(a)
	if err != nil {
		return err
	}
	if err := s.Store.Set(ctx, s.Key, data); err != nil {
		return fmt.Errorf("save artifact to %s: %w", s.Store.Name(), err)
	}
	return nil
}

func (s *KVStore) Load(ctx context.Context) (*Artifact, error) {
	data, err := s.Store.Get(ctx, s.Key)
	if core.IsStoreNotFound(err) {
		return nil, fmt.Errorf("%w: %s", core.ErrArtifactNotFound, s.Key)
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact from %s: %w", s.Store.Name(), err)
	}
	return Decode(data)
}

var _ Store = (*KVStore)(nil)
