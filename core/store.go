package core

import "context"

// Store 是键值存储的领域接口。
//
// 使用场景：
//   - 交互数据快照：用户、物品、交互记录（store.KVInteractionStore）
//   - 模型文件：训练产出的 embedding 表（artifact.KVStore）
//   - 冷启动热门列表：按心情预计算的有序集合（recall.MoodHot）
//
// 实现：
//   - store.MemoryStore（测试/开发）
//   - store.RedisStore（生产）
type Store interface {
	Name() string

	// Get 不存在时返回 ErrStoreNotFound
	Get(ctx context.Context, key string) ([]byte, error)
	// Set 的 ttl 单位为秒，可省略
	Set(ctx context.Context, key string, value []byte, ttl ...int) error
	// Delete 同时删除同名的有序集合与哈希
	Delete(ctx context.Context, key string) error

	// BatchGet 缺失的 key 不出现在结果中
	BatchGet(ctx context.Context, keys []string) (map[string][]byte, error)
	BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error

	Close() error
}

// KeyValueStore 在 Store 之上增加有序集合（心情热门、用户交互计数）与哈希（用户名索引）。
type KeyValueStore interface {
	Store

	ZAdd(ctx context.Context, key string, score float64, member string) error
	// ZRange 按分数降序返回 [start, stop] 区间的成员，key 不存在时返回空
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZScore(ctx context.Context, key string, member string) (float64, error)
	// ZReplace 原子地用 members 整体替换有序集合，读方只会看到旧集合或新集合
	ZReplace(ctx context.Context, key string, members map[string]float64) error

	HGet(ctx context.Context, key, field string) ([]byte, error)
	HSet(ctx context.Context, key, field string, value []byte) error
	HGetAll(ctx context.Context, key string) (map[string][]byte, error)
}

// ErrStoreNotFound 表示 key 不存在。
var ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

// IsStoreNotFound 检查错误是否为 key 不存在。
func IsStoreNotFound(err error) bool {
	de := GetDomainError(err)
	return de != nil && de.Module == ModuleStore && de.Code == ErrorCodeNotFound
}
