// Package store 提供 core.Store / core.KeyValueStore / core.InteractionStore 的实现。
//
// 接口定义在 core 包：
//
//	var kv core.KeyValueStore = store.NewMemoryStore()
//	var src core.InteractionStore = store.NewKVInteractionStore(kv, "")
package store
