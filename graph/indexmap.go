package graph

// IndexMap 是领域 ID 与稠密索引之间的双向映射。
//
// 一次构图只构造一次，之后只读地传给训练与推理；正向与反向映射由同一个值持有，
// 不会出现两份映射互相漂移的情况。索引按构造时 ids 的顺序分配，重复 ID 保留第一次出现的位置。
type IndexMap struct {
	ids   []string
	index map[string]int
}

// NewIndexMap 按 ids 顺序分配索引 0..n-1。
func NewIndexMap(ids []string) *IndexMap {
	m := &IndexMap{
		ids:   make([]string, 0, len(ids)),
		index: make(map[string]int, len(ids)),
	}
	for _, id := range ids {
		if _, ok := m.index[id]; ok {
			continue
		}
		m.index[id] = len(m.ids)
		m.ids = append(m.ids, id)
	}
	return m
}

// Len 返回映射中的 ID 数量。
func (m *IndexMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.ids)
}

// Index 返回 id 对应的稠密索引。
func (m *IndexMap) Index(id string) (int, bool) {
	if m == nil {
		return 0, false
	}
	idx, ok := m.index[id]
	return idx, ok
}

// ID 返回索引对应的领域 ID。
func (m *IndexMap) ID(idx int) (string, bool) {
	if m == nil || idx < 0 || idx >= len(m.ids) {
		return "", false
	}
	return m.ids[idx], true
}

// IDs 返回按索引排列的 ID 副本。
func (m *IndexMap) IDs() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.ids))
	copy(out, m.ids)
	return out
}
