package utils

// Label 记录物品在链路中经过的路由与来源，例如 route=lightgcn、recall_source=mood_hot。
// 同名 Label 按 MergeLabel 合并。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // 写入方：recall / recall.hybrid / filter / rerank ...
}

// MergeLabel 合并同名 Label：Value 以 '|' 累积，Source 以 ',' 累积；任一方为空时取另一方。
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + "|" + incoming.Value
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "":
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}
