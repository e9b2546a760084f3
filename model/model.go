package model

// 默认超参数。
const (
	DefaultEmbedDim  = 64
	DefaultNumLayers = 3
	DefaultInitStd   = 0.1
)

// Scorer 是推理阶段的最小抽象：给定用户与物品的稠密索引，输出一个可比较的分数。
// Snapshot 是唯一的实现。
type Scorer interface {
	NumUsers() int
	NumItems() int
	Score(user, item int) float64
	ScoreAll(user int, dst []float64) []float64
}

// Config 是 LightGCN 的结构超参数。
type Config struct {
	EmbedDim  int     `koanf:"embed_dim" json:"embed_dim"`
	NumLayers int     `koanf:"num_layers" json:"num_layers"`
	InitStd   float64 `koanf:"init_std" json:"init_std"`
	Seed      uint64  `koanf:"seed" json:"seed"`
}

// DefaultConfig 返回默认配置（64 维、3 层、N(0, 0.1²) 初始化）。
func DefaultConfig() Config {
	return Config{
		EmbedDim:  DefaultEmbedDim,
		NumLayers: DefaultNumLayers,
		InitStd:   DefaultInitStd,
		Seed:      42,
	}
}

func (c Config) withDefaults() Config {
	if c.EmbedDim <= 0 {
		c.EmbedDim = DefaultEmbedDim
	}
	if c.NumLayers < 0 {
		c.NumLayers = DefaultNumLayers
	}
	if c.InitStd <= 0 {
		c.InitStd = DefaultInitStd
	}
	return c
}
