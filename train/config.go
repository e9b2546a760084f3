package train

import (
	"fmt"

	"github.com/rushteam/gcnrec/model"
)

// 默认训练超参数。
const (
	DefaultEpochs             = 50
	DefaultLearningRate       = 1e-3
	DefaultL2Reg              = 1e-4
	DefaultMaxGradNorm        = 1.0
	DefaultMaxNegativeRetries = 100
	DefaultLogEvery           = 10
)

// Config 是训练配置。
type Config struct {
	Model model.Config `koanf:"model" json:"model"`

	Epochs       int     `koanf:"epochs" json:"epochs"`
	LearningRate float64 `koanf:"learning_rate" json:"learning_rate"`
	// L2Reg 是正则项权重 λ
	L2Reg float64 `koanf:"l2_reg" json:"l2_reg"`
	// MaxGradNorm 是全局梯度范数裁剪上限
	MaxGradNorm float64 `koanf:"max_grad_norm" json:"max_grad_norm"`
	// MaxNegativeRetries 是单个三元组负采样的最大尝试次数，耗尽后丢弃该三元组
	MaxNegativeRetries int `koanf:"max_negative_retries" json:"max_negative_retries"`
	// Seed 控制负采样的随机序列
	Seed uint64 `koanf:"seed" json:"seed"`
	// LogEvery 控制每隔多少个 epoch 输出一次 info 级日志，其余 epoch 为 debug
	LogEvery int `koanf:"log_every" json:"log_every"`
}

// DefaultConfig 返回默认训练配置。
func DefaultConfig() Config {
	return Config{
		Model:              model.DefaultConfig(),
		Epochs:             DefaultEpochs,
		LearningRate:       DefaultLearningRate,
		L2Reg:              DefaultL2Reg,
		MaxGradNorm:        DefaultMaxGradNorm,
		MaxNegativeRetries: DefaultMaxNegativeRetries,
		Seed:               42,
		LogEvery:           DefaultLogEvery,
	}
}

// Validate 检查配置是否可用。
func (c Config) Validate() error {
	switch {
	case c.Epochs <= 0:
		return fmt.Errorf("train: epochs must be positive, got %d", c.Epochs)
	case c.LearningRate <= 0:
		return fmt.Errorf("train: learning_rate must be positive, got %g", c.LearningRate)
	case c.L2Reg < 0:
		return fmt.Errorf("train: l2_reg must not be negative, got %g", c.L2Reg)
	case c.MaxGradNorm <= 0:
		return fmt.Errorf("train: max_grad_norm must be positive, got %g", c.MaxGradNorm)
	case c.MaxNegativeRetries <= 0:
		return fmt.Errorf("train: max_negative_retries must be positive, got %d", c.MaxNegativeRetries)
	case c.Model.EmbedDim <= 0:
		return fmt.Errorf("train: embed_dim must be positive, got %d", c.Model.EmbedDim)
	case c.Model.NumLayers < 0:
		return fmt.Errorf("train: num_layers must not be negative, got %d", c.Model.NumLayers)
	}
	return nil
}
