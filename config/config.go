// Package config 加载进程配置：结构体默认值 → YAML 文件 → GCNREC_ 环境变量，后者覆盖前者。
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/gcnrec/artifact"
	"github.com/rushteam/gcnrec/pkg/logging"
	"github.com/rushteam/gcnrec/recall"
	"github.com/rushteam/gcnrec/store"
	"github.com/rushteam/gcnrec/train"
)

// EnvPrefix 是环境变量前缀；层级用双下划线分隔，例如
// GCNREC_TRAIN__LEARNING_RATE=0.01 → train.learning_rate。
const EnvPrefix = "GCNREC_"

// PathEnvVar 可指定配置文件路径。
const PathEnvVar = EnvPrefix + "CONFIG"

// DefaultPaths 是未指定路径时依次查找的配置文件。
var DefaultPaths = []string{
	"gcnrec.yaml",
	"gcnrec.yml",
	"/etc/gcnrec/config.yaml",
}

// 存储后端
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// 模型文件存储
const (
	ArtifactFile = "file"
	ArtifactKV   = "kv"
)

// Config 是进程配置。
type Config struct {
	Log      logging.Config `koanf:"log"`
	Store    StoreConfig    `koanf:"store"`
	Train    train.Config   `koanf:"train"`
	Artifact ArtifactConfig `koanf:"artifact"`
	Hybrid   HybridConfig   `koanf:"hybrid"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	Server   ServerConfig   `koanf:"server"`
}

// StoreConfig 描述交互数据来源。
//
//   - memory：从 Snapshot 指定的 JSON 文件读取（本地调试）
//   - redis：KV 交互存储，键前缀 Prefix
//   - postgres：直接读业务库
type StoreConfig struct {
	Kind     string               `koanf:"kind"`
	Snapshot string               `koanf:"snapshot"`
	Prefix   string               `koanf:"prefix"`
	Redis    store.RedisConfig    `koanf:"redis"`
	Postgres store.PostgresConfig `koanf:"postgres"`
}

// RedisConfigured 报告是否配置了 Redis 连接。
func (s StoreConfig) RedisConfigured() bool {
	return s.Redis.URL != "" || s.Redis.Addr != ""
}

// ArtifactConfig 描述模型文件位置。kv 复用 store.redis 的连接。
type ArtifactConfig struct {
	Kind string `koanf:"kind"`
	Path string `koanf:"path"`
	Key  string `koanf:"key"`
}

// HybridConfig 是在线路由参数。
type HybridConfig struct {
	Threshold   int    `koanf:"threshold"`
	DefaultMood string `koanf:"default_mood"`
	Limit       int    `koanf:"limit"`
}

// PipelineConfig 指向 pipeline 节点描述文件，为空时使用内置链路。
type PipelineConfig struct {
	Path string `koanf:"path"`
}

// ServerConfig 是在线服务参数，/metrics 与推荐接口共用一个监听地址。
type ServerConfig struct {
	Addr string `koanf:"addr"`
	// ReloadInterval > 0 时定期重新构图并加载最新模型
	ReloadInterval time.Duration `koanf:"reload_interval"`
	// ShutdownTimeout 是优雅退出的等待上限
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Default 返回默认配置。
func Default() *Config {
	return &Config{
		Log: logging.DefaultConfig(),
		Store: StoreConfig{
			Kind:   StoreMemory,
			Prefix: store.DefaultKVPrefix,
			Postgres: store.PostgresConfig{
				MaxConns: 4,
			},
		},
		Train: train.DefaultConfig(),
		Artifact: ArtifactConfig{
			Kind: ArtifactFile,
			Path: "data/lightgcn.model",
			Key:  artifact.DefaultKey,
		},
		Hybrid: HybridConfig{
			Threshold:   recall.DefaultInteractionThreshold,
			DefaultMood: recall.DefaultMood,
			Limit:       recall.DefaultLimit,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Load 加载配置。path 为空时依次尝试 GCNREC_CONFIG 与 DefaultPaths，都不存在则只用默认值与环境变量。
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func findFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envKey 把 GCNREC_TRAIN__LEARNING_RATE 转成 train.learning_rate。
func envKey(s string) string {
	if s == PathEnvVar {
		return ""
	}
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// Validate 检查取值范围与组合约束。
func (c *Config) Validate() error {
	if !logging.ValidLevel(c.Log.Level) {
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}

	switch c.Store.Kind {
	case StoreMemory:
		if c.Store.Snapshot == "" {
			return fmt.Errorf("store.snapshot is required for the memory store")
		}
	case StoreRedis:
		if !c.Store.RedisConfigured() {
			return fmt.Errorf("store.redis.url or store.redis.addr is required")
		}
	case StorePostgres:
		if c.Store.Postgres.DSN == "" {
			return fmt.Errorf("store.postgres.dsn is required")
		}
	default:
		return fmt.Errorf("store.kind: unknown kind %q", c.Store.Kind)
	}

	switch c.Artifact.Kind {
	case ArtifactFile:
		if c.Artifact.Path == "" {
			return fmt.Errorf("artifact.path is required for the file store")
		}
	case ArtifactKV:
		if !c.Store.RedisConfigured() {
			return fmt.Errorf("artifact.kind=kv requires store.redis")
		}
		if c.Artifact.Key == "" {
			return fmt.Errorf("artifact.key is required for the kv store")
		}
	default:
		return fmt.Errorf("artifact.kind: unknown kind %q", c.Artifact.Kind)
	}

	if c.Hybrid.Threshold <= 0 {
		return fmt.Errorf("hybrid.threshold must be positive, got %d", c.Hybrid.Threshold)
	}
	if c.Hybrid.Limit <= 0 {
		return fmt.Errorf("hybrid.limit must be positive, got %d", c.Hybrid.Limit)
	}
	if _, ok := recall.MoodKeywords[c.Hybrid.DefaultMood]; !ok {
		return fmt.Errorf("hybrid.default_mood: unknown mood %q (known: %v)", c.Hybrid.DefaultMood, recall.Moods())
	}

	if c.Server.ReloadInterval < 0 {
		return fmt.Errorf("server.reload_interval must not be negative, got %s", c.Server.ReloadInterval)
	}

	if err := c.Train.Validate(); err != nil {
		return err
	}
	return nil
}
