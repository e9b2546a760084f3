package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/gcnrec/recall"
	"github.com/rushteam/gcnrec/train"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gcnrec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
store:
  kind: memory
  snapshot: data/snapshot.json
train:
  epochs: 7
  model:
    embed_dim: 16
hybrid:
  default_mood: calm
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Train.Epochs)
	assert.Equal(t, 16, cfg.Train.Model.EmbedDim)
	assert.Equal(t, train.DefaultLearningRate, cfg.Train.LearningRate)
	assert.Equal(t, "calm", cfg.Hybrid.DefaultMood)
	assert.Equal(t, recall.DefaultInteractionThreshold, cfg.Hybrid.Threshold)
	assert.Equal(t, ArtifactFile, cfg.Artifact.Kind)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, `
store:
  kind: memory
  snapshot: a.json
train:
  epochs: 7
`)
	t.Setenv("GCNREC_TRAIN__EPOCHS", "9")
	t.Setenv("GCNREC_TRAIN__LEARNING_RATE", "0.02")
	t.Setenv("GCNREC_LOG__LEVEL", "debug")
	t.Setenv("GCNREC_STORE__SNAPSHOT", "b.json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Train.Epochs)
	assert.Equal(t, 0.02, cfg.Train.LearningRate)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "b.json", cfg.Store.Snapshot)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "memory without snapshot", body: "store: {kind: memory}"},
		{name: "unknown store", body: "store: {kind: mongo}"},
		{name: "redis without address", body: "store: {kind: redis}"},
		{name: "postgres without dsn", body: "store: {kind: postgres}"},
		{name: "kv artifact without redis", body: "store: {kind: memory, snapshot: a.json}\nartifact: {kind: kv}"},
		{name: "unknown mood", body: "store: {kind: memory, snapshot: a.json}\nhybrid: {default_mood: angry}"},
		{name: "bad threshold", body: "store: {kind: memory, snapshot: a.json}\nhybrid: {threshold: -1}"},
		{name: "bad epochs", body: "store: {kind: memory, snapshot: a.json}\ntrain: {epochs: 0}"},
		{name: "bad log level", body: "store: {kind: memory, snapshot: a.json}\nlog: {level: loud}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_RedisStore(t *testing.T) {
	path := writeFile(t, `
store:
  kind: redis
  redis:
    url: redis://localhost:6379/0
    dial_timeout: 2s
artifact:
  kind: kv
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Store.RedisConfigured())
	assert.Equal(t, "2s", cfg.Store.Redis.DialTimeout.String())
	assert.NotEmpty(t, cfg.Artifact.Key)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "train.model.embed_dim", envKey("GCNREC_TRAIN__MODEL__EMBED_DIM"))
	assert.Equal(t, "", envKey(PathEnvVar))
}
