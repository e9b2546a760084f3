package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/gcnrec/core"
)

func TestMemoryStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	_, err := s.Get(ctx, "missing")
	assert.True(t, core.IsStoreNotFound(err))

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	require.NoError(t, s.BatchSet(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}))
	got, err := s.BatchGet(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, got)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.True(t, core.IsStoreNotFound(err))
	assert.Equal(t, []string{"b", "k"}, s.Keys(""))
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	s.data["expired"] = &entry{value: []byte("x"), expire: time.Now().Add(-time.Second)}
	_, err := s.Get(ctx, "expired")
	assert.True(t, core.IsStoreNotFound(err))

	require.NoError(t, s.Set(ctx, "live", []byte("y"), 60))
	_, err = s.Get(ctx, "live")
	assert.NoError(t, err)
}

func TestMemoryStore_ZRange(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	require.NoError(t, s.ZAdd(ctx, "z", 1, "a"))
	require.NoError(t, s.ZAdd(ctx, "z", 3, "b"))
	require.NoError(t, s.ZAdd(ctx, "z", 2, "c"))
	require.NoError(t, s.ZAdd(ctx, "z", 2, "d"))

	tests := []struct {
		name        string
		start, stop int64
		want        []string
	}{
		{name: "all", start: 0, stop: -1, want: []string{"b", "d", "c", "a"}},
		{name: "top2", start: 0, stop: 1, want: []string{"b", "d"}},
		{name: "tail", start: 2, stop: 10, want: []string{"c", "a"}},
		{name: "empty range", start: 5, stop: 6, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ZRange(ctx, "z", tt.start, tt.stop)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	score, err := s.ZScore(ctx, "z", "b")
	require.NoError(t, err)
	assert.Equal(t, 3.0, score)
	_, err = s.ZScore(ctx, "z", "nope")
	assert.True(t, core.IsStoreNotFound(err))
}

func TestMemoryStore_ZReplace(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	require.NoError(t, s.ZAdd(ctx, "z", 9, "stale"))
	require.NoError(t, s.ZReplace(ctx, "z", map[string]float64{"a": 1, "b": 2}))
	got, err := s.ZRange(ctx, "z", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, got)

	require.NoError(t, s.ZReplace(ctx, "z", nil))
	got, err = s.ZRange(ctx, "z", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore_Hash(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	require.NoError(t, s.HSet(ctx, "h", "f1", []byte("v1")))
	require.NoError(t, s.HSet(ctx, "h", "f2", []byte("v2")))

	v, err := s.HGet(ctx, "h", "f1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)

	all, err := s.HGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = s.HGet(ctx, "h", "f3")
	assert.True(t, core.IsStoreNotFound(err))
}

func sampleData() ([]core.UserRecord, []core.ItemRecord, []core.Interaction) {
	users := []core.UserRecord{{ID: "1", Username: "alice"}, {ID: "2", Username: "bob"}}
	items := []core.ItemRecord{
		{ID: "10", Title: "Go 入门", Tags: []string{"tutorial"}, ViewCount: 5},
		{ID: "11", Title: "Space", Tags: []string{"space"}, ViewCount: 9},
	}
	interactions := []core.Interaction{
		{UserID: "1", ItemID: "10", Type: "view"},
		{UserID: "1", ItemID: "10", Type: "like"},
		{UserID: "2", ItemID: "11", Type: "view"},
	}
	return users, items, interactions
}

func TestMemoryInteractionStore(t *testing.T) {
	ctx := context.Background()
	users, items, interactions := sampleData()
	s := NewMemoryInteractionStore()
	s.AddUsers(users...)
	s.AddItems(items...)
	s.AddInteractions(interactions...)

	got, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, users, got)

	tests := []struct {
		key  string
		want int
	}{
		{key: "1", want: 2},
		{key: "alice", want: 2},
		{key: "bob", want: 1},
		{key: "nobody", want: 0},
	}
	for _, tt := range tests {
		n, err := s.CountUserInteractions(ctx, tt.key)
		require.NoError(t, err)
		assert.Equal(t, tt.want, n, tt.key)
	}
}

func TestKVInteractionStore(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	defer kv.Close()
	s := NewKVInteractionStore(kv, "")

	// 空存储返回空列表
	empty, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	users, items, interactions := sampleData()
	require.NoError(t, s.Import(ctx, users, items, interactions))

	gotUsers, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, users, gotUsers)
	gotItems, err := s.ListItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, items, gotItems)
	gotInteractions, err := s.ListInteractions(ctx)
	require.NoError(t, err)
	assert.Len(t, gotInteractions, 3)

	n, err := s.CountUserInteractions(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.AppendInteraction(ctx, core.Interaction{UserID: "2", ItemID: "10"}))
	n, err = s.CountUserInteractions(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.CountUserInteractions(ctx, "ghost")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{raw: "", want: nil},
		{raw: "tutorial, career ,", want: []string{"tutorial", "career"}},
		{raw: `["space","science"]`, want: []string{"space", "science"}},
		{raw: "[not json", want: []string{"[not json"}},
		{raw: " , ", want: nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseTags(tt.raw), tt.raw)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snap.json")
	body := `{
  "users": [{"id": "1", "username": "alice"}, {"id": "2", "username": "bob"}],
  "items": [{"id": "10", "title": "Intro", "tags": ["tutorial"], "view_count": 3}],
  "interactions": [{"user_id": "1", "item_id": "10", "type": "view"}]
}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	snap, err := ReadSnapshotFile(path)
	require.NoError(t, err)
	require.Len(t, snap.Users, 2)
	assert.Equal(t, []string{"tutorial"}, snap.Items[0].Tags)

	mem := NewMemoryInteractionStoreFromSnapshot(snap)
	n, err := mem.CountUserInteractions(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	kv := NewMemoryStore()
	defer kv.Close()
	kvs := NewKVInteractionStore(kv, "")
	require.NoError(t, kvs.ImportSnapshot(ctx, snap))

	out, err := ExportSnapshot(ctx, kvs)
	require.NoError(t, err)
	assert.Equal(t, snap.Users, out.Users)
	require.Len(t, out.Interactions, 1)
	assert.Equal(t, "10", out.Interactions[0].ItemID)

	_, err = ReadSnapshotFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
