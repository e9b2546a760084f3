package filter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/gcnrec/core"
	"github.com/rushteam/gcnrec/pipeline"
	"github.com/rushteam/gcnrec/store"
)

func items(ids ...string) []*core.Item {
	out := make([]*core.Item, len(ids))
	for k, id := range ids {
		out[k] = core.NewItem(id)
	}
	return out
}

func TestFilterNode(t *testing.T) {
	failing := Func{Label: "broken", Fn: func(context.Context, *core.RecommendContext, *core.Item) (bool, error) {
		return true, errors.New("boom")
	}}
	dropI2 := Func{Label: "drop_i2", Fn: func(_ context.Context, _ *core.RecommendContext, it *core.Item) (bool, error) {
		return it.ID == "i2", nil
	}}

	tests := []struct {
		name    string
		filters []Filter
		want    []string
	}{
		{name: "no filters", filters: nil, want: []string{"i1", "i2", "i3"}},
		{name: "drops match", filters: []Filter{dropI2}, want: []string{"i1", "i3"}},
		{name: "error keeps item", filters: []Filter{failing}, want: []string{"i1", "i2", "i3"}},
		{name: "error then match", filters: []Filter{failing, dropI2}, want: []string{"i1", "i3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &FilterNode{Filters: tt.filters, Logger: zerolog.Nop()}
			out, err := n.Process(context.Background(), &core.RecommendContext{}, items("i1", "i2", "i3"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, core.ItemIDs(out))
		})
	}
}

func TestBlacklistFilter(t *testing.T) {
	kv := store.NewMemoryStore()
	defer kv.Close()
	ctx := context.Background()
	lists := NewIDListStore(kv)
	require.NoError(t, lists.Put(ctx, "blacklist", []string{"i3"}))

	f := NewBlacklistFilter([]string{"i1"}, lists, "blacklist")
	n := &FilterNode{Filters: []Filter{f}, Logger: zerolog.Nop()}
	out, err := n.Process(ctx, nil, items("i1", "i2", "i3", "i4"))
	require.NoError(t, err)
	assert.Equal(t, []string{"i2", "i4"}, core.ItemIDs(out))
}

func TestIDListStore_Timestamped(t *testing.T) {
	kv := store.NewMemoryStore()
	defer kv.Close()
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	lists := NewIDListStore(kv)
	lists.now = func() time.Time { return now }

	require.NoError(t, kv.Set(ctx, "k", []byte(`[{"item_id":"old","timestamp":1699000000},{"item_id":"new","timestamp":1699999990}]`)))

	got, err := lists.Get(ctx, "k", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, got)

	got, err = lists.Get(ctx, "k", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"old", "new"}, got)

	got, err = lists.Get(ctx, "missing", 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, kv.Set(ctx, "bad", []byte(`{`)))
	_, err = lists.Get(ctx, "bad", 0)
	assert.Error(t, err)
}

func TestExposedFilter(t *testing.T) {
	kv := store.NewMemoryStore()
	defer kv.Close()
	ctx := context.Background()

	f := NewExposedFilter(NewIDListStore(kv), "", 24*time.Hour)
	require.NoError(t, f.MarkExposed(ctx, "u1", "i1", "i3"))

	n := &FilterNode{Filters: []Filter{f}, Logger: zerolog.Nop()}
	out, err := n.Process(ctx, &core.RecommendContext{UserID: "u1"}, items("i1", "i2", "i3"))
	require.NoError(t, err)
	assert.Equal(t, []string{"i2"}, core.ItemIDs(out))

	// 其他用户不受影响
	out, err = n.Process(ctx, &core.RecommendContext{UserID: "u2"}, items("i1", "i2", "i3"))
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestIDListStore_AppendBatch(t *testing.T) {
	kv := store.NewMemoryStore()
	defer kv.Close()
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	lists := NewIDListStore(kv)
	lists.now = func() time.Time { return now }

	// 旧的纯 ID 列表追加后转成带时间戳格式
	require.NoError(t, lists.Put(ctx, "k", []string{"legacy"}))
	require.NoError(t, lists.Append(ctx, "k", "a", "b"))
	require.NoError(t, lists.Append(ctx, "k"))

	got, err := lists.Get(ctx, "k", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"legacy", "a", "b"}, got)

	got, err = lists.Get(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

type passNode struct{}

func (passNode) Name() string        { return "pass" }
func (passNode) Kind() pipeline.Kind { return pipeline.KindRecall }
func (passNode) Process(_ context.Context, _ *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	return items, nil
}

func TestExposedFilters(t *testing.T) {
	kv := store.NewMemoryStore()
	defer kv.Close()
	lists := NewIDListStore(kv)
	a := NewExposedFilter(lists, "", 0)
	b := NewExposedFilter(lists, "seen", time.Hour)
	nodes := []pipeline.Node{
		passNode{},
		&FilterNode{Filters: []Filter{NewBlacklistFilter([]string{"x"}, nil, ""), a}},
		&FilterNode{Filters: []Filter{b}},
	}
	assert.Equal(t, []*ExposedFilter{a, b}, ExposedFilters(nodes))
	assert.Empty(t, ExposedFilters([]pipeline.Node{passNode{}}))

	// 空用户或空批次不写
	require.NoError(t, a.MarkExposed(context.Background(), "", "i1"))
	require.NoError(t, a.MarkExposed(context.Background(), "u1"))
	got, err := lists.Get(context.Background(), "user:exposed:u1", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExprFilter(t *testing.T) {
	f, err := NewExprFilter(`!("project_code" in rctx.params) || item.meta.project_code == rctx.params.project_code`)
	require.NoError(t, err)

	a := core.NewItem("i1")
	a.Meta["project_code"] = "dev"
	b := core.NewItem("i2")
	b.Meta["project_code"] = "fun"

	n := &FilterNode{Filters: []Filter{f}, Logger: zerolog.Nop()}

	out, err := n.Process(context.Background(), &core.RecommendContext{Params: map[string]any{"project_code": "dev"}}, []*core.Item{a, b})
	require.NoError(t, err)
	assert.Equal(t, []string{"i1"}, core.ItemIDs(out))

	out, err = n.Process(context.Background(), &core.RecommendContext{}, []*core.Item{a, b})
	require.NoError(t, err)
	assert.Len(t, out, 2)

	_, err = NewExprFilter(`item.score >`)
	assert.Error(t, err)
}
