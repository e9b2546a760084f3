package rerank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/gcnrec/core"
	"github.com/rushteam/gcnrec/pkg/utils"
)

func grouped(pairs ...string) []*core.Item {
	out := make([]*core.Item, 0, len(pairs)/2)
	for k := 0; k+1 < len(pairs); k += 2 {
		it := core.NewItem(pairs[k])
		if pairs[k+1] != "" {
			it.Meta["project_code"] = pairs[k+1]
		}
		out = append(out, it)
	}
	return out
}

func TestTopN(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		params map[string]any
		want   int
	}{
		{name: "truncate", n: 2, want: 2},
		{name: "no limit", n: 0, want: 4},
		{name: "larger than input", n: 10, want: 4},
		{name: "request limit wins", n: 3, params: map[string]any{"limit": "1"}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := &TopNNode{N: tt.n}
			out, err := node.Process(context.Background(), &core.RecommendContext{Params: tt.params}, grouped("a", "", "b", "", "c", "", "d", ""))
			require.NoError(t, err)
			assert.Len(t, out, tt.want)
		})
	}
}

func TestDiversity(t *testing.T) {
	in := func() []*core.Item {
		return grouped("a", "x", "b", "x", "c", "y", "d", "", "e", "x")
	}

	tests := []struct {
		name string
		node *Diversity
		want []string
	}{
		{name: "push down repeats", node: &Diversity{}, want: []string{"a", "c", "d", "b", "e"}},
		{name: "drop repeats", node: &Diversity{Drop: true}, want: []string{"a", "c", "d"}},
		{name: "two per group", node: &Diversity{MaxPerGroup: 2}, want: []string{"a", "b", "c", "d", "e"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.node.Process(context.Background(), nil, in())
			require.NoError(t, err)
			assert.Equal(t, tt.want, core.ItemIDs(out))
		})
	}
}

func TestDiversity_LabelBeatsMeta(t *testing.T) {
	items := grouped("a", "x", "b", "x")
	items[1].PutLabel("project_code", utils.Label{Value: "z", Source: "test"})
	out, err := (&Diversity{Drop: true}).Process(context.Background(), nil, items)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, core.ItemIDs(out))
}
