package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/gcnrec/core"
	"github.com/rushteam/gcnrec/pkg/utils"
)

func TestEval(t *testing.T) {
	item := core.NewItem("42")
	item.Score = 0.8
	item.Meta["project_code"] = "abc"
	item.PutLabel("recall_source", utils.Label{Value: "lightgcn", Source: "recall"})

	rctx := &core.RecommendContext{
		UserID: "u1",
		Scene:  "feed",
		Params: map[string]any{"mood": "calm"},
	}

	tests := []struct {
		name    string
		expr    string
		want    bool
		wantErr bool
	}{
		{name: "empty", expr: "", want: true},
		{name: "label", expr: `label.recall_source == "lightgcn"`, want: true},
		{name: "label source", expr: `item.labels.recall_source.source == "recall"`, want: true},
		{name: "meta", expr: `item.meta.project_code == "abc"`, want: true},
		{name: "meta mismatch", expr: `item.meta.project_code == "xyz"`, want: false},
		{name: "score", expr: `item.score > 0.5`, want: true},
		{name: "params", expr: `rctx.params.mood == "calm" && rctx.scene == "feed"`, want: true},
		{name: "in", expr: `"mood" in rctx.params`, want: true},
		{name: "non bool", expr: `item.score`, wantErr: true},
		{name: "syntax", expr: `item.score >`, wantErr: true},
		{name: "missing key", expr: `label.nope == "x"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Eval(tt.expr, item, rctx)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompile_Cached(t *testing.T) {
	a, err := Compile(`item.score > 1.0`)
	require.NoError(t, err)
	b, err := Compile(`item.score > 1.0`)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, `item.score > 1.0`, a.String())

	ok, err := a.Eval(nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}
