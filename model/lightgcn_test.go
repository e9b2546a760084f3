package model

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/gcnrec/core"
	"github.com/rushteam/gcnrec/graph"
)

func smallGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.Build(
		[]core.UserRecord{{ID: "u1"}, {ID: "u2"}, {ID: "u3"}},
		[]core.ItemRecord{{ID: "i1"}, {ID: "i2"}, {ID: "i3"}, {ID: "i4"}},
		[]core.Interaction{
			{UserID: "u1", ItemID: "i1"},
			{UserID: "u1", ItemID: "i2"},
			{UserID: "u2", ItemID: "i3"},
		},
	)
	require.NoError(t, err)
	return g
}

func TestNewEmbeddings_Deterministic(t *testing.T) {
	a := NewEmbeddings(3, 4, 8, 0.1, 7)
	b := NewEmbeddings(3, 4, 8, 0.1, 7)
	c := NewEmbeddings(3, 4, 8, 0.1, 8)

	assert.True(t, mat.Equal(a.Table, b.Table))
	assert.False(t, mat.Equal(a.Table, c.Table))

	r, d := a.Table.Dims()
	assert.Equal(t, 7, r)
	assert.Equal(t, 8, d)
}

func TestPropagate(t *testing.T) {
	g := smallGraph(t)
	e0 := NewEmbeddings(3, 4, 4, 0.1, 1).Table
	before := mat.DenseCopyOf(e0)

	t.Run("zero layers returns copy of E0", func(t *testing.T) {
		out, err := Propagate(g.Normalized, e0, 0)
		require.NoError(t, err)
		assert.True(t, mat.Equal(out, e0))
	})

	t.Run("one layer is mean of E0 and ÂE0", func(t *testing.T) {
		out, err := Propagate(g.Normalized, e0, 1)
		require.NoError(t, err)

		var e1, want mat.Dense
		e1.Mul(g.Normalized, e0)
		want.Add(e0, &e1)
		want.Scale(0.5, &want)
		assert.True(t, mat.EqualApprox(out, &want, 1e-12))
	})

	t.Run("isolated nodes keep E0/(L+1)", func(t *testing.T) {
		out, err := Propagate(g.Normalized, e0, 3)
		require.NoError(t, err)
		// u3（行 2）没有邻居，只保留第 0 层
		got := out.RawRowView(2)
		want := append([]float64(nil), e0.RawRowView(2)...)
		floats.Scale(0.25, want)
		assert.InDeltaSlice(t, want, got, 1e-12)
	})

	t.Run("pure", func(t *testing.T) {
		_, err := Propagate(g.Normalized, e0, 3)
		require.NoError(t, err)
		assert.True(t, mat.Equal(before, e0))
	})

	t.Run("shape mismatch", func(t *testing.T) {
		_, err := Propagate(g.Normalized, mat.NewDense(5, 4, nil), 2)
		assert.True(t, errors.Is(err, core.ErrModelMismatch))
	})
}

func TestSnapshot_Score(t *testing.T) {
	g := smallGraph(t)
	m := New(g, Config{EmbedDim: 8, NumLayers: 2, Seed: 3})

	snap, err := m.Snapshot(g)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.NumUsers())
	assert.Equal(t, 4, snap.NumItems())
	assert.Equal(t, 8, snap.Dim())

	final, err := m.Forward(g)
	require.NoError(t, err)

	scores := snap.ScoreAll(0, nil)
	require.Len(t, scores, 4)
	for i := 0; i < 4; i++ {
		want := floats.Dot(final.RawRowView(0), final.RawRowView(3+i))
		assert.InDelta(t, want, snap.Score(0, i), 1e-12)
		assert.InDelta(t, want, scores[i], 1e-12)
	}
}

func TestSnapshot_Immutable(t *testing.T) {
	g := smallGraph(t)
	m := New(g, Config{EmbedDim: 4, NumLayers: 1, Seed: 5})
	snap, err := m.Snapshot(g)
	require.NoError(t, err)
	before := snap.Score(0, 0)

	// 训练继续修改参数不应影响已生成的快照
	m.Emb.Table.Scale(10, m.Emb.Table)
	assert.Equal(t, before, snap.Score(0, 0))

	v := snap.UserVector(0)
	v[0] = 1e9
	assert.Equal(t, before, snap.Score(0, 0))
}

func TestForward_Mismatch(t *testing.T) {
	g := smallGraph(t)
	m := &LightGCN{Layers: 1, Emb: NewEmbeddings(2, 4, 4, 0.1, 1)}
	_, err := m.Forward(g)
	assert.True(t, errors.Is(err, core.ErrModelMismatch))
}

func TestEmbeddings_SplitRoundTrip(t *testing.T) {
	e := NewEmbeddings(3, 4, 5, 0.1, 9)
	users, items := e.Split()
	ru, _ := users.Dims()
	ri, _ := items.Dims()
	assert.Equal(t, 3, ru)
	assert.Equal(t, 4, ri)

	back, err := EmbeddingsFromTables(users, items)
	require.NoError(t, err)
	assert.True(t, mat.Equal(e.Table, back.Table))
	assert.Equal(t, e.Dim, back.Dim)

	_, err = EmbeddingsFromTables(mat.NewDense(2, 3, nil), mat.NewDense(2, 4, nil))
	assert.True(t, errors.Is(err, core.ErrModelMismatch))
}

func TestFinite(t *testing.T) {
	g := smallGraph(t)
	m := New(g, Config{EmbedDim: 4, NumLayers: 2, Seed: 1})
	snap, err := m.Snapshot(g)
	require.NoError(t, err)
	assert.True(t, m.Emb.Finite())
	assert.True(t, snap.Finite())

	tests := []struct {
		name string
		v    float64
	}{
		{"nan", math.NaN()},
		{"+inf", math.Inf(1)},
		{"-inf", math.Inf(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := m.Emb.Clone()
			bad.Table.Set(4, 2, tt.v)
			assert.False(t, bad.Finite())

			s, err := (&LightGCN{Layers: 2, Emb: bad}).Snapshot(g)
			require.NoError(t, err)
			assert.False(t, s.Finite())
		})
	}
}
