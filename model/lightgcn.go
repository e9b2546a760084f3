package model

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/gcnrec/core"
	"github.com/rushteam/gcnrec/graph"
)

// Embeddings 是 LightGCN 唯一的可学习参数：(NU+NI)×D 的初始 embedding 表 E0，
// 用户行在前、物品行在后，与 graph.Graph 的节点编号一致。
//
// 训练期间由 Trainer 独占并原地更新；推理只接触由它派生的 Snapshot。
type Embeddings struct {
	NumUsers int
	NumItems int
	Dim      int
	Table    *mat.Dense
}

// NewEmbeddings 以 N(0, std²) 随机初始化，seed 相同则结果相同。
func NewEmbeddings(numUsers, numItems, dim int, std float64, seed uint64) *Embeddings {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	n := numUsers + numItems
	data := make([]float64, n*dim)
	for k := range data {
		data[k] = rng.NormFloat64() * std
	}
	return &Embeddings{
		NumUsers: numUsers,
		NumItems: numItems,
		Dim:      dim,
		Table:    mat.NewDense(n, dim, data),
	}
}

// Clone 深拷贝。
func (e *Embeddings) Clone() *Embeddings {
	return &Embeddings{
		NumUsers: e.NumUsers,
		NumItems: e.NumItems,
		Dim:      e.Dim,
		Table:    mat.DenseCopyOf(e.Table),
	}
}

// EmbeddingsFromTables 由用户表与物品表拼回 E0（加载模型文件时使用）。
func EmbeddingsFromTables(users, items *mat.Dense) (*Embeddings, error) {
	nu, du := users.Dims()
	ni, di := items.Dims()
	if du != di {
		return nil, fmt.Errorf("%w: user dim %d != item dim %d", core.ErrModelMismatch, du, di)
	}
	table := mat.NewDense(nu+ni, du, nil)
	table.Slice(0, nu, 0, du).(*mat.Dense).Copy(users)
	table.Slice(nu, nu+ni, 0, du).(*mat.Dense).Copy(items)
	return &Embeddings{NumUsers: nu, NumItems: ni, Dim: du, Table: table}, nil
}

// Split 返回用户行与物品行的副本。
func (e *Embeddings) Split() (users, items *mat.Dense) {
	n := e.NumUsers + e.NumItems
	users = mat.DenseCopyOf(e.Table.Slice(0, e.NumUsers, 0, e.Dim))
	items = mat.DenseCopyOf(e.Table.Slice(e.NumUsers, n, 0, e.Dim))
	return users, items
}

// Finite 报告表中是否不含 NaN / Inf。
func (e *Embeddings) Finite() bool { return allFinite(e.Table) }

func allFinite(m *mat.Dense) bool {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		if floats.HasNaN(row) {
			return false
		}
		for _, v := range row {
			if math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// Propagate 计算 LightGCN 的最终表示：E_k = Â·E_{k-1}，输出 mean(E_0..E_L)。
//
// 纯函数：不修改 adj 与 e0，不包含自环、非线性和层间变换。layers 为 0 时返回 E0 的副本。
// 由于 Â 对称，同一函数作用在 dL/dE_final 上即得到 dL/dE0。
func Propagate(adj *graph.CSR, e0 *mat.Dense, layers int) (*mat.Dense, error) {
	n, d := e0.Dims()
	if r, _ := adj.Dims(); r != n {
		return nil, fmt.Errorf("%w: adjacency has %d nodes, embeddings have %d rows", core.ErrModelMismatch, r, n)
	}
	if layers < 0 {
		return nil, fmt.Errorf("propagate: negative layer count %d", layers)
	}

	sum := mat.DenseCopyOf(e0)
	if layers == 0 {
		return sum, nil
	}
	cur := mat.DenseCopyOf(e0)
	next := mat.NewDense(n, d, nil)
	for k := 1; k <= layers; k++ {
		adj.MulDense(next, cur)
		sum.Add(sum, next)
		cur, next = next, cur
	}
	sum.Scale(1/float64(layers+1), sum)
	return sum, nil
}

// LightGCN 把 embedding 表与层数组合在一起。
type LightGCN struct {
	Layers int
	Emb    *Embeddings
}

// New 按 cfg 为图 g 初始化一个新模型。
func New(g *graph.Graph, cfg Config) *LightGCN {
	cfg = cfg.withDefaults()
	return &LightGCN{
		Layers: cfg.NumLayers,
		Emb:    NewEmbeddings(g.NumUsers(), g.NumItems(), cfg.EmbedDim, cfg.InitStd, cfg.Seed),
	}
}

// Forward 在图 g 上传播，返回 (NU+NI)×D 的最终表示。
func (m *LightGCN) Forward(g *graph.Graph) (*mat.Dense, error) {
	if g.NumUsers() != m.Emb.NumUsers || g.NumItems() != m.Emb.NumItems {
		return nil, fmt.Errorf("%w: graph %d users/%d items, model %d users/%d items",
			core.ErrModelMismatch, g.NumUsers(), g.NumItems(), m.Emb.NumUsers, m.Emb.NumItems)
	}
	return Propagate(g.Normalized, m.Emb.Table, m.Layers)
}

// Snapshot 在图 g 上传播并冻结为只读的推理快照。
func (m *LightGCN) Snapshot(g *graph.Graph) (*Snapshot, error) {
	final, err := m.Forward(g)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(final, m.Emb.NumUsers, m.Emb.NumItems)
}
