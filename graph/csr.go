package graph

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// CSR 是只读的方阵稀疏矩阵（Compressed Sparse Row）。
//
// 同时实现 mat.Matrix，可以直接参与 gonum 的稠密运算（mat.Dense.Mul 等），
// 传播时则走 MulDense 的稀疏路径。
type CSR struct {
	n       int
	indptr  []int     // len n+1
	indices []int     // 每行内按列升序
	data    []float64 // 与 indices 对齐
}

// entry 是构造 CSR 时的坐标三元组。
type entry struct {
	row, col int
	val      float64
}

// newCSR 从坐标列表构造 n×n 的 CSR；同一坐标出现多次时保留最后一次的值。
func newCSR(n int, entries []entry) *CSR {
	sort.Slice(entries, func(a, b int) bool {
		if entries[a].row != entries[b].row {
			return entries[a].row < entries[b].row
		}
		return entries[a].col < entries[b].col
	})

	c := &CSR{
		n:       n,
		indptr:  make([]int, n+1),
		indices: make([]int, 0, len(entries)),
		data:    make([]float64, 0, len(entries)),
	}
	for k, e := range entries {
		if k > 0 && entries[k-1].row == e.row && entries[k-1].col == e.col {
			c.data[len(c.data)-1] = e.val
			continue
		}
		c.indices = append(c.indices, e.col)
		c.data = append(c.data, e.val)
		c.indptr[e.row+1]++
	}
	for i := 0; i < n; i++ {
		c.indptr[i+1] += c.indptr[i]
	}
	return c
}

// Dims 实现 mat.Matrix。
func (c *CSR) Dims() (r, cols int) { return c.n, c.n }

// At 实现 mat.Matrix。
func (c *CSR) At(i, j int) float64 {
	if i < 0 || i >= c.n || j < 0 || j >= c.n {
		panic(mat.ErrIndexOutOfRange)
	}
	lo, hi := c.indptr[i], c.indptr[i+1]
	k := lo + sort.SearchInts(c.indices[lo:hi], j)
	if k < hi && c.indices[k] == j {
		return c.data[k]
	}
	return 0
}

// T 实现 mat.Matrix。
func (c *CSR) T() mat.Matrix { return mat.Transpose{Matrix: c} }

// NNZ 返回非零元素个数。
func (c *CSR) NNZ() int { return len(c.data) }

// RowNNZ 返回第 i 行的非零元素个数。
func (c *CSR) RowNNZ(i int) int { return c.indptr[i+1] - c.indptr[i] }

// DoRowNonZero 依次对第 i 行的非零元素调用 fn（列升序）。
func (c *CSR) DoRowNonZero(i int, fn func(j int, v float64)) {
	for k := c.indptr[i]; k < c.indptr[i+1]; k++ {
		fn(c.indices[k], c.data[k])
	}
}

// RowSums 返回每行元素之和（对邻接矩阵即节点度）。
func (c *CSR) RowSums() []float64 {
	out := make([]float64, c.n)
	for i := 0; i < c.n; i++ {
		out[i] = floats.Sum(c.data[c.indptr[i]:c.indptr[i+1]])
	}
	return out
}

// IsSymmetric 检查 A[i,j] == A[j,i] 对所有非零元素成立。
func (c *CSR) IsSymmetric() bool {
	for i := 0; i < c.n; i++ {
		for k := c.indptr[i]; k < c.indptr[i+1]; k++ {
			if c.At(c.indices[k], i) != c.data[k] {
				return false
			}
		}
	}
	return true
}

// MulDense 计算 dst = c · src，src 与 dst 形状均为 n×d，且不能是同一个矩阵。
func (c *CSR) MulDense(dst, src *mat.Dense) {
	r, d := src.Dims()
	if r != c.n {
		panic(fmt.Sprintf("graph: MulDense shape mismatch: csr %d×%d, src %d×%d", c.n, c.n, r, d))
	}
	if dr, dc := dst.Dims(); dr != r || dc != d {
		panic(fmt.Sprintf("graph: MulDense dst shape %d×%d, want %d×%d", dr, dc, r, d))
	}
	for i := 0; i < c.n; i++ {
		row := dst.RawRowView(i)
		for j := range row {
			row[j] = 0
		}
		for k := c.indptr[i]; k < c.indptr[i+1]; k++ {
			floats.AddScaled(row, c.data[k], src.RawRowView(c.indices[k]))
		}
	}
}

var _ mat.Matrix = (*CSR)(nil)
