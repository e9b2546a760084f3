package model

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/gcnrec/core"
)

// Snapshot 是传播后的最终表示的只读快照，供推理使用。
//
// 构造时复制数据，之后不再暴露可写引用，可在多个 goroutine 间共享。
type Snapshot struct {
	users *mat.Dense // NU×D
	items *mat.Dense // NI×D
}

// NewSnapshot 从 (NU+NI)×D 的最终表示构造快照。
func NewSnapshot(final *mat.Dense, numUsers, numItems int) (*Snapshot, error) {
	n, d := final.Dims()
	if n != numUsers+numItems || numUsers <= 0 || numItems <= 0 {
		return nil, fmt.Errorf("%w: final has %d rows, want %d users + %d items",
			core.ErrModelMismatch, n, numUsers, numItems)
	}
	return &Snapshot{
		users: mat.DenseCopyOf(final.Slice(0, numUsers, 0, d)),
		items: mat.DenseCopyOf(final.Slice(numUsers, n, 0, d)),
	}, nil
}

// SnapshotFromTables 直接由传播后的用户表与物品表构造。
func SnapshotFromTables(users, items *mat.Dense) (*Snapshot, error) {
	_, du := users.Dims()
	_, di := items.Dims()
	if du != di {
		return nil, fmt.Errorf("%w: user dim %d != item dim %d", core.ErrModelMismatch, du, di)
	}
	return &Snapshot{users: mat.DenseCopyOf(users), items: mat.DenseCopyOf(items)}, nil
}

func (s *Snapshot) NumUsers() int { r, _ := s.users.Dims(); return r }
func (s *Snapshot) NumItems() int { r, _ := s.items.Dims(); return r }
func (s *Snapshot) Dim() int      { _, c := s.users.Dims(); return c }

// Score 返回 dot(F_u, F_i)。
func (s *Snapshot) Score(user, item int) float64 {
	return floats.Dot(s.users.RawRowView(user), s.items.RawRowView(item))
}

// ScoreAll 计算用户对全部物品的分数，写入 dst（长度不足时重新分配）。
func (s *Snapshot) ScoreAll(user int, dst []float64) []float64 {
	ni := s.NumItems()
	if cap(dst) < ni {
		dst = make([]float64, ni)
	}
	dst = dst[:ni]
	out := mat.NewVecDense(ni, dst)
	out.MulVec(s.items, mat.NewVecDense(s.Dim(), s.users.RawRowView(user)))
	return dst
}

// UserVector 返回用户最终表示的副本。
func (s *Snapshot) UserVector(user int) []float64 {
	return append([]float64(nil), s.users.RawRowView(user)...)
}

// ItemVector 返回物品最终表示的副本。
func (s *Snapshot) ItemVector(item int) []float64 {
	return append([]float64(nil), s.items.RawRowView(item)...)
}

// Finite 报告快照中是否不含 NaN / Inf。
func (s *Snapshot) Finite() bool { return allFinite(s.users) && allFinite(s.items) }

// Tables 返回用户表与物品表的副本。
func (s *Snapshot) Tables() (users, items *mat.Dense) {
	return mat.DenseCopyOf(s.users), mat.DenseCopyOf(s.items)
}

var _ Scorer = (*Snapshot)(nil)
