package train

import (
	"math/rand/v2"

	"github.com/rushteam/gcnrec/graph"
)

// Triplet 是一条 BPR 训练样本 (用户, 正样本物品, 负样本物品)。
type Triplet struct {
	User int
	Pos  int
	Neg  int
}

// Sampler 为每条正样本边均匀采样一个负样本。
// 抽中用户已交互过的物品时重抽，最多 maxRetries 次；仍失败则丢弃该边。
type Sampler struct {
	g          *graph.Graph
	rng        *rand.Rand
	maxRetries int
}

func NewSampler(g *graph.Graph, seed uint64, maxRetries int) *Sampler {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxNegativeRetries
	}
	return &Sampler{
		g:          g,
		rng:        rand.New(rand.NewPCG(seed, seed+1)),
		maxRetries: maxRetries,
	}
}

// Sample 对全部正样本边各生成一个三元组，返回三元组与被丢弃的边数。
func (s *Sampler) Sample(edges []graph.Edge) ([]Triplet, int) {
	ni := s.g.NumItems()
	out := make([]Triplet, 0, len(edges))
	dropped := 0
	for _, e := range edges {
		neg, ok := s.negative(e.User, ni)
		if !ok {
			dropped++
			continue
		}
		out = append(out, Triplet{User: e.User, Pos: e.Item, Neg: neg})
	}
	return out, dropped
}

func (s *Sampler) negative(user, numItems int) (int, bool) {
	// 用户交互过所有物品，不存在负样本
	if s.g.InteractedCount(user) >= numItems {
		return 0, false
	}
	for range s.maxRetries {
		j := s.rng.IntN(numItems)
		if !s.g.HasInteracted(user, j) {
			return j, true
		}
	}
	return 0, false
}
