package graph

import (
	"fmt"
	"math"
	"slices"

	"github.com/rushteam/gcnrec/core"
)

// Stats 是一次构图的统计信息。
type Stats struct {
	NumUsers int `json:"num_users"`
	NumItems int `json:"num_items"`
	NumEdges int `json:"num_edges"`

	// SkippedInteractions 是引用了未知用户/物品而被丢弃的交互条数
	SkippedInteractions int `json:"skipped_interactions"`
	// DuplicateInteractions 是同一 (用户, 物品) 的重复交互条数（折叠为一条边）
	DuplicateInteractions int `json:"duplicate_interactions"`
}

// Edge 是一条正样本边（稠密索引）。
type Edge struct {
	User int
	Item int
}

// Graph 是用户-物品二部图。
//
// 节点编号：用户 0..NU-1，物品 NU..NU+NI-1。
// Adjacency 是对称的 0/1 邻接矩阵，Normalized 是 D^-1/2 A D^-1/2。
// 构造后只读，可以在训练与推理之间共享。
type Graph struct {
	Users *IndexMap
	Items *IndexMap

	Adjacency  *CSR
	Normalized *CSR

	Stats Stats

	interacted [][]int        // 每个用户交互过的物品索引，升序
	usernames  map[string]int // 用户名 -> 用户索引
}

// Build 从三份列表构建二部图。
//
// 同一 (用户, 物品) 的多次交互（不论类型）折叠为一条无权边；
// 引用未知用户或物品的交互被跳过并计入 Stats。
// 用户或物品为空时返回 core.ErrEmptyGraph。
func Build(users []core.UserRecord, items []core.ItemRecord, interactions []core.Interaction) (*Graph, error) {
	userIDs := make([]string, 0, len(users))
	for _, u := range users {
		userIDs = append(userIDs, u.ID)
	}
	itemIDs := make([]string, 0, len(items))
	for _, it := range items {
		itemIDs = append(itemIDs, it.ID)
	}

	g := &Graph{
		Users:     NewIndexMap(userIDs),
		Items:     NewIndexMap(itemIDs),
		usernames: make(map[string]int, len(users)),
	}
	nu, ni := g.Users.Len(), g.Items.Len()
	if nu == 0 || ni == 0 {
		return nil, fmt.Errorf("%w: users=%d items=%d", core.ErrEmptyGraph, nu, ni)
	}

	for _, u := range users {
		if u.Username == "" {
			continue
		}
		if _, ok := g.usernames[u.Username]; ok {
			continue
		}
		if idx, ok := g.Users.Index(u.ID); ok {
			g.usernames[u.Username] = idx
		}
	}

	seen := make([]map[int]struct{}, nu)
	for _, in := range interactions {
		u, okU := g.Users.Index(in.UserID)
		i, okI := g.Items.Index(in.ItemID)
		if !okU || !okI {
			g.Stats.SkippedInteractions++
			continue
		}
		if seen[u] == nil {
			seen[u] = make(map[int]struct{})
		}
		if _, dup := seen[u][i]; dup {
			g.Stats.DuplicateInteractions++
			continue
		}
		seen[u][i] = struct{}{}
	}

	g.interacted = make([][]int, nu)
	itemDeg := make([]int, ni)
	edges := 0
	for u, set := range seen {
		if len(set) == 0 {
			continue
		}
		list := make([]int, 0, len(set))
		for i := range set {
			list = append(list, i)
			itemDeg[i]++
		}
		slices.Sort(list)
		g.interacted[u] = list
		edges += len(list)
	}

	n := nu + ni
	deg := make([]float64, n)
	for u := range nu {
		deg[u] = float64(len(g.interacted[u]))
	}
	for i := range ni {
		deg[nu+i] = float64(itemDeg[i])
	}
	dinv := make([]float64, n)
	for k, d := range deg {
		v := math.Pow(d, -0.5)
		if math.IsInf(v, 0) {
			v = 0
		}
		dinv[k] = v
	}

	adj := make([]entry, 0, 2*edges)
	norm := make([]entry, 0, 2*edges)
	for u, list := range g.interacted {
		for _, i := range list {
			col := nu + i
			w := dinv[u] * dinv[col]
			adj = append(adj, entry{u, col, 1}, entry{col, u, 1})
			norm = append(norm, entry{u, col, w}, entry{col, u, w})
		}
	}
	g.Adjacency = newCSR(n, adj)
	g.Normalized = newCSR(n, norm)

	g.Stats.NumUsers = nu
	g.Stats.NumItems = ni
	g.Stats.NumEdges = edges
	return g, nil
}

// NumUsers 返回用户数。
func (g *Graph) NumUsers() int { return g.Users.Len() }

// NumItems 返回物品数。
func (g *Graph) NumItems() int { return g.Items.Len() }

// NumNodes 返回节点总数 NU+NI。
func (g *Graph) NumNodes() int { return g.Users.Len() + g.Items.Len() }

// NumEdges 返回去重后的正样本边数。
func (g *Graph) NumEdges() int { return g.Stats.NumEdges }

// ResolveUser 把请求中的用户 key 解析为用户索引：先按 ID，再按用户名。
func (g *Graph) ResolveUser(key string) (int, bool) {
	if idx, ok := g.Users.Index(key); ok {
		return idx, true
	}
	idx, ok := g.usernames[key]
	return idx, ok
}

// Interacted 返回用户 u 交互过的物品索引（升序副本）。
func (g *Graph) Interacted(u int) []int {
	if u < 0 || u >= len(g.interacted) {
		return nil
	}
	return slices.Clone(g.interacted[u])
}

// InteractedCount 返回用户 u 交互过的不同物品数。
func (g *Graph) InteractedCount(u int) int {
	if u < 0 || u >= len(g.interacted) {
		return 0
	}
	return len(g.interacted[u])
}

// HasInteracted 判断用户 u 是否与物品 i 有过交互。
func (g *Graph) HasInteracted(u, i int) bool {
	if u < 0 || u >= len(g.interacted) {
		return false
	}
	_, found := slices.BinarySearch(g.interacted[u], i)
	return found
}

// Edges 返回全部正样本边，按 (用户, 物品) 升序。
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.Stats.NumEdges)
	for u, list := range g.interacted {
		for _, i := range list {
			out = append(out, Edge{User: u, Item: i})
		}
	}
	return out
}
