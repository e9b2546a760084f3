package artifact

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/gcnrec/core"
	"github.com/rushteam/gcnrec/graph"
	"github.com/rushteam/gcnrec/model"
)

// FormatVersion 是模型文件格式版本，结构变化时递增。
// 版本 2 起保存可学习的 E0 而不是传播后的表示。
const FormatVersion = 2

// Meta 是模型文件的元信息。
type Meta struct {
	RunID         string    `json:"run_id"`
	FormatVersion int       `json:"format_version"`
	TrainedAt     time.Time `json:"trained_at"`
	SavedAt       time.Time `json:"saved_at"`

	NumUsers int `json:"num_users"`
	NumItems int `json:"num_items"`
	NumEdges int `json:"num_edges"`
	Dim      int `json:"dim"`
	Layers   int `json:"layers"`

	Epochs             int     `json:"epochs"`
	FinalLoss          float64 `json:"final_loss"`
	TrainingDurationMS int64   `json:"training_duration_ms"`

	// Checksum 是未压缩载荷的 SHA-256（hex）
	Checksum  string `json:"checksum"`
	SizeBytes int64  `json:"size_bytes"`
}

// Artifact 是一次训练的产出：可学习的 embedding 表 E0（按用户/物品拆开）、层数，以及构图时的 ID 顺序。
// 加载时在当前图上重新传播一次，新增的交互因此会体现在推理里。
type Artifact struct {
	Meta Meta

	UserIDs []string
	ItemIDs []string
	Users   []float64 // E0 用户行，NU×Dim 行优先
	Items   []float64 // E0 物品行，NI×Dim 行优先
}

// Store 是模型文件的读写后端。
//
// Save 必须是原子的：失败时已有的模型文件保持不变。
type Store interface {
	Name() string
	Save(ctx context.Context, a *Artifact) error
	Load(ctx context.Context) (*Artifact, error)
}

// New 从图与训练好的模型组装模型文件。meta 中的 RunID / TrainedAt 未填写时自动补全，
// 规模字段与 Layers 以 g 和 m 为准。
func New(g *graph.Graph, m *model.LightGCN, meta Meta) (*Artifact, error) {
	if m.Emb.NumUsers != g.NumUsers() || m.Emb.NumItems != g.NumItems() {
		return nil, fmt.Errorf("%w: model %d×%d, graph %d×%d",
			core.ErrModelMismatch, m.Emb.NumUsers, m.Emb.NumItems, g.NumUsers(), g.NumItems())
	}
	users, items := m.Emb.Split()

	if meta.RunID == "" {
		meta.RunID = uuid.NewString()
	}
	if meta.TrainedAt.IsZero() {
		meta.TrainedAt = time.Now()
	}
	meta.FormatVersion = FormatVersion
	meta.NumUsers = g.NumUsers()
	meta.NumItems = g.NumItems()
	meta.NumEdges = g.NumEdges()
	meta.Dim = m.Emb.Dim
	meta.Layers = m.Layers

	return &Artifact{
		Meta:    meta,
		UserIDs: g.Users.IDs(),
		ItemIDs: g.Items.IDs(),
		Users:   users.RawMatrix().Data,
		Items:   items.RawMatrix().Data,
	}, nil
}

// Model 还原为可传播的模型（E0 + 层数）。
func (a *Artifact) Model() (*model.LightGCN, error) {
	if err := a.checkShape(); err != nil {
		return nil, err
	}
	emb, err := model.EmbeddingsFromTables(
		mat.NewDense(a.Meta.NumUsers, a.Meta.Dim, slices.Clone(a.Users)),
		mat.NewDense(a.Meta.NumItems, a.Meta.Dim, slices.Clone(a.Items)),
	)
	if err != nil {
		return nil, err
	}
	return &model.LightGCN{Layers: a.Meta.Layers, Emb: emb}, nil
}

// Snapshot 校验后在图 g 上传播，得到推理快照。
func (a *Artifact) Snapshot(g *graph.Graph) (*model.Snapshot, error) {
	if err := a.Validate(g); err != nil {
		return nil, err
	}
	m, err := a.Model()
	if err != nil {
		return nil, err
	}
	return m.Snapshot(g)
}

// Validate 检查模型文件与当前图是否一致（规模与 ID 顺序），不一致返回 core.ErrModelMismatch。
func (a *Artifact) Validate(g *graph.Graph) error {
	if a.Meta.NumUsers != g.NumUsers() || a.Meta.NumItems != g.NumItems() {
		return fmt.Errorf("%w: artifact %s has %d users/%d items, graph has %d/%d",
			core.ErrModelMismatch, a.Meta.RunID, a.Meta.NumUsers, a.Meta.NumItems, g.NumUsers(), g.NumItems())
	}
	if !slices.Equal(a.UserIDs, g.Users.IDs()) || !slices.Equal(a.ItemIDs, g.Items.IDs()) {
		return fmt.Errorf("%w: artifact %s index order differs from graph", core.ErrModelMismatch, a.Meta.RunID)
	}
	return nil
}

// checkShape 校验内部结构一致（解码后调用）。
func (a *Artifact) checkShape() error {
	m := a.Meta
	switch {
	case m.Dim <= 0 || m.NumUsers <= 0 || m.NumItems <= 0 || m.Layers < 0:
		return fmt.Errorf("%w: invalid shape users=%d items=%d dim=%d layers=%d",
			core.ErrArtifactCorrupt, m.NumUsers, m.NumItems, m.Dim, m.Layers)
	case len(a.UserIDs) != m.NumUsers || len(a.ItemIDs) != m.NumItems:
		return fmt.Errorf("%w: id lists %d/%d, meta %d/%d", core.ErrArtifactCorrupt, len(a.UserIDs), len(a.ItemIDs), m.NumUsers, m.NumItems)
	case len(a.Users) != m.NumUsers*m.Dim || len(a.Items) != m.NumItems*m.Dim:
		return fmt.Errorf("%w: table sizes %d/%d do not match %d×%d/%d×%d",
			core.ErrArtifactCorrupt, len(a.Users), len(a.Items), m.NumUsers, m.Dim, m.NumItems, m.Dim)
	}
	return nil
}
