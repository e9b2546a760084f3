package core

import "github.com/rushteam/gcnrec/pkg/utils"

// RecommendContext 承载用户/场景/请求信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID   string // 使用 string 类型（通用，支持所有 ID 格式）
	DeviceID string
	Scene    string

	// Labels 是用户级标签，可驱动整个 Pipeline 行为
	// 例如：route=lightgcn、新用户等
	Labels map[string]utils.Label

	// Params 请求级上下文参数，例如：
	// - mood：冷启动推荐使用的心情（inspired / happy / curious / calm / motivated）
	// - project_code：调用方希望过滤的分类
	Params map[string]any
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}

// ParamString 读取字符串类型的请求参数，不存在或为空时返回 def。
func (rctx *RecommendContext) ParamString(key, def string) string {
	if rctx == nil || rctx.Params == nil {
		return def
	}
	s, ok := rctx.Params[key].(string)
	if !ok || s == "" {
		return def
	}
	return s
}
