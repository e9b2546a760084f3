// Package gcnrec 是基于 LightGCN 的混合推荐服务。
//
// 组成：
//   - graph: 从交互数据构建用户-物品二部图（对称归一化邻接）
//   - model / train: LightGCN 传播与 BPR 训练，产出模型文件（artifact）
//   - recall: 推理引擎、心情热门冷启动与混合路由
//   - pipeline: 在线链路（召回 → 过滤 → 重排），节点由 YAML/JSON 配置组装
//
// 命令行入口见 cmd/gcnrec。
package gcnrec

import (
	"github.com/rushteam/gcnrec/core"
	"github.com/rushteam/gcnrec/pipeline"
)

// 常用类型的别名，便于直接 import "gcnrec"。
type (
	Pipeline         = pipeline.Pipeline
	Node             = pipeline.Node
	Kind             = pipeline.Kind
	Item             = core.Item
	RecommendContext = core.RecommendContext
)

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
