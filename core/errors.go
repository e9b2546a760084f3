package core

import "errors"

// DomainError 是领域层的统一错误类型，errors.Is 按 Module + Code 匹配。
//
//   - store: NOT_FOUND
//   - graph: EMPTY_GRAPH
//   - train: NO_TRAINING_DATA, NUMERIC_INSTABILITY
//   - model: MODEL_MISMATCH, UNAVAILABLE
//   - artifact: NOT_FOUND, CORRUPT
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "EMPTY_GRAPH"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "graph", "train"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is 让 errors.Is 按 Module + Code 匹配，便于 fmt.Errorf("%w") 包装后仍可识别。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok || t == nil {
		return false
	}
	return e.Module == t.Module && e.Code == t.Code
}

// IsDomainError 检查错误是否为 DomainError 类型
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取 DomainError（支持被包装的错误），如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	var de *DomainError
	if errors.As(err, &de) {
		return de
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	// 通用错误代码
	ErrorCodeNotFound    = "NOT_FOUND"   // 资源不存在
	ErrorCodeUnavailable = "UNAVAILABLE" // 服务不可用

	// 图 / 训练 / 模型相关
	ErrorCodeEmptyGraph         = "EMPTY_GRAPH"         // 没有用户或物品
	ErrorCodeNoTrainingData     = "NO_TRAINING_DATA"    // 没有正样本边
	ErrorCodeNumericInstability = "NUMERIC_INSTABILITY" // loss 出现 NaN/Inf
	ErrorCodeModelMismatch      = "MODEL_MISMATCH"      // 模型与当前图的规模不一致
	ErrorCodeCorrupt            = "CORRUPT"             // 持久化数据校验失败
)

// 模块名称常量
const (
	ModuleStore    = "store"    // 存储模块
	ModuleGraph    = "graph"    // 图构建模块
	ModuleTrain    = "train"    // 训练模块
	ModuleModel    = "model"    // 模型 / 推理模块
	ModuleArtifact = "artifact" // 模型持久化模块
)

// 领域错误定义，使用 errors.Is 判断（允许 %w 包装附加上下文）。
var (
	// ErrEmptyGraph 表示用户或物品为空，无法构建/归一化图；调用方不能继续推理
	ErrEmptyGraph = NewDomainError(ModuleGraph, ErrorCodeEmptyGraph, "graph: no users or no items")

	// ErrNoTrainingData 表示没有任何正样本边，训练无法进行，不会产生模型
	ErrNoTrainingData = NewDomainError(ModuleTrain, ErrorCodeNoTrainingData, "train: no positive interactions")

	// ErrNumericInstability 表示训练过程中 loss 变为 NaN/Inf，训练已中止且不会保存模型
	ErrNumericInstability = NewDomainError(ModuleTrain, ErrorCodeNumericInstability, "train: loss is not finite")

	// ErrModelMismatch 表示模型记录的用户/物品数与当前图不一致，拒绝加载
	ErrModelMismatch = NewDomainError(ModuleModel, ErrorCodeModelMismatch, "model: artifact does not match graph")

	// ErrModelUnavailable 表示推理引擎尚未加载模型（配置问题，混合策略应降级）
	ErrModelUnavailable = NewDomainError(ModuleModel, ErrorCodeUnavailable, "model: not loaded")

	// ErrArtifactNotFound 表示没有可用的模型文件
	ErrArtifactNotFound = NewDomainError(ModuleArtifact, ErrorCodeNotFound, "artifact: not found")

	// ErrArtifactCorrupt 表示模型文件校验失败（checksum / 结构不一致）
	ErrArtifactCorrupt = NewDomainError(ModuleArtifact, ErrorCodeCorrupt, "artifact: corrupt")
)

// 通用错误检查函数

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeUnavailable
	}
	return false
}
