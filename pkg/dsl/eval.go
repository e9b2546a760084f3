// Package dsl 是基于 CEL 的条件表达式，用于过滤/路由规则。
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/gcnrec/core"
)

var (
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once

	// 已编译表达式缓存：expr -> *Expr
	compiled sync.Map
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Expr 是编译后的布尔表达式，线程安全，可重复求值。
//
// 可用变量：
//   - item：id / score / meta / labels
//   - label：物品标签的 value，例如 label.recall_source
//   - rctx：user_id / device_id / scene / params / labels
//
// 示例：
//   - `label.recall_source == "lightgcn"`
//   - `item.meta.project_code == "abc"`
//   - `item.score > 0.5 && "mood" in rctx.params`
type Expr struct {
	src string
	prg cel.Program
}

// Compile 编译表达式。
func Compile(expr string) (*Expr, error) {
	if v, ok := compiled.Load(expr); ok {
		return v.(*Expr), nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}
	e := &Expr{src: expr, prg: prg}
	compiled.Store(expr, e)
	return e, nil
}

// String 返回表达式源码。
func (e *Expr) String() string { return e.src }

// Eval 对单个物品求值，表达式必须返回 bool。
func (e *Expr) Eval(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	out, _, err := e.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", e.src, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression %q must return bool, got %T", e.src, out.Value())
	}
	return result, nil
}

// Eval 编译（带缓存）并求值；空表达式恒为 true。
func Eval(expr string, item *core.Item, rctx *core.RecommendContext) (bool, error) {
	if expr == "" {
		return true, nil
	}
	e, err := Compile(expr)
	if err != nil {
		return false, err
	}
	return e.Eval(item, rctx)
}

func buildInput(item *core.Item, rctx *core.RecommendContext) map[string]any {
	labels := map[string]any{}
	labelValues := map[string]any{}
	itemMap := map[string]any{"id": "", "score": 0.0, "meta": map[string]any{}, "labels": labels}
	if item != nil {
		for k, v := range item.Labels {
			labels[k] = map[string]any{"value": v.Value, "source": v.Source}
			labelValues[k] = v.Value
		}
		itemMap["id"] = item.ID
		itemMap["score"] = item.Score
		if item.Meta != nil {
			itemMap["meta"] = item.Meta
		}
	}

	rctxMap := map[string]any{"user_id": "", "device_id": "", "scene": "", "params": map[string]any{}, "labels": map[string]any{}}
	if rctx != nil {
		userLabels := make(map[string]any, len(rctx.Labels))
		for k, v := range rctx.Labels {
			userLabels[k] = v.Value
		}
		rctxMap["user_id"] = rctx.UserID
		rctxMap["device_id"] = rctx.DeviceID
		rctxMap["scene"] = rctx.Scene
		rctxMap["labels"] = userLabels
		if rctx.Params != nil {
			rctxMap["params"] = rctx.Params
		}
	}

	return map[string]any{
		"item":  itemMap,
		"label": labelValues,
		"rctx":  rctxMap,
	}
}
