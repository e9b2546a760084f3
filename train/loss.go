package train

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LossParts 是一次前向计算的 loss 拆分。
type LossParts struct {
	Ranking float64
	Reg     float64 // 未乘 λ
	Total   float64
}

// bprLoss 在最终表示 final 上计算 BPR loss 及其对 final 的梯度。
//
//	L = -mean(log σ(x_b)) + λ·(Σ‖F_u‖² + ‖F_p‖² + ‖F_n‖²)/B,  x_b = F_u·F_p - F_u·F_n
//
// 梯度写入 grad（与 final 同形状，调用前会被清零）。
func bprLoss(final *mat.Dense, triplets []Triplet, numUsers int, l2 float64, grad *mat.Dense) LossParts {
	grad.Zero()
	b := float64(len(triplets))
	if b == 0 {
		return LossParts{}
	}

	var ranking, reg float64
	regScale := l2 * 2 / b
	for _, t := range triplets {
		fu := final.RawRowView(t.User)
		fp := final.RawRowView(numUsers + t.Pos)
		fn := final.RawRowView(numUsers + t.Neg)

		x := floats.Dot(fu, fp) - floats.Dot(fu, fn)
		ranking += softplus(-x)
		reg += floats.Dot(fu, fu) + floats.Dot(fp, fp) + floats.Dot(fn, fn)

		// dL/dx = -(1/B)·σ(-x)
		g := -sigmoid(-x) / b
		gu := grad.RawRowView(t.User)
		gp := grad.RawRowView(numUsers + t.Pos)
		gn := grad.RawRowView(numUsers + t.Neg)
		for k := range fu {
			gu[k] += g*(fp[k]-fn[k]) + regScale*fu[k]
			gp[k] += g*fu[k] + regScale*fp[k]
			gn[k] += -g*fu[k] + regScale*fn[k]
		}
	}
	ranking /= b
	reg /= b
	return LossParts{Ranking: ranking, Reg: reg, Total: ranking + l2*reg}
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// softplus(x) = log(1+e^x) = -log σ(-x)
func softplus(x float64) float64 {
	return math.Max(x, 0) + math.Log1p(math.Exp(-math.Abs(x)))
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
