package train

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// adam 是对整张参数表做稠密更新的 Adam 优化器。
type adam struct {
	lr, beta1, beta2, eps float64
	t                     int
	m, v                  []float64
}

func newAdam(lr float64, rows, cols int) *adam {
	return &adam{
		lr:    lr,
		beta1: 0.9,
		beta2: 0.999,
		eps:   1e-8,
		m:     make([]float64, rows*cols),
		v:     make([]float64, rows*cols),
	}
}

// step 用 grad 更新 param（原地）。param 与 grad 必须是连续存储的同形状矩阵。
func (a *adam) step(param, grad *mat.Dense) {
	a.t++
	p := param.RawMatrix().Data
	g := grad.RawMatrix().Data
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	for k := range p {
		a.m[k] = a.beta1*a.m[k] + (1-a.beta1)*g[k]
		a.v[k] = a.beta2*a.v[k] + (1-a.beta2)*g[k]*g[k]
		mHat := a.m[k] / c1
		vHat := a.v[k] / c2
		p[k] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
	}
}

// clipGradNorm 按全局 L2 范数裁剪梯度，返回裁剪前的范数。
func clipGradNorm(grad *mat.Dense, maxNorm float64) float64 {
	g := grad.RawMatrix().Data
	total := floats.Norm(g, 2)
	if coef := maxNorm / (total + 1e-6); coef < 1 {
		floats.Scale(coef, g)
	}
	return total
}
