package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/snsnlou/chainer/internal/tensor"
)

// MatMul computes the 2-D matrix product (m,k) x (k,n) -> (m,n) via gonum,
// writing the result with the requested dtype. Operands are widened to
// float64 for the product.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: only 2D tensors supported, got %dD and %dD", len(aShape), len(bShape)))
	}

	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]
	if k != kAlt {
		panic(fmt.Sprintf("matmul: shape mismatch [%d,%d] x [%d,%d]", m, k, kAlt, n))
	}

	result, err := tensor.NewRaw(tensor.Shape{m, n}, dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("matmul: failed to create result tensor: %v", err))
	}
	if m == 0 || n == 0 || k == 0 {
		return result
	}

	am := mat.NewDense(m, k, toFloat64(a))
	bm := mat.NewDense(k, n, toFloat64(b))

	if dtype == tensor.Float64 {
		out := mat.NewDense(m, n, result.AsFloat64())
		out.Mul(am, bm)
		return result
	}

	out := mat.NewDense(m, n, nil)
	out.Mul(am, bm)
	fromFloat64(out.RawMatrix().Data, result)
	return result
}
