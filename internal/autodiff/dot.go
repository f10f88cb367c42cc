package autodiff

import (
	"fmt"

	"github.com/snsnlou/chainer/internal/autodiff/ops"
	"github.com/snsnlou/chainer/internal/tensor"
)

// Dot computes the generalized matrix product of x and y, contracting
// x's last axis. The result dtype is the promoted type of the operands.
func (b *AutodiffBackend[B]) Dot(x, y *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.DotTo(x, y, tensor.PromoteTypes(x.DType(), y.DType()))
}

// DotTo is Dot with an explicit result dtype.
//
// The contraction pairs x's last axis with y's first axis (y 1-D or 2-D)
// or y's second-to-last axis (y higher-dimensional). The output shape is
// x's axes except the last, then y's remaining axes: for y.ndim > 2
// that is y's leading axes followed by y's last axis.
//
// Both operands are reshaped to matrices, multiplied by the backend
// kernel, and the result reshaped back. The normalization steps are
// recorded operations, so gradients route to the caller's original
// arrays; the kernel call itself runs under gradient suppression and is
// represented on the tape only by the hand-written matrix product rule.
func (b *AutodiffBackend[B]) DotTo(x, y *tensor.RawTensor, dtype tensor.DataType) (*tensor.RawTensor, error) {
	// A scalar operand degenerates to elementwise multiplication.
	if x.NDim() == 0 || y.NDim() == 0 {
		return b.Mul(x, y), nil
	}

	xShape := x.Shape()
	yShape := y.Shape()
	k := xShape[len(xShape)-1]

	outShape := make(tensor.Shape, 0, len(xShape)+len(yShape)-2)
	outShape = append(outShape, xShape[:len(xShape)-1]...)

	var contraction int
	if y.NDim() > 2 {
		contraction = yShape[len(yShape)-2]
		outShape = append(outShape, yShape[:len(yShape)-2]...)
		outShape = append(outShape, yShape[len(yShape)-1])
	} else {
		contraction = yShape[0]
		outShape = append(outShape, yShape[1:]...)
	}

	if contraction != k {
		return nil, fmt.Errorf("dot: axis dimension mismatch: %d vs %d: %w", k, contraction, tensor.ErrDimension)
	}
	if k == 0 {
		// Nothing to contract; the kernel is never invoked.
		return tensor.RawZeros(outShape, dtype, b.Device()), nil
	}

	m := xShape.NumElements() / k
	n := yShape.NumElements() / k

	xMat := b.Reshape(x, tensor.Shape{m, k})

	var yMat *tensor.RawTensor
	if y.NDim() > 2 {
		// Swap y's last two axes, flatten to (n, k), transpose to (k, n).
		axes := make([]int, y.NDim())
		for i := 0; i < y.NDim()-2; i++ {
			axes[i] = i
		}
		axes[y.NDim()-2] = y.NDim() - 1
		axes[y.NDim()-1] = y.NDim() - 2
		yMat = b.Transpose(b.Reshape(b.Transpose(y, axes...), tensor.Shape{n, k}))
	} else {
		yMat = b.Reshape(y, tensor.Shape{k, n})
	}

	var outMat *tensor.RawTensor
	func() {
		defer b.tape.NoGrad()()
		outMat = b.MatMul(xMat, yMat, dtype)
	}()

	bld := NewBuilder(b.tape, "dot", xMat, yMat)
	if target := bld.Target(0); target != nil {
		yTok := bld.RetainInput(1)
		xDtype := x.DType()
		target.Define(func(ctx *ops.Context) *tensor.RawTensor {
			return b.mustDot(ctx.OutputGrad(0), b.Transpose(ctx.Retained(yTok)), xDtype)
		})
	}
	if target := bld.Target(1); target != nil {
		xTok := bld.RetainInput(0)
		yDtype := y.DType()
		target.Define(func(ctx *ops.Context) *tensor.RawTensor {
			return b.mustDot(b.Transpose(ctx.Retained(xTok)), ctx.OutputGrad(0), yDtype)
		})
	}
	bld.Finalize(outMat)

	return b.Reshape(outMat, outShape), nil
}

// mustDot is DotTo for gradient rules, where the shapes were already
// validated by the forward pass.
func (b *AutodiffBackend[B]) mustDot(x, y *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	out, err := b.DotTo(x, y, dtype)
	if err != nil {
		panic(err)
	}
	return out
}
