package autodiff

import (
	"github.com/snsnlou/chainer/internal/autodiff/ops"
	"github.com/snsnlou/chainer/internal/tensor"
)

// Shape and reduction operations recorded on the tape. These back the
// normalization steps of the higher-level linear algebra routines, so
// their gradient rules are what routes matrix gradients back to the
// caller's original operands.

// Reshape changes the shape of t and records the operation.
func (b *AutodiffBackend[B]) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	out := b.inner.Reshape(t, newShape)

	bld := NewBuilder(b.tape, "reshape", t)
	if target := bld.Target(0); target != nil {
		shape := t.Shape().Clone()
		target.Define(func(ctx *ops.Context) *tensor.RawTensor {
			return b.Reshape(ctx.OutputGrad(0), shape)
		})
	}
	bld.Finalize(out)

	return out
}

// Transpose permutes the axes of t and records the operation. The
// gradient applies the inverse permutation.
func (b *AutodiffBackend[B]) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	out := b.inner.Transpose(t, axes...)

	bld := NewBuilder(b.tape, "transpose", t)
	if target := bld.Target(0); target != nil {
		var inverse []int
		if len(axes) > 0 {
			inverse = make([]int, len(axes))
			for i, ax := range axes {
				inverse[ax] = i
			}
		}
		// Full reversal is its own inverse, so empty axes stay empty.
		target.Define(func(ctx *ops.Context) *tensor.RawTensor {
			return b.Transpose(ctx.OutputGrad(0), inverse...)
		})
	}
	bld.Finalize(out)

	return out
}

// ExpandDims inserts a size-1 axis and records the operation.
func (b *AutodiffBackend[B]) ExpandDims(t *tensor.RawTensor, axis int) *tensor.RawTensor {
	out := b.inner.ExpandDims(t, axis)

	bld := NewBuilder(b.tape, "expanddims", t)
	if target := bld.Target(0); target != nil {
		shape := t.Shape().Clone()
		target.Define(func(ctx *ops.Context) *tensor.RawTensor {
			return b.Reshape(ctx.OutputGrad(0), shape)
		})
	}
	bld.Finalize(out)

	return out
}

// Expand broadcasts t to shape and records the operation. The gradient
// sums the broadcast axes back down.
func (b *AutodiffBackend[B]) Expand(t *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	out := b.inner.Expand(t, shape)

	bld := NewBuilder(b.tape, "expand", t)
	if target := bld.Target(0); target != nil {
		orig := t.Shape().Clone()
		target.Define(func(ctx *ops.Context) *tensor.RawTensor {
			return b.sumTo(ctx.OutputGrad(0), orig)
		})
	}
	bld.Finalize(out)

	return out
}

// Sum reduces t over axes and records the operation. The gradient
// reshapes the incoming gradient to the kept-dimension shape and expands
// it back over the reduced axes.
func (b *AutodiffBackend[B]) Sum(t *tensor.RawTensor, axes []int, keepDims bool) *tensor.RawTensor {
	out := b.inner.Sum(t, axes, keepDims)

	bld := NewBuilder(b.tape, "sum", t)
	if target := bld.Target(0); target != nil {
		orig := t.Shape().Clone()
		keepShape := reducedShape(orig, axes)
		target.Define(func(ctx *ops.Context) *tensor.RawTensor {
			g := b.Reshape(ctx.OutputGrad(0), keepShape)
			return b.Expand(g, orig)
		})
	}
	bld.Finalize(out)

	return out
}

// Diag builds a square matrix from a vector's diagonal and records the
// operation.
func (b *AutodiffBackend[B]) Diag(v *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Diag(v)

	bld := NewBuilder(b.tape, "diag", v)
	if target := bld.Target(0); target != nil {
		target.Define(func(ctx *ops.Context) *tensor.RawTensor {
			return b.DiagPart(ctx.OutputGrad(0))
		})
	}
	bld.Finalize(out)

	return out
}

// DiagPart extracts the main diagonal of a square matrix and records the
// operation.
func (b *AutodiffBackend[B]) DiagPart(m *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.DiagPart(m)

	bld := NewBuilder(b.tape, "diagpart", m)
	if target := bld.Target(0); target != nil {
		target.Define(func(ctx *ops.Context) *tensor.RawTensor {
			return b.Diag(ctx.OutputGrad(0))
		})
	}
	bld.Finalize(out)

	return out
}

// reducedShape is the input shape with the reduced axes collapsed to 1.
// Empty axes means a full reduction.
func reducedShape(shape tensor.Shape, axes []int) tensor.Shape {
	keep := shape.Clone()
	if len(axes) == 0 {
		for i := range keep {
			keep[i] = 1
		}
		return keep
	}
	for _, ax := range axes {
		if ax < 0 {
			ax += len(shape)
		}
		keep[ax] = 1
	}
	return keep
}
