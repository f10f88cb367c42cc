// Package autodiff implements automatic differentiation using the decorator pattern.
//
// AutodiffBackend wraps any Backend implementation (CPU, GPU, etc.) and adds
// gradient tracking capabilities through a GradientTape.
//
// Architecture:
//   - Decorator pattern: AutodiffBackend[B] wraps any Backend implementation
//   - GradientTape: Records operation records during the forward pass
//   - Builder protocol: Each differentiable operation defines per-input
//     gradient closures at forward time
//   - Reverse-mode AD: Computes gradients efficiently using chain rule
//
// Usage:
//
//	// Wrap any backend with autodiff
//	cpuBackend := cpu.New()
//	ad := autodiff.New(cpuBackend)
//	ad.Tape().StartRecording()
//
//	out, err := ad.Dot(x, y)
//	grads := ad.Tape().Backward(autodiff.Grads{out: seed}, ad)
package autodiff

import (
	"github.com/snsnlou/chainer/internal/autodiff/ops"
	"github.com/snsnlou/chainer/internal/tensor"
)

// Verify that AutodiffBackend implements the backend interface.
var _ tensor.Backend = (*AutodiffBackend[*tensor.MockBackend])(nil)

// AutodiffBackend wraps a Backend and adds automatic differentiation.
// It implements the tensor.Backend interface and records operations in a
// GradientTape.
//
// Type parameter B must satisfy the tensor.Backend interface.
type AutodiffBackend[B tensor.Backend] struct {
	inner B             // Wrapped backend (CPU, GPU, etc.)
	tape  *GradientTape // Records operations for backpropagation
}

// New creates a new AutodiffBackend wrapping the given backend.
func New[B tensor.Backend](backend B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{
		inner: backend,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape for manual control.
// Useful for:
//   - Starting/stopping recording
//   - Clearing tape between iterations
//   - Opening gradient suppression scopes
func (b *AutodiffBackend[B]) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend for direct access.
func (b *AutodiffBackend[B]) Inner() B {
	return b.inner
}

// Name returns the backend name.
func (b *AutodiffBackend[B]) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Device returns the compute device.
func (b *AutodiffBackend[B]) Device() tensor.Device {
	return b.inner.Device()
}

// Add performs element-wise addition and records the operation.
// Broadcast inputs receive gradients summed back to their own shape.
func (b *AutodiffBackend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Add(x, y)

	bld := NewBuilder(b.tape, "add", x, y)
	if target := bld.Target(0); target != nil {
		shape := x.Shape().Clone()
		target.Define(func(ctx *ops.Context) *tensor.RawTensor {
			return b.sumTo(ctx.OutputGrad(0), shape)
		})
	}
	if target := bld.Target(1); target != nil {
		shape := y.Shape().Clone()
		target.Define(func(ctx *ops.Context) *tensor.RawTensor {
			return b.sumTo(ctx.OutputGrad(0), shape)
		})
	}
	bld.Finalize(out)

	return out
}

// Sub performs element-wise subtraction and records the operation.
func (b *AutodiffBackend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sub(x, y)

	bld := NewBuilder(b.tape, "sub", x, y)
	if target := bld.Target(0); target != nil {
		shape := x.Shape().Clone()
		target.Define(func(ctx *ops.Context) *tensor.RawTensor {
			return b.sumTo(ctx.OutputGrad(0), shape)
		})
	}
	if target := bld.Target(1); target != nil {
		shape := y.Shape().Clone()
		target.Define(func(ctx *ops.Context) *tensor.RawTensor {
			return b.sumTo(b.Neg(ctx.OutputGrad(0)), shape)
		})
	}
	bld.Finalize(out)

	return out
}

// Mul performs element-wise multiplication and records the operation.
// Each input's gradient needs the other input, so both are retained.
func (b *AutodiffBackend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Mul(x, y)

	bld := NewBuilder(b.tape, "mul", x, y)
	if target := bld.Target(0); target != nil {
		other := bld.RetainInput(1)
		shape := x.Shape().Clone()
		target.Define(func(ctx *ops.Context) *tensor.RawTensor {
			return b.sumTo(b.Mul(ctx.OutputGrad(0), ctx.Retained(other)), shape)
		})
	}
	if target := bld.Target(1); target != nil {
		other := bld.RetainInput(0)
		shape := y.Shape().Clone()
		target.Define(func(ctx *ops.Context) *tensor.RawTensor {
			return b.sumTo(b.Mul(ctx.OutputGrad(0), ctx.Retained(other)), shape)
		})
	}
	bld.Finalize(out)

	return out
}

// Neg negates every element and records the operation.
func (b *AutodiffBackend[B]) Neg(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Neg(x)

	bld := NewBuilder(b.tape, "neg", x)
	if target := bld.Target(0); target != nil {
		target.Define(func(ctx *ops.Context) *tensor.RawTensor {
			return b.Neg(ctx.OutputGrad(0))
		})
	}
	bld.Finalize(out)

	return out
}

// Reciprocal delegates to the wrapped backend without recording. It only
// appears inside gradient computations, on arrays that carry no graph.
func (b *AutodiffBackend[B]) Reciprocal(x *tensor.RawTensor) *tensor.RawTensor {
	return b.inner.Reciprocal(x)
}

// Where delegates to the wrapped backend without recording.
func (b *AutodiffBackend[B]) Where(cond, x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.inner.Where(cond, x, y)
}

// Cast delegates to the wrapped backend without recording.
func (b *AutodiffBackend[B]) Cast(x *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	return b.inner.Cast(x, dtype)
}

// MatMul delegates the raw kernel to the wrapped backend. Differentiable
// matrix products go through Dot, which wraps this kernel in a recorded
// operation.
func (b *AutodiffBackend[B]) MatMul(x, y *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	return b.inner.MatMul(x, y, dtype)
}

// SymEig delegates the raw kernel to the wrapped backend. Differentiable
// eigendecomposition goes through Eigh.
func (b *AutodiffBackend[B]) SymEig(a *tensor.RawTensor, uplo string, wantVectors bool) (*tensor.RawTensor, *tensor.RawTensor) {
	return b.inner.SymEig(a, uplo, wantVectors)
}

// sumTo reduces g back to shape by summing broadcast axes: leading axes
// the broadcast introduced plus axes that were expanded from size 1.
func (b *AutodiffBackend[B]) sumTo(g *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	gShape := g.Shape()
	if gShape.Equal(shape) {
		return g
	}

	lead := len(gShape) - len(shape)
	axes := make([]int, 0, len(gShape))
	for i := 0; i < lead; i++ {
		axes = append(axes, i)
	}
	for i, dim := range shape {
		if dim == 1 && gShape[lead+i] != 1 {
			axes = append(axes, lead+i)
		}
	}
	if len(axes) == 0 {
		return b.Reshape(g, shape)
	}
	return b.Reshape(b.Sum(g, axes, true), shape)
}
