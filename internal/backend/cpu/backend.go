// Package cpu implements the CPU backend. Dense numeric kernels delegate
// to gonum; elementwise and shape operations are pure Go.
package cpu

import (
	"fmt"

	"github.com/snsnlou/chainer/internal/parallel"
	"github.com/snsnlou/chainer/internal/tensor"
)

// Verify that CPUBackend implements the backend interface.
var _ tensor.Backend = (*CPUBackend)(nil)

// CPUBackend implements tensor operations on CPU.
type CPUBackend struct {
	device tensor.Device
	par    parallel.Config
}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
		par:    parallel.DefaultConfig(),
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.elementWise("add", a, b, func(x, y float64) float64 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.elementWise("sub", a, b, func(x, y float64) float64 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.elementWise("mul", a, b, func(x, y float64) float64 { return x * y })
}

// Neg negates every element.
func (cpu *CPUBackend) Neg(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary(x, func(v float64) float64 { return -v })
}

// Reciprocal computes the element-wise reciprocal. Reciprocals of
// infinities are exactly zero, which the eigendecomposition backward
// rule relies on.
func (cpu *CPUBackend) Reciprocal(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary(x, func(v float64) float64 { return 1 / v })
}

// Where selects elements from x where cond is true, else from y.
// cond, x and y broadcast against each other.
func (cpu *CPUBackend) Where(cond, x, y *tensor.RawTensor) *tensor.RawTensor {
	if x.DType() != y.DType() {
		panic(fmt.Sprintf("where: mismatched dtypes %s vs %s", x.DType(), y.DType()))
	}
	xyShape, _, err := tensor.BroadcastShapes(x.Shape(), y.Shape())
	if err != nil {
		panic(fmt.Sprintf("where: %v", err))
	}
	outShape, _, err := tensor.BroadcastShapes(cond.Shape(), xyShape)
	if err != nil {
		panic(fmt.Sprintf("where: %v", err))
	}

	result, err := tensor.NewRaw(outShape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("where: %v", err))
	}

	condData := cond.AsBool()
	xData := toFloat64(x)
	yData := toFloat64(y)
	out := make([]float64, outShape.NumElements())
	for i := range out {
		if condData[broadcastIndex(i, outShape, cond.Shape())] {
			out[i] = xData[broadcastIndex(i, outShape, x.Shape())]
		} else {
			out[i] = yData[broadcastIndex(i, outShape, y.Shape())]
		}
	}
	fromFloat64(out, result)
	return result
}

// Cast converts the tensor to a different numeric dtype.
func (cpu *CPUBackend) Cast(x *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	if x.DType() == dtype {
		return x.Clone()
	}
	result, err := tensor.NewRaw(x.Shape(), dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("cast: %v", err))
	}
	fromFloat64(toFloat64(x), result)
	return result
}

// elementWise applies a binary op with broadcasting. The result dtype is
// the promoted type of the operands.
func (cpu *CPUBackend) elementWise(name string, a, b *tensor.RawTensor, op func(float64, float64) float64) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	result, err := tensor.NewRaw(outShape, tensor.PromoteTypes(a.DType(), b.DType()), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", name, err))
	}

	aData := toFloat64(a)
	bData := toFloat64(b)
	out := make([]float64, outShape.NumElements())

	if !needsBroadcast {
		parallel.For(len(out), func(i int) {
			out[i] = op(aData[i], bData[i])
		}, cpu.par)
	} else {
		parallel.For(len(out), func(i int) {
			aIdx := broadcastIndex(i, outShape, a.Shape())
			bIdx := broadcastIndex(i, outShape, b.Shape())
			out[i] = op(aData[aIdx], bData[bIdx])
		}, cpu.par)
	}

	fromFloat64(out, result)
	return result
}

func (cpu *CPUBackend) unary(x *tensor.RawTensor, op func(float64) float64) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("unary: %v", err))
	}
	in := toFloat64(x)
	out := make([]float64, len(in))
	parallel.For(len(in), func(i int) {
		out[i] = op(in[i])
	}, cpu.par)
	fromFloat64(out, result)
	return result
}
