package cpu

import (
	"fmt"

	"github.com/snsnlou/chainer/internal/tensor"
)

// Sum reduces x over the given axes. With no axes all elements are
// summed. keepDims keeps the reduced axes as size-1 dimensions.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor, axes []int, keepDims bool) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = i
		}
	}
	reduce := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 {
			ax += ndim
		}
		if ax < 0 || ax >= ndim {
			panic(fmt.Sprintf("sum: axis %d out of range for shape %v", ax, shape))
		}
		if reduce[ax] {
			panic(fmt.Sprintf("sum: duplicate axis %d", ax))
		}
		reduce[ax] = true
	}

	// keepShape has the reduced axes collapsed to 1; the final shape
	// drops them entirely unless keepDims is set.
	keepShape := make(tensor.Shape, ndim)
	outShape := make(tensor.Shape, 0, ndim)
	for d := 0; d < ndim; d++ {
		if reduce[d] {
			keepShape[d] = 1
			if keepDims {
				outShape = append(outShape, 1)
			}
		} else {
			keepShape[d] = shape[d]
			outShape = append(outShape, shape[d])
		}
	}

	result, err := tensor.NewRaw(outShape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("sum: %v", err))
	}
	if shape.NumElements() == 0 {
		return result
	}

	src := toFloat64(x)
	acc := make([]float64, keepShape.NumElements())

	srcStrides := shape.ComputeStrides()
	keepStrides := keepShape.ComputeStrides()
	for flat := range src {
		rem := flat
		dstFlat := 0
		for d := 0; d < ndim; d++ {
			coord := rem / srcStrides[d]
			rem %= srcStrides[d]
			if !reduce[d] {
				dstFlat += coord * keepStrides[d]
			}
		}
		acc[dstFlat] += src[flat]
	}
	fromFloat64(acc, result)
	return result
}

// Diag builds a square matrix with v on the main diagonal.
func (cpu *CPUBackend) Diag(v *tensor.RawTensor) *tensor.RawTensor {
	shape := v.Shape()
	if len(shape) != 1 {
		panic(fmt.Sprintf("diag: expected 1D input, got %v", shape))
	}
	n := shape[0]
	result, err := tensor.NewRaw(tensor.Shape{n, n}, v.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("diag: %v", err))
	}
	elemSize := v.DType().Size()
	src := v.Data()
	dst := result.Data()
	for i := 0; i < n; i++ {
		copy(dst[(i*n+i)*elemSize:(i*n+i+1)*elemSize], src[i*elemSize:(i+1)*elemSize])
	}
	return result
}

// DiagPart extracts the main diagonal of a square matrix.
func (cpu *CPUBackend) DiagPart(m *tensor.RawTensor) *tensor.RawTensor {
	shape := m.Shape()
	if len(shape) != 2 || shape[0] != shape[1] {
		panic(fmt.Sprintf("diagpart: expected square 2D input, got %v", shape))
	}
	n := shape[0]
	result, err := tensor.NewRaw(tensor.Shape{n}, m.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("diagpart: %v", err))
	}
	elemSize := m.DType().Size()
	src := m.Data()
	dst := result.Data()
	for i := 0; i < n; i++ {
		copy(dst[i*elemSize:(i+1)*elemSize], src[(i*n+i)*elemSize:(i*n+i+1)*elemSize])
	}
	return result
}
