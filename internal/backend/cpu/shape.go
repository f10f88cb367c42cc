package cpu

import (
	"fmt"

	"github.com/snsnlou/chainer/internal/tensor"
)

func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if t.Shape().NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("reshape: cannot reshape %v into %v", t.Shape(), newShape))
	}
	result, err := tensor.NewRaw(newShape.Clone(), t.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	copy(result.Data(), t.Data())
	return result
}

// Transpose permutes the axes of t. With no axes given the order is
// fully reversed.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: got %d axes for %dD tensor", len(axes), ndim))
	}
	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim || seen[ax] {
			panic(fmt.Sprintf("transpose: invalid axes %v for shape %v", axes, shape))
		}
		seen[ax] = true
	}

	newShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		newShape[i] = shape[ax]
	}
	result, err := tensor.NewRaw(newShape, t.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("transpose: %v", err))
	}

	total := shape.NumElements()
	if total == 0 {
		return result
	}

	srcStrides := shape.ComputeStrides()
	dstStrides := newShape.ComputeStrides()
	elemSize := t.DType().Size()
	srcData := t.Data()
	dstData := result.Data()

	idx := make([]int, ndim)
	for flat := 0; flat < total; flat++ {
		rem := flat
		for d := 0; d < ndim; d++ {
			idx[d] = rem / dstStrides[d]
			rem %= dstStrides[d]
		}
		srcFlat := 0
		for d := 0; d < ndim; d++ {
			srcFlat += idx[d] * srcStrides[axes[d]]
		}
		copy(dstData[flat*elemSize:(flat+1)*elemSize], srcData[srcFlat*elemSize:(srcFlat+1)*elemSize])
	}
	return result
}

func (cpu *CPUBackend) ExpandDims(t *tensor.RawTensor, axis int) *tensor.RawTensor {
	shape := t.Shape()
	if axis < 0 {
		axis += len(shape) + 1
	}
	if axis < 0 || axis > len(shape) {
		panic(fmt.Sprintf("expanddims: axis %d out of range for shape %v", axis, shape))
	}
	newShape := make(tensor.Shape, 0, len(shape)+1)
	newShape = append(newShape, shape[:axis]...)
	newShape = append(newShape, 1)
	newShape = append(newShape, shape[axis:]...)
	return cpu.Reshape(t, newShape)
}

// Expand broadcasts t to the given shape. Each axis of t must either
// match the target or be 1; missing leading axes are treated as 1.
func (cpu *CPUBackend) Expand(t *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	srcShape := t.Shape()
	offset := len(shape) - len(srcShape)
	if offset < 0 {
		panic(fmt.Sprintf("expand: cannot expand %v to lower-rank %v", srcShape, shape))
	}
	for i, dim := range srcShape {
		if dim != shape[offset+i] && dim != 1 {
			panic(fmt.Sprintf("expand: cannot expand %v to %v", srcShape, shape))
		}
	}

	result, err := tensor.NewRaw(shape.Clone(), t.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("expand: %v", err))
	}

	total := shape.NumElements()
	if total == 0 {
		return result
	}

	dstStrides := shape.ComputeStrides()
	srcStrides := srcShape.ComputeStrides()
	elemSize := t.DType().Size()
	srcData := t.Data()
	dstData := result.Data()

	for flat := 0; flat < total; flat++ {
		rem := flat
		srcFlat := 0
		for d := 0; d < len(shape); d++ {
			coord := rem / dstStrides[d]
			rem %= dstStrides[d]
			if d >= offset && srcShape[d-offset] != 1 {
				srcFlat += coord * srcStrides[d-offset]
			}
		}
		copy(dstData[flat*elemSize:(flat+1)*elemSize], srcData[srcFlat*elemSize:(srcFlat+1)*elemSize])
	}
	return result
}
