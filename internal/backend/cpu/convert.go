package cpu

import (
	"fmt"

	"github.com/snsnlou/chainer/internal/tensor"
)

// toFloat64 widens a numeric tensor's data to a float64 slice. Float64
// tensors alias their storage directly; other dtypes are copied.
func toFloat64(t *tensor.RawTensor) []float64 {
	switch t.DType() {
	case tensor.Float32:
		src := t.AsFloat32()
		dst := make([]float64, len(src))
		for i, v := range src {
			dst[i] = float64(v)
		}
		return dst
	case tensor.Float64:
		return t.AsFloat64()
	case tensor.Int32:
		src := t.AsInt32()
		dst := make([]float64, len(src))
		for i, v := range src {
			dst[i] = float64(v)
		}
		return dst
	case tensor.Int64:
		src := t.AsInt64()
		dst := make([]float64, len(src))
		for i, v := range src {
			dst[i] = float64(v)
		}
		return dst
	default:
		panic(fmt.Sprintf("unsupported dtype: %s", t.DType()))
	}
}

// fromFloat64 narrows a float64 slice into the tensor's storage. When the
// tensor is Float64 and src aliases its storage this is a no-op copy.
func fromFloat64(src []float64, t *tensor.RawTensor) {
	switch t.DType() {
	case tensor.Float32:
		dst := t.AsFloat32()
		for i, v := range src {
			dst[i] = float32(v)
		}
	case tensor.Float64:
		dst := t.AsFloat64()
		if len(dst) > 0 && &dst[0] == &src[0] {
			return
		}
		copy(dst, src)
	case tensor.Int32:
		dst := t.AsInt32()
		for i, v := range src {
			dst[i] = int32(v)
		}
	case tensor.Int64:
		dst := t.AsInt64()
		for i, v := range src {
			dst[i] = int64(v)
		}
	default:
		panic(fmt.Sprintf("unsupported dtype: %s", t.DType()))
	}
}

// broadcastIndex maps a flat index in outShape to the corresponding flat
// index in inShape under NumPy broadcasting rules.
func broadcastIndex(flatIdx int, outShape, inShape tensor.Shape) int {
	outStrides := outShape.ComputeStrides()
	indices := make([]int, len(outShape))

	temp := flatIdx
	for i := 0; i < len(outShape); i++ {
		indices[i] = temp / outStrides[i]
		temp %= outStrides[i]
	}

	inStrides := inShape.ComputeStrides()
	inIdx := 0

	offset := len(outShape) - len(inShape)
	for i := 0; i < len(inShape); i++ {
		outDimIdx := indices[offset+i]
		if inShape[i] == 1 {
			outDimIdx = 0
		}
		inIdx += outDimIdx * inStrides[i]
	}

	return inIdx
}
