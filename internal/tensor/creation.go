package tensor

import (
	"fmt"
	"math"
	"math/rand"
)

// Zeros creates a tensor filled with zeros.
//
// Example:
//
//	backend := cpu.New()
//	t := tensor.Zeros[float32](Shape{3, 4}, backend)
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	var dummy T
	dtype := inferDataType(dummy)

	raw, err := NewRaw(shape, dtype, b.Device())
	if err != nil {
		panic(err) // Shape validation should prevent this
	}

	// Data is already zero-initialized by make()
	return New[T, B](raw, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()

	var dummy T
	var one any
	switch any(dummy).(type) {
	case float32:
		one = float32(1)
	case float64:
		one = float64(1)
	case int32:
		one = int32(1)
	case int64:
		one = int64(1)
	case bool:
		one = true
	}

	for i := range data {
		data[i] = one.(T)
	}
	return t
}

// Full creates a tensor filled with a specific value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Randn creates a tensor with random values from a normal distribution
// (mean=0, std=1) using the Box-Muller transform. Float types only.
func Randn[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()

	var dummy T
	switch any(dummy).(type) {
	case float32:
		dataF32 := any(data).([]float32)
		for i := 0; i < len(dataF32); i += 2 {
			u1 := rand.Float64()
			u2 := rand.Float64()
			z0 := math.Sqrt(-2.0*math.Log(u1)) * math.Cos(2.0*math.Pi*u2)
			z1 := math.Sqrt(-2.0*math.Log(u1)) * math.Sin(2.0*math.Pi*u2)
			dataF32[i] = float32(z0)
			if i+1 < len(dataF32) {
				dataF32[i+1] = float32(z1)
			}
		}
	case float64:
		dataF64 := any(data).([]float64)
		for i := 0; i < len(dataF64); i += 2 {
			u1 := rand.Float64()
			u2 := rand.Float64()
			z0 := math.Sqrt(-2.0*math.Log(u1)) * math.Cos(2.0*math.Pi*u2)
			z1 := math.Sqrt(-2.0*math.Log(u1)) * math.Sin(2.0*math.Pi*u2)
			dataF64[i] = z0
			if i+1 < len(dataF64) {
				dataF64[i+1] = z1
			}
		}
	default:
		panic("Randn only supports float32 and float64 types")
	}
	return t
}

// Eye creates a 2D identity matrix.
func Eye[T DType, B Backend](n int, b B) *Tensor[T, B] {
	var dummy T
	raw := RawEye(n, inferDataType(dummy), b.Device())
	return New[T, B](raw, b)
}

// RawZeros creates a zero-filled RawTensor. It panics on an invalid shape;
// use NewRaw directly when the shape is not known to be valid.
func RawZeros(shape Shape, dtype DataType, device Device) *RawTensor {
	raw, err := NewRaw(shape, dtype, device)
	if err != nil {
		panic(fmt.Sprintf("zeros: %v", err))
	}
	return raw
}

// RawFull creates a RawTensor filled with the given value, converted to the
// requested numeric dtype.
func RawFull(shape Shape, value float64, dtype DataType, device Device) *RawTensor {
	raw := RawZeros(shape, dtype, device)
	switch dtype {
	case Float32:
		data := raw.AsFloat32()
		for i := range data {
			data[i] = float32(value)
		}
	case Float64:
		data := raw.AsFloat64()
		for i := range data {
			data[i] = value
		}
	case Int32:
		data := raw.AsInt32()
		for i := range data {
			data[i] = int32(value)
		}
	case Int64:
		data := raw.AsInt64()
		for i := range data {
			data[i] = int64(value)
		}
	default:
		panic(fmt.Sprintf("full: unsupported dtype %s", dtype))
	}
	return raw
}

// RawOnes creates a RawTensor filled with ones.
func RawOnes(shape Shape, dtype DataType, device Device) *RawTensor {
	return RawFull(shape, 1, dtype, device)
}

// RawEye creates an n x n RawTensor with ones (or true, for Bool) on the
// diagonal and zeros elsewhere.
func RawEye(n int, dtype DataType, device Device) *RawTensor {
	raw := RawZeros(Shape{n, n}, dtype, device)
	switch dtype {
	case Float32:
		data := raw.AsFloat32()
		for i := 0; i < n; i++ {
			data[i*n+i] = 1
		}
	case Float64:
		data := raw.AsFloat64()
		for i := 0; i < n; i++ {
			data[i*n+i] = 1
		}
	case Int32:
		data := raw.AsInt32()
		for i := 0; i < n; i++ {
			data[i*n+i] = 1
		}
	case Int64:
		data := raw.AsInt64()
		for i := 0; i < n; i++ {
			data[i*n+i] = 1
		}
	case Bool:
		data := raw.AsBool()
		for i := 0; i < n; i++ {
			data[i*n+i] = true
		}
	default:
		panic(fmt.Sprintf("eye: unsupported dtype %s", dtype))
	}
	return raw
}
