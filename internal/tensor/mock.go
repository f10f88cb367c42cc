package tensor

import (
	"fmt"
	"math"
)

// Verify that MockBackend implements Backend.
var _ Backend = (*MockBackend)(nil)

// MockBackend is a simple backend for testing.
// It implements all operations naively for correctness verification and
// counts kernel invocations so tests can assert which paths reached them.
type MockBackend struct {
	MatMulCalls int
	SymEigCalls int
}

// NewMockBackend creates a new MockBackend.
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// Name returns the backend name.
func (m *MockBackend) Name() string {
	return "mock"
}

// Device returns the device type.
func (m *MockBackend) Device() Device {
	return CPU
}

// Add performs element-wise addition with broadcasting.
func (m *MockBackend) Add(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (m *MockBackend) Sub(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (m *MockBackend) Mul(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x * y })
}

// Neg negates every element.
func (m *MockBackend) Neg(x *RawTensor) *RawTensor {
	return m.unary(x, func(v float64) float64 { return -v })
}

// Reciprocal computes the element-wise reciprocal.
func (m *MockBackend) Reciprocal(x *RawTensor) *RawTensor {
	return m.unary(x, func(v float64) float64 { return 1 / v })
}

// Where selects elements from x where cond is true, else from y.
func (m *MockBackend) Where(cond, x, y *RawTensor) *RawTensor {
	if x.DType() != y.DType() {
		panic(fmt.Sprintf("where: mismatched dtypes %s vs %s", x.DType(), y.DType()))
	}
	xyShape, _, err := BroadcastShapes(x.Shape(), y.Shape())
	if err != nil {
		panic(err)
	}
	outShape, _, err := BroadcastShapes(cond.Shape(), xyShape)
	if err != nil {
		panic(err)
	}
	result, err := NewRaw(outShape, x.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	condData := cond.AsBool()
	xData := m.toFloat64Slice(x)
	yData := m.toFloat64Slice(y)
	resultData := make([]float64, outShape.NumElements())
	for i := range resultData {
		if condData[m.broadcastIndex(i, outShape, cond.Shape())] {
			resultData[i] = xData[m.broadcastIndex(i, outShape, x.Shape())]
		} else {
			resultData[i] = yData[m.broadcastIndex(i, outShape, y.Shape())]
		}
	}
	m.fromFloat64Slice(resultData, result)
	return result
}

// MatMul performs a naive 2-D matrix product.
func (m *MockBackend) MatMul(a, b *RawTensor, dtype DataType) *RawTensor {
	m.MatMulCalls++

	aShape := a.Shape()
	bShape := b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: expected 2D operands, got %dD and %dD", len(aShape), len(bShape)))
	}
	if aShape[1] != bShape[0] {
		panic(fmt.Sprintf("matmul: incompatible shapes %v x %v", aShape, bShape))
	}

	mm, k, n := aShape[0], aShape[1], bShape[1]
	result, err := NewRaw(Shape{mm, n}, dtype, m.Device())
	if err != nil {
		panic(err)
	}

	aData := m.toFloat64Slice(a)
	bData := m.toFloat64Slice(b)
	resultData := make([]float64, mm*n)
	for i := 0; i < mm; i++ {
		for j := 0; j < n; j++ {
			sum := 0.0
			for kk := 0; kk < k; kk++ {
				sum += aData[i*k+kk] * bData[kk*n+j]
			}
			resultData[i*n+j] = sum
		}
	}
	m.fromFloat64Slice(resultData, result)
	return result
}

// SymEig solves the symmetric eigenproblem with cyclic Jacobi rotations.
// Slow but dependency-free, which keeps the mock self-contained.
func (m *MockBackend) SymEig(a *RawTensor, uplo string, wantVectors bool) (*RawTensor, *RawTensor) {
	m.SymEigCalls++

	shape := a.Shape()
	if len(shape) != 2 || shape[0] != shape[1] {
		panic(fmt.Sprintf("symeig: expected square 2D input, got %v", shape))
	}
	n := shape[0]
	src := m.toFloat64Slice(a)

	// Symmetrize from the selected triangle.
	mat := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var v float64
			switch uplo {
			case "U":
				v = src[i*n+j]
			case "L":
				v = src[j*n+i]
			default:
				panic(fmt.Sprintf("symeig: invalid uplo %q (want \"U\" or \"L\")", uplo))
			}
			mat[i*n+j] = v
			mat[j*n+i] = v
		}
	}

	vecs := make([]float64, n*n)
	for i := 0; i < n; i++ {
		vecs[i*n+i] = 1
	}

	for sweep := 0; sweep < 100; sweep++ {
		off := 0.0
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				off += mat[i*n+j] * mat[i*n+j]
			}
		}
		if off < 1e-24 {
			break
		}
		for p := 0; p < n; p++ {
			for q := p + 1; q < n; q++ {
				if math.Abs(mat[p*n+q]) < 1e-300 {
					continue
				}
				theta := (mat[q*n+q] - mat[p*n+p]) / (2 * mat[p*n+q])
				t := math.Copysign(1, theta) / (math.Abs(theta) + math.Sqrt(theta*theta+1))
				c := 1 / math.Sqrt(t*t+1)
				s := t * c
				for i := 0; i < n; i++ {
					mip, miq := mat[i*n+p], mat[i*n+q]
					mat[i*n+p] = c*mip - s*miq
					mat[i*n+q] = s*mip + c*miq
				}
				for i := 0; i < n; i++ {
					mpi, mqi := mat[p*n+i], mat[q*n+i]
					mat[p*n+i] = c*mpi - s*mqi
					mat[q*n+i] = s*mpi + c*mqi
				}
				for i := 0; i < n; i++ {
					vip, viq := vecs[i*n+p], vecs[i*n+q]
					vecs[i*n+p] = c*vip - s*viq
					vecs[i*n+q] = s*vip + c*viq
				}
			}
		}
	}

	// Sort eigenvalues (and columns) ascending.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if mat[order[j]*n+order[j]] < mat[order[i]*n+order[i]] {
				order[i], order[j] = order[j], order[i]
			}
		}
	}

	w, err := NewRaw(Shape{n}, a.DType(), m.Device())
	if err != nil {
		panic(err)
	}
	wData := make([]float64, n)
	for i, idx := range order {
		wData[i] = mat[idx*n+idx]
	}
	m.fromFloat64Slice(wData, w)

	if !wantVectors {
		return w, nil
	}

	v, err := NewRaw(Shape{n, n}, a.DType(), m.Device())
	if err != nil {
		panic(err)
	}
	vData := make([]float64, n*n)
	for j, idx := range order {
		for i := 0; i < n; i++ {
			vData[i*n+j] = vecs[i*n+idx]
		}
	}
	m.fromFloat64Slice(vData, v)
	return w, v
}

// Reshape changes tensor shape.
func (m *MockBackend) Reshape(t *RawTensor, newShape Shape) *RawTensor {
	if err := newShape.Validate(); err != nil {
		panic(err)
	}
	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("reshape: incompatible shapes %v -> %v", t.Shape(), newShape))
	}
	result, err := NewRaw(newShape, t.DType(), m.Device())
	if err != nil {
		panic(err)
	}
	copy(result.Data(), t.Data())
	return result
}

// Transpose permutes the tensor's dimensions. With no axes given, all
// dimensions are reversed.
func (m *MockBackend) Transpose(t *RawTensor, axes ...int) *RawTensor {
	shape := t.Shape()
	ndim := len(shape)
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: axes length %d != ndim %d", len(axes), ndim))
	}

	newShape := make(Shape, ndim)
	for i, ax := range axes {
		newShape[i] = shape[ax]
	}
	result, err := NewRaw(newShape, t.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	sz := t.DType().Size()
	srcStrides := shape.ComputeStrides()
	dstStrides := newShape.ComputeStrides()
	src, dst := t.Data(), result.Data()
	for i := 0; i < t.NumElements(); i++ {
		rem := i
		srcIdx := 0
		for d := 0; d < ndim; d++ {
			c := rem / dstStrides[d]
			rem %= dstStrides[d]
			srcIdx += c * srcStrides[axes[d]]
		}
		copy(dst[i*sz:(i+1)*sz], src[srcIdx*sz:(srcIdx+1)*sz])
	}
	return result
}

// ExpandDims inserts a dimension of size 1 at the given axis.
func (m *MockBackend) ExpandDims(t *RawTensor, axis int) *RawTensor {
	shape := t.Shape()
	if axis < 0 || axis > len(shape) {
		panic(fmt.Sprintf("expanddims: invalid axis %d for %dD tensor", axis, len(shape)))
	}
	newShape := make(Shape, 0, len(shape)+1)
	newShape = append(newShape, shape[:axis]...)
	newShape = append(newShape, 1)
	newShape = append(newShape, shape[axis:]...)
	return m.Reshape(t, newShape)
}

// Expand broadcasts the tensor to the given shape.
func (m *MockBackend) Expand(t *RawTensor, shape Shape) *RawTensor {
	result, err := NewRaw(shape, t.DType(), m.Device())
	if err != nil {
		panic(err)
	}
	sz := t.DType().Size()
	src, dst := t.Data(), result.Data()
	for i := 0; i < shape.NumElements(); i++ {
		srcIdx := m.broadcastIndex(i, shape, t.Shape())
		copy(dst[i*sz:(i+1)*sz], src[srcIdx*sz:(srcIdx+1)*sz])
	}
	return result
}

// Sum reduces over the given axes. Empty axes means a full reduction.
func (m *MockBackend) Sum(x *RawTensor, axes []int, keepDims bool) *RawTensor {
	shape := x.Shape()
	if len(axes) == 0 {
		axes = make([]int, len(shape))
		for i := range axes {
			axes[i] = i
		}
	}
	reduce := make([]bool, len(shape))
	for _, ax := range axes {
		if ax < 0 || ax >= len(shape) {
			panic(fmt.Sprintf("sum: invalid axis %d for %dD tensor", ax, len(shape)))
		}
		reduce[ax] = true
	}

	keepShape := shape.Clone()
	for i, r := range reduce {
		if r {
			keepShape[i] = 1
		}
	}
	outShape := keepShape
	if !keepDims {
		outShape = Shape{}
		for i, d := range shape {
			if !reduce[i] {
				outShape = append(outShape, d)
			}
		}
	}

	result, err := NewRaw(outShape, x.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	in := m.toFloat64Slice(x)
	acc := make([]float64, outShape.NumElements())
	inStrides := shape.ComputeStrides()
	keepStrides := keepShape.ComputeStrides()
	for i := range in {
		rem := i
		oi := 0
		for d := range shape {
			c := rem / inStrides[d]
			rem %= inStrides[d]
			if !reduce[d] {
				oi += c * keepStrides[d]
			}
		}
		acc[oi] += in[i]
	}
	m.fromFloat64Slice(acc, result)
	return result
}

// Diag embeds a vector into the diagonal of a square zero matrix.
func (m *MockBackend) Diag(v *RawTensor) *RawTensor {
	if len(v.Shape()) != 1 {
		panic(fmt.Sprintf("diag: expected 1D input, got %v", v.Shape()))
	}
	n := v.Shape()[0]
	result, err := NewRaw(Shape{n, n}, v.DType(), m.Device())
	if err != nil {
		panic(err)
	}
	in := m.toFloat64Slice(v)
	out := make([]float64, n*n)
	for i := 0; i < n; i++ {
		out[i*n+i] = in[i]
	}
	m.fromFloat64Slice(out, result)
	return result
}

// DiagPart extracts the diagonal of a square matrix.
func (m *MockBackend) DiagPart(x *RawTensor) *RawTensor {
	shape := x.Shape()
	if len(shape) != 2 || shape[0] != shape[1] {
		panic(fmt.Sprintf("diagpart: expected square 2D input, got %v", shape))
	}
	n := shape[0]
	result, err := NewRaw(Shape{n}, x.DType(), m.Device())
	if err != nil {
		panic(err)
	}
	in := m.toFloat64Slice(x)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = in[i*n+i]
	}
	m.fromFloat64Slice(out, result)
	return result
}

// Cast converts the tensor to a different numeric dtype.
func (m *MockBackend) Cast(x *RawTensor, dtype DataType) *RawTensor {
	if x.DType() == dtype {
		return x.Clone()
	}
	result, err := NewRaw(x.Shape(), dtype, m.Device())
	if err != nil {
		panic(err)
	}
	m.fromFloat64Slice(m.toFloat64Slice(x), result)
	return result
}

// elementWise performs element-wise operations with broadcasting.
func (m *MockBackend) elementWise(a, b *RawTensor, op func(float64, float64) float64) *RawTensor {
	outShape, _, err := BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(err)
	}

	result, err := NewRaw(outShape, PromoteTypes(a.DType(), b.DType()), m.Device())
	if err != nil {
		panic(err)
	}

	numElements := outShape.NumElements()
	aData := m.toFloat64Slice(a)
	bData := m.toFloat64Slice(b)
	resultData := make([]float64, numElements)

	for i := 0; i < numElements; i++ {
		aIdx := m.broadcastIndex(i, outShape, a.Shape())
		bIdx := m.broadcastIndex(i, outShape, b.Shape())
		resultData[i] = op(aData[aIdx], bData[bIdx])
	}

	m.fromFloat64Slice(resultData, result)
	return result
}

func (m *MockBackend) unary(x *RawTensor, op func(float64) float64) *RawTensor {
	result, err := NewRaw(x.Shape(), x.DType(), m.Device())
	if err != nil {
		panic(err)
	}
	in := m.toFloat64Slice(x)
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = op(v)
	}
	m.fromFloat64Slice(out, result)
	return result
}

func (m *MockBackend) toFloat64Slice(t *RawTensor) []float64 {
	switch t.DType() {
	case Float32:
		src := t.AsFloat32()
		dst := make([]float64, len(src))
		for i, v := range src {
			dst[i] = float64(v)
		}
		return dst
	case Float64:
		return t.AsFloat64()
	case Int32:
		src := t.AsInt32()
		dst := make([]float64, len(src))
		for i, v := range src {
			dst[i] = float64(v)
		}
		return dst
	case Int64:
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

func (m *MockBackend) fromFloat64Slice(src []float64, t *RawTensor) {
	switch t.DType() {
	case Float32:
		dst := t.AsFloat32()
		for i, v := range src {
			dst[i] = float32(v)
		}
	case Float64:
		copy(t.AsFloat64(), src)
	case Int32:
		dst := t.AsInt32()
		for i, v := range src {
			dst[i] = int32(v)
		}
	case Int64:
		dst := t.AsInt64()
		for i, v := range src {
			dst[i] = int64(v)
		}
	}
}

func (m *MockBackend) broadcastIndex(flatIdx int, outShape, inShape Shape) int {
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
