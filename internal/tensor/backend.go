package tensor

// Backend defines the interface that compute backends must implement.
// It covers the two opaque numeric kernels (MatMul, SymEig) together with
// the shape and elementwise collaborators the differentiable routines are
// built from. Kernels have no gradient awareness; recording any of these
// on a computation graph is the autodiff layer's responsibility.
type Backend interface {
	// Element-wise binary operations (NumPy-style broadcasting)
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor

	// Element-wise unary operations
	Neg(x *RawTensor) *RawTensor
	Reciprocal(x *RawTensor) *RawTensor

	// Where selects elements from x where cond is true, else from y.
	Where(cond, x, y *RawTensor) *RawTensor

	// MatMul computes the 2-D matrix product (m,k) x (k,n) -> (m,n),
	// writing the result with the requested dtype. Panics for
	// non-conforming shapes.
	MatMul(a, b *RawTensor, dtype DataType) *RawTensor

	// SymEig solves the symmetric eigenproblem for a 2-D square input,
	// reading only the triangle selected by uplo ("U" or "L"). It returns
	// eigenvalues in ascending order and, when wantVectors is set, the
	// matrix whose columns are the corresponding eigenvectors (nil
	// otherwise).
	SymEig(a *RawTensor, uplo string, wantVectors bool) (*RawTensor, *RawTensor)

	// Shape operations
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor
	ExpandDims(t *RawTensor, axis int) *RawTensor
	Expand(t *RawTensor, shape Shape) *RawTensor

	// Reduction and diagonal rearrangement
	Sum(x *RawTensor, axes []int, keepDims bool) *RawTensor
	Diag(v *RawTensor) *RawTensor
	DiagPart(m *RawTensor) *RawTensor

	// Type conversion
	Cast(x *RawTensor, dtype DataType) *RawTensor

	// Metadata
	Name() string
	Device() Device
}
