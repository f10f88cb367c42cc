package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/snsnlou/chainer/internal/tensor"
)

// SymEig solves the symmetric eigenproblem for a square 2-D input via
// gonum's EigenSym. Only the triangle selected by uplo ("U" or "L") is
// read; the other half is ignored. Eigenvalues come back in ascending
// order; when wantVectors is set, the second result holds the
// corresponding eigenvectors as columns, otherwise it is nil.
//
// Factorization failure (non-convergence) panics, propagating the kernel
// error unchanged.
func (cpu *CPUBackend) SymEig(a *tensor.RawTensor, uplo string, wantVectors bool) (*tensor.RawTensor, *tensor.RawTensor) {
	shape := a.Shape()
	if len(shape) != 2 || shape[0] != shape[1] {
		panic(fmt.Sprintf("symeig: expected square 2D input, got %v", shape))
	}
	if !a.DType().IsFloat() {
		panic(fmt.Sprintf("symeig: unsupported dtype %s", a.DType()))
	}

	n := shape[0]
	src := toFloat64(a)

	// Symmetrize from the selected triangle; gonum's SymDense has no
	// uplo parameter of its own.
	data := make([]float64, n*n)
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
			data[i*n+j] = v
			data[j*n+i] = v
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(mat.NewSymDense(n, data), wantVectors) {
		panic("symeig: eigendecomposition failed to converge")
	}

	w, err := tensor.NewRaw(tensor.Shape{n}, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("symeig: %v", err))
	}
	fromFloat64(eig.Values(nil), w)

	if !wantVectors {
		return w, nil
	}

	var vd mat.Dense
	eig.VectorsTo(&vd)

	v, err := tensor.NewRaw(tensor.Shape{n, n}, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("symeig: %v", err))
	}
	fromFloat64(vd.RawMatrix().Data, v)
	return w, v
}
