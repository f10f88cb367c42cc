package autodiff

import (
	"fmt"
	"math"

	"github.com/snsnlou/chainer/internal/autodiff/ops"
	"github.com/snsnlou/chainer/internal/tensor"
)

// Eigh computes the eigendecomposition of a symmetric matrix. Only the
// triangle selected by uplo ("U" or "L") is read. Eigenvalues w come
// back in ascending order with the matching eigenvectors as columns
// of v.
//
// The backward rule follows the standard eigen-perturbation formula
//
//	ga = v · (F ∘ (vᵀ·gv) + diag(gw)) · vᵀ
//
// with F[i,j] = 1/(w[j]−w[i]) off the diagonal and 0 on it. The rule is
// built from recorded operations, so it is itself differentiable.
//
// Repeated eigenvalues make F blow up: the gradient then contains
// infinities or NaNs. This is not guarded against; callers must not
// differentiate through Eigh at inputs with degenerate eigenvalues.
func (b *AutodiffBackend[B]) Eigh(a *tensor.RawTensor, uplo string) (*tensor.RawTensor, *tensor.RawTensor, error) {
	if err := checkSquareMatrix("eigh", a); err != nil {
		return nil, nil, err
	}

	var w, v *tensor.RawTensor
	func() {
		defer b.tape.NoGrad()()
		w, v = b.SymEig(a, uplo, true)
	}()

	bld := NewBuilder(b.tape, "eigh", a)
	if target := bld.Target(0); target != nil {
		aTok := bld.RetainInput(0)
		wTok := bld.RetainOutput(0)
		vTok := bld.RetainOutput(1)
		target.Define(func(ctx *ops.Context) *tensor.RawTensor {
			a := ctx.Retained(aTok)
			w := ctx.Retained(wTok)
			v := ctx.Retained(vTok)
			dtype := a.DType()
			dev := a.Device()
			n := a.Shape()[0]

			// Either output may have no incoming gradient; treat the
			// missing one as zeros.
			gw := ctx.OutputGrad(0)
			if gw == nil {
				gw = tensor.RawZeros(w.Shape(), dtype, dev)
			}
			gv := ctx.OutputGrad(1)
			if gv == nil {
				gv = tensor.RawZeros(v.Shape(), dtype, dev)
			}

			vt := b.Transpose(v)

			// F has zeros on the diagonal of the eigenvalue difference,
			// so the diagonal is filled with infinity first; its
			// reciprocal is then exactly zero. F depends only on w's
			// values, not on any gradient, hence the suppression scope.
			var f *tensor.RawTensor
			func() {
				defer b.tape.NoGrad()()
				diff := b.Sub(b.ExpandDims(w, 0), b.ExpandDims(w, 1))
				mask := tensor.RawEye(n, tensor.Bool, dev)
				inf := tensor.RawFull(tensor.Shape{n, n}, math.Inf(1), diff.DType(), dev)
				f = b.Reciprocal(b.Where(mask, inf, diff))
			}()

			inner := b.Add(b.Mul(f, b.mustDot(vt, gv, dtype)), b.Diag(gw))
			return b.mustDot(b.mustDot(v, inner, dtype), vt, dtype)
		})
	}
	bld.Finalize(w, v)

	return w, v, nil
}

// Eigvalsh computes the eigenvalues of a symmetric matrix in ascending
// order. No gradient rule is registered; differentiating through it
// yields no contribution for a.
func (b *AutodiffBackend[B]) Eigvalsh(a *tensor.RawTensor, uplo string) (*tensor.RawTensor, error) {
	if err := checkSquareMatrix("eigvalsh", a); err != nil {
		return nil, err
	}

	defer b.tape.NoGrad()()
	w, _ := b.SymEig(a, uplo, false)
	return w, nil
}

func checkSquareMatrix(name string, a *tensor.RawTensor) error {
	if a.NDim() != 2 {
		return fmt.Errorf("%s: expected a 2-dimensional array, got %d dimensions: %w", name, a.NDim(), tensor.ErrDimension)
	}
	if a.Shape()[0] != a.Shape()[1] {
		return fmt.Errorf("%s: matrix is not square: %v: %w", name, a.Shape(), tensor.ErrDimension)
	}
	return nil
}
