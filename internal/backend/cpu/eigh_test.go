package cpu

import (
	"math"
	"testing"

	"github.com/snsnlou/chainer/internal/tensor"
)

func TestSymEigKnown(t *testing.T) {
	backend := New()
	a := fromValues(t, []float64{2, 1, 1, 2}, tensor.Shape{2, 2})

	w, v := backend.SymEig(a, "U", true)
	wd := w.AsFloat64()
	if math.Abs(wd[0]-1) > 1e-12 || math.Abs(wd[1]-3) > 1e-12 {
		t.Fatalf("eigenvalues = %v, want [1 3]", wd)
	}
	if !v.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("vector shape = %v, want [2 2]", v.Shape())
	}
}

func TestSymEigAscendingOrder(t *testing.T) {
	backend := New()
	a := fromValues(t, []float64{
		4, 1, 0.5,
		1, 3, 0.2,
		0.5, 0.2, 1,
	}, tensor.Shape{3, 3})

	w, _ := backend.SymEig(a, "U", true)
	wd := w.AsFloat64()
	for i := 1; i < len(wd); i++ {
		if wd[i] < wd[i-1] {
			t.Fatalf("eigenvalues not ascending: %v", wd)
		}
	}
}

func TestSymEigReconstruction(t *testing.T) {
	backend := New()
	a := fromValues(t, []float64{
		5, 2, 1, 0,
		2, 4, 0.5, 0.3,
		1, 0.5, 3, 0.1,
		0, 0.3, 0.1, 2,
	}, tensor.Shape{4, 4})

	w, v := backend.SymEig(a, "U", true)
	wd := w.AsFloat64()
	vd := v.AsFloat64()
	ad := a.AsFloat64()
	n := 4

	// v·diag(w)·vᵀ must reproduce a.
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sum := 0.0
			for p := 0; p < n; p++ {
				sum += vd[i*n+p] * wd[p] * vd[j*n+p]
			}
			if math.Abs(sum-ad[i*n+j]) > 1e-10 {
				t.Errorf("reconstruction[%d][%d] = %v, want %v", i, j, sum, ad[i*n+j])
			}
		}
	}

	// Columns must be orthonormal: vᵀ·v = I.
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sum := 0.0
			for p := 0; p < n; p++ {
				sum += vd[p*n+i] * vd[p*n+j]
			}
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(sum-want) > 1e-10 {
				t.Errorf("vᵀv[%d][%d] = %v, want %v", i, j, sum, want)
			}
		}
	}
}

func TestSymEigUploSelectsTriangle(t *testing.T) {
	backend := New()
	// Garbage below the diagonal; only the upper triangle is meaningful.
	upper := fromValues(t, []float64{
		2, 1,
		999, 2,
	}, tensor.Shape{2, 2})
	// Garbage above the diagonal; only the lower triangle is meaningful.
	lower := fromValues(t, []float64{
		2, -777,
		1, 2,
	}, tensor.Shape{2, 2})

	wu, _ := backend.SymEig(upper, "U", true)
	wl, _ := backend.SymEig(lower, "L", true)

	for i := range wu.AsFloat64() {
		if math.Abs(wu.AsFloat64()[i]-wl.AsFloat64()[i]) > 1e-12 {
			t.Errorf("uplo results differ at %d: %v vs %v", i, wu.AsFloat64()[i], wl.AsFloat64()[i])
		}
	}
	if got := wu.AsFloat64(); math.Abs(got[0]-1) > 1e-12 || math.Abs(got[1]-3) > 1e-12 {
		t.Errorf("eigenvalues = %v, want [1 3]", got)
	}
}

func TestSymEigValuesOnly(t *testing.T) {
	backend := New()
	a := fromValues(t, []float64{2, 1, 1, 2}, tensor.Shape{2, 2})

	w, v := backend.SymEig(a, "L", false)
	if v != nil {
		t.Fatal("wantVectors=false should return nil vectors")
	}
	wd := w.AsFloat64()
	if math.Abs(wd[0]-1) > 1e-12 || math.Abs(wd[1]-3) > 1e-12 {
		t.Errorf("eigenvalues = %v, want [1 3]", wd)
	}
}

func TestSymEigFloat32(t *testing.T) {
	backend := New()
	a, _ := tensor.NewRaw(tensor.Shape{2, 2}, tensor.Float32, tensor.CPU)
	copy(a.AsFloat32(), []float32{2, 1, 1, 2})

	w, v := backend.SymEig(a, "U", true)
	if w.DType() != tensor.Float32 || v.DType() != tensor.Float32 {
		t.Fatalf("dtypes = %s, %s, want float32", w.DType(), v.DType())
	}
	wd := w.AsFloat32()
	if math.Abs(float64(wd[0])-1) > 1e-5 || math.Abs(float64(wd[1])-3) > 1e-5 {
		t.Errorf("eigenvalues = %v, want [1 3]", wd)
	}
}

func TestSymEigRejectsNonSquare(t *testing.T) {
	backend := New()
	a := fromValues(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	defer func() {
		if recover() == nil {
			t.Error("expected panic for non-square input")
		}
	}()
	backend.SymEig(a, "U", true)
}
