package autodiff_test

import (
	"math"
	"testing"

	"github.com/snsnlou/chainer/internal/autodiff"
	"github.com/snsnlou/chainer/internal/backend/cpu"
	"github.com/snsnlou/chainer/internal/tensor"
)

// sumAll reduces every element of a float64 tensor to one scalar, the
// objective for the finite-difference checks below.
func sumAll(t *tensor.RawTensor) float64 {
	total := 0.0
	for _, v := range t.AsFloat64() {
		total += v
	}
	return total
}

// dotObjective recomputes sum(Dot(a, b)) without any recording.
func dotObjective(t *testing.T, aData, bData []float64, aShape, bShape tensor.Shape) float64 {
	t.Helper()
	backend := autodiff.New(cpu.New())
	a := rawFromValues(t, aData, aShape)
	b := rawFromValues(t, bData, bShape)
	out, err := backend.Dot(a, b)
	if err != nil {
		t.Fatalf("Dot failed: %v", err)
	}
	return sumAll(out)
}

func TestDotGradient_FiniteDifference(t *testing.T) {
	aShape := tensor.Shape{2, 3}
	bShape := tensor.Shape{3, 4}
	aData := []float64{0.3, -1.2, 0.8, 2.1, -0.5, 1.7}
	bData := []float64{
		0.9, -0.4, 1.1, 0.2,
		-1.3, 0.6, 0.7, -0.8,
		0.5, 1.4, -0.9, 0.3,
	}

	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()

	a := rawFromValues(t, aData, aShape)
	a.SetRequiresGrad(true)
	b := rawFromValues(t, bData, bShape)
	b.SetRequiresGrad(true)

	out, err := backend.Dot(a, b)
	if err != nil {
		t.Fatalf("Dot failed: %v", err)
	}
	seed := tensor.RawOnes(out.Shape(), tensor.Float64, tensor.CPU)
	grads := tape.Backward(autodiff.Grads{out: seed}, backend)

	const eps = 1e-6
	ga := grads[a].AsFloat64()
	for i := range aData {
		plus := append([]float64(nil), aData...)
		minus := append([]float64(nil), aData...)
		plus[i] += eps
		minus[i] -= eps
		numerical := (dotObjective(t, plus, bData, aShape, bShape) - dotObjective(t, minus, bData, aShape, bShape)) / (2 * eps)
		if math.Abs(ga[i]-numerical) > 1e-4 {
			t.Errorf("ga[%d] = %v, numerical %v", i, ga[i], numerical)
		}
	}

	gb := grads[b].AsFloat64()
	for i := range bData {
		plus := append([]float64(nil), bData...)
		minus := append([]float64(nil), bData...)
		plus[i] += eps
		minus[i] -= eps
		numerical := (dotObjective(t, aData, plus, aShape, bShape) - dotObjective(t, aData, minus, aShape, bShape)) / (2 * eps)
		if math.Abs(gb[i]-numerical) > 1e-4 {
			t.Errorf("gb[%d] = %v, numerical %v", i, gb[i], numerical)
		}
	}
}

func TestBatchedDotGradient_FiniteDifference(t *testing.T) {
	aShape := tensor.Shape{2, 3}
	bShape := tensor.Shape{4, 3, 5}
	aData := make([]float64, aShape.NumElements())
	bData := make([]float64, bShape.NumElements())
	for i := range aData {
		aData[i] = 0.3*float64(i) - 0.8
	}
	for i := range bData {
		bData[i] = 0.1*float64(i%7) - 0.25
	}

	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()

	a := rawFromValues(t, aData, aShape)
	a.SetRequiresGrad(true)
	b := rawFromValues(t, bData, bShape)
	b.SetRequiresGrad(true)

	out, err := backend.Dot(a, b)
	if err != nil {
		t.Fatalf("Dot failed: %v", err)
	}
	seed := tensor.RawOnes(out.Shape(), tensor.Float64, tensor.CPU)
	grads := tape.Backward(autodiff.Grads{out: seed}, backend)

	const eps = 1e-6
	ga := grads[a].AsFloat64()
	for i := range aData {
		plus := append([]float64(nil), aData...)
		minus := append([]float64(nil), aData...)
		plus[i] += eps
		minus[i] -= eps
		numerical := (dotObjective(t, plus, bData, aShape, bShape) - dotObjective(t, minus, bData, aShape, bShape)) / (2 * eps)
		if math.Abs(ga[i]-numerical) > 1e-4 {
			t.Errorf("ga[%d] = %v, numerical %v", i, ga[i], numerical)
		}
	}

	gb := grads[b].AsFloat64()
	for i := range bData {
		plus := append([]float64(nil), bData...)
		minus := append([]float64(nil), bData...)
		plus[i] += eps
		minus[i] -= eps
		numerical := (dotObjective(t, aData, plus, aShape, bShape) - dotObjective(t, aData, minus, aShape, bShape)) / (2 * eps)
		if math.Abs(gb[i]-numerical) > 1e-4 {
			t.Errorf("gb[%d] = %v, numerical %v", i, gb[i], numerical)
		}
	}
}

// eighObjective recomputes the weighted eigenvalue sum Σ gwᵢ·wᵢ for a
// matrix stored row-major, reading the upper triangle.
func eighObjective(data, gw []float64, n int) float64 {
	backend := cpu.New()
	raw, err := tensor.NewRaw(tensor.Shape{n, n}, tensor.Float64, tensor.CPU)
	if err != nil {
		panic(err)
	}
	copy(raw.AsFloat64(), data)
	w, _ := backend.SymEig(raw, "U", false)
	total := 0.0
	for i, v := range w.AsFloat64() {
		total += gw[i] * v
	}
	return total
}

func TestEighGradient_FiniteDifference(t *testing.T) {
	n := 4
	data := []float64{
		5, 2, 1, 0,
		2, 4, 0.5, 0.3,
		1, 0.5, 3, 0.1,
		0, 0.3, 0.1, 1,
	}
	gw := []float64{1, -0.5, 2, 0.7}

	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()

	a := rawFromValues(t, data, tensor.Shape{4, 4})
	a.SetRequiresGrad(true)

	w, _, err := backend.Eigh(a, "U")
	if err != nil {
		t.Fatalf("Eigh failed: %v", err)
	}
	seed := rawFromValues(t, gw, tensor.Shape{4})
	grads := tape.Backward(autodiff.Grads{w: seed}, backend)

	ga := grads[a].AsFloat64()

	// Only the upper triangle is read, so perturbing entry (r,c), r<=c,
	// perturbs both symmetric entries of the effective matrix. The
	// analytic counterpart is ga[r][c]+ga[c][r] off the diagonal.
	const eps = 1e-6
	for r := 0; r < n; r++ {
		for c := r; c < n; c++ {
			plus := append([]float64(nil), data...)
			minus := append([]float64(nil), data...)
			plus[r*n+c] += eps
			minus[r*n+c] -= eps
			numerical := (eighObjective(plus, gw, n) - eighObjective(minus, gw, n)) / (2 * eps)

			analytic := ga[r*n+c]
			if r != c {
				analytic += ga[c*n+r]
			}
			if math.Abs(analytic-numerical) > 1e-4 {
				t.Errorf("ga upper (%d,%d): analytic %v, numerical %v", r, c, analytic, numerical)
			}
		}
	}
}

// eighVectorObjective recomputes Σⱼ cⱼ·v[0,j]² for the eigenvectors of a
// matrix stored row-major, reading the upper triangle. Squaring makes the
// objective invariant under the solver's per-column sign choice.
func eighVectorObjective(data, colWeights []float64, n int) float64 {
	backend := cpu.New()
	raw, err := tensor.NewRaw(tensor.Shape{n, n}, tensor.Float64, tensor.CPU)
	if err != nil {
		panic(err)
	}
	copy(raw.AsFloat64(), data)
	_, v := backend.SymEig(raw, "U", true)
	vd := v.AsFloat64()
	total := 0.0
	for j := 0; j < n; j++ {
		total += colWeights[j] * vd[j] * vd[j]
	}
	return total
}

func TestEighVectorGradient_FiniteDifference(t *testing.T) {
	n := 4
	colWeights := []float64{1.5, -0.7, 2.2, 0.4}

	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()

	a := rawFromValues(t, symmetric4, tensor.Shape{4, 4})
	a.SetRequiresGrad(true)

	_, v, err := backend.Eigh(a, "U")
	if err != nil {
		t.Fatalf("Eigh failed: %v", err)
	}

	// Seed with the objective's own gradient, 2·cⱼ·v[0,j] on the first
	// row and zeros elsewhere, so the eigenvector term of the backward
	// rule is the only contribution.
	vd := v.AsFloat64()
	seedData := make([]float64, n*n)
	for j := 0; j < n; j++ {
		seedData[j] = 2 * colWeights[j] * vd[j]
	}
	seed := rawFromValues(t, seedData, tensor.Shape{4, 4})
	grads := tape.Backward(autodiff.Grads{v: seed}, backend)

	ga := grads[a]
	if ga == nil {
		t.Fatal("missing gradient for a")
	}
	gad := ga.AsFloat64()

	const eps = 1e-6
	for r := 0; r < n; r++ {
		for c := r; c < n; c++ {
			plus := append([]float64(nil), symmetric4...)
			minus := append([]float64(nil), symmetric4...)
			plus[r*n+c] += eps
			minus[r*n+c] -= eps
			numerical := (eighVectorObjective(plus, colWeights, n) - eighVectorObjective(minus, colWeights, n)) / (2 * eps)

			analytic := gad[r*n+c]
			if r != c {
				analytic += gad[c*n+r]
			}
			if math.Abs(analytic-numerical) > 1e-4 {
				t.Errorf("ga upper (%d,%d): analytic %v, numerical %v", r, c, analytic, numerical)
			}
		}
	}
}
