package autodiff_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snsnlou/chainer/internal/autodiff"
	"github.com/snsnlou/chainer/internal/backend/cpu"
	"github.com/snsnlou/chainer/internal/tensor"
)

func TestDot_VectorInner(t *testing.T) {
	backend := autodiff.New(cpu.New())

	a := rawFromValues(t, []float64{1, 2, 3}, tensor.Shape{3})
	b := rawFromValues(t, []float64{4, 5, 6}, tensor.Shape{3})

	out, err := backend.Dot(a, b)
	require.NoError(t, err)

	require.True(t, out.Shape().Equal(tensor.Shape{}))
	assert.InDelta(t, 32.0, out.AsFloat64()[0], 1e-12)
}

func TestDot_MatrixProduct(t *testing.T) {
	backend := autodiff.New(cpu.New())

	a := rawFromValues(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := rawFromValues(t, []float64{7, 8, 9, 10, 11, 12}, tensor.Shape{3, 2})

	out, err := backend.Dot(a, b)
	require.NoError(t, err)

	require.True(t, out.Shape().Equal(tensor.Shape{2, 2}))
	want := []float64{58, 64, 139, 154}
	for i, v := range out.AsFloat64() {
		assert.InDelta(t, want[i], v, 1e-12, "out[%d]", i)
	}
}

func TestDot_MatrixVector(t *testing.T) {
	backend := autodiff.New(cpu.New())

	a := rawFromValues(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	v := rawFromValues(t, []float64{1, 0, -1}, tensor.Shape{3})

	out, err := backend.Dot(a, v)
	require.NoError(t, err)

	require.True(t, out.Shape().Equal(tensor.Shape{2}))
	got := out.AsFloat64()
	assert.InDelta(t, -2.0, got[0], 1e-12)
	assert.InDelta(t, -2.0, got[1], 1e-12)
}

func TestDot_Batched(t *testing.T) {
	backend := autodiff.New(cpu.New())

	aData := make([]float64, 6)
	bData := make([]float64, 60)
	for i := range aData {
		aData[i] = float64(i + 1)
	}
	for i := range bData {
		bData[i] = float64(i) * 0.5
	}
	a := rawFromValues(t, aData, tensor.Shape{2, 3})
	b := rawFromValues(t, bData, tensor.Shape{4, 3, 5})

	out, err := backend.Dot(a, b)
	require.NoError(t, err)
	require.True(t, out.Shape().Equal(tensor.Shape{2, 4, 5}))

	// out[i][p][j] contracts a's last axis with b's second-to-last axis.
	got := out.AsFloat64()
	for i := 0; i < 2; i++ {
		for p := 0; p < 4; p++ {
			for j := 0; j < 5; j++ {
				want := 0.0
				for k := 0; k < 3; k++ {
					want += aData[i*3+k] * bData[p*15+k*5+j]
				}
				assert.InDelta(t, want, got[i*20+p*5+j], 1e-10, "out[%d][%d][%d]", i, p, j)
			}
		}
	}
}

func TestDot_ScalarOperand(t *testing.T) {
	backend := autodiff.New(cpu.New())

	s := rawFromValues(t, []float64{3}, tensor.Shape{})
	m := rawFromValues(t, []float64{1, 2, 3, 4}, tensor.Shape{2, 2})

	out, err := backend.Dot(s, m)
	require.NoError(t, err)

	require.True(t, out.Shape().Equal(tensor.Shape{2, 2}))
	want := []float64{3, 6, 9, 12}
	for i, v := range out.AsFloat64() {
		assert.InDelta(t, want[i], v, 1e-12)
	}
}

func TestDot_ZeroContraction(t *testing.T) {
	mock := tensor.NewMockBackend()
	backend := autodiff.New(mock)
	backend.Tape().StartRecording()

	a := rawFromValues(t, nil, tensor.Shape{2, 0})
	a.SetRequiresGrad(true)
	b := rawFromValues(t, nil, tensor.Shape{0, 3})

	out, err := backend.Dot(a, b)
	require.NoError(t, err)

	require.True(t, out.Shape().Equal(tensor.Shape{2, 3}))
	for i, v := range out.AsFloat64() {
		assert.Zero(t, v, "out[%d]", i)
	}
	assert.Equal(t, 0, mock.MatMulCalls, "kernel must not run for an empty contraction")
	assert.Equal(t, 0, backend.Tape().NumOps(), "no operation may be recorded for an empty contraction")
}

func TestDot_DimensionMismatch(t *testing.T) {
	mock := tensor.NewMockBackend()
	backend := autodiff.New(mock)

	a := rawFromValues(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := rawFromValues(t, []float64{1, 2, 3, 4}, tensor.Shape{2, 2})

	_, err := backend.Dot(a, b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tensor.ErrDimension))
	assert.Equal(t, 0, mock.MatMulCalls, "validation must fail before the kernel")
}

func TestDot_Gradient(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()

	aData := []float64{1, 2, 3, 4, 5, 6}
	bData := []float64{7, 8, 9, 10, 11, 12}
	a := rawFromValues(t, aData, tensor.Shape{2, 3})
	a.SetRequiresGrad(true)
	b := rawFromValues(t, bData, tensor.Shape{3, 2})
	b.SetRequiresGrad(true)

	out, err := backend.Dot(a, b)
	require.NoError(t, err)

	seed := rawFromValues(t, []float64{1, 1, 1, 1}, tensor.Shape{2, 2})
	grads := tape.Backward(autodiff.Grads{out: seed}, backend)

	ga := grads[a]
	require.NotNil(t, ga)
	require.True(t, ga.Shape().Equal(tensor.Shape{2, 3}))
	// d sum(a·b) / da = ones·bᵀ: row sums of b broadcast over a's rows.
	for i := 0; i < 2; i++ {
		for k := 0; k < 3; k++ {
			want := bData[k*2] + bData[k*2+1]
			assert.InDelta(t, want, ga.AsFloat64()[i*3+k], 1e-10, "ga[%d][%d]", i, k)
		}
	}

	gb := grads[b]
	require.NotNil(t, gb)
	require.True(t, gb.Shape().Equal(tensor.Shape{3, 2}))
	// d sum(a·b) / db = aᵀ·ones: column sums of a broadcast over b's columns.
	for k := 0; k < 3; k++ {
		for j := 0; j < 2; j++ {
			want := aData[k] + aData[3+k]
			assert.InDelta(t, want, gb.AsFloat64()[k*2+j], 1e-10, "gb[%d][%d]", k, j)
		}
	}
}

func TestDot_BatchedGradientShapes(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()

	a := tensor.Randn[float64](tensor.Shape{2, 3}, backend).RequireGrad()
	b := tensor.Randn[float64](tensor.Shape{4, 3, 5}, backend).RequireGrad()

	out, err := backend.Dot(a.Raw(), b.Raw())
	require.NoError(t, err)

	seed := tensor.RawOnes(out.Shape(), tensor.Float64, tensor.CPU)
	grads := tape.Backward(autodiff.Grads{out: seed}, backend)

	require.NotNil(t, grads[a.Raw()])
	require.NotNil(t, grads[b.Raw()])
	assert.True(t, grads[a.Raw()].Shape().Equal(tensor.Shape{2, 3}))
	assert.True(t, grads[b.Raw()].Shape().Equal(tensor.Shape{4, 3, 5}))
}

func TestDot_SecondOrder(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()

	aData := []float64{1, 2, 3}
	a := rawFromValues(t, aData, tensor.Shape{3})
	a.SetRequiresGrad(true)

	// y = a·a, dy/da = 2a, d²y/da² applied to s gives 2s.
	y, err := backend.Dot(a, a)
	require.NoError(t, err)

	seed := rawFromValues(t, []float64{1}, tensor.Shape{})
	grads := tape.BackwardGraph(autodiff.Grads{y: seed}, backend)

	ga := grads[a]
	require.NotNil(t, ga)
	for i, v := range ga.AsFloat64() {
		assert.InDelta(t, 2*aData[i], v, 1e-10, "ga[%d]", i)
	}
	require.True(t, ga.RequiresGrad(), "first-order gradient must stay differentiable")

	s := []float64{0.5, -1, 2}
	seed2 := rawFromValues(t, s, tensor.Shape{3})
	grads2 := tape.Backward(autodiff.Grads{ga: seed2}, backend)

	gga := grads2[a]
	require.NotNil(t, gga)
	for i, v := range gga.AsFloat64() {
		assert.InDelta(t, 2*s[i], v, 1e-10, "gga[%d]", i)
	}
}
