package autodiff

import (
	"github.com/snsnlou/chainer/internal/autodiff/ops"
	"github.com/snsnlou/chainer/internal/tensor"
)

// Grads maps arrays to their accumulated gradients.
type Grads map[*tensor.RawTensor]*tensor.RawTensor

// GradientTape records operations during the forward pass and computes
// gradients during the backward pass using reverse-mode automatic
// differentiation.
//
// Usage:
//
//	tape := NewGradientTape()
//	tape.StartRecording()
//	// ... perform operations ...
//	grads := tape.Backward(Grads{out: seed}, backend)
type GradientTape struct {
	records     []*ops.Record // Recorded operations (in execution order)
	recording   bool          // Whether tape is currently recording
	noGradDepth int           // Nesting depth of gradient suppression scopes
}

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return &GradientTape{
		records:   make([]*ops.Record, 0, 64), // Pre-allocate for common case
		recording: false,
	}
}

// StartRecording enables operation recording.
func (t *GradientTape) StartRecording() {
	t.recording = true
}

// StopRecording disables operation recording.
func (t *GradientTape) StopRecording() {
	t.recording = false
}

// IsRecording returns true if the tape is currently recording operations
// and no gradient suppression scope is active.
func (t *GradientTape) IsRecording() bool {
	return t.recording && t.noGradDepth == 0
}

// NoGrad opens a gradient suppression scope and returns the function that
// closes it. Scopes nest; recording resumes only when every scope has
// been closed.
//
//	defer tape.NoGrad()()
func (t *GradientTape) NoGrad() func() {
	t.noGradDepth++
	return func() {
		t.noGradDepth--
	}
}

// Record adds an operation record to the tape.
// Only records if the tape is currently recording.
func (t *GradientTape) Record(rec *ops.Record) {
	if t.IsRecording() {
		t.records = append(t.records, rec)
	}
}

// Clear resets the tape, removing all recorded operations.
// Recording state is preserved.
func (t *GradientTape) Clear() {
	t.records = t.records[:0]
}

// NumOps returns the number of recorded operations.
func (t *GradientTape) NumOps() int {
	return len(t.records)
}

// Backward computes gradients for all inputs by walking the tape in
// reverse from the seed gradients.
//
// Algorithm:
//  1. Start from the caller's seed gradients (typically ones for a loss)
//  2. Walk records in reverse order
//  3. Invoke each record's per-input gradient functions
//  4. Accumulate gradients when the same array feeds multiple operations
//
// Gradient computation itself is not recorded; use BackwardGraph for
// higher-order derivatives.
func (t *GradientTape) Backward(seeds Grads, backend tensor.Backend) Grads {
	return t.backward(seeds, backend, false)
}

// BackwardGraph is Backward with gradient computation itself recorded on
// the tape, so the resulting gradients can be differentiated again.
func (t *GradientTape) BackwardGraph(seeds Grads, backend tensor.Backend) Grads {
	return t.backward(seeds, backend, true)
}

func (t *GradientTape) backward(seeds Grads, backend tensor.Backend, createGraph bool) Grads {
	grads := make(Grads, len(seeds))
	for out, g := range seeds {
		grads[out] = g
	}

	if !createGraph {
		defer t.NoGrad()()
	}

	// Snapshot the length: with createGraph the gradient functions append
	// new records, which belong to the next traversal.
	n := len(t.records)
	for i := n - 1; i >= 0; i-- {
		rec := t.records[i]

		outputGrads, hasAnyGrad := t.collectOutputGrads(rec.Outputs(), grads)
		if !hasAnyGrad {
			continue
		}
		ctx := ops.NewContext(rec, outputGrads)

		for j, input := range rec.Inputs() {
			fn := rec.GradFn(j)
			if fn == nil {
				continue
			}
			g := fn(ctx)
			if g == nil {
				continue
			}
			if existing, ok := grads[input]; ok {
				grads[input] = backend.Add(existing, g)
			} else {
				grads[input] = g
			}
		}
	}

	return grads
}

// collectOutputGrads gathers the gradients that arrived for a record's
// outputs. Entries stay nil where no gradient flowed; the second result
// is false when none did.
func (t *GradientTape) collectOutputGrads(outputs []*tensor.RawTensor, grads Grads) ([]*tensor.RawTensor, bool) {
	outputGrads := make([]*tensor.RawTensor, len(outputs))
	hasAnyGrad := false
	for j, out := range outputs {
		if g, ok := grads[out]; ok {
			outputGrads[j] = g
			hasAnyGrad = true
		}
	}
	return outputGrads, hasAnyGrad
}
