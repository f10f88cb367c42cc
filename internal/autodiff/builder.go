package autodiff

import (
	"github.com/snsnlou/chainer/internal/autodiff/ops"
	"github.com/snsnlou/chainer/internal/tensor"
)

// Builder assembles the operation record for one forward computation.
//
// The protocol mirrors how recorded operations are written:
//
//	bld := NewBuilder(tape, "dot", x, y)
//	if target := bld.Target(0); target != nil {
//		tok := bld.RetainInput(1)
//		target.Define(func(ctx *ops.Context) *tensor.RawTensor { ... })
//	}
//	bld.Finalize(out)
//
// Target(i) is nil unless the tape is recording and input i wants a
// gradient, so gradient closures are only built when they can ever run.
// Finalize attaches the outputs and pushes the record onto the tape; a
// record with no gradient functions is discarded and the outputs stay
// unmarked.
type Builder struct {
	tape      *GradientTape
	rec       *ops.Record
	recording bool
}

// NewBuilder starts a record named name over the given inputs. The
// recording decision is taken here, before any gradient function is
// defined.
func NewBuilder(tape *GradientTape, name string, inputs ...*tensor.RawTensor) *Builder {
	return &Builder{
		tape:      tape,
		rec:       ops.NewRecord(name, inputs),
		recording: tape.IsRecording(),
	}
}

// Target is a handle for defining the gradient of one input.
type Target struct {
	builder *Builder
	index   int
}

// Target returns the gradient-definition handle for input i, or nil when
// no gradient will ever be requested for it.
func (b *Builder) Target(i int) *Target {
	if !b.recording || !b.rec.Inputs()[i].RequiresGrad() {
		return nil
	}
	return &Target{builder: b, index: i}
}

// Define installs fn as the gradient function for the target's input.
func (t *Target) Define(fn ops.GradFunc) {
	t.builder.rec.DefineGrad(t.index, fn)
}

// RetainInput marks input i as needed by a gradient function and returns
// the token to resolve it with at backward time.
func (b *Builder) RetainInput(i int) ops.RetentionToken {
	return b.rec.InputToken(i)
}

// RetainOutput marks output i as needed by a gradient function. May be
// called before Finalize attaches the outputs.
func (b *Builder) RetainOutput(i int) ops.RetentionToken {
	return b.rec.OutputToken(i)
}

// Finalize attaches the forward results and, if any gradient function was
// defined, marks the outputs as gradient-bearing and records the
// operation on the tape.
func (b *Builder) Finalize(outputs ...*tensor.RawTensor) {
	b.rec.SetOutputs(outputs)
	if !b.recording || !b.rec.HasGradFns() {
		return
	}
	for _, out := range outputs {
		out.SetRequiresGrad(true)
	}
	b.tape.Record(b.rec)
}
