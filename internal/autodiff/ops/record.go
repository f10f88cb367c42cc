// Package ops defines the operation record protocol for automatic
// differentiation.
//
// A Record captures one forward operation: its input and output arrays
// plus one gradient function per differentiable input. Gradient functions
// are closures defined at forward time; at backward time each one receives
// a Context giving it the output gradients and any arrays the operation
// retained.
//
// Retention is explicit: a gradient function that needs a forward-pass
// array captures a RetentionToken for it and resolves the token through
// the Context. This keeps the dependency between forward values and
// backward computation visible at the definition site.
package ops

import "github.com/snsnlou/chainer/internal/tensor"

// GradFunc computes the gradient for one input of a recorded operation.
// It may return nil when no gradient flows to that input.
type GradFunc func(ctx *Context) *tensor.RawTensor

// RetentionToken identifies an input or output array of a record so a
// gradient function can look it up later. Tokens are only valid with the
// record that issued them.
type RetentionToken struct {
	output bool
	index  int
}

// Record is one recorded differentiable operation in execution order on
// the tape.
type Record struct {
	name    string
	inputs  []*tensor.RawTensor
	outputs []*tensor.RawTensor
	gradFns []GradFunc // parallel to inputs; nil entries get no gradient
}

// NewRecord creates a record over the given inputs. Outputs are attached
// by SetOutputs once the forward computation produced them.
func NewRecord(name string, inputs []*tensor.RawTensor) *Record {
	return &Record{
		name:    name,
		inputs:  inputs,
		gradFns: make([]GradFunc, len(inputs)),
	}
}

// Name returns the operation name, e.g. "dot".
func (r *Record) Name() string {
	return r.name
}

// Inputs returns the operation's input arrays.
func (r *Record) Inputs() []*tensor.RawTensor {
	return r.inputs
}

// Outputs returns the operation's output arrays.
func (r *Record) Outputs() []*tensor.RawTensor {
	return r.outputs
}

// SetOutputs attaches the forward results to the record.
func (r *Record) SetOutputs(outputs []*tensor.RawTensor) {
	r.outputs = outputs
}

// DefineGrad installs the gradient function for input inputIdx.
func (r *Record) DefineGrad(inputIdx int, fn GradFunc) {
	r.gradFns[inputIdx] = fn
}

// GradFn returns the gradient function for input inputIdx, or nil if none
// was defined.
func (r *Record) GradFn(inputIdx int) GradFunc {
	return r.gradFns[inputIdx]
}

// HasGradFns reports whether any input has a gradient function. Records
// without one never reach the tape.
func (r *Record) HasGradFns() bool {
	for _, fn := range r.gradFns {
		if fn != nil {
			return true
		}
	}
	return false
}

// InputToken issues a retention token for input i.
func (r *Record) InputToken(i int) RetentionToken {
	_ = r.inputs[i]
	return RetentionToken{index: i}
}

// OutputToken issues a retention token for output i. Valid to call before
// the outputs are attached; resolution happens at backward time.
func (r *Record) OutputToken(i int) RetentionToken {
	return RetentionToken{output: true, index: i}
}

// Context is handed to gradient functions during the backward pass.
type Context struct {
	rec         *Record
	outputGrads []*tensor.RawTensor
}

// NewContext creates a backward context for rec. outputGrads is parallel
// to the record's outputs; entries are nil where no gradient arrived.
func NewContext(rec *Record, outputGrads []*tensor.RawTensor) *Context {
	return &Context{rec: rec, outputGrads: outputGrads}
}

// OutputGrad returns the gradient flowing into output i, or nil if none
// arrived. For multi-output operations callers must handle nil.
func (c *Context) OutputGrad(i int) *tensor.RawTensor {
	return c.outputGrads[i]
}

// Retained resolves a retention token to the array it refers to.
func (c *Context) Retained(tok RetentionToken) *tensor.RawTensor {
	if tok.output {
		return c.rec.outputs[tok.index]
	}
	return c.rec.inputs[tok.index]
}
