// Copyright 2025 ChainerGo Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides automatic differentiation capabilities.
//
// This package implements reverse-mode automatic differentiation
// (backpropagation) using a gradient tape. It wraps any backend to add
// autodiff capabilities, including the differentiable linear algebra
// routines Dot and Eigh.
//
// Example:
//
//	base := cpu.New()
//	backend := autodiff.New(base)
//	backend.Tape().StartRecording()
//
//	out, err := backend.Dot(x, y)
//	// ...
//	grads := backend.Tape().Backward(autodiff.Grads{out: seed}, backend)
package autodiff

import (
	"github.com/snsnlou/chainer/internal/autodiff"
	"github.com/snsnlou/chainer/internal/tensor"
)

// Backend is the autodiff-enabled backend.
type Backend[B tensor.Backend] = autodiff.AutodiffBackend[B]

// New creates a new autodiff backend wrapping the given backend.
//
// Example:
//
//	base := cpu.New()
//	backend := autodiff.New(base)
func New[B tensor.Backend](backend B) *Backend[B] {
	return autodiff.New(backend)
}

// GradientTape records operations for automatic differentiation.
type GradientTape = autodiff.GradientTape

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return autodiff.NewGradientTape()
}

// Grads maps arrays to their accumulated gradients.
type Grads = autodiff.Grads

// BackwardCapable interface for backends that support backpropagation.
type BackwardCapable = autodiff.BackwardCapable

// Backward computes gradients for a tensor, seeding with ones.
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B) Grads {
	return autodiff.Backward(t, backend)
}
