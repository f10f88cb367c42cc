// Copyright 2025 ChainerGo Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/snsnlou/chainer/internal/backend/cpu"
	"github.com/snsnlou/chainer/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float64](tensor.Shape{2, 3}, backend)
func New() *Backend {
	return internalcpu.New()
}
