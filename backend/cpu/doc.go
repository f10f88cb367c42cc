// Copyright 2025 ChainerGo Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the CPU backend for array operations.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go elementwise and shape kernels
//   - Dense matrix multiplication and symmetric eigendecomposition via
//     gonum
//   - Float32 and Float64 support (Float32 is widened to Float64 at the
//     kernel boundary)
//   - NumPy-compatible broadcasting
//
// # Basic Usage
//
//	backend := cpu.New()
//	x := tensor.Zeros[float64](tensor.Shape{2, 3}, backend)
//
// Wrap the backend with autodiff.New for gradient tracking.
//
// # Thread Safety
//
// The CPU backend is safe for concurrent use. Each operation allocates
// its own result and does not share mutable state.
package cpu
