// Copyright 2025 ChainerGo Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/snsnlou/chainer/internal/tensor"

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for array operations.
//
// Implementations:
//   - backend/cpu: Pure Go elementwise and shape kernels; dense linear
//     algebra via gonum
//
// Decorator backends for additional functionality:
//   - autodiff: Automatic differentiation (wraps any backend)
type Backend = tensor.Backend
