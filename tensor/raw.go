// Copyright 2025 ChainerGo Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/snsnlou/chainer/internal/tensor"

// RawTensor is the low-level array handle: shape, dtype, device and a
// shared reference-counted buffer. Copies are cheap view-handles.
type RawTensor = tensor.RawTensor

// RawZeros creates a zero-filled raw tensor.
func RawZeros(shape Shape, dtype DataType, device Device) *RawTensor {
	return tensor.RawZeros(shape, dtype, device)
}

// RawOnes creates a one-filled raw tensor.
func RawOnes(shape Shape, dtype DataType, device Device) *RawTensor {
	return tensor.RawOnes(shape, dtype, device)
}

// RawFull creates a raw tensor filled with value converted to dtype.
func RawFull(shape Shape, value float64, dtype DataType, device Device) *RawTensor {
	return tensor.RawFull(shape, value, dtype, device)
}

// RawEye creates an identity matrix of size n.
func RawEye(n int, dtype DataType, device Device) *RawTensor {
	return tensor.RawEye(n, dtype, device)
}
