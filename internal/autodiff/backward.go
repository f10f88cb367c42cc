package autodiff

import (
	"fmt"

	"github.com/snsnlou/chainer/internal/tensor"
)

// BackwardCapable is an interface for backends that support backward pass.
// AutodiffBackend implements this interface.
type BackwardCapable interface {
	tensor.Backend
	// GetTape returns the gradient tape for backward computation.
	GetTape() *GradientTape
}

// GetTape returns the gradient tape (implements BackwardCapable interface).
func (b *AutodiffBackend[B]) GetTape() *GradientTape {
	return b.tape
}

// Backward computes gradients for a tensor using the AutodiffBackend's tape,
// seeding the traversal with a ones gradient of the same shape.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	out, _ := backend.Dot(x.Raw(), y.Raw())
//	grads := autodiff.Backward(tensor.New[float32](out, backend), backend)
//	grad := grads[x.Raw()]
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B) Grads {
	tape := backend.GetTape()

	if tape.NumOps() == 0 {
		panic("backward: no operations recorded (did you forget to call Tape().StartRecording()?)")
	}

	seed, err := onesLike(t.Raw(), backend.Device())
	if err != nil {
		panic(fmt.Sprintf("backward: %v", err))
	}
	return tape.Backward(Grads{t.Raw(): seed}, backend)
}

func onesLike(t *tensor.RawTensor, device tensor.Device) (*tensor.RawTensor, error) {
	switch t.DType() {
	case tensor.Float32, tensor.Float64:
		return tensor.RawOnes(t.Shape(), t.DType(), device), nil
	default:
		return nil, fmt.Errorf("unsupported dtype %s (only float32/float64 supported)", t.DType())
	}
}
