package tensor

import "errors"

// ErrDimension is the sentinel for shape and axis validation failures.
// Routines wrap it with context, so callers can match it with errors.Is.
var ErrDimension = errors.New("dimension error")
