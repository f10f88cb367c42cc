// Package tensor provides the core array types for the chainer library.
package tensor

// DType is a constraint for supported tensor data types.
// It uses Go generics to ensure compile-time type safety.
type DType interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~bool
}

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types for tensors.
const (
	Float32 DataType = iota
	Float64
	Int32
	Int64
	Bool
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	case Bool:
		return 1
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// IsFloat reports whether the data type is a floating-point type.
func (dt DataType) IsFloat() bool {
	return dt == Float32 || dt == Float64
}

// typeRank orders data types for promotion. A wider or more general type
// has a higher rank.
func typeRank(dt DataType) int {
	switch dt {
	case Bool:
		return 0
	case Int32:
		return 1
	case Int64:
		return 2
	case Float32:
		return 3
	case Float64:
		return 4
	default:
		panic("unknown data type")
	}
}

// PromoteTypes returns the result type of an arithmetic operation between
// two operands of the given types: the higher-ranked type wins.
func PromoteTypes(a, b DataType) DataType {
	if typeRank(a) >= typeRank(b) {
		return a
	}
	return b
}

// inferDataType infers DataType from a generic type T.
func inferDataType[T DType](dummy T) DataType {
	switch any(dummy).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case int32:
		return Int32
	case int64:
		return Int64
	case bool:
		return Bool
	default:
		panic("unsupported type")
	}
}
