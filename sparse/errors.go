package sparse

import "errors"

var (
	ErrUnsupportedDtype  = errors.New("sparse: only float32 and float64 data is supported")
	ErrUnsupportedFormat = errors.New("sparse: matrix is not CSR or CSC")
	ErrInvalidStructure  = errors.New("sparse: invalid matrix structure")
)
