package mkl

import "unsafe"

// Handle owns one vendor sparse_matrix_t. The precision flag is fixed at
// creation and must match on every export: it selects a raw reinterpretation
// of the vendor value buffer, not a cast. Handles created from host matrices
// also pin the Go buffers MKL aliases until destroy.
type Handle struct {
	ptr       uintptr
	double    bool
	keep      []any
	destroyed bool
}

// Double reports whether the underlying value buffer is float64.
func (h *Handle) Double() bool { return h.double }

// Destroy releases the vendor matrix. Idempotent, so every exit path can
// destroy unconditionally without risking a double free.
func (h *Handle) Destroy() error {
	if h == nil || h.destroyed {
		return nil
	}
	h.destroyed = true
	err := check("mkl_sparse_destroy", lib.destroy(h.ptr))
	h.keep = nil
	return err
}

// Order asks the vendor to sort indices within each major slice ascending.
func (h *Handle) Order() error {
	return check("mkl_sparse_order", lib.order(h.ptr))
}

// ConvertCSR returns a new handle holding a CSR copy of this matrix.
func (h *Handle) ConvertCSR() (*Handle, error) {
	var out uintptr
	if err := check("mkl_sparse_convert_csr", lib.convertCSR(h.ptr, operationNone, unsafe.Pointer(&out))); err != nil {
		return nil, err
	}
	return &Handle{ptr: out, double: h.double}, nil
}
