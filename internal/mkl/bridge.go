// Package mkl binds the sparse BLAS entry points of libmkl_rt.so at runtime
// and marshals sparse.Matrix values through MKL's opaque sparse_matrix_t
// handles. The library is loaded by soname, never linked: the vendor ABI uses
// a build-dependent integer width (ILP64 vs LP64) that has to be discovered
// empirically before any index buffer can be laid out (see width.go).
package mkl

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"
)

const soname = "libmkl_rt.so"

// Status is a sparse_status_t return value.
type Status int32

const (
	StatusSuccess         Status = 0
	StatusNotInitialized  Status = 1
	StatusAllocFailed     Status = 2
	StatusInvalidValue    Status = 3
	StatusExecutionFailed Status = 4
	StatusInternalError   Status = 5
	StatusNotSupported    Status = 6
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SPARSE_STATUS_SUCCESS"
	case StatusNotInitialized:
		return "SPARSE_STATUS_NOT_INITIALIZED"
	case StatusAllocFailed:
		return "SPARSE_STATUS_ALLOC_FAILED"
	case StatusInvalidValue:
		return "SPARSE_STATUS_INVALID_VALUE"
	case StatusExecutionFailed:
		return "SPARSE_STATUS_EXECUTION_FAILED"
	case StatusInternalError:
		return "SPARSE_STATUS_INTERNAL_ERROR"
	case StatusNotSupported:
		return "SPARSE_STATUS_NOT_SUPPORTED"
	}
	return fmt.Sprintf("status %d", int32(s))
}

// CallError is a nonzero status from a named vendor entry point.
type CallError struct {
	Func   string
	Status Status
}

func (e *CallError) Error() string {
	return fmt.Sprintf("mkl: %s returned %d (%s)", e.Func, int32(e.Status), e.Status)
}

func check(fn string, st int32) error {
	if st == 0 {
		return nil
	}
	return &CallError{Func: fn, Status: Status(st)}
}

// Vendor enum values, from mkl_spblas.h.
const (
	indexBaseZero     int32 = 0
	operationNone     int32 = 10  // SPARSE_OPERATION_NON_TRANSPOSE
	layoutRowMajor    int32 = 101 // SPARSE_LAYOUT_ROW_MAJOR
	matrixTypeGeneral int32 = 20  // SPARSE_MATRIX_TYPE_GENERAL
)

// matrixDescr mirrors matrix_descr, passed by value to mkl_sparse_?_mm.
type matrixDescr struct {
	Type int32
	Mode int32
	Diag int32
}

// The bound entry points. Array and out parameters are untyped pointers: the
// width of MKL_INT only changes the layout of the buffers behind them, not
// the call ABI, so one binding serves both widths. Scalar MKL_INT arguments
// are passed as int64; a 32-bit callee reads the low register half on both
// amd64 and arm64.
var lib struct {
	sCreateCSR func(h unsafe.Pointer, indexing int32, rows, cols int64, rowsStart, rowsEnd, colIdx, values unsafe.Pointer) int32
	dCreateCSR func(h unsafe.Pointer, indexing int32, rows, cols int64, rowsStart, rowsEnd, colIdx, values unsafe.Pointer) int32
	sCreateCSC func(h unsafe.Pointer, indexing int32, rows, cols int64, rowsStart, rowsEnd, colIdx, values unsafe.Pointer) int32
	dCreateCSC func(h unsafe.Pointer, indexing int32, rows, cols int64, rowsStart, rowsEnd, colIdx, values unsafe.Pointer) int32

	sExportCSR func(h uintptr, indexing, rows, cols, rowsStart, rowsEnd, colIdx, values unsafe.Pointer) int32
	dExportCSR func(h uintptr, indexing, rows, cols, rowsStart, rowsEnd, colIdx, values unsafe.Pointer) int32
	sExportCSC func(h uintptr, indexing, rows, cols, rowsStart, rowsEnd, colIdx, values unsafe.Pointer) int32
	dExportCSC func(h uintptr, indexing, rows, cols, rowsStart, rowsEnd, colIdx, values unsafe.Pointer) int32

	spmm       func(op int32, a, b uintptr, c unsafe.Pointer) int32
	destroy    func(h uintptr) int32
	order      func(h uintptr) int32
	convertCSR func(h uintptr, op int32, out unsafe.Pointer) int32

	dSpmmd func(op int32, a, b uintptr, layout int32, c unsafe.Pointer, ldc int64) int32
	dMM    func(op int32, alpha float64, a uintptr, descr matrixDescr, layout int32, b unsafe.Pointer, cols, ldb int64, beta float64, c unsafe.Pointer, ldc int64) int32
}

func bindAll(handle uintptr) error {
	binds := []struct {
		fptr any
		name string
	}{
		{&lib.sCreateCSR, "mkl_sparse_s_create_csr"},
		{&lib.dCreateCSR, "mkl_sparse_d_create_csr"},
		{&lib.sCreateCSC, "mkl_sparse_s_create_csc"},
		{&lib.dCreateCSC, "mkl_sparse_d_create_csc"},
		{&lib.sExportCSR, "mkl_sparse_s_export_csr"},
		{&lib.dExportCSR, "mkl_sparse_d_export_csr"},
		{&lib.sExportCSC, "mkl_sparse_s_export_csc"},
		{&lib.dExportCSC, "mkl_sparse_d_export_csc"},
		{&lib.spmm, "mkl_sparse_spmm"},
		{&lib.destroy, "mkl_sparse_destroy"},
		{&lib.order, "mkl_sparse_order"},
		{&lib.convertCSR, "mkl_sparse_convert_csr"},
		{&lib.dSpmmd, "mkl_sparse_d_spmmd"},
		{&lib.dMM, "mkl_sparse_d_mm"},
	}
	for _, b := range binds {
		sym, err := purego.Dlsym(handle, b.name)
		if err != nil {
			return fmt.Errorf("mkl: bind %s: %w", b.name, err)
		}
		purego.RegisterFunc(b.fptr, sym)
	}
	return nil
}
