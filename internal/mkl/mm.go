package mkl

import (
	"fmt"
	"runtime"
	"unsafe"

	"gonum.org/v1/gonum/mat"

	"github.com/sparsedot/sparsedot/sparse"
)

// SpMM multiplies two CSR handles, returning a new vendor-owned handle. The
// result precision is the higher of the two operand precisions; the caller
// owns the returned handle.
func SpMM(a, b *Handle) (*Handle, error) {
	var ref uintptr
	if err := check("mkl_sparse_spmm", lib.spmm(operationNone, a.ptr, b.ptr, unsafe.Pointer(&ref))); err != nil {
		return nil, err
	}
	return &Handle{ptr: ref, double: a.double || b.double}, nil
}

// SpMMD multiplies two CSR handles into a freshly allocated row-major dense
// result of the given shape. Both handles must be float64.
func SpMMD(a, b *Handle, rows, cols int) (*mat.Dense, error) {
	if !a.double || !b.double {
		return nil, fmt.Errorf("%w: dense product requires float64 handles", sparse.ErrUnsupportedDtype)
	}
	out := mat.NewDense(rows, cols, nil)
	rm := out.RawMatrix()
	st := lib.dSpmmd(operationNone, a.ptr, b.ptr, layoutRowMajor, unsafe.Pointer(&rm.Data[0]), int64(rm.Stride))
	runtime.KeepAlive(out)
	if err := check("mkl_sparse_d_spmmd", st); err != nil {
		return nil, err
	}
	return out, nil
}

// MM computes A*B for a float64 sparse handle A with rows output rows and a
// dense right operand, returning a new dense matrix.
func MM(a *Handle, rows int, b *mat.Dense) (*mat.Dense, error) {
	if !a.double {
		return nil, fmt.Errorf("%w: dense product requires a float64 handle", sparse.ErrUnsupportedDtype)
	}
	_, bc := b.Dims()
	out := mat.NewDense(rows, bc, nil)
	rb := b.RawMatrix()
	ro := out.RawMatrix()
	descr := matrixDescr{Type: matrixTypeGeneral}
	st := lib.dMM(operationNone, 1, a.ptr, descr, layoutRowMajor,
		unsafe.Pointer(&rb.Data[0]), int64(bc), int64(rb.Stride),
		0, unsafe.Pointer(&ro.Data[0]), int64(ro.Stride))
	runtime.KeepAlive(b)
	runtime.KeepAlive(out)
	if err := check("mkl_sparse_d_mm", st); err != nil {
		return nil, err
	}
	return out, nil
}
