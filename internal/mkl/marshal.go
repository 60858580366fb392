package mkl

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"github.com/sparsedot/sparsedot/sparse"
)

// ErrIndexBase means the vendor reported 1-based (Fortran) ordering on
// export, which this bridge does not support.
var ErrIndexBase = errors.New("mkl: 1-based (Fortran) index ordering is not supported")

// ExportBoundsError means the vendor-reported pointer array implies an nnz
// outside [0, rows*cols]; the export would read garbage memory.
type ExportBoundsError struct {
	Rows, Cols, NNZ int
}

func (e *ExportBoundsError) Error() string {
	return fmt.Sprintf("mkl: export of (%d, %d) matrix claims %d stored elements", e.Rows, e.Cols, e.NNZ)
}

// intBuf holds an index array at the discovered MKL_INT width. Under ILP64
// the host int64 slice is passed as-is; under LP64 it is narrowed into a
// fresh int32 buffer (a copy, not a reinterpretation).
type intBuf struct {
	i64 []int64
	i32 []int32
}

func newIntBuf(xs []int64) intBuf {
	if Width() == Width64 {
		return intBuf{i64: xs}
	}
	b := make([]int32, len(xs))
	for i, v := range xs {
		b[i] = int32(v)
	}
	return intBuf{i32: b}
}

func (b intBuf) ptr(i int) unsafe.Pointer {
	if b.i64 != nil {
		return unsafe.Pointer(&b.i64[i])
	}
	return unsafe.Pointer(&b.i32[i])
}

func (b intBuf) keep() any {
	if b.i64 != nil {
		return b.i64
	}
	return b.i32
}

// intOut is scratch for a by-reference MKL_INT result.
type intOut struct {
	v64 int64
	v32 int32
}

func (o *intOut) ptr() unsafe.Pointer {
	if Width() == Width64 {
		return unsafe.Pointer(&o.v64)
	}
	return unsafe.Pointer(&o.v32)
}

func (o *intOut) val() int {
	if Width() == Width64 {
		return int(o.v64)
	}
	return int(o.v32)
}

// readInts copies n MKL_INT values at p into host int64 form.
func readInts(p uintptr, n int) []int64 {
	out := make([]int64, n)
	if Width() == Width64 {
		copy(out, unsafe.Slice((*int64)(unsafe.Pointer(p)), n))
	} else {
		for i, v := range unsafe.Slice((*int32)(unsafe.Pointer(p)), n) {
			out[i] = int64(v)
		}
	}
	return out
}

// CreateSparse loads a host matrix into a vendor handle. The handle aliases
// the host arrays (or width-converted copies of the index arrays) and keeps
// them reachable until Destroy. With cast set, a non-float value array is
// converted to float64 in place first; otherwise it is an error.
func CreateSparse(m *sparse.Matrix, cast bool) (*Handle, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	return create(m, cast)
}

func create(m *sparse.Matrix, cast bool) (*Handle, error) {
	double := false
	switch m.Data.(type) {
	case []float32:
	case []float64:
		double = true
	default:
		if !cast {
			return nil, fmt.Errorf("%w: %T", sparse.ErrUnsupportedDtype, m.Data)
		}
		if err := m.CastFloat64(); err != nil {
			return nil, err
		}
		double = true
	}

	if m.Format != sparse.CSR && m.Format != sparse.CSC {
		return nil, fmt.Errorf("%w: %s", sparse.ErrUnsupportedFormat, m.Format)
	}
	nnz := m.ValueLen()
	if nnz != len(m.Indices) {
		return nil, fmt.Errorf("%w: %d values, %d indices", sparse.ErrInvalidStructure, nnz, len(m.Indices))
	}
	major := m.Major()
	if len(m.Indptr) != major+1 {
		return nil, fmt.Errorf("%w: indptr length %d for %d %s slices", sparse.ErrInvalidStructure, len(m.Indptr), major, m.Format)
	}

	indptr := newIntBuf(m.Indptr)
	indices := newIntBuf(m.Indices)

	// The vendor wants the pointer array split into begin (all but last) and
	// end (all but first); both point into the same buffer.
	var rowsStart, rowsEnd unsafe.Pointer
	if major > 0 {
		rowsStart = indptr.ptr(0)
		rowsEnd = indptr.ptr(1)
	}
	var colIdx, values unsafe.Pointer
	if nnz > 0 {
		colIdx = indices.ptr(0)
		switch d := m.Data.(type) {
		case []float32:
			values = unsafe.Pointer(&d[0])
		case []float64:
			values = unsafe.Pointer(&d[0])
		}
	}

	name, fn := createFunc(m.Format, double)
	var ref uintptr
	st := fn(unsafe.Pointer(&ref), indexBaseZero, int64(m.Rows), int64(m.Cols), rowsStart, rowsEnd, colIdx, values)
	runtime.KeepAlive(m)
	if err := check(name, st); err != nil {
		return nil, err
	}
	return &Handle{
		ptr:    ref,
		double: double,
		keep:   []any{indptr.keep(), indices.keep(), m.Data},
	}, nil
}

func createFunc(f sparse.Format, double bool) (string, func(h unsafe.Pointer, indexing int32, rows, cols int64, rowsStart, rowsEnd, colIdx, values unsafe.Pointer) int32) {
	if f == sparse.CSC {
		if double {
			return "mkl_sparse_d_create_csc", lib.dCreateCSC
		}
		return "mkl_sparse_s_create_csc", lib.sCreateCSC
	}
	if double {
		return "mkl_sparse_d_create_csr", lib.dCreateCSR
	}
	return "mkl_sparse_s_create_csr", lib.sCreateCSR
}

// Export materializes a vendor handle into host three-array form. With
// copyBuf set the vendor buffers are copied and may be freed immediately
// after; otherwise the value array (and under ILP64 the index array) is a
// view over vendor memory, and the caller must keep the handle alive for the
// life of the returned matrix (see Matrix.AttachRelease).
func Export(h *Handle, format sparse.Format, copyBuf bool) (*sparse.Matrix, error) {
	return export(h, format, copyBuf)
}

func export(h *Handle, format sparse.Format, copyBuf bool) (*sparse.Matrix, error) {
	name, fn := exportFunc(format, h.double)
	if fn == nil {
		return nil, fmt.Errorf("%w: %s", sparse.ErrUnsupportedFormat, format)
	}

	var indexing int32
	var nrows, ncols intOut
	var rowsStart, rowsEnd, colIdx, values uintptr
	st := fn(h.ptr,
		unsafe.Pointer(&indexing), nrows.ptr(), ncols.ptr(),
		unsafe.Pointer(&rowsStart), unsafe.Pointer(&rowsEnd),
		unsafe.Pointer(&colIdx), unsafe.Pointer(&values))
	if err := check(name, st); err != nil {
		return nil, err
	}
	if indexing != indexBaseZero {
		return nil, ErrIndexBase
	}

	rows, cols := nrows.val(), ncols.val()
	dtype := sparse.Float32
	if h.double {
		dtype = sparse.Float64
	}
	if rows == 0 || cols == 0 {
		return sparse.Empty(format, rows, cols, dtype), nil
	}

	major := rows
	if format == sparse.CSC {
		major = cols
	}
	begin := readInts(rowsStart, major)
	end := readInts(rowsEnd, major)

	// The vendor omits the leading offset the host format carries.
	indptr := make([]int64, major+1)
	indptr[0] = begin[0]
	copy(indptr[1:], end)

	nnz := int(indptr[major] - indptr[0])
	if nnz == 0 {
		return sparse.Empty(format, rows, cols, dtype), nil
	}
	if nnz < 0 || nnz > rows*cols {
		return nil, &ExportBoundsError{Rows: rows, Cols: cols, NNZ: nnz}
	}

	out := &sparse.Matrix{Format: format, Rows: rows, Cols: cols, Indptr: indptr}

	if copyBuf || Width() == Width32 {
		out.Indices = readInts(colIdx, nnz)
	} else {
		out.Indices = unsafe.Slice((*int64)(unsafe.Pointer(colIdx)), nnz)
	}
	if h.double {
		src := unsafe.Slice((*float64)(unsafe.Pointer(values)), nnz)
		if copyBuf {
			d := make([]float64, nnz)
			copy(d, src)
			out.Data = d
		} else {
			out.Data = src
		}
	} else {
		src := unsafe.Slice((*float32)(unsafe.Pointer(values)), nnz)
		if copyBuf {
			d := make([]float32, nnz)
			copy(d, src)
			out.Data = d
		} else {
			out.Data = src
		}
	}
	return out, nil
}

func exportFunc(f sparse.Format, double bool) (string, func(h uintptr, indexing, rows, cols, rowsStart, rowsEnd, colIdx, values unsafe.Pointer) int32) {
	switch f {
	case sparse.CSR:
		if double {
			return "mkl_sparse_d_export_csr", lib.dExportCSR
		}
		return "mkl_sparse_s_export_csr", lib.sExportCSR
	case sparse.CSC:
		if double {
			return "mkl_sparse_d_export_csc", lib.dExportCSC
		}
		return "mkl_sparse_s_export_csc", lib.sExportCSC
	}
	return "", nil
}
