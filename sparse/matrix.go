// Package sparse holds the host-side compressed sparse matrix type that the
// MKL bridge marshals in and out of. A Matrix is three arrays plus a shape:
// values (float32 or float64), minor-dimension indices, and a pointer array
// with one offset per major-dimension slice plus a trailing total.
package sparse

import (
	"fmt"
	"runtime"
)

type Format int

const (
	CSR Format = iota // compressed row, major axis = rows
	CSC               // compressed column, major axis = cols
)

func (f Format) String() string {
	switch f {
	case CSR:
		return "csr"
	case CSC:
		return "csc"
	}
	return fmt.Sprintf("format(%d)", int(f))
}

type Dtype int

const (
	DtypeInvalid Dtype = iota
	Float32
	Float64
)

func (d Dtype) String() string {
	switch d {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	}
	return "invalid"
}

// Matrix is a sparse matrix in three-array form, 0-indexed.
// Data holds []float32 or []float64; anything else is rejected by the
// multiply entry points unless casting is requested.
type Matrix struct {
	Format Format
	Rows   int
	Cols   int

	Data    any
	Indices []int64
	Indptr  []int64

	// release frees vendor memory backing Data/Indices when the matrix was
	// exported without copy semantics. Nil for ordinary matrices.
	release func()
}

func NewCSR(rows, cols int, data any, indices, indptr []int64) *Matrix {
	return &Matrix{Format: CSR, Rows: rows, Cols: cols, Data: data, Indices: indices, Indptr: indptr}
}

func NewCSC(rows, cols int, data any, indices, indptr []int64) *Matrix {
	return &Matrix{Format: CSC, Rows: rows, Cols: cols, Data: data, Indices: indices, Indptr: indptr}
}

// Empty returns a structurally valid matrix of the given shape with no stored
// entries.
func Empty(f Format, rows, cols int, dtype Dtype) *Matrix {
	major := rows
	if f == CSC {
		major = cols
	}
	m := &Matrix{
		Format:  f,
		Rows:    rows,
		Cols:    cols,
		Indices: []int64{},
		Indptr:  make([]int64, major+1),
	}
	if dtype == Float32 {
		m.Data = []float32{}
	} else {
		m.Data = []float64{}
	}
	return m
}

func (m *Matrix) Dtype() Dtype {
	switch m.Data.(type) {
	case []float32:
		return Float32
	case []float64:
		return Float64
	}
	return DtypeInvalid
}

// NNZ reports the number of stored entries.
func (m *Matrix) NNZ() int { return len(m.Indices) }

// ValueLen reports the length of the value array, whatever its element type.
func (m *Matrix) ValueLen() int {
	switch d := m.Data.(type) {
	case []float32:
		return len(d)
	case []float64:
		return len(d)
	case []int32:
		return len(d)
	case []int64:
		return len(d)
	case []int:
		return len(d)
	}
	return 0
}

// Major reports the size of the compressed (major) dimension.
func (m *Matrix) Major() int {
	if m.Format == CSC {
		return m.Cols
	}
	return m.Rows
}

// Minor reports the size of the indexed (minor) dimension.
func (m *Matrix) Minor() int {
	if m.Format == CSC {
		return m.Rows
	}
	return m.Cols
}

// Validate checks the three-array invariant: matching value/index lengths,
// pointer array of length major+1, non-decreasing offsets ending at nnz, and
// indices within the minor dimension.
func (m *Matrix) Validate() error {
	if m.Format != CSR && m.Format != CSC {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, m.Format)
	}
	if m.Rows < 0 || m.Cols < 0 {
		return fmt.Errorf("%w: shape (%d, %d)", ErrInvalidStructure, m.Rows, m.Cols)
	}
	if m.Dtype() == DtypeInvalid {
		return fmt.Errorf("%w: %T", ErrUnsupportedDtype, m.Data)
	}
	nnz := m.ValueLen()
	if nnz != len(m.Indices) {
		return fmt.Errorf("%w: %d values, %d indices", ErrInvalidStructure, nnz, len(m.Indices))
	}
	if len(m.Indptr) != m.Major()+1 {
		return fmt.Errorf("%w: indptr length %d for %d %s slices", ErrInvalidStructure, len(m.Indptr), m.Major(), m.Format)
	}
	for i := 1; i < len(m.Indptr); i++ {
		if m.Indptr[i] < m.Indptr[i-1] {
			return fmt.Errorf("%w: indptr decreases at %d", ErrInvalidStructure, i)
		}
	}
	if m.Indptr[len(m.Indptr)-1] != int64(nnz) {
		return fmt.Errorf("%w: indptr ends at %d, want %d", ErrInvalidStructure, m.Indptr[len(m.Indptr)-1], nnz)
	}
	minor := int64(m.Minor())
	for _, ix := range m.Indices {
		if ix < 0 || ix >= minor {
			return fmt.Errorf("%w: index %d outside [0, %d)", ErrInvalidStructure, ix, minor)
		}
	}
	return nil
}

// CastFloat64 converts the value array to float64 in place. A no-op for
// matrices that already hold float64 data.
func (m *Matrix) CastFloat64() error {
	switch d := m.Data.(type) {
	case []float64:
		return nil
	case []float32:
		out := make([]float64, len(d))
		for i, v := range d {
			out[i] = float64(v)
		}
		m.Data = out
	case []int32:
		out := make([]float64, len(d))
		for i, v := range d {
			out[i] = float64(v)
		}
		m.Data = out
	case []int64:
		out := make([]float64, len(d))
		for i, v := range d {
			out[i] = float64(v)
		}
		m.Data = out
	case []int:
		out := make([]float64, len(d))
		for i, v := range d {
			out[i] = float64(v)
		}
		m.Data = out
	default:
		return fmt.Errorf("%w: cannot cast %T", ErrUnsupportedDtype, m.Data)
	}
	return nil
}

// AttachRelease ties vendor-owned buffers to the lifetime of this matrix.
// Release (or garbage collection of the matrix) frees them; until then the
// Data and Indices slices must not outlive the matrix.
func (m *Matrix) AttachRelease(f func()) {
	m.release = f
	runtime.SetFinalizer(m, (*Matrix).Release)
}

// Release frees vendor memory backing a view-exported matrix. Safe to call
// more than once and on matrices that own their buffers.
func (m *Matrix) Release() {
	if m.release == nil {
		return
	}
	m.release()
	m.release = nil
	runtime.SetFinalizer(m, nil)
}
