// Package sparsedot multiplies sparse matrices through Intel MKL's inspector-
// executor sparse BLAS, loaded at runtime from libmkl_rt.so. Host matrices in
// CSR or CSC form are marshalled into vendor handles, multiplied, and the
// product exported back as CSR.
package sparsedot

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/sparsedot/sparsedot/internal/mkl"
	"github.com/sparsedot/sparsedot/sparse"
)

// Options adjust a multiplication. The zero value multiplies strictly: dtypes
// must already agree and the result views vendor memory where possible.
type Options struct {
	// Cast permits upcasting both operands to float64 in place when their
	// dtypes differ or are not float.
	Cast bool

	// Copy forces the result into Go-allocated buffers so the vendor handle
	// can be freed before Dot returns. Without it the result's value array
	// (and index array, when the library uses 64-bit indices) aliases vendor
	// memory held alive by the matrix itself.
	Copy bool

	// ReorderOutput sorts the result's indices ascending within each row.
	ReorderOutput bool

	// Verbose logs per-stage timing and operand statistics.
	Verbose bool
}

// Dot computes a*b. Both operands must be CSR; the product is CSR with the
// wider of the two operand dtypes.
func Dot(a, b *sparse.Matrix, opt Options) (*sparse.Matrix, error) {
	if a.Format != sparse.CSR || b.Format != sparse.CSR {
		return nil, fmt.Errorf("%w: %s * %s (convert operands to CSR first)", sparse.ErrUnsupportedFormat, a.Format, b.Format)
	}
	if err := checkAligned(a.Rows, a.Cols, b.Rows, b.Cols); err != nil {
		return nil, err
	}
	if emptyOutput(a, b) {
		dprintf(opt.Verbose, "empty operand, returning (%d, %d) empty product", a.Rows, b.Cols)
		return sparse.Empty(sparse.CSR, a.Rows, b.Cols, emptyDtype(a, b)), nil
	}
	if err := typeCheck(a, b, opt.Cast, opt.Verbose); err != nil {
		return nil, err
	}
	if opt.Verbose {
		logStats("operand a", a)
		logStats("operand b", b)
	}

	start := time.Now()
	ha, err := mkl.CreateSparse(a, opt.Cast)
	if err != nil {
		return nil, err
	}
	defer ha.Destroy()
	hb, err := mkl.CreateSparse(b, opt.Cast)
	if err != nil {
		return nil, err
	}
	defer hb.Destroy()
	dprintf(opt.Verbose, "handles created in %v", time.Since(start))

	// MKL requires sorted indices within each row for a correct product.
	if err := ha.Order(); err != nil {
		return nil, err
	}
	if err := hb.Order(); err != nil {
		return nil, err
	}

	start = time.Now()
	hc, err := mkl.SpMM(ha, hb)
	if err != nil {
		return nil, err
	}
	dprintf(opt.Verbose, "spmm in %v", time.Since(start))

	if opt.ReorderOutput {
		if err := hc.Order(); err != nil {
			hc.Destroy()
			return nil, err
		}
	}

	start = time.Now()
	out, err := mkl.Export(hc, sparse.CSR, opt.Copy)
	if err != nil {
		hc.Destroy()
		return nil, err
	}
	if opt.Copy {
		hc.Destroy()
	} else {
		out.AttachRelease(func() { hc.Destroy() })
	}
	dprintf(opt.Verbose, "export in %v", time.Since(start))
	if opt.Verbose {
		logStats("product", out)
	}
	return out, nil
}

func dprintf(verbose bool, format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

// logStats prints shape, density, value range, and a content fingerprint for
// one matrix.
func logStats(name string, m *sparse.Matrix) {
	nnz := m.NNZ()
	density := 0.0
	if m.Rows > 0 && m.Cols > 0 {
		density = float64(nnz) / (float64(m.Rows) * float64(m.Cols))
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	switch d := m.Data.(type) {
	case []float32:
		for _, v := range d {
			lo = math.Min(lo, float64(v))
			hi = math.Max(hi, float64(v))
		}
	case []float64:
		for _, v := range d {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if nnz == 0 {
		lo, hi = 0, 0
	}
	log.Printf("%s: %s (%d, %d) %s nnz=%d density=%.6f range=[%g, %g] fp=%016x",
		name, m.Format, m.Rows, m.Cols, m.Dtype(), nnz, density, lo, hi, sparse.Fingerprint(m))
}
