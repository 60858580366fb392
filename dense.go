package sparsedot

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/sparsedot/sparsedot/internal/mkl"
	"github.com/sparsedot/sparsedot/sparse"
)

// DotDense computes a*b as a dense matrix without materializing the sparse
// product. Both operands must be CSR; non-float64 operands require Cast.
func DotDense(a, b *sparse.Matrix, opt Options) (*mat.Dense, error) {
	if a.Format != sparse.CSR || b.Format != sparse.CSR {
		return nil, fmt.Errorf("%w: %s * %s (convert operands to CSR first)", sparse.ErrUnsupportedFormat, a.Format, b.Format)
	}
	if err := checkAligned(a.Rows, a.Cols, b.Rows, b.Cols); err != nil {
		return nil, err
	}
	if a.Rows == 0 || b.Cols == 0 {
		return &mat.Dense{}, nil
	}
	if emptyOutput(a, b) {
		return mat.NewDense(a.Rows, b.Cols, nil), nil
	}
	if err := ensureFloat64(a, b, opt.Cast); err != nil {
		return nil, err
	}

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
	return mkl.SpMMD(ha, hb, a.Rows, b.Cols)
}

// DotMatDense multiplies a CSR matrix by a dense right operand, returning a
// dense result. A non-float64 sparse operand requires Cast.
func DotMatDense(a *sparse.Matrix, b *mat.Dense, opt Options) (*mat.Dense, error) {
	if a.Format != sparse.CSR {
		return nil, fmt.Errorf("%w: %s (convert the sparse operand to CSR first)", sparse.ErrUnsupportedFormat, a.Format)
	}
	br, bc := b.Dims()
	if err := checkAligned(a.Rows, a.Cols, br, bc); err != nil {
		return nil, err
	}
	if a.Rows == 0 || bc == 0 {
		return &mat.Dense{}, nil
	}
	if a.NNZ() == 0 {
		return mat.NewDense(a.Rows, bc, nil), nil
	}
	if _, ok := a.Data.([]float64); !ok {
		if !opt.Cast {
			return nil, fmt.Errorf("%w: dense product requires float64 (got %s); set Cast to convert", sparse.ErrUnsupportedDtype, a.Dtype())
		}
		if err := a.CastFloat64(); err != nil {
			return nil, err
		}
	}

	ha, err := mkl.CreateSparse(a, opt.Cast)
	if err != nil {
		return nil, err
	}
	defer ha.Destroy()
	return mkl.MM(ha, a.Rows, b)
}

// ensureFloat64 upcasts both operands when permitted; the dense kernels only
// exist at double precision.
func ensureFloat64(a, b *sparse.Matrix, cast bool) error {
	_, af := a.Data.([]float64)
	_, bf := b.Data.([]float64)
	if af && bf {
		return nil
	}
	if !cast {
		return fmt.Errorf("%w: dense product requires float64 operands (got %s and %s); set Cast to convert", sparse.ErrUnsupportedDtype, a.Dtype(), b.Dtype())
	}
	if err := a.CastFloat64(); err != nil {
		return err
	}
	return b.CastFloat64()
}
