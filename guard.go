package sparsedot

import (
	"errors"
	"fmt"

	"github.com/sparsedot/sparsedot/sparse"
)

var (
	ErrDtypeMismatch     = errors.New("sparsedot: matrix dtypes must agree")
	ErrDimensionMismatch = errors.New("sparsedot: inner matrix dimensions do not conform")
)

func checkAligned(aRows, aCols, bRows, bCols int) error {
	if aCols != bRows {
		return fmt.Errorf("%w: (%d, %d) * (%d, %d)", ErrDimensionMismatch, aRows, aCols, bRows, bCols)
	}
	return nil
}

// emptyOutput reports inputs that can only produce an empty product: a zero
// dimension on either operand, or an operand with no stored entries.
func emptyOutput(a, b *sparse.Matrix) bool {
	if a.Rows == 0 || a.Cols == 0 || b.Rows == 0 || b.Cols == 0 {
		return true
	}
	return a.NNZ() == 0 || b.NNZ() == 0
}

// emptyDtype picks the dtype of a short-circuited empty result: float32 only
// when both operands are float32.
func emptyDtype(a, b *sparse.Matrix) sparse.Dtype {
	if a.Dtype() == sparse.Float32 && b.Dtype() == sparse.Float32 {
		return sparse.Float32
	}
	return sparse.Float64
}

// typeCheck unifies operand dtypes. Matching float32 or float64 pairs pass
// through; anything else either upcasts both operands to float64 in place
// (cast set) or fails.
func typeCheck(a, b *sparse.Matrix, cast, verbose bool) error {
	da, db := a.Dtype(), b.Dtype()
	if da == db && da != sparse.DtypeInvalid {
		return nil
	}
	if !cast {
		if da == sparse.DtypeInvalid || db == sparse.DtypeInvalid {
			return fmt.Errorf("%w: %T and %T", sparse.ErrUnsupportedDtype, a.Data, b.Data)
		}
		return fmt.Errorf("%w: %s and %s provided", ErrDtypeMismatch, da, db)
	}
	dprintf(verbose, "recasting %s and %s to float64", da, db)
	if err := a.CastFloat64(); err != nil {
		return err
	}
	return b.CastFloat64()
}
