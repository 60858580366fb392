package sparsedot_test

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/sparsedot/sparsedot"
	"github.com/sparsedot/sparsedot/internal/mkl"
	"github.com/sparsedot/sparsedot/sparse"
)

func requireMKL(t *testing.T) {
	t.Helper()
	if err := mkl.Init(); err != nil {
		t.Skipf("mkl unavailable: %v", err)
	}
}

func diag(vals []float64) *sparse.Matrix {
	n := len(vals)
	indices := make([]int64, n)
	indptr := make([]int64, n+1)
	for i := range vals {
		indices[i] = int64(i)
		indptr[i+1] = int64(i + 1)
	}
	return sparse.NewCSR(n, n, vals, indices, indptr)
}

func diag32(vals []float32) *sparse.Matrix {
	m := diag(make([]float64, len(vals)))
	m.Data = vals
	return m
}

// Guard failures happen before any vendor call, so these run without MKL.

func TestDotRejectsNonCSR(t *testing.T) {
	a := diag([]float64{1})
	b := sparse.NewCSC(1, 1, []float64{1}, []int64{0}, []int64{0, 1})
	if _, err := sparsedot.Dot(a, b, sparsedot.Options{}); !errors.Is(err, sparse.ErrUnsupportedFormat) {
		t.Fatalf("got %v", err)
	}
	if _, err := sparsedot.Dot(b, a, sparsedot.Options{}); !errors.Is(err, sparse.ErrUnsupportedFormat) {
		t.Fatalf("got %v", err)
	}
}

func TestDotRejectsMisalignedShapes(t *testing.T) {
	a := sparse.NewCSR(2, 3, []float64{1}, []int64{0}, []int64{0, 1, 1})
	b := diag([]float64{1, 2})
	_, err := sparsedot.Dot(a, b, sparsedot.Options{})
	if !errors.Is(err, sparsedot.ErrDimensionMismatch) {
		t.Fatalf("got %v", err)
	}
}

func TestDotRejectsDtypeMismatch(t *testing.T) {
	a := diag([]float64{1, 2})
	b := diag32([]float32{3, 4})
	if _, err := sparsedot.Dot(a, b, sparsedot.Options{}); !errors.Is(err, sparsedot.ErrDtypeMismatch) {
		t.Fatalf("got %v", err)
	}
}

func TestDotRejectsNonFloatWithoutCast(t *testing.T) {
	a := diag([]float64{1, 2})
	b := diag([]float64{3, 4})
	b.Data = []int64{3, 4}
	if _, err := sparsedot.Dot(a, b, sparsedot.Options{}); !errors.Is(err, sparse.ErrUnsupportedDtype) {
		t.Fatalf("got %v", err)
	}
}

func TestDotDegenerate(t *testing.T) {
	// shape degeneracy and all-zero operands short-circuit before the vendor
	// library loads
	for _, tc := range []struct {
		name string
		a, b *sparse.Matrix
		want sparse.Dtype
	}{
		{"zero inner dim", sparse.Empty(sparse.CSR, 3, 0, sparse.Float64), sparse.Empty(sparse.CSR, 0, 4, sparse.Float64), sparse.Float64},
		{"zero rows", sparse.Empty(sparse.CSR, 0, 2, sparse.Float64), sparse.Empty(sparse.CSR, 2, 4, sparse.Float64), sparse.Float64},
		{"no entries", sparse.Empty(sparse.CSR, 3, 2, sparse.Float64), sparse.Empty(sparse.CSR, 2, 4, sparse.Float64), sparse.Float64},
		{"f32 pair", sparse.Empty(sparse.CSR, 3, 2, sparse.Float32), sparse.Empty(sparse.CSR, 2, 4, sparse.Float32), sparse.Float32},
		{"mixed pair", sparse.Empty(sparse.CSR, 3, 2, sparse.Float32), sparse.Empty(sparse.CSR, 2, 4, sparse.Float64), sparse.Float64},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out, err := sparsedot.Dot(tc.a, tc.b, sparsedot.Options{})
			if err != nil {
				t.Fatal(err)
			}
			if out.Rows != tc.a.Rows || out.Cols != tc.b.Cols {
				t.Fatalf("shape (%d, %d)", out.Rows, out.Cols)
			}
			if out.NNZ() != 0 {
				t.Fatalf("nnz = %d", out.NNZ())
			}
			if out.Dtype() != tc.want {
				t.Fatalf("dtype %s, want %s", out.Dtype(), tc.want)
			}
			if err := out.Validate(); err != nil {
				t.Fatalf("degenerate result invalid: %v", err)
			}
		})
	}
}

func TestDot(t *testing.T) {
	requireMKL(t)
	a := diag([]float64{1, 2, 3})
	b := diag([]float64{4, 5, 6})
	out, err := sparsedot.Dot(a, b, sparsedot.Options{Copy: true})
	if err != nil {
		t.Fatal(err)
	}
	want := mat.NewDense(3, 3, []float64{4, 0, 0, 0, 10, 0, 0, 0, 18})
	if !mat.EqualApprox(out.ToDense(), want, 1e-12) {
		t.Fatalf("product:\n%v", mat.Formatted(out.ToDense()))
	}
	if out.Format != sparse.CSR || out.Dtype() != sparse.Float64 {
		t.Fatalf("got %s %s", out.Format, out.Dtype())
	}
}

func TestDotFloat32(t *testing.T) {
	requireMKL(t)
	a := diag32([]float32{1, 2})
	b := diag32([]float32{3, 4})
	out, err := sparsedot.Dot(a, b, sparsedot.Options{Copy: true})
	if err != nil {
		t.Fatal(err)
	}
	if out.Dtype() != sparse.Float32 {
		t.Fatalf("got %s", out.Dtype())
	}
	want := mat.NewDense(2, 2, []float64{3, 0, 0, 8})
	if !mat.EqualApprox(out.ToDense(), want, 1e-6) {
		t.Fatalf("product:\n%v", mat.Formatted(out.ToDense()))
	}
}

func TestDotCastMixed(t *testing.T) {
	requireMKL(t)
	a := diag([]float64{1, 2})
	b := diag32([]float32{3, 4})
	out, err := sparsedot.Dot(a, b, sparsedot.Options{Cast: true, Copy: true})
	if err != nil {
		t.Fatal(err)
	}
	if out.Dtype() != sparse.Float64 {
		t.Fatalf("got %s", out.Dtype())
	}
	if b.Dtype() != sparse.Float64 {
		t.Fatal("cast did not upcast the operand in place")
	}
	want := mat.NewDense(2, 2, []float64{3, 0, 0, 8})
	if !mat.EqualApprox(out.ToDense(), want, 1e-12) {
		t.Fatalf("product:\n%v", mat.Formatted(out.ToDense()))
	}
}

func TestDotReorderOutput(t *testing.T) {
	requireMKL(t)
	a := sparse.NewCSR(2, 3,
		[]float64{1, 2, 3, 4},
		[]int64{0, 2, 1, 2},
		[]int64{0, 2, 4},
	)
	b := sparse.NewCSR(3, 3,
		[]float64{5, 6, 7, 8},
		[]int64{1, 0, 2, 1},
		[]int64{0, 1, 3, 4},
	)
	out, err := sparsedot.Dot(a, b, sparsedot.Options{ReorderOutput: true, Copy: true})
	if err != nil {
		t.Fatal(err)
	}
	for r := 0; r < out.Rows; r++ {
		for k := out.Indptr[r] + 1; k < out.Indptr[r+1]; k++ {
			if out.Indices[k] <= out.Indices[k-1] {
				t.Fatalf("row %d indices not ascending: %v", r, out.Indices[out.Indptr[r]:out.Indptr[r+1]])
			}
		}
	}
	var want mat.Dense
	want.Mul(a.ToDense(), b.ToDense())
	if !mat.EqualApprox(out.ToDense(), &want, 1e-12) {
		t.Fatalf("product:\n%v", mat.Formatted(out.ToDense()))
	}
}

func TestDotViewResult(t *testing.T) {
	requireMKL(t)
	a := diag([]float64{1, 2, 3})
	b := diag([]float64{4, 5, 6})
	out, err := sparsedot.Dot(a, b, sparsedot.Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := mat.NewDense(3, 3, []float64{4, 0, 0, 0, 10, 0, 0, 0, 18})
	if !mat.EqualApprox(out.ToDense(), want, 1e-12) {
		t.Fatalf("product:\n%v", mat.Formatted(out.ToDense()))
	}
	out.Release()
	out.Release() // idempotent
}

func TestDotRepeated(t *testing.T) {
	requireMKL(t)
	a := diag([]float64{1, 2, 3, 4})
	want := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		want.Set(i, i, float64((i+1)*(i+1)))
	}
	for i := 0; i < 50; i++ {
		out, err := sparsedot.Dot(a, a, sparsedot.Options{Copy: true})
		if err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		if !mat.EqualApprox(out.ToDense(), want, 1e-12) {
			t.Fatalf("iteration %d: wrong product", i)
		}
	}
}

func TestDotDense(t *testing.T) {
	requireMKL(t)
	a := sparse.NewCSR(2, 3, []float64{1, 2, 3}, []int64{0, 2, 1}, []int64{0, 2, 3})
	b := sparse.NewCSR(3, 2, []float64{4, 5, 6}, []int64{1, 0, 1}, []int64{0, 1, 2, 3})
	out, err := sparsedot.DotDense(a, b, sparsedot.Options{})
	if err != nil {
		t.Fatal(err)
	}
	var want mat.Dense
	want.Mul(a.ToDense(), b.ToDense())
	if !mat.EqualApprox(out, &want, 1e-12) {
		t.Fatalf("product:\n%v", mat.Formatted(out))
	}
}

func TestDotDenseRequiresFloat64(t *testing.T) {
	a := diag32([]float32{1, 2})
	b := diag32([]float32{3, 4})
	if _, err := sparsedot.DotDense(a, b, sparsedot.Options{}); !errors.Is(err, sparse.ErrUnsupportedDtype) {
		t.Fatalf("got %v", err)
	}
}

func TestDotDenseDegenerate(t *testing.T) {
	a := sparse.Empty(sparse.CSR, 2, 3, sparse.Float64)
	b := sparse.Empty(sparse.CSR, 3, 4, sparse.Float64)
	out, err := sparsedot.DotDense(a, b, sparsedot.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if r, c := out.Dims(); r != 2 || c != 4 {
		t.Fatalf("shape (%d, %d)", r, c)
	}
	zero := sparse.Empty(sparse.CSR, 0, 3, sparse.Float64)
	out, err = sparsedot.DotDense(zero, b, sparsedot.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if r, c := out.Dims(); r != 0 || c != 0 {
		t.Fatalf("zero-row shape (%d, %d)", r, c)
	}
}

func TestDotMatDense(t *testing.T) {
	requireMKL(t)
	a := sparse.NewCSR(2, 3, []float64{1, 2, 3}, []int64{0, 2, 1}, []int64{0, 2, 3})
	b := mat.NewDense(3, 4, []float64{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
	})
	out, err := sparsedot.DotMatDense(a, b, sparsedot.Options{})
	if err != nil {
		t.Fatal(err)
	}
	var want mat.Dense
	want.Mul(a.ToDense(), b)
	if !mat.EqualApprox(out, &want, 1e-12) {
		t.Fatalf("product:\n%v", mat.Formatted(out))
	}
}

func TestDotMatDenseGuards(t *testing.T) {
	a := sparse.NewCSC(2, 2, []float64{1}, []int64{0}, []int64{0, 1, 1})
	if _, err := sparsedot.DotMatDense(a, mat.NewDense(2, 2, nil), sparsedot.Options{}); !errors.Is(err, sparse.ErrUnsupportedFormat) {
		t.Fatalf("got %v", err)
	}
	d := diag([]float64{1, 2})
	if _, err := sparsedot.DotMatDense(d, mat.NewDense(3, 2, nil), sparsedot.Options{}); !errors.Is(err, sparsedot.ErrDimensionMismatch) {
		t.Fatalf("got %v", err)
	}
	f := diag32([]float32{1, 2})
	if _, err := sparsedot.DotMatDense(f, mat.NewDense(2, 2, nil), sparsedot.Options{}); !errors.Is(err, sparse.ErrUnsupportedDtype) {
		t.Fatalf("got %v", err)
	}
}
