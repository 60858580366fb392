package main

import (
	"testing"

	"github.com/sparsedot/sparsedot/sparse"
)

func TestRandomMatrix(t *testing.T) {
	m, err := random(50, 40, 0.1, "f64", 7)
	if err != nil {
		t.Fatal(err)
	}
	if m.Rows != 50 || m.Cols != 40 || m.Format != sparse.CSR {
		t.Fatalf("got %s (%d, %d)", m.Format, m.Rows, m.Cols)
	}
	if m.NNZ() != 50*4 {
		t.Fatalf("nnz = %d", m.NNZ())
	}
	// per-row support is sorted and duplicate free
	for r := 0; r < m.Rows; r++ {
		for k := m.Indptr[r] + 1; k < m.Indptr[r+1]; k++ {
			if m.Indices[k] <= m.Indices[k-1] {
				t.Fatalf("row %d not strictly ascending", r)
			}
		}
	}
}

func TestRandomDeterministic(t *testing.T) {
	a, err := random(10, 10, 0.3, "f32", 123)
	if err != nil {
		t.Fatal(err)
	}
	b, err := random(10, 10, 0.3, "f32", 123)
	if err != nil {
		t.Fatal(err)
	}
	if sparse.Fingerprint(a) != sparse.Fingerprint(b) {
		t.Fatal("same seed produced different matrices")
	}
	c, err := random(10, 10, 0.3, "f32", 124)
	if err != nil {
		t.Fatal(err)
	}
	if sparse.Fingerprint(a) == sparse.Fingerprint(c) {
		t.Fatal("different seeds produced the same matrix")
	}
}

func TestRandomRejectsBadArgs(t *testing.T) {
	if _, err := random(0, 5, 0.1, "f64", 1); err == nil {
		t.Fatal("accepted zero rows")
	}
	if _, err := random(5, 5, 1.5, "f64", 1); err == nil {
		t.Fatal("accepted density > 1")
	}
	if _, err := random(5, 5, 0.1, "f16", 1); err == nil {
		t.Fatal("accepted unknown dtype")
	}
}

func TestCompFlags(t *testing.T) {
	if f, err := compFlags("none"); err != nil || f != 0 {
		t.Fatalf("none: %d %v", f, err)
	}
	if _, err := compFlags("gzip"); err == nil {
		t.Fatal("accepted unknown compression")
	}
}
