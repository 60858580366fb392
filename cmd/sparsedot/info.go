package main

import (
	"fmt"
	"os"

	"github.com/sparsedot/sparsedot/internal/matfile"
	"github.com/sparsedot/sparsedot/sparse"
)

func cmdInfo() {
	if len(os.Args) < 3 {
		fmt.Println("usage: sparsedot info matrix.smx")
		os.Exit(1)
	}
	path := os.Args[2]
	m, err := matfile.Read(path)
	if err != nil {
		fatalf("info: %v", err)
	}
	density := 0.0
	if m.Rows > 0 && m.Cols > 0 {
		density = float64(m.NNZ()) / (float64(m.Rows) * float64(m.Cols))
	}
	fmt.Printf("%s: %s (%d, %d) %s\n", path, m.Format, m.Rows, m.Cols, m.Dtype())
	fmt.Printf("  nnz=%d density=%.6f\n", m.NNZ(), density)
	fmt.Printf("  fingerprint=%016x\n", sparse.Fingerprint(m))
}
