package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"

	"github.com/sparsedot/sparsedot/internal/matfile"
	"github.com/sparsedot/sparsedot/sparse"
)

func cmdGen() {
	fs := flag.NewFlagSet("gen", flag.ExitOnError)
	out := fs.String("out", "", "output .smx")
	rows := fs.Int("rows", 1000, "rows")
	cols := fs.Int("cols", 1000, "cols")
	density := fs.Float64("density", 0.01, "fraction of nonzero entries")
	dtype := fs.String("dtype", "f64", "value dtype: f32 or f64")
	seed := fs.Int64("seed", 42, "rng seed")
	comp := fs.String("comp", "none", "section compression: none, zstd, lz4")
	fs.Parse(os.Args[2:])
	if *out == "" {
		fmt.Println("usage: sparsedot gen --out matrix.smx [--rows N] [--cols N] [--density X]")
		os.Exit(1)
	}
	flags, err := compFlags(*comp)
	if err != nil {
		fatalf("gen: %v", err)
	}

	m, err := random(*rows, *cols, *density, *dtype, *seed)
	if err != nil {
		fatalf("gen: %v", err)
	}
	if err := matfile.Write(*out, m, flags); err != nil {
		fatalf("gen: %v", err)
	}
	fmt.Printf("wrote %s: (%d, %d) %s nnz=%d\n", *out, m.Rows, m.Cols, m.Dtype(), m.NNZ())
}

// random draws a CSR matrix by sampling each row's support without
// replacement, values uniform in [0, 1).
func random(rows, cols int, density float64, dtype string, seed int64) (*sparse.Matrix, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("shape (%d, %d) is not positive", rows, cols)
	}
	if density < 0 || density > 1 {
		return nil, fmt.Errorf("density %g outside [0, 1]", density)
	}
	if dtype != "f32" && dtype != "f64" {
		return nil, fmt.Errorf("unknown dtype %q", dtype)
	}
	rng := rand.New(rand.NewSource(seed))
	perRow := int(density * float64(cols))

	indptr := make([]int64, rows+1)
	indices := []int64{}
	f32 := []float32{}
	f64 := []float64{}
	for r := 0; r < rows; r++ {
		support := rng.Perm(cols)[:perRow]
		sort.Ints(support)
		for _, c := range support {
			indices = append(indices, int64(c))
			if dtype == "f32" {
				f32 = append(f32, rng.Float32())
			} else {
				f64 = append(f64, rng.Float64())
			}
		}
		indptr[r+1] = int64(len(indices))
	}

	var data any = f64
	if dtype == "f32" {
		data = f32
	}
	m := sparse.NewCSR(rows, cols, data, indices, indptr)
	return m, m.Validate()
}

func compFlags(name string) (uint32, error) {
	switch name {
	case "none", "":
		return 0, nil
	case "zstd":
		return matfile.FlagCompZSTD, nil
	case "lz4":
		return matfile.FlagCompLZ4, nil
	}
	return 0, fmt.Errorf("unknown compression %q", name)
}
