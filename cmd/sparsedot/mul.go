package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sparsedot/sparsedot"
	"github.com/sparsedot/sparsedot/internal/matfile"
)

func cmdMul() {
	fs := flag.NewFlagSet("mul", flag.ExitOnError)
	aPath := fs.String("a", "", "left operand .smx")
	bPath := fs.String("b", "", "right operand .smx")
	out := fs.String("out", "", "output .smx")
	cast := fs.Bool("cast", false, "upcast mismatched dtypes to float64")
	reorder := fs.Bool("reorder", false, "sort output indices within each row")
	comp := fs.String("comp", "none", "section compression: none, zstd, lz4")
	verbose := fs.Bool("v", false, "log stage timings and matrix stats")
	fs.Parse(os.Args[2:])
	if *aPath == "" || *bPath == "" || *out == "" {
		fmt.Println("usage: sparsedot mul --a a.smx --b b.smx --out c.smx")
		os.Exit(1)
	}
	flags, err := compFlags(*comp)
	if err != nil {
		fatalf("mul: %v", err)
	}

	a, err := matfile.Read(*aPath)
	if err != nil {
		fatalf("mul: read %s: %v", *aPath, err)
	}
	b, err := matfile.Read(*bPath)
	if err != nil {
		fatalf("mul: read %s: %v", *bPath, err)
	}

	start := time.Now()
	c, err := sparsedot.Dot(a, b, sparsedot.Options{
		Cast:          *cast,
		Copy:          true,
		ReorderOutput: *reorder,
		Verbose:       *verbose,
	})
	if err != nil {
		fatalf("mul: %v", err)
	}
	elapsed := time.Since(start)

	if err := matfile.Write(*out, c, flags); err != nil {
		fatalf("mul: write %s: %v", *out, err)
	}
	fmt.Printf("wrote %s: (%d, %d) %s nnz=%d in %v\n", *out, c.Rows, c.Cols, c.Dtype(), c.NNZ(), elapsed)
}
