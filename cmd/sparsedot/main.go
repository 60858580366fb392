package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "gen":
		cmdGen()
	case "info":
		cmdInfo()
	case "mul":
		cmdMul()
	case "verify":
		cmdVerify()
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("sparsedot - sparse matrix multiplication via MKL sparse BLAS")
	fmt.Println("usage: sparsedot <command> [args]")
	fmt.Println("  gen    --out <file.smx> [--rows N] [--cols N] [--density X] [--dtype f64] [--seed N] [--comp zstd]")
	fmt.Println("  info   <file.smx>            print matrix shape, dtype, density, fingerprint")
	fmt.Println("  mul    --a <a.smx> --b <b.smx> --out <c.smx> [--cast] [--reorder] [--comp zstd] [-v]")
	fmt.Println("  verify --in <file.smx>       verify section checksums")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
