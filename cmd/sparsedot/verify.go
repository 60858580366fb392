package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sparsedot/sparsedot/internal/matfile"
)

func cmdVerify() {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	in := fs.String("in", "", "input .smx")
	fs.Parse(os.Args[2:])
	if *in == "" {
		fmt.Println("usage: sparsedot verify --in matrix.smx")
		os.Exit(1)
	}
	if err := matfile.Verify(*in); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		fmt.Fprintln(os.Stderr, "checksum verify: FAILED")
		os.Exit(3)
	}
	fmt.Println("checksum verify: OK")
}
