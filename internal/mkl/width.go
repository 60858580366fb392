package mkl

import (
	"errors"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/ebitengine/purego"
	"github.com/sparsedot/sparsedot/sparse"
)

// IntWidth is the bit width of MKL_INT in the loaded library.
type IntWidth int

const (
	Width64 IntWidth = 64
	Width32 IntWidth = 32
)

// ErrInit means the library could not be loaded or the integer width probe
// failed with both widths. No operation in this package can proceed.
var ErrInit = errors.New("mkl: unable to establish vendor integer width")

var (
	initOnce sync.Once
	initErr  error
	intWidth IntWidth
)

// Init loads libmkl_rt.so, binds the entry points, and discovers MKL_INT's
// width by round-tripping a probe matrix. Lazy and idempotent; every other
// entry into this package funnels through it.
func Init() error {
	initOnce.Do(func() {
		handle, err := purego.Dlopen(soname, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			initErr = fmt.Errorf("%w: %v", ErrInit, err)
			return
		}
		if err := bindAll(handle); err != nil {
			initErr = fmt.Errorf("%w: %v", ErrInit, err)
			return
		}
		// Assume 64-bit indices, verify by round trip, fall back to 32-bit.
		intWidth = Width64
		err64 := probe()
		if err64 == nil {
			return
		}
		intWidth = Width32
		err32 := probe()
		if err32 == nil {
			return
		}
		intWidth = 0
		initErr = fmt.Errorf("%w (ilp64: %v; lp64: %v)", ErrInit, err64, err32)
	})
	return initErr
}

// Width reports the discovered MKL_INT width. Only meaningful after a
// successful Init; immutable afterwards.
func Width() IntWidth { return intWidth }

// probeMatrix is a fixed 5x5 half-dense CSC float32 matrix whose dense form
// is the oracle for the discovery round trip.
func probeMatrix() *sparse.Matrix {
	return sparse.NewCSC(5, 5,
		[]float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		[]int64{0, 2, 1, 3, 0, 4, 2, 3, 1, 4},
		[]int64{0, 2, 4, 6, 8, 10},
	)
}

// probe round-trips the probe matrix through create -> convert-to-CSR ->
// export under the current width and compares dense forms. Any handle error
// or numeric mismatch rejects the width.
func probe() error {
	m := probeMatrix()
	csc, err := create(m, false)
	if err != nil {
		return err
	}
	defer csc.Destroy()
	csr, err := csc.ConvertCSR()
	if err != nil {
		return err
	}
	defer csr.Destroy()
	out, err := export(csr, sparse.CSR, true)
	if err != nil {
		return err
	}
	if !mat.EqualApprox(m.ToDense(), out.ToDense(), 1e-6) {
		return errors.New("probe round trip mismatch")
	}
	return nil
}
