package sparse

import "gonum.org/v1/gonum/mat"

// ToDense widens the matrix into a gonum dense matrix. Duplicate entries are
// summed, matching the usual compressed-storage convention.
func (m *Matrix) ToDense() *mat.Dense {
	if m.Rows == 0 || m.Cols == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(m.Rows, m.Cols, nil)
	add := func(major, k int, v float64) {
		if m.Format == CSC {
			out.Set(int(m.Indices[k]), major, out.At(int(m.Indices[k]), major)+v)
		} else {
			out.Set(major, int(m.Indices[k]), out.At(major, int(m.Indices[k]))+v)
		}
	}
	switch d := m.Data.(type) {
	case []float32:
		for i := 0; i < m.Major(); i++ {
			for k := m.Indptr[i]; k < m.Indptr[i+1]; k++ {
				add(i, int(k), float64(d[k]))
			}
		}
	case []float64:
		for i := 0; i < m.Major(); i++ {
			for k := m.Indptr[i]; k < m.Indptr[i+1]; k++ {
				add(i, int(k), d[k])
			}
		}
	}
	return out
}
