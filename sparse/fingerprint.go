package sparse

import (
	"encoding/binary"

	xxh3 "github.com/zeebo/xxh3"
)

// Fingerprint hashes the structure and contents of a matrix with xxh3-64.
// Two matrices with identical format, shape, dtype and arrays fingerprint
// identically; used by diagnostics and the CLI.
func Fingerprint(m *Matrix) uint64 {
	h := xxh3.New()
	binary.Write(h, binary.LittleEndian, uint32(m.Format))
	binary.Write(h, binary.LittleEndian, uint32(m.Dtype()))
	binary.Write(h, binary.LittleEndian, uint64(m.Rows))
	binary.Write(h, binary.LittleEndian, uint64(m.Cols))
	binary.Write(h, binary.LittleEndian, m.Indptr)
	binary.Write(h, binary.LittleEndian, m.Indices)
	switch d := m.Data.(type) {
	case []float32:
		binary.Write(h, binary.LittleEndian, d)
	case []float64:
		binary.Write(h, binary.LittleEndian, d)
	}
	return h.Sum64()
}
