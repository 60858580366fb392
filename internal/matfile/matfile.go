// Package matfile reads and writes .smx files, a sectioned container for one
// sparse matrix: magic, fixed header, section table, then 4096-aligned
// payloads for indptr, indices, and values. Sections may be zstd or lz4
// compressed and carry an xxh3 hash of the raw payload.
package matfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	lz4 "github.com/pierrec/lz4/v4"
	"github.com/zeebo/xxh3"

	"github.com/sparsedot/sparsedot/sparse"
)

var magic = [8]byte{'S', 'M', 'X', '1', 0, 0, 0, 0}

const (
	SecIndptr  uint32 = 1
	SecIndices uint32 = 2
	SecValues  uint32 = 3
)

const (
	FlagCompZSTD uint32 = 1 << 0
	FlagCompLZ4  uint32 = 1 << 1
)

// Header is the fixed-size matrix descriptor following the magic.
type Header struct {
	Ver    uint32
	Format uint32 // 1 CSR, 2 CSC
	Dtype  uint32 // 1 float32, 2 float64
	Res    uint32
	Rows   uint64
	Cols   uint64
	Nnz    uint64
}

type tocEntry struct {
	SecID   uint32
	Flags   uint32
	Offset  uint64
	Size    uint64
	RawSize uint64
	Hash    uint64
}

var ErrFormat = errors.New("matfile: not an smx file")

func formatCode(f sparse.Format) (uint32, error) {
	switch f {
	case sparse.CSR:
		return 1, nil
	case sparse.CSC:
		return 2, nil
	}
	return 0, fmt.Errorf("%w: %s", sparse.ErrUnsupportedFormat, f)
}

func dtypeCode(d sparse.Dtype) (uint32, error) {
	switch d {
	case sparse.Float32:
		return 1, nil
	case sparse.Float64:
		return 2, nil
	}
	return 0, fmt.Errorf("%w: %s", sparse.ErrUnsupportedDtype, d)
}

func i64Bytes(xs []int64) []byte {
	out := make([]byte, 8*len(xs))
	for i, v := range xs {
		binary.LittleEndian.PutUint64(out[8*i:], uint64(v))
	}
	return out
}

func bytesI64(b []byte) ([]int64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("matfile: index payload of %d bytes is not 8-aligned", len(b))
	}
	out := make([]int64, len(b)/8)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(b[8*i:]))
	}
	return out, nil
}

func valueBytes(data any) ([]byte, error) {
	switch d := data.(type) {
	case []float32:
		var buf bytes.Buffer
		if err := binary.Write(&buf, binary.LittleEndian, d); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case []float64:
		var buf bytes.Buffer
		if err := binary.Write(&buf, binary.LittleEndian, d); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%w: %T", sparse.ErrUnsupportedDtype, data)
}

func bytesValues(b []byte, dtype uint32, nnz int) (any, error) {
	switch dtype {
	case 1:
		if len(b) != 4*nnz {
			return nil, fmt.Errorf("matfile: value payload %d bytes, want %d", len(b), 4*nnz)
		}
		out := make([]float32, nnz)
		if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, out); err != nil {
			return nil, err
		}
		return out, nil
	case 2:
		if len(b) != 8*nnz {
			return nil, fmt.Errorf("matfile: value payload %d bytes, want %d", len(b), 8*nnz)
		}
		out := make([]float64, nnz)
		if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, out); err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("matfile: unknown dtype code %d", dtype)
}

func compress(raw []byte, flags uint32) ([]byte, error) {
	switch {
	case flags&FlagCompZSTD != 0:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(raw, make([]byte, 0, len(raw))), nil
	case flags&FlagCompLZ4 != 0:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(raw); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return raw, nil
}

func decompress(payload []byte, flags uint32) ([]byte, error) {
	switch {
	case flags&FlagCompZSTD != 0:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(payload, nil)
	case flags&FlagCompLZ4 != 0:
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, lz4.NewReader(bytes.NewReader(payload))); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return payload, nil
}

func alignUp(x, a int64) int64 {
	if r := x % a; r != 0 {
		return x + (a - r)
	}
	return x
}

// Write stores m at path. flags selects per-section compression (the same
// setting applies to all three sections).
func Write(path string, m *sparse.Matrix, flags uint32) error {
	if err := m.Validate(); err != nil {
		return err
	}
	fc, err := formatCode(m.Format)
	if err != nil {
		return err
	}
	dc, err := dtypeCode(m.Dtype())
	if err != nil {
		return err
	}
	vals, err := valueBytes(m.Data)
	if err != nil {
		return err
	}
	raws := [][]byte{i64Bytes(m.Indptr), i64Bytes(m.Indices), vals}
	ids := []uint32{SecIndptr, SecIndices, SecValues}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(magic[:]); err != nil {
		return err
	}
	hdr := Header{
		Ver: 1, Format: fc, Dtype: dc,
		Rows: uint64(m.Rows), Cols: uint64(m.Cols), Nnz: uint64(m.NNZ()),
	}
	if err := binary.Write(f, binary.LittleEndian, &hdr); err != nil {
		return err
	}

	recs := make([]tocEntry, len(raws))
	payloads := make([][]byte, len(raws))
	base := int64(8 + binary.Size(hdr) + binary.Size(tocEntry{})*len(raws))
	offset := alignUp(base, 4096)
	for i, raw := range raws {
		payload, err := compress(raw, flags)
		if err != nil {
			return err
		}
		payloads[i] = payload
		recs[i] = tocEntry{
			SecID: ids[i], Flags: flags,
			Offset: uint64(offset), Size: uint64(len(payload)),
			RawSize: uint64(len(raw)), Hash: xxh3.Hash(raw),
		}
		offset = alignUp(offset+int64(len(payload)), 4096)
	}
	for _, r := range recs {
		if err := binary.Write(f, binary.LittleEndian, &r); err != nil {
			return err
		}
	}
	for i, payload := range payloads {
		if _, err := f.Seek(int64(recs[i].Offset), io.SeekStart); err != nil {
			return err
		}
		if _, err := f.Write(payload); err != nil {
			return err
		}
	}
	return nil
}

type reader struct {
	f   *os.File
	hdr Header
	toc []tocEntry
}

func open(path string) (*reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	head := make([]byte, 8)
	if _, err := io.ReadFull(f, head); err != nil {
		f.Close()
		return nil, err
	}
	if !bytes.Equal(head, magic[:]) {
		f.Close()
		return nil, ErrFormat
	}
	r := &reader{f: f}
	if err := binary.Read(f, binary.LittleEndian, &r.hdr); err != nil {
		f.Close()
		return nil, err
	}
	r.toc = make([]tocEntry, 3)
	for i := range r.toc {
		if err := binary.Read(f, binary.LittleEndian, &r.toc[i]); err != nil {
			f.Close()
			return nil, err
		}
	}
	return r, nil
}

func (r *reader) close() error { return r.f.Close() }

// section reads, decompresses, and checksums one payload.
func (r *reader) section(id uint32) ([]byte, error) {
	for _, e := range r.toc {
		if e.SecID != id {
			continue
		}
		payload := make([]byte, e.Size)
		if _, err := r.f.ReadAt(payload, int64(e.Offset)); err != nil {
			return nil, err
		}
		raw, err := decompress(payload, e.Flags)
		if err != nil {
			return nil, err
		}
		if uint64(len(raw)) != e.RawSize {
			return nil, fmt.Errorf("matfile: section %d decompressed to %d bytes, header says %d", id, len(raw), e.RawSize)
		}
		if h := xxh3.Hash(raw); h != e.Hash {
			return nil, fmt.Errorf("matfile: section %d checksum mismatch (%016x != %016x)", id, h, e.Hash)
		}
		return raw, nil
	}
	return nil, fmt.Errorf("matfile: section %d not found", id)
}

// ReadHeader returns the descriptor without loading payloads.
func ReadHeader(path string) (Header, error) {
	r, err := open(path)
	if err != nil {
		return Header{}, err
	}
	defer r.close()
	return r.hdr, nil
}

// Read loads the matrix stored at path and validates its structure.
func Read(path string) (*sparse.Matrix, error) {
	r, err := open(path)
	if err != nil {
		return nil, err
	}
	defer r.close()

	indptrB, err := r.section(SecIndptr)
	if err != nil {
		return nil, err
	}
	indicesB, err := r.section(SecIndices)
	if err != nil {
		return nil, err
	}
	valuesB, err := r.section(SecValues)
	if err != nil {
		return nil, err
	}

	indptr, err := bytesI64(indptrB)
	if err != nil {
		return nil, err
	}
	indices, err := bytesI64(indicesB)
	if err != nil {
		return nil, err
	}
	data, err := bytesValues(valuesB, r.hdr.Dtype, int(r.hdr.Nnz))
	if err != nil {
		return nil, err
	}

	format := sparse.CSR
	if r.hdr.Format == 2 {
		format = sparse.CSC
	} else if r.hdr.Format != 1 {
		return nil, fmt.Errorf("matfile: unknown format code %d", r.hdr.Format)
	}
	m := &sparse.Matrix{
		Format:  format,
		Rows:    int(r.hdr.Rows),
		Cols:    int(r.hdr.Cols),
		Data:    data,
		Indices: indices,
		Indptr:  indptr,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Verify rereads every section and reports the first checksum or structure
// failure, without building the matrix.
func Verify(path string) error {
	r, err := open(path)
	if err != nil {
		return err
	}
	defer r.close()
	for _, id := range []uint32{SecIndptr, SecIndices, SecValues} {
		if _, err := r.section(id); err != nil {
			return err
		}
	}
	return nil
}
