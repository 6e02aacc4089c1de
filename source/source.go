// Package source loads host buffers to scan. Dumps are commonly stored
// compressed; zstd, gzip and LZ4 frames are inflated transparently, zstd
// through the seek table when one is present.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	seekable "github.com/SaveTheRbtz/zstd-seekable-format-go"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

var (
	// ErrOpenFile indicates the input file could not be opened.
	ErrOpenFile = errors.New("open file failed")
	// ErrRead indicates reading the input failed.
	ErrRead = errors.New("read input failed")
	// ErrDecompress indicates decompression failed.
	ErrDecompress = errors.New("decompression failed")
)

var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	gzipMagic = []byte{0x1F, 0x8B}
	lz4Magic  = []byte{0x04, 0x22, 0x4D, 0x18}
)

// Kind describes how an input was stored.
type Kind int

const (
	Raw Kind = iota
	Zstd
	SeekableZstd
	Gzip
	LZ4
)

func (k Kind) String() string {
	switch k {
	case Zstd:
		return "zstd"
	case SeekableZstd:
		return "seekable-zstd"
	case Gzip:
		return "gzip"
	case LZ4:
		return "lz4"
	}
	return "raw"
}

// Load reads the file at path into memory, decompressing it if needed.
func Load(path string) ([]byte, Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Raw, fmt.Errorf("%w: %q: %v", ErrOpenFile, path, err)
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}

// Decode reads rs until EOF. Input starting with a zstd, gzip or LZ4 frame
// is inflated.
func Decode(rs io.ReadSeeker) ([]byte, Kind, error) {
	var head [4]byte
	n, err := io.ReadFull(rs, head[:])
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, Raw, fmt.Errorf("%w: %v", ErrRead, err)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, Raw, fmt.Errorf("%w: %v", ErrRead, err)
	}

	switch h := head[:n]; {
	case bytes.Equal(h, zstdMagic):
		return decodeZstd(rs)
	case bytes.HasPrefix(h, gzipMagic):
		zr, err := gzip.NewReader(rs)
		if err != nil {
			return nil, Gzip, fmt.Errorf("%w: %v", ErrDecompress, err)
		}
		defer func() { _ = zr.Close() }()
		return inflate(zr, Gzip)
	case bytes.Equal(h, lz4Magic):
		return inflate(lz4.NewReader(rs), LZ4)
	}

	b, err := io.ReadAll(rs)
	if err != nil {
		return nil, Raw, fmt.Errorf("%w: %v", ErrRead, err)
	}
	return b, Raw, nil
}

func inflate(r io.Reader, kind Kind) ([]byte, Kind, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, kind, fmt.Errorf("%w: %v: %v", ErrDecompress, kind, err)
	}
	return b, kind, nil
}

func decodeZstd(rs io.ReadSeeker) ([]byte, Kind, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, Zstd, fmt.Errorf("%w: %v", ErrDecompress, err)
	}
	defer dec.Close()

	if b, err := readSeekable(rs, dec); err == nil {
		return b, SeekableZstd, nil
	}

	// No seek table, stream the whole thing.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, Zstd, fmt.Errorf("%w: %v", ErrRead, err)
	}
	if err := dec.Reset(rs); err != nil {
		return nil, Zstd, fmt.Errorf("%w: %v", ErrDecompress, err)
	}
	return inflate(dec, Zstd)
}

func readSeekable(rs io.ReadSeeker, dec *zstd.Decoder) ([]byte, error) {
	r, err := seekable.NewReader(rs, dec)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return io.ReadAll(r)
}
