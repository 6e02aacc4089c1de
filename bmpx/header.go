package bmpx

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormat indicates the buffer does not start with "BM".
	ErrInvalidFormat = errors.New("bmp: invalid format")
	// ErrUnsupported indicates a header this package does not understand.
	ErrUnsupported = errors.New("bmp: unsupported")
	// ErrTruncated indicates the buffer ends inside the file.
	ErrTruncated = errors.New("bmp: truncated")
	// ErrSizeMismatch indicates header sizes that contradict each other.
	ErrSizeMismatch = errors.New("bmp: size mismatch")
)

const fileHeaderLen = 14

// DIB header lengths.
const (
	coreHeaderLen   = 12  // BITMAPCOREHEADER
	infoHeaderLen   = 40  // BITMAPINFOHEADER
	v2InfoHeaderLen = 52  // BITMAPV2INFOHEADER
	v3InfoHeaderLen = 56  // BITMAPV3INFOHEADER
	os2v2HeaderLen  = 64  // OS22XBITMAPHEADER
	v4InfoHeaderLen = 108 // BITMAPV4HEADER
	v5InfoHeaderLen = 124 // BITMAPV5HEADER
)

// Compression methods whose pixel array size follows from the dimensions.
const (
	compressionRGB       = 0
	compressionBitfields = 3
)

// IsInfoHeaderLen reports whether n is a known DIB header length.
func IsInfoHeaderLen(n uint32) bool {
	switch n {
	case coreHeaderLen, infoHeaderLen, v2InfoHeaderLen, v3InfoHeaderLen,
		os2v2HeaderLen, v4InfoHeaderLen, v5InfoHeaderLen:
		return true
	}
	return false
}

// Header holds the fields of the file and DIB headers needed to find the
// extent of a BMP file.
type Header struct {
	FileSize     uint32
	PixelOffset  uint32
	InfoLen      uint32
	Width        int
	Height       int
	TopDown      bool
	Planes       uint16
	BitsPerPixel uint16
	Compression  uint32
}

// DecodeHeader is adapted from 'x/image/bmp'. Unlike the stdlib version it
// reads from memory, accepts every DIB header revision and any compression,
// since only the layout of the file matters here, not its pixels.
func DecodeHeader(b []byte) (hdr Header, err error) {
	var empty Header
	if len(b) < fileHeaderLen+4 {
		return empty, fmt.Errorf("%w: %d byte header", ErrTruncated, len(b))
	}
	if string(b[:2]) != "BM" {
		return empty, ErrInvalidFormat
	}
	hdr.FileSize = binary.LittleEndian.Uint32(b[2:6])
	hdr.PixelOffset = binary.LittleEndian.Uint32(b[10:14])
	hdr.InfoLen = binary.LittleEndian.Uint32(b[14:18])
	if !IsInfoHeaderLen(hdr.InfoLen) {
		return empty, fmt.Errorf("%w: DIB header length %d", ErrUnsupported, hdr.InfoLen)
	}
	if len(b) < fileHeaderLen+int(hdr.InfoLen) {
		return empty, fmt.Errorf("%w: DIB header", ErrTruncated)
	}

	if hdr.InfoLen == coreHeaderLen {
		hdr.Width = int(binary.LittleEndian.Uint16(b[18:20]))
		hdr.Height = int(binary.LittleEndian.Uint16(b[20:22]))
		hdr.Planes = binary.LittleEndian.Uint16(b[22:24])
		hdr.BitsPerPixel = binary.LittleEndian.Uint16(b[24:26])
	} else {
		hdr.Width = int(int32(binary.LittleEndian.Uint32(b[18:22])))
		hdr.Height = int(int32(binary.LittleEndian.Uint32(b[22:26])))
		hdr.Planes = binary.LittleEndian.Uint16(b[26:28])
		hdr.BitsPerPixel = binary.LittleEndian.Uint16(b[28:30])
		hdr.Compression = binary.LittleEndian.Uint32(b[30:34])
	}
	if hdr.Height < 0 {
		hdr.Height, hdr.TopDown = -hdr.Height, true
	}
	if hdr.Width < 0 {
		return empty, fmt.Errorf("%w: width %d", ErrUnsupported, hdr.Width)
	}
	if hdr.Planes != 1 {
		return empty, fmt.Errorf("%w: %d planes", ErrUnsupported, hdr.Planes)
	}
	switch hdr.BitsPerPixel {
	case 1, 4, 8, 16, 24, 32:
	default:
		return empty, fmt.Errorf("%w: %d bits per pixel", ErrUnsupported, hdr.BitsPerPixel)
	}
	return hdr, nil
}

// PixelArrayLen returns the size of the pixel array for uncompressed images,
// or -1 when it cannot be derived from the dimensions.
func (h Header) PixelArrayLen() int {
	if h.Compression != compressionRGB && h.Compression != compressionBitfields {
		return -1
	}
	return byteWidth(h.Width, int(h.BitsPerPixel)) * h.Height
}

// byteWidth is the length of a pixel row; rows are padded to 4 bytes.
func byteWidth(pixels, bitsPerPixel int) int {
	return ((pixels*bitsPerPixel + 31) / 32) * 4
}
