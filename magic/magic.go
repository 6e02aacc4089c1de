// Package magic identifies image formats from their leading bytes.
package magic

import (
	"bytes"
	"encoding/binary"

	"github.com/sebnyberg/imgcarve/bmpx"
)

type Format uint8

const (
	Unknown Format = iota
	GIF
	PNG
	JPEG
	BMP
	TIFF
	WEBP
)

// Formats lists every known format.
var Formats = []Format{GIF, PNG, JPEG, BMP, TIFF, WEBP}

func (f Format) String() string {
	switch f {
	case GIF:
		return "gif"
	case PNG:
		return "png"
	case JPEG:
		return "jpeg"
	case BMP:
		return "bmp"
	case TIFF:
		return "tiff"
	case WEBP:
		return "webp"
	}
	return "unknown"
}

// Ext returns the usual file extension, without the dot.
func (f Format) Ext() string {
	switch f {
	case JPEG:
		return "jpg"
	case TIFF:
		return "tif"
	}
	return f.String()
}

var (
	sigGIF    = []byte("GIF8")
	sigPNG    = []byte("\x89PNG\r\n\x1a\n")
	sigJPEG   = []byte{0xFF, 0xD8, 0xFF}
	sigBMP    = []byte("BM")
	sigTIFFLE = []byte("II\x2A\x00")
	sigTIFFBE = []byte("MM\x00\x2A")
	sigRIFF   = []byte("RIFF")
	sigWEBP   = []byte("WEBP")
)

// Detect returns the format whose signature b starts with. BMP additionally
// needs a known DIB header length, since "BM" alone turns up everywhere.
func Detect(b []byte) Format {
	if len(b) < 2 {
		return Unknown
	}
	switch b[0] {
	case 'G':
		if bytes.HasPrefix(b, sigGIF) {
			return GIF
		}
	case 0x89:
		if bytes.HasPrefix(b, sigPNG) {
			return PNG
		}
	case 0xFF:
		if bytes.HasPrefix(b, sigJPEG) {
			return JPEG
		}
	case 'B':
		if bytes.HasPrefix(b, sigBMP) && len(b) >= 18 &&
			bmpx.IsInfoHeaderLen(binary.LittleEndian.Uint32(b[14:18])) {
			return BMP
		}
	case 'I':
		if bytes.HasPrefix(b, sigTIFFLE) {
			return TIFF
		}
	case 'M':
		if bytes.HasPrefix(b, sigTIFFBE) {
			return TIFF
		}
	case 'R':
		if bytes.HasPrefix(b, sigRIFF) && len(b) >= 12 && bytes.Equal(b[8:12], sigWEBP) {
			return WEBP
		}
	}
	return Unknown
}
