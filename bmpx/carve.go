package bmpx

import (
	"fmt"

	"github.com/sebnyberg/imgcarve"
)

var _ imgcarve.Carver = new(Carver)

// Carver cuts BMP files out of host buffers using the file size stored in
// the BMP file header.
//
// The size field is cross-checked against the header layout and, for
// uncompressed images, against the pixel array the dimensions imply. Files
// whose size field has been zeroed by the writer are rejected.
type Carver struct{}

func (c *Carver) Carve(host []byte, start int) (imgcarve.Range, error) {
	if err := imgcarve.CheckStart(host, start); err != nil {
		return imgcarve.Range{}, err
	}
	hdr, err := DecodeHeader(host[start:])
	if err != nil {
		return imgcarve.Range{}, err
	}

	size := int(hdr.FileSize)
	offset := int(hdr.PixelOffset)
	if offset < fileHeaderLen+int(hdr.InfoLen) || size < offset {
		return imgcarve.Range{}, fmt.Errorf("%w: file size %d, pixel offset %d", ErrSizeMismatch, size, offset)
	}
	if n := hdr.PixelArrayLen(); n >= 0 && size < offset+n {
		return imgcarve.Range{}, fmt.Errorf("%w: file size %d, want at least %d", ErrSizeMismatch, size, offset+n)
	}
	if size > len(host)-start {
		return imgcarve.Range{}, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, size, len(host)-start)
	}
	return imgcarve.Range{Start: start, End: start + size}, nil
}
