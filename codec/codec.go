// Package codec re-encodes embedded images whose end cannot be found without
// decoding them.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/sebnyberg/imgcarve/magic"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

var (
	// ErrUnsupportedFormat indicates a format the codec cannot transcode.
	ErrUnsupportedFormat = errors.New("codec: unsupported format")
	// ErrTooLarge indicates an image larger than the configured pixel limit.
	ErrTooLarge = errors.New("codec: image too large")
	// ErrDecode indicates the candidate could not be decoded.
	ErrDecode = errors.New("codec: decode failed")
	// ErrEncode indicates the decoded image could not be encoded.
	ErrEncode = errors.New("codec: encode failed")
)

// DefaultMaxPixels bounds the size of a decoded image.
const DefaultMaxPixels = 1 << 26

type Codec interface {
	// Transcode decodes the image of format f found at the start of b and
	// returns it encoded as a standalone file, along with the format that
	// file is in.
	Transcode(f magic.Format, b []byte) ([]byte, magic.Format, error)
}

var _ Codec = new(Pure)

// Pure transcodes with the Go image packages. WEBP input is written as PNG
// since there is no WEBP encoder.
type Pure struct {
	// JPEGQuality is passed to the JPEG encoder. Zero means
	// jpeg.DefaultQuality.
	JPEGQuality int
	// MaxPixels rejects images with more pixels than this before decoding
	// them. Zero means DefaultMaxPixels.
	MaxPixels int
}

func (c *Pure) Transcode(f magic.Format, b []byte) ([]byte, magic.Format, error) {
	dec, ok := decoders[f]
	if !ok {
		return nil, magic.Unknown, fmt.Errorf("%w: %v", ErrUnsupportedFormat, f)
	}

	cfg, err := dec.config(bytes.NewReader(b))
	if err != nil {
		return nil, magic.Unknown, fmt.Errorf("%w: %v config: %v", ErrDecode, f, err)
	}
	maxPixels := c.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > maxPixels/cfg.Height {
		return nil, magic.Unknown, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, err := dec.decode(bytes.NewReader(b))
	if err != nil {
		return nil, magic.Unknown, fmt.Errorf("%w: %v: %v", ErrDecode, f, err)
	}

	var buf bytes.Buffer
	out, err := c.encode(&buf, f, img)
	if err != nil {
		return nil, magic.Unknown, fmt.Errorf("%w: %v: %v", ErrEncode, out, err)
	}
	return buf.Bytes(), out, nil
}

func (c *Pure) encode(w io.Writer, f magic.Format, img image.Image) (magic.Format, error) {
	switch f {
	case magic.JPEG:
		q := c.JPEGQuality
		if q <= 0 {
			q = jpeg.DefaultQuality
		}
		return magic.JPEG, jpeg.Encode(w, img, &jpeg.Options{Quality: q})
	case magic.BMP:
		return magic.BMP, bmp.Encode(w, img)
	case magic.TIFF:
		return magic.TIFF, tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	}
	return magic.PNG, png.Encode(w, img)
}

type decoder struct {
	config func(io.Reader) (image.Config, error)
	decode func(io.Reader) (image.Image, error)
}

var decoders = map[magic.Format]decoder{
	magic.PNG:  {png.DecodeConfig, png.Decode},
	magic.JPEG: {jpeg.DecodeConfig, jpeg.Decode},
	magic.BMP:  {bmp.DecodeConfig, bmp.Decode},
	magic.TIFF: {tiff.DecodeConfig, tiff.Decode},
	magic.WEBP: {webp.DecodeConfig, webp.Decode},
}
