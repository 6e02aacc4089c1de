// Package vipsx transcodes candidates with libvips.
//
// libvips must be started with Startup before the codec is used.
package vipsx

import (
	"fmt"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/sebnyberg/imgcarve/codec"
	"github.com/sebnyberg/imgcarve/magic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var startOnce sync.Once

// Startup starts libvips and routes its log messages to logger. Calls after
// the first are no-ops.
func Startup(logger *zap.Logger) {
	startOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
		logger = logger.Named("vips")
		vips.LoggingSettings(func(domain string, level vips.LogLevel, msg string) {
			if ce := logger.Check(zapLevel(level), msg); ce != nil {
				ce.Write(zap.String("domain", domain))
			}
		}, vips.LogLevelWarning)
		vips.Startup(nil)
	})
}

// Shutdown stops libvips. The codec must not be used afterwards.
func Shutdown() {
	vips.Shutdown()
}

func zapLevel(l vips.LogLevel) zapcore.Level {
	switch l {
	case vips.LogLevelError, vips.LogLevelCritical:
		return zapcore.ErrorLevel
	case vips.LogLevelWarning:
		return zapcore.WarnLevel
	case vips.LogLevelDebug:
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

var _ codec.Codec = new(Codec)

// Codec transcodes with libvips. Formats libvips can load but not save
// natively are written as PNG.
type Codec struct {
	// JPEGQuality is used when saving JPEG. Zero keeps the libvips default.
	JPEGQuality int
	// MaxPixels rejects larger images. Zero means codec.DefaultMaxPixels.
	MaxPixels int
}

func (c *Codec) Transcode(f magic.Format, b []byte) ([]byte, magic.Format, error) {
	if f == magic.Unknown {
		return nil, magic.Unknown, fmt.Errorf("%w: %v", codec.ErrUnsupportedFormat, f)
	}
	img, err := vips.NewImageFromBuffer(b)
	if err != nil {
		return nil, magic.Unknown, fmt.Errorf("%w: %v: %v", codec.ErrDecode, f, err)
	}
	defer img.Close()

	maxPixels := c.MaxPixels
	if maxPixels <= 0 {
		maxPixels = codec.DefaultMaxPixels
	}
	w, h := img.Width(), img.Height()
	if w <= 0 || h <= 0 || w > maxPixels/h {
		return nil, magic.Unknown, fmt.Errorf("%w: %dx%d", codec.ErrTooLarge, w, h)
	}

	out, outFormat, err := c.export(img)
	if err != nil {
		return nil, magic.Unknown, fmt.Errorf("%w: %v: %v", codec.ErrEncode, outFormat, err)
	}
	return out, outFormat, nil
}

func (c *Codec) export(img *vips.ImageRef) ([]byte, magic.Format, error) {
	var (
		out []byte
		err error
	)
	switch img.Format() {
	case vips.ImageTypeJPEG:
		p := vips.NewJpegExportParams()
		if c.JPEGQuality > 0 {
			p.Quality = c.JPEGQuality
		}
		out, _, err = img.ExportJpeg(p)
		return out, magic.JPEG, err
	case vips.ImageTypeTIFF:
		out, _, err = img.ExportTiff(vips.NewTiffExportParams())
		return out, magic.TIFF, err
	case vips.ImageTypeWEBP:
		out, _, err = img.ExportWebp(vips.NewWebpExportParams())
		return out, magic.WEBP, err
	}
	out, _, err = img.ExportPng(vips.NewPngExportParams())
	return out, magic.PNG, err
}
