// Package sink persists extracted artifacts.
package sink

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

var (
	// ErrCreateDir indicates the output directory could not be created.
	ErrCreateDir = errors.New("create output directory failed")
	// ErrWriteFile indicates an artifact could not be written.
	ErrWriteFile = errors.New("write artifact failed")
	// ErrInvalidName indicates an artifact name that would escape the
	// output directory.
	ErrInvalidName = errors.New("invalid artifact name")
)

// Options configures a Dir. Nil means defaults.
type Options struct {
	// Compress stores every artifact zstd-compressed with a ".zst" suffix.
	Compress bool
	// Level is the zstd encoder level used with Compress. Zero means
	// zstd.SpeedDefault.
	Level zstd.EncoderLevel
}

// Dir writes artifacts as files of one directory.
type Dir struct {
	path string
	enc  *zstd.Encoder
}

// NewDir creates path if needed and returns a sink writing into it.
func NewDir(path string, opts *Options) (*Dir, error) {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrCreateDir, path, err)
	}
	d := &Dir{path: path}
	if opts != nil && opts.Compress {
		level := opts.Level
		if level == 0 {
			level = zstd.SpeedDefault
		}
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
		if err != nil {
			return nil, err
		}
		d.enc = enc
	}
	return d, nil
}

// Path returns the output directory.
func (d *Dir) Path() string {
	return d.path
}

// Write stores data under name and returns the path written. Safe for
// concurrent use.
func (d *Dir) Write(name string, data []byte) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if d.enc != nil {
		name += ".zst"
		data = d.enc.EncodeAll(data, make([]byte, 0, len(data)/2))
	}
	p := filepath.Join(d.path, name)
	if err := os.WriteFile(p, data, 0o640); err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrWriteFile, p, err)
	}
	return p, nil
}

// Close releases the encoder, if any.
func (d *Dir) Close() error {
	if d.enc != nil {
		return d.enc.Close()
	}
	return nil
}
