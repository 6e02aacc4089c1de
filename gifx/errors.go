package gifx

import (
	"errors"
	"fmt"
)

var (
	// ErrHeaderInvalid indicates the view does not start with "GIF8".
	ErrHeaderInvalid = errors.New("invalid header")
	// ErrUnexpectedEndOfData indicates a read past the end of the view.
	ErrUnexpectedEndOfData = errors.New("unexpected end of data")
	// ErrInvalidBlockMarker indicates an unknown byte where a block must start.
	ErrInvalidBlockMarker = errors.New("invalid block marker")
	// ErrInvalidExtensionType indicates an unknown extension label.
	ErrInvalidExtensionType = errors.New("invalid extension type")
	// ErrInvalidExtensionTerminator indicates an extension not followed by 0x00.
	ErrInvalidExtensionTerminator = errors.New("invalid extension terminator")
	// ErrInvalidImageDescriptorMarker indicates an image descriptor not starting with 0x2C.
	ErrInvalidImageDescriptorMarker = errors.New("invalid image descriptor marker")
	// ErrInvalidImageDataTerminator indicates image data not followed by 0x00.
	ErrInvalidImageDataTerminator = errors.New("invalid image data terminator")
	// ErrInvalidTrailerByte indicates a trailer that is not 0x3B.
	ErrInvalidTrailerByte = errors.New("invalid trailer byte")
)

// ParseError reports where in the view parsing stopped and why. Err is one of
// the sentinel errors of this package.
type ParseError struct {
	Offset int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("gif: %v at offset %d", e.Err, e.Offset)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func errAt(off int, err error) error {
	return &ParseError{Offset: off, Err: err}
}
