package imgcarve

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned when a carve start offset lies outside the host
// buffer.
var ErrOutOfRange = errors.New("start offset out of range")

type Carver interface {
	// Carve finds the end of the stream that begins at host[start] and
	// returns the byte range it occupies in host. The bytes at start must
	// already be known to carry the carver's signature.
	Carve(host []byte, start int) (Range, error)
}

// Range is a half-open byte range [Start, End) into a host buffer.
type Range struct {
	Start int
	End   int
}

func (r Range) Len() int {
	return r.End - r.Start
}

// Bytes returns the part of host covered by r. The result aliases host.
func (r Range) Bytes(host []byte) []byte {
	return host[r.Start:r.End:r.End]
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// CheckStart validates a carve start offset against the host length.
func CheckStart(host []byte, start int) error {
	if start < 0 || start > len(host) {
		return fmt.Errorf("%w: %d (host is %d bytes)", ErrOutOfRange, start, len(host))
	}
	return nil
}
