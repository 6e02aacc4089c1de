package gifx

import "github.com/sebnyberg/imgcarve"

var _ imgcarve.Carver = new(Carver)

// Carver cuts GIF streams out of host buffers.
type Carver struct {
	// Options are passed to the parser. Nil uses the defaults.
	Options *Options
}

// Carve parses the GIF stream starting at host[start] and returns the range
// it occupies. Parse errors are returned as is, with offsets relative to
// start.
func (c *Carver) Carve(host []byte, start int) (imgcarve.Range, error) {
	r, _, err := c.Blocks(host, start)
	return r, err
}

// Blocks is like Carve but also returns the parsed blocks.
func (c *Carver) Blocks(host []byte, start int) (imgcarve.Range, []Block, error) {
	if err := imgcarve.CheckStart(host, start); err != nil {
		return imgcarve.Range{}, nil, err
	}
	blocks, err := ParseWithOptions(host[start:], c.Options)
	if err != nil {
		return imgcarve.Range{}, nil, err
	}
	last := blocks[len(blocks)-1]
	return imgcarve.Range{Start: start, End: start + last.End()}, blocks, nil
}

// Carve carves with default options.
func Carve(host []byte, start int) (imgcarve.Range, error) {
	return new(Carver).Carve(host, start)
}
