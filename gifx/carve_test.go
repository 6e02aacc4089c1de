package gifx

import (
	"bytes"
	"image/gif"
	"math/rand"
	"testing"

	"github.com/sebnyberg/imgcarve"
	"github.com/stretchr/testify/require"
)

func randBytes(seed int64, n int) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(b)
	return b
}

// embed returns before+stream+after and the offset of stream.
func embed(stream []byte, before, after int) ([]byte, int) {
	host := randBytes(1, before)
	host = append(host, stream...)
	host = append(host, randBytes(2, after)...)
	return host, before
}

func TestCarveRoundTrip(t *testing.T) {
	want := minimalGIF()
	host, start := embed(want, 137, 500)

	r, err := Carve(host, start)
	require.NoError(t, err)
	require.Equal(t, imgcarve.Range{Start: 137, End: 137 + len(want)}, r)
	require.Equal(t, want, r.Bytes(host))
}

func TestCarveStdlibEncoded(t *testing.T) {
	want := encodeAnimated(t)
	host, start := embed(want, 4096, 4096)

	c := new(Carver)
	r, blocks, err := c.Blocks(host, start)
	require.NoError(t, err)
	require.Equal(t, len(want), r.Len())
	require.Equal(t, want, r.Bytes(host))
	require.Equal(t, r.Len(), blocks[len(blocks)-1].End())

	g, err := gif.DecodeAll(bytes.NewReader(r.Bytes(host)))
	require.NoError(t, err)
	require.Len(t, g.Image, 3)
}

func TestCarveErrorsUnchanged(t *testing.T) {
	stream := append(newGIF(0).b, 0x21, 0x02, 0x00, 0x3B)
	host, start := embed(stream, 64, 64)

	r, err := Carve(host, start)
	require.ErrorIs(t, err, ErrInvalidExtensionType)
	require.Equal(t, imgcarve.Range{}, r)

	_, perr := Parse(stream)
	require.Equal(t, perr, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, 14, pe.Offset)
}

func TestCarveTruncatedHost(t *testing.T) {
	stream := minimalGIF()
	host := append(randBytes(3, 10), stream[:len(stream)-1]...)

	_, err := Carve(host, 10)
	require.ErrorIs(t, err, ErrUnexpectedEndOfData)
}

func TestCarveStartOutOfRange(t *testing.T) {
	host := minimalGIF()

	_, err := Carve(host, -1)
	require.ErrorIs(t, err, imgcarve.ErrOutOfRange)
	_, err = Carve(host, len(host)+1)
	require.ErrorIs(t, err, imgcarve.ErrOutOfRange)

	// An empty candidate view has no signature.
	_, err = Carve(host, len(host))
	require.ErrorIs(t, err, ErrHeaderInvalid)
}

func TestCarverOptions(t *testing.T) {
	stream := newGIF(0).graphicControl(5, 1, 2, 3, 4, 5).image(0, []byte{1}).trailer()
	host, start := embed(stream, 7, 7)

	_, err := new(Carver).Carve(host, start)
	require.ErrorIs(t, err, ErrInvalidExtensionTerminator)

	c := &Carver{Options: &Options{TrustGraphicControlSize: true}}
	r, err := c.Carve(host, start)
	require.NoError(t, err)
	require.Equal(t, stream, r.Bytes(host))
}
