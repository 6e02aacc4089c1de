package gifx

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"testing"

	"github.com/stretchr/testify/require"
)

// gifBuilder assembles synthetic streams block by block.
type gifBuilder struct {
	b []byte
}

func newGIF(packed byte) *gifBuilder {
	g := &gifBuilder{b: []byte("GIF89a")}
	g.b = append(g.b, 4, 0, 3, 0, packed, 0, 0)
	if packed&fColorTable != 0 {
		g.colorTable(packed)
	}
	return g
}

func (g *gifBuilder) colorTable(packed byte) *gifBuilder {
	n := colorTableLen(packed)
	for i := 0; i < n; i++ {
		g.b = append(g.b, byte(i))
	}
	return g
}

func (g *gifBuilder) graphicControl(declared byte, data ...byte) *gifBuilder {
	g.b = append(g.b, sExtension, eGraphicControl, declared)
	g.b = append(g.b, data...)
	g.b = append(g.b, 0)
	return g
}

func (g *gifBuilder) comment(chunks ...[]byte) *gifBuilder {
	g.b = append(g.b, sExtension, eComment)
	g.b = append(g.b, subBlocks(chunks...)...)
	return g
}

func (g *gifBuilder) plainText(chunks ...[]byte) *gifBuilder {
	g.b = append(g.b, sExtension, ePlainText, plainTextMetaLen)
	g.b = append(g.b, make([]byte, plainTextMetaLen)...)
	g.b = append(g.b, subBlocks(chunks...)...)
	return g
}

func (g *gifBuilder) application(id string, chunks ...[]byte) *gifBuilder {
	g.b = append(g.b, sExtension, eApplication, applicationMetaLen)
	g.b = append(g.b, id[:applicationMetaLen]...)
	g.b = append(g.b, subBlocks(chunks...)...)
	return g
}

func (g *gifBuilder) image(packed byte, chunks ...[]byte) *gifBuilder {
	g.b = append(g.b, sImageDescriptor, 0, 0, 0, 0, 4, 0, 3, 0, packed)
	if packed&fColorTable != 0 {
		g.colorTable(packed)
	}
	g.b = append(g.b, 2) // LZW minimum code size
	g.b = append(g.b, subBlocks(chunks...)...)
	return g
}

func (g *gifBuilder) pad(n int) *gifBuilder {
	g.b = append(g.b, make([]byte, n)...)
	return g
}

func (g *gifBuilder) trailer() []byte {
	return append(g.b, sTrailer)
}

// subBlocks length-prefixes every chunk and terminates the chain.
func subBlocks(chunks ...[]byte) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, byte(len(c)))
		out = append(out, c...)
	}
	return append(out, 0)
}

func minimalGIF() []byte {
	return newGIF(0).image(0, []byte{0xAA, 0xBB, 0xCC}).trailer()
}

// requireTiled checks that blocks cover b from 0 to the trailer and that the
// only bytes between blocks are skipped zeros.
func requireTiled(t testing.TB, b []byte, blocks []Block) {
	require.NotEmpty(t, blocks)
	require.Equal(t, Block{Offset: 0, Length: headerLen, Kind: KindHeader}, blocks[0])
	require.Equal(t, KindLogicalScreenDescriptor, blocks[1].Kind)
	require.Equal(t, logicalScreenDescriptorLen, blocks[1].Length)
	last := blocks[len(blocks)-1]
	require.Equal(t, KindTrailer, last.Kind)
	require.Equal(t, 1, last.Length)
	require.Equal(t, byte(sTrailer), b[last.Offset])

	for i := 1; i < len(blocks); i++ {
		prev, cur := blocks[i-1], blocks[i]
		require.GreaterOrEqual(t, prev.Length, 1)
		require.LessOrEqual(t, prev.End(), cur.Offset, "overlap between %v and %v", prev, cur)
		for off := prev.End(); off < cur.Offset; off++ {
			require.Zero(t, b[off], "non-zero gap byte at %d between %v and %v", off, prev, cur)
		}
	}
}

func TestParseMinimal(t *testing.T) {
	b := minimalGIF()
	blocks, err := Parse(b)
	require.NoError(t, err)
	require.Equal(t, []Block{
		{Offset: 0, Length: 6, Kind: KindHeader},
		{Offset: 6, Length: 7, Kind: KindLogicalScreenDescriptor},
		{Offset: 13, Length: 10, Kind: KindImageDescriptor},
		{Offset: 23, Length: 5, Kind: KindImageData},
		{Offset: 29, Length: 1, Kind: KindTrailer},
	}, blocks)
	require.Equal(t, len(b), blocks[len(blocks)-1].End())
}

func TestParseCoverage(t *testing.T) {
	b := newGIF(fColorTable|2).
		application("NETSCAPE2.0", []byte{1, 0, 0}).
		comment([]byte("hello"), []byte("world")).
		graphicControl(4, 0, 10, 0, 0).
		image(fColorTable|7, bytes.Repeat([]byte{0x55}, 255), []byte{1, 2}).
		plainText([]byte("text")).
		graphicControl(4, 0, 10, 0, 0).
		image(0, []byte{9}).
		trailer()

	blocks, err := Parse(b)
	require.NoError(t, err)
	requireTiled(t, b, blocks)
	require.Equal(t, len(b), blocks[len(blocks)-1].End())

	var kinds []string
	for _, blk := range blocks {
		if blk.Kind == KindExtension {
			kinds = append(kinds, blk.Ext.String())
			continue
		}
		kinds = append(kinds, blk.Kind.String())
	}
	require.Equal(t, []string{
		"Header", "LogicalScreenDescriptor", "ColorTable",
		"Application", "Comment", "GraphicControl",
		"ImageDescriptor", "ColorTable", "ImageData",
		"PlainText", "GraphicControl",
		"ImageDescriptor", "ImageData",
		"Trailer",
	}, kinds)

	require.Equal(t, 24, blocks[2].Length)  // 3 * 2^3
	require.Equal(t, 768, blocks[7].Length) // 3 * 2^8
	require.Equal(t, 3+11+4, blocks[3].Length)
	require.Equal(t, 2+6+6, blocks[4].Length)
	require.Equal(t, 7, blocks[5].Length)
	require.Equal(t, 1+256+3, blocks[8].Length)
	require.Equal(t, 3+12+5, blocks[9].Length)
}

func TestColorTableLen(t *testing.T) {
	for n := byte(0); n <= 7; n++ {
		require.Equal(t, 3*(1<<(n+1)), colorTableLen(fColorTable|n), "n=%d", n)
		// Only the low 3 bits count.
		require.Equal(t, colorTableLen(n), colorTableLen(0x78|n))
	}
	require.Equal(t, 6, colorTableLen(0))
	require.Equal(t, 768, colorTableLen(7))
}

func TestSubBlockChainLen(t *testing.T) {
	n, err := view([]byte{3, 0xAA, 0xBB, 0xCC, 0}).subBlockChainLen(0)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	n, err = view([]byte{0}).subBlockChainLen(0)
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = view([]byte{0xFF, 2, 1, 2, 0}).subBlockChainLen(1)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	_, err = view([]byte{5, 1, 2}).subBlockChainLen(0)
	require.ErrorIs(t, err, ErrUnexpectedEndOfData)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, 6, perr.Offset)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	minimal := minimalGIF()
	afterLSD := func(rest ...byte) []byte {
		return append(newGIF(0).b, rest...)
	}

	for _, tc := range []struct {
		name    string
		in      []byte
		wantErr error
		wantOff int
	}{
		{name: "empty", in: nil, wantErr: ErrHeaderInvalid, wantOff: 0},
		{name: "bad-signature", in: []byte("GIF79a...."), wantErr: ErrHeaderInvalid, wantOff: 0},
		{name: "png", in: []byte("\x89PNG\r\n\x1a\n"), wantErr: ErrHeaderInvalid, wantOff: 0},
		{name: "signature-only", in: []byte("GIF8"), wantErr: ErrUnexpectedEndOfData, wantOff: 4},
		{name: "truncated-lsd", in: []byte("GIF89a\x04\x00"), wantErr: ErrUnexpectedEndOfData, wantOff: 8},
		{name: "truncated-global-table", in: append([]byte("GIF89a\x04\x00\x03\x00\x80\x00\x00"), 1, 2, 3), wantErr: ErrUnexpectedEndOfData, wantOff: 16},
		{name: "no-body", in: newGIF(0).b, wantErr: ErrUnexpectedEndOfData, wantOff: 13},
		{name: "bad-marker", in: afterLSD(0x42, 0x3B), wantErr: ErrInvalidBlockMarker, wantOff: 13},
		{name: "bad-marker-after-padding", in: afterLSD(0, 0, 0x2D), wantErr: ErrInvalidBlockMarker, wantOff: 15},
		{name: "bad-extension-label", in: afterLSD(0x21, 0x02, 0, 0x3B), wantErr: ErrInvalidExtensionType, wantOff: 14},
		{name: "truncated-extension-label", in: afterLSD(0x21), wantErr: ErrUnexpectedEndOfData, wantOff: 14},
		{name: "graphic-control-terminator", in: afterLSD(0x21, 0xF9, 5, 1, 2, 3, 4, 5, 0, 0x3B), wantErr: ErrInvalidExtensionTerminator, wantOff: 20},
		{name: "truncated-graphic-control", in: afterLSD(0x21, 0xF9, 4, 1), wantErr: ErrUnexpectedEndOfData, wantOff: 17},
		{name: "truncated-application-meta", in: afterLSD(0x21, 0xFF, 11, 'N', 'E'), wantErr: ErrUnexpectedEndOfData, wantOff: 18},
		{name: "truncated-comment-chain", in: afterLSD(0x21, 0xFE, 10, 'a', 'b'), wantErr: ErrUnexpectedEndOfData, wantOff: 26},
		{name: "truncated-image-descriptor", in: afterLSD(0x2C, 0, 0, 0), wantErr: ErrUnexpectedEndOfData, wantOff: 17},
		{name: "truncated-local-table", in: afterLSD(0x2C, 0, 0, 0, 0, 1, 0, 1, 0, 0x81, 1, 2), wantErr: ErrUnexpectedEndOfData, wantOff: 25},
		{name: "truncated-image-data", in: minimal[:26], wantErr: ErrUnexpectedEndOfData, wantOff: 28},
		{name: "missing-trailer", in: minimal[:29], wantErr: ErrUnexpectedEndOfData, wantOff: 29},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			blocks, err := Parse(tc.in)
			require.ErrorIs(t, err, tc.wantErr)
			require.Nil(t, blocks)
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			require.Equal(t, tc.wantOff, perr.Offset)
		})
	}
}

func TestParseInvalidExtensionNeverReachesTrailer(t *testing.T) {
	b := append(newGIF(0).b, 0x21, 0x02, 0x00)
	b = append(b, minimalGIF()[13:]...)
	blocks, err := Parse(b)
	require.ErrorIs(t, err, ErrInvalidExtensionType)
	require.Empty(t, blocks)
}

func TestParseDescriptorAndTrailerMarkers(t *testing.T) {
	p := parser{v: view([]byte{0x2B, 0, 0, 0, 0, 0, 0, 0, 0, 0})}
	err := p.parseImageDescriptor()
	require.ErrorIs(t, err, ErrInvalidImageDescriptorMarker)
	require.Empty(t, p.blocks)

	p = parser{v: view([]byte{0x3C})}
	err = p.parseTrailer()
	require.ErrorIs(t, err, ErrInvalidTrailerByte)
	require.Empty(t, p.blocks)

	p = parser{v: view([]byte{0x3B})}
	require.NoError(t, p.parseTrailer())
	require.Equal(t, []Block{{Offset: 0, Length: 1, Kind: KindTrailer}}, p.blocks)
}

func TestParsePadding(t *testing.T) {
	want, err := Parse(minimalGIF())
	require.NoError(t, err)

	b := newGIF(fColorTable).pad(3).image(0, []byte{0xAA, 0xBB, 0xCC}).pad(2).trailer()
	blocks, err := Parse(b)
	require.NoError(t, err)
	requireTiled(t, b, blocks)
	require.Len(t, blocks, len(want)+1) // only the global color table is added
	require.Equal(t, KindColorTable, blocks[2].Kind)
	require.Equal(t, blocks[2].End()+3, blocks[3].Offset)
}

func TestParseIgnoresTrailingBytes(t *testing.T) {
	b := minimalGIF()
	n := len(b)
	b = append(b, 0xDE, 0xAD, 0xBE, 0xEF, 0x21)
	blocks, err := Parse(b)
	require.NoError(t, err)
	require.Equal(t, n, blocks[len(blocks)-1].End())
}

func TestParseTrustGraphicControlSize(t *testing.T) {
	b := newGIF(0).
		graphicControl(6, 1, 2, 3, 4, 5, 6).
		image(0, []byte{1}).
		trailer()

	_, err := Parse(b)
	require.ErrorIs(t, err, ErrInvalidExtensionTerminator)

	blocks, err := ParseWithOptions(b, &Options{TrustGraphicControlSize: true})
	require.NoError(t, err)
	requireTiled(t, b, blocks)
	require.Equal(t, Block{Offset: 13, Length: 9, Kind: KindExtension, Ext: ExtGraphicControl}, blocks[2])

	// Standard streams parse the same either way.
	std := newGIF(0).graphicControl(4, 0, 0, 0, 0).image(0, []byte{1}).trailer()
	a, err := Parse(std)
	require.NoError(t, err)
	c, err := ParseWithOptions(std, &Options{TrustGraphicControlSize: true})
	require.NoError(t, err)
	require.Equal(t, a, c)
}

func encodeAnimated(t testing.TB) []byte {
	p1 := color.Palette{color.Black, color.White, color.RGBA{255, 0, 0, 255}, color.RGBA{0, 255, 0, 255}}
	p2 := color.Palette{color.RGBA{0, 0, 255, 255}, color.Black}
	var frames []*image.Paletted
	for i, pal := range []color.Palette{p1, p2, p1} {
		img := image.NewPaletted(image.Rect(0, 0, 32, 16), pal)
		for j := range img.Pix {
			img.Pix[j] = uint8((i + j) % len(pal))
		}
		frames = append(frames, img)
	}
	var buf bytes.Buffer
	err := gif.EncodeAll(&buf, &gif.GIF{
		Image:     frames,
		Delay:     []int{10, 20, 30},
		LoopCount: 0,
		Config:    image.Config{ColorModel: p1, Width: 32, Height: 16},
	})
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseStdlibEncoded(t *testing.T) {
	b := encodeAnimated(t)
	blocks, err := Parse(b)
	require.NoError(t, err)
	requireTiled(t, b, blocks)
	require.Equal(t, len(b), blocks[len(blocks)-1].End())

	info := Describe(b, blocks)
	require.Equal(t, "89a", info.Version)
	require.Equal(t, 32, info.Width)
	require.Equal(t, 16, info.Height)
	require.True(t, info.GlobalColorTable)
	require.Equal(t, 3, info.Frames)
	require.Equal(t, 1, info.Extensions[ExtApplication])
	require.Equal(t, 3, info.Extensions[ExtGraphicControl])
	require.Equal(t, len(b), info.Size)
}

func TestBlockString(t *testing.T) {
	require.Equal(t, "Header@0+6", Block{Offset: 0, Length: 6, Kind: KindHeader}.String())
	require.Equal(t, "Extension(Comment)@13+5", Block{Offset: 13, Length: 5, Kind: KindExtension, Ext: ExtComment}.String())
	require.Equal(t, "Kind(99)", Kind(99).String())
}

func BenchmarkParse(b *testing.B) {
	g := newGIF(fColorTable | 7)
	for i := 0; i < 100; i++ {
		g.graphicControl(4, 0, 1, 0, 0).image(0, bytes.Repeat([]byte{0x11}, 255), bytes.Repeat([]byte{0x22}, 255))
	}
	in := g.trailer()
	b.SetBytes(int64(len(in)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Parse(in); err != nil {
			b.Fatal(err)
		}
	}
}
