package gifx

// https://www.w3.org/Graphics/GIF/spec-gif89a.txt
//
// The parser walks the block grammar of a GIF stream to find where every
// block starts and ends. It never decompresses image data and never looks
// inside color tables; the only goal is to know the exact extent of the
// stream so it can be cut out of whatever buffer it is embedded in.

import "bytes"

const signature = "GIF8"

// Fixed block lengths.
const (
	headerLen                  = 6
	logicalScreenDescriptorLen = 7
	imageDescriptorLen         = 10
	trailerLen                 = 1
)

// Block introducers.
const (
	sExtension       = 0x21
	sImageDescriptor = 0x2C
	sTrailer         = 0x3B
)

// Extension labels.
const (
	eGraphicControl = 0xF9
	eComment        = 0xFE
	ePlainText      = 0x01
	eApplication    = 0xFF
)

// Extension payload sizes.
const (
	graphicControlDataLen = 4
	plainTextMetaLen      = 12
	applicationMetaLen    = 11 // 8 byte identifier + 3 byte auth code
)

// Packed byte fields of the logical screen and image descriptors.
const (
	fColorTable         = 1 << 7
	fColorTableBitsMask = 7

	packedOffsetLSD   = 4
	packedOffsetImage = 9
)

// Options configures parsing. The zero value matches what nearly every
// encoder produces.
type Options struct {
	// TrustGraphicControlSize takes the length of a Graphic Control
	// Extension from its block size byte instead of assuming 4 data bytes.
	TrustGraphicControlSize bool
}

// Parse walks the GIF stream at the start of b and returns its blocks, from
// the header up to and including the trailer. b may extend past the end of
// the stream; the extra bytes are never looked at.
func Parse(b []byte) ([]Block, error) {
	return ParseWithOptions(b, nil)
}

// ParseWithOptions is Parse with explicit options. Nil opts uses the
// defaults.
func ParseWithOptions(b []byte, opts *Options) ([]Block, error) {
	p := parser{v: view(b)}
	if opts != nil {
		p.opts = *opts
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.blocks, nil
}

type parser struct {
	v      view
	cur    int
	blocks []Block
	opts   Options
}

func (p *parser) parse() error {
	if err := p.parseHeader(); err != nil {
		return err
	}
	if err := p.parseLogicalScreenDescriptor(); err != nil {
		return err
	}

	for {
		c, err := p.v.at(p.cur)
		if err != nil {
			return err
		}
		switch c {
		case sExtension:
			err = p.parseExtension()
		case sImageDescriptor:
			err = p.parseImage()
		case sTrailer:
			return p.parseTrailer()
		case 0x00:
			// Block terminators, and padding some tools insert between blocks.
			p.cur++
		default:
			return errAt(p.cur, ErrInvalidBlockMarker)
		}
		if err != nil {
			return err
		}
	}
}

// emit appends a block of length n at the cursor and moves past it.
func (p *parser) emit(kind Kind, ext ExtensionKind, n int) {
	p.blocks = append(p.blocks, Block{
		Offset: p.cur,
		Length: n,
		Kind:   kind,
		Ext:    ext,
	})
	p.cur += n
}

func (p *parser) last() Block {
	return p.blocks[len(p.blocks)-1]
}

// expectZero checks that the byte at the cursor is a 0x00 terminator. The
// cursor is not moved; the body loop skips the terminator.
func (p *parser) expectZero(errKind error) error {
	c, err := p.v.at(p.cur)
	if err != nil {
		return err
	}
	if c != 0 {
		return errAt(p.cur, errKind)
	}
	return nil
}

func (p *parser) parseHeader() error {
	// The version suffix ("87a", "89a") is not validated.
	if !bytes.HasPrefix(p.v, []byte(signature)) {
		return errAt(p.cur, ErrHeaderInvalid)
	}
	if err := p.v.need(p.cur, headerLen); err != nil {
		return err
	}
	p.emit(KindHeader, 0, headerLen)
	return nil
}

func (p *parser) parseLogicalScreenDescriptor() error {
	if err := p.v.need(p.cur, logicalScreenDescriptorLen); err != nil {
		return err
	}
	p.emit(KindLogicalScreenDescriptor, 0, logicalScreenDescriptorLen)

	packed := p.v[p.last().Offset+packedOffsetLSD]
	if packed&fColorTable != 0 {
		return p.parseColorTable(packed)
	}
	return nil
}

// parseColorTable emits a global or local color table sized by the packed
// byte of the descriptor in front of it.
func (p *parser) parseColorTable(packed byte) error {
	n := colorTableLen(packed)
	if err := p.v.need(p.cur, n); err != nil {
		return err
	}
	p.emit(KindColorTable, 0, n)
	return nil
}

// colorTableLen is 3 * 2^(size+1) bytes, size being the low 3 bits of packed.
func colorTableLen(packed byte) int {
	return 3 * (2 << (packed & fColorTableBitsMask))
}

func (p *parser) parseExtension() error {
	start := p.cur
	label, err := p.v.at(start + 1)
	if err != nil {
		return err
	}

	var (
		n   int
		ext ExtensionKind
	)
	switch label {
	case eGraphicControl:
		size := graphicControlDataLen
		if p.opts.TrustGraphicControlSize {
			declared, err := p.v.at(start + 2)
			if err != nil {
				return err
			}
			size = int(declared)
		}
		n, ext = 3+size, ExtGraphicControl
	case eComment:
		chain, err := p.v.subBlockChainLen(start + 2)
		if err != nil {
			return err
		}
		n, ext = 2+chain, ExtComment
	case ePlainText:
		if n, err = p.metadataWithChain(start, plainTextMetaLen); err != nil {
			return err
		}
		ext = ExtPlainText
	case eApplication:
		if n, err = p.metadataWithChain(start, applicationMetaLen); err != nil {
			return err
		}
		ext = ExtApplication
	default:
		return errAt(start+1, ErrInvalidExtensionType)
	}

	if err := p.v.need(start, n); err != nil {
		return err
	}
	p.emit(KindExtension, ext, n)
	return p.expectZero(ErrInvalidExtensionTerminator)
}

// metadataWithChain measures an extension made of introducer, label, size
// byte, meta bytes of fixed data and a sub-block chain.
func (p *parser) metadataWithChain(start, meta int) (int, error) {
	if err := p.v.need(start, 3+meta); err != nil {
		return 0, err
	}
	chain, err := p.v.subBlockChainLen(start + 3 + meta)
	if err != nil {
		return 0, err
	}
	return 3 + meta + chain, nil
}

// parseImage handles an image descriptor, its optional local color table and
// the image data that follows.
func (p *parser) parseImage() error {
	if err := p.parseImageDescriptor(); err != nil {
		return err
	}
	packed := p.v[p.last().Offset+packedOffsetImage]
	if packed&fColorTable != 0 {
		if err := p.parseColorTable(packed); err != nil {
			return err
		}
	}
	return p.parseImageData()
}

func (p *parser) parseImageDescriptor() error {
	c, err := p.v.at(p.cur)
	if err != nil {
		return err
	}
	if c != sImageDescriptor {
		return errAt(p.cur, ErrInvalidImageDescriptorMarker)
	}
	if err := p.v.need(p.cur, imageDescriptorLen); err != nil {
		return err
	}
	p.emit(KindImageDescriptor, 0, imageDescriptorLen)
	return nil
}

func (p *parser) parseImageData() error {
	// LZW minimum code size, then the data sub-blocks.
	if _, err := p.v.at(p.cur); err != nil {
		return err
	}
	chain, err := p.v.subBlockChainLen(p.cur + 1)
	if err != nil {
		return err
	}
	p.emit(KindImageData, 0, 1+chain)
	return p.expectZero(ErrInvalidImageDataTerminator)
}

func (p *parser) parseTrailer() error {
	c, err := p.v.at(p.cur)
	if err != nil {
		return err
	}
	if c != sTrailer {
		return errAt(p.cur, ErrInvalidTrailerByte)
	}
	p.emit(KindTrailer, 0, trailerLen)
	return nil
}
