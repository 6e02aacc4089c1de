package gifx

import "fmt"

// Kind is the structural type of a Block.
type Kind uint8

const (
	KindHeader Kind = iota + 1
	KindLogicalScreenDescriptor
	KindColorTable
	KindExtension
	KindImageDescriptor
	KindImageData
	KindTrailer
)

func (k Kind) String() string {
	switch k {
	case KindHeader:
		return "Header"
	case KindLogicalScreenDescriptor:
		return "LogicalScreenDescriptor"
	case KindColorTable:
		return "ColorTable"
	case KindExtension:
		return "Extension"
	case KindImageDescriptor:
		return "ImageDescriptor"
	case KindImageData:
		return "ImageData"
	case KindTrailer:
		return "Trailer"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ExtensionKind tells extension blocks apart. It is only meaningful when the
// block Kind is KindExtension.
type ExtensionKind uint8

const (
	ExtGraphicControl ExtensionKind = iota + 1
	ExtComment
	ExtPlainText
	ExtApplication
)

func (e ExtensionKind) String() string {
	switch e {
	case ExtGraphicControl:
		return "GraphicControl"
	case ExtComment:
		return "Comment"
	case ExtPlainText:
		return "PlainText"
	case ExtApplication:
		return "Application"
	}
	return fmt.Sprintf("ExtensionKind(%d)", uint8(e))
}

// Block is one structural unit of a GIF stream. Offset is relative to the
// start of the parsed view.
type Block struct {
	Offset int
	Length int
	Kind   Kind
	Ext    ExtensionKind
}

// End returns the offset just past the block.
func (b Block) End() int {
	return b.Offset + b.Length
}

func (b Block) String() string {
	if b.Kind == KindExtension {
		return fmt.Sprintf("%v(%v)@%d+%d", b.Kind, b.Ext, b.Offset, b.Length)
	}
	return fmt.Sprintf("%v@%d+%d", b.Kind, b.Offset, b.Length)
}
