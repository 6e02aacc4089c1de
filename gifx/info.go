package gifx

import "encoding/binary"

// Info summarizes a parsed stream for diagnostics.
type Info struct {
	Version          string // "87a", "89a", ...
	Width            int
	Height           int
	GlobalColorTable bool
	Frames           int
	Extensions       map[ExtensionKind]int
	Size             int
}

// Describe summarizes the stream at the start of b. blocks must be the result
// of parsing b.
func Describe(b []byte, blocks []Block) Info {
	info := Info{Extensions: make(map[ExtensionKind]int)}
	for i, blk := range blocks {
		switch blk.Kind {
		case KindHeader:
			info.Version = string(b[blk.Offset+len(signature)-1 : blk.End()])
		case KindLogicalScreenDescriptor:
			lsd := b[blk.Offset:blk.End()]
			info.Width = int(binary.LittleEndian.Uint16(lsd[0:2]))
			info.Height = int(binary.LittleEndian.Uint16(lsd[2:4]))
		case KindColorTable:
			if i > 0 && blocks[i-1].Kind == KindLogicalScreenDescriptor {
				info.GlobalColorTable = true
			}
		case KindExtension:
			info.Extensions[blk.Ext]++
		case KindImageDescriptor:
			info.Frames++
		case KindImageData:
		case KindTrailer:
			info.Size = blk.End()
		}
	}
	return info
}
