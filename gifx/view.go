package gifx

// view is a read-only window over a candidate stream. Every access is
// bounds-checked so truncated input fails with ErrUnexpectedEndOfData instead
// of panicking.
type view []byte

func (v view) at(off int) (byte, error) {
	if off < 0 || off >= len(v) {
		return 0, errAt(off, ErrUnexpectedEndOfData)
	}
	return v[off], nil
}

// need fails unless the n bytes starting at off are inside the view.
func (v view) need(off, n int) error {
	if off < 0 || n > len(v)-off {
		return errAt(len(v), ErrUnexpectedEndOfData)
	}
	return nil
}

// subBlockChainLen returns the length of the sub-block chain starting at off:
// every length byte plus the data it announces, excluding the final zero
// length terminator. off must point at the first length byte of a chain.
func (v view) subBlockChainLen(off int) (int, error) {
	n := 0
	for {
		size, err := v.at(off + n)
		if err != nil {
			return 0, err
		}
		if size == 0 {
			return n, nil
		}
		n += 1 + int(size)
	}
}
