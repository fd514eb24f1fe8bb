package smf

import "errors"

// errTruncated is returned by cursor reads that would run past the end of
// the buffer. It never escapes the package: a truncated track keeps the
// notes completed so far (see decoder.go).
var errTruncated = errors.New("truncated data")

// cursor is a read offset over an immutable byte buffer. Every successful
// read advances the offset by exactly the number of bytes consumed.
type cursor struct {
	data []byte
	off  int
}

func (c *cursor) readByte() (byte, error) {
	if c.off >= len(c.data) {
		return 0, errTruncated
	}
	b := c.data[c.off]
	c.off++
	return b, nil
}

// peekByte returns the next byte without consuming it.
func (c *cursor) peekByte() (byte, error) {
	if c.off >= len(c.data) {
		return 0, errTruncated
	}
	return c.data[c.off], nil
}

func (c *cursor) read(n int) ([]byte, error) {
	if n < 0 || c.off+n > len(c.data) {
		return nil, errTruncated
	}
	b := c.data[c.off : c.off+n]
	c.off += n
	return b, nil
}

func (c *cursor) skip(n int) error {
	if n < 0 || c.off+n > len(c.data) {
		return errTruncated
	}
	c.off += n
	return nil
}

func (c *cursor) readUint16() (uint16, error) {
	b, err := c.read(2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

func (c *cursor) readUint32() (uint32, error) {
	b, err := c.read(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

func (c *cursor) readUint7() (uint8, error) {
	b, err := c.readByte()
	if err != nil {
		return 0, err
	}
	return b & 0x7F, nil
}

// readVarLen decodes a MIDI variable-length quantity: 7 bits per byte,
// most significant group first, continuation in the high bit.
func (c *cursor) readVarLen() (uint32, error) {
	var val uint32
	for {
		b, err := c.readByte()
		if err != nil {
			return 0, err
		}
		val = val<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			return val, nil
		}
	}
}
