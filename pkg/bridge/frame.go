package bridge

import "bytes"

// Frame is a fixed-length unit exchanged between the sides. Bytes after
// the logical end are zero, so on the wire a short unterminated frame is
// indistinguishable from a terminated one.
type Frame [FrameLength]byte

// FrameOf builds a frame from data, truncated to FrameLength.
func FrameOf(data []byte) (f Frame) {
	copy(f[:], data)
	return
}

// Payload returns the bytes before the first zero.
func (f *Frame) Payload() []byte {
	if n := bytes.IndexByte(f[:], 0); n >= 0 {
		return f[:n]
	}
	return f[:]
}
