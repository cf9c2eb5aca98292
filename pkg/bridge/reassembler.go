package bridge

// ReassembleResult counts the outcome of one Reassemble pass.
type ReassembleResult struct {
	Frames  int
	Dropped int
}

// Reassemble scans one half-buffer window and sends the frames it contains
// to dst. No state is kept between calls, so a message crossing the end of
// the window is delivered as two frames.
//
// A nonzero byte is always appended. A zero byte is appended as the message
// terminator only if the byte before it in the window is nonzero; other
// zeros are idle fill and skipped. A frame is flushed when it is full, when
// a terminator was appended, or at the last byte of the window. Flushing
// into a full sink drops the frame.
func Reassemble(window []byte, dst FrameSink) (res ReassembleResult) {
	var (
		frame Frame
		count int
	)
	last := len(window) - 1
	for index, b := range window {
		terminated := false
		if b != 0 {
			frame[count] = b
			count++
		} else if index > 0 && window[index-1] != 0 {
			frame[count] = 0
			count++
			terminated = true
		}

		if count == FrameLength || (count > 0 && (terminated || index == last)) {
			if dst.Free() > 0 && dst.Send(frame, ForwardWait) {
				res.Frames++
			} else {
				res.Dropped++
			}
			frame, count = Frame{}, 0
		}
	}
	return
}
