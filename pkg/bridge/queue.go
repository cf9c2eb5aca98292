package bridge

import "time"

// FrameSink receives reassembled frames.
type FrameSink interface {
	// Free returns the number of frames that can be sent without waiting.
	Free() int
	// Send adds a frame, waiting at most wait for space.
	Send(f Frame, wait time.Duration) bool
}

// FrameQueue is a bounded FIFO of frames carrying data from one side to
// the other.
type FrameQueue struct {
	frames chan Frame
	set    *WaitSet
}

// NewFrameQueue creates a FrameQueue holding up to depth frames.
func NewFrameQueue(depth int) *FrameQueue {
	return &FrameQueue{frames: make(chan Frame, depth)}
}

// AddToSet makes the queue wake ws once for every frame sent.
func (q *FrameQueue) AddToSet(ws *WaitSet) {
	q.set = ws
}

// Len returns the number of queued frames.
func (q *FrameQueue) Len() int {
	return len(q.frames)
}

// Free implements FrameSink.
func (q *FrameQueue) Free() int {
	return cap(q.frames) - len(q.frames)
}

// Send implements FrameSink. The frame is copied.
func (q *FrameQueue) Send(f Frame, wait time.Duration) bool {
	select {
	case q.frames <- f:
		q.notify()
		return true
	default:
	}
	if wait <= 0 {
		return false
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case q.frames <- f:
		q.notify()
		return true
	case <-timer.C:
		return false
	}
}

// Receive pops the oldest frame, waiting at most wait for one.
func (q *FrameQueue) Receive(wait time.Duration) (f Frame, ok bool) {
	select {
	case f = <-q.frames:
		return f, true
	default:
	}
	if wait <= 0 {
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case f = <-q.frames:
		return f, true
	case <-timer.C:
		return
	}
}

func (q *FrameQueue) notify() {
	if q.set != nil {
		q.set.Post(MemberQueue)
	}
}
