package bridge

import (
	"sync/atomic"
	"time"
)

// Half names one half of a circular receive buffer.
type Half uint8

const (
	// FirstHalf is bytes [0, RxHalfLength).
	FirstHalf Half = 0
	// SecondHalf is bytes [RxHalfLength, RxBufferLength).
	SecondHalf Half = 1
)

// Window returns the part of buf covered by the half.
func (h Half) Window(buf []byte) []byte {
	half := len(buf) / 2
	if h == FirstHalf {
		return buf[:half]
	}
	return buf[half:]
}

// Notifier is a single-slot channel with overwrite semantics. A value
// posted before the previous one is consumed replaces it.
type Notifier struct {
	slot chan Half
	set  *WaitSet
	// armed is set while a token of the Notifier is pending in set.
	armed atomic.Bool
}

// NewNotifier creates an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{slot: make(chan Half, 1)}
}

// AddToSet makes the Notifier wake ws when a value is posted and no token
// of the Notifier is pending.
func (n *Notifier) AddToSet(ws *WaitSet) {
	n.set = ws
}

// Post stores h, replacing any unconsumed value. It never blocks and is
// intended to be called from interrupt context. It returns true if an
// unconsumed value was lost.
func (n *Notifier) Post(h Half) (overwritten bool) {
	for {
		select {
		case n.slot <- h:
			n.arm()
			return
		default:
			select {
			case <-n.slot:
				overwritten = true
			default:
			}
		}
	}
}

// arm posts a token unless one is pending. If the set is full the token
// is retried by the next Post.
func (n *Notifier) arm() {
	if n.set != nil && n.armed.CompareAndSwap(false, true) && !n.set.Post(MemberNotifier) {
		n.armed.Store(false)
	}
}

// Receive takes the current value, waiting at most wait for one to arrive.
// It is called after the token of the Notifier was selected.
func (n *Notifier) Receive(wait time.Duration) (Half, bool) {
	n.armed.Store(false)
	select {
	case h := <-n.slot:
		return h, true
	default:
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case h := <-n.slot:
		return h, true
	case <-timer.C:
		return 0, false
	}
}
