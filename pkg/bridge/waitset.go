package bridge

import "context"

// Member identifies the source which woke a WaitSet.
type Member uint8

const (
	// MemberNone is never posted.
	MemberNone Member = iota
	// MemberNotifier is posted when the receive Notifier gets a value.
	MemberNotifier
	// MemberQueue is posted when a frame is added to the inbound queue.
	MemberQueue
	// MemberTxDone is posted when the peripheral completes a transmission.
	MemberTxDone
)

// String implements fmt.Stringer.
func (m Member) String() string {
	switch m {
	case MemberNotifier:
		return "notifier"
	case MemberQueue:
		return "queue"
	case MemberTxDone:
		return "tx-done"
	}
	return "none"
}

// WaitSet blocks until any of its members has data and reports which one.
// Every successful post of a member adds one token; Select consumes one
// token per call.
type WaitSet struct {
	tokens chan Member
}

// NewWaitSet creates a WaitSet holding up to capacity pending tokens.
func NewWaitSet(capacity int) *WaitSet {
	return &WaitSet{tokens: make(chan Member, capacity)}
}

// Post adds a token without blocking. It is safe to call from interrupt
// context. It returns false if the set is full.
func (w *WaitSet) Post(m Member) bool {
	select {
	case w.tokens <- m:
		return true
	default:
		return false
	}
}

// Pending returns the number of tokens not yet selected.
func (w *WaitSet) Pending() int {
	return len(w.tokens)
}

// Select blocks until a member fires or ctx is done.
func (w *WaitSet) Select(ctx context.Context) (Member, error) {
	select {
	case m := <-w.tokens:
		return m, nil
	case <-ctx.Done():
		return MemberNone, ctx.Err()
	}
}
