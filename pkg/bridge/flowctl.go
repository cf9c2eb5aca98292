package bridge

import "sync/atomic"

// TxGuard allows at most one outstanding transmission on a peripheral.
type TxGuard struct {
	busy atomic.Bool
}

// Busy indicates a transmission is in flight.
func (g *TxGuard) Busy() bool {
	return g.busy.Load()
}

// TryAcquire marks a transmission as started. It returns false if one is
// already in flight.
func (g *TxGuard) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release marks the transmission as complete. It is called from the
// transmit-complete interrupt.
func (g *TxGuard) Release() {
	g.busy.Store(false)
}
