// Package sim provides an in-memory peripheral. The caller plays both the
// remote device and the DMA engine: injected bytes are written into the
// receive buffer and completion interrupts fire from the calling goroutine.
package sim

import (
	"sync"

	"github.com/robotalks/bridge.go/pkg/bridge"
	"github.com/robotalks/bridge.go/pkg/periph"
)

// Peripheral is an in-memory bridge.Peripheral.
type Peripheral struct {
	// StartErr, if set, fails StartCircularReceive.
	StartErr error
	// TransmitErr, if set, fails StartTransmit.
	TransmitErr error

	lock        sync.Mutex
	buf         []byte
	irq         bridge.Interrupts
	pos         int
	txPending   bool
	auto        bool
	sent        [][]byte
	transmitted chan []byte
}

// New creates a Peripheral. With autoComplete, transmissions complete as
// soon as they start.
func New(autoComplete bool) *Peripheral {
	return &Peripheral{
		auto:        autoComplete,
		transmitted: make(chan []byte, bridge.QueueDepth),
	}
}

// StartCircularReceive implements bridge.Peripheral.
func (p *Peripheral) StartCircularReceive(buf []byte, irq bridge.Interrupts) error {
	if p.StartErr != nil {
		return p.StartErr
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.irq != nil {
		return periph.ErrBusy
	}
	p.buf, p.irq, p.pos = buf, irq, 0
	return nil
}

// StartTransmit implements bridge.Peripheral.
func (p *Peripheral) StartTransmit(buf []byte) error {
	if p.TransmitErr != nil {
		return p.TransmitErr
	}
	p.lock.Lock()
	if p.irq == nil {
		p.lock.Unlock()
		return periph.ErrNotStarted
	}
	if p.txPending {
		p.lock.Unlock()
		return periph.ErrBusy
	}
	data := append([]byte(nil), buf...)
	p.sent = append(p.sent, data)
	p.txPending = true
	irq, auto := p.irq, p.auto
	p.lock.Unlock()

	select {
	case p.transmitted <- data:
	default:
	}
	if auto {
		p.complete(irq)
	}
	return nil
}

// SetAutoComplete changes whether transmissions complete immediately.
func (p *Peripheral) SetAutoComplete(auto bool) {
	p.lock.Lock()
	p.auto = auto
	p.lock.Unlock()
}

// AutoComplete indicates whether transmissions complete immediately.
func (p *Peripheral) AutoComplete() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.auto
}

// CompleteTransmit fires the transmit-complete interrupt of the pending
// transmission. It returns false if none is pending.
func (p *Peripheral) CompleteTransmit() bool {
	p.lock.Lock()
	irq, pending := p.irq, p.txPending
	p.lock.Unlock()
	if !pending {
		return false
	}
	p.complete(irq)
	return true
}

// TxPending indicates a transmission waits for completion.
func (p *Peripheral) TxPending() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.txPending
}

func (p *Peripheral) complete(irq bridge.Interrupts) {
	p.lock.Lock()
	p.txPending = false
	p.lock.Unlock()
	irq.OnTransmitComplete()
}

// Transmitted delivers a copy of every transmitted buffer. Buffers are
// dropped when nobody reads the channel.
func (p *Peripheral) Transmitted() <-chan []byte {
	return p.transmitted
}

// Sent returns all transmitted buffers so far.
func (p *Peripheral) Sent() [][]byte {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([][]byte(nil), p.sent...)
}

// Inject writes data into the receive buffer as the DMA engine would,
// firing the half and full completion interrupts on the way.
func (p *Peripheral) Inject(data []byte) error {
	for _, b := range data {
		if err := p.put(b); err != nil {
			return err
		}
	}
	return nil
}

// FillIdle writes zeros up to the end of the current half, as an idle bus
// clocking in zero bytes.
func (p *Peripheral) FillIdle() error {
	p.lock.Lock()
	if p.irq == nil {
		p.lock.Unlock()
		return periph.ErrNotStarted
	}
	half := len(p.buf) / 2
	n := half - p.pos%half
	p.lock.Unlock()
	return p.Inject(make([]byte, n))
}

// Started indicates circular receive is running.
func (p *Peripheral) Started() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.irq != nil
}

// Position returns the write position in the receive buffer.
func (p *Peripheral) Position() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.pos
}

func (p *Peripheral) put(b byte) error {
	p.lock.Lock()
	irq := p.irq
	if irq == nil {
		p.lock.Unlock()
		return periph.ErrNotStarted
	}
	p.buf[p.pos] = b
	p.pos++
	half, full := p.pos == len(p.buf)/2, p.pos == len(p.buf)
	if full {
		p.pos = 0
	}
	p.lock.Unlock()

	switch {
	case half:
		irq.OnReceiveHalfComplete()
	case full:
		irq.OnReceiveComplete()
	}
	return nil
}
