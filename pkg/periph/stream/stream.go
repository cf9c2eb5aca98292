// Package stream runs a bridge peripheral over a host byte stream such as a
// serial port, a TCP connection or a websocket.
package stream

import (
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/bridge.go/pkg/bridge"
	"github.com/robotalks/bridge.go/pkg/periph"
)

// DefaultIdleFill is the default idle time before the current half is
// padded with zeros.
const DefaultIdleFill = 5 * time.Millisecond

// Peripheral emulates circular receive DMA and transmit DMA on a stream.
// A read goroutine stores incoming bytes into the receive buffer and raises
// the half and full completion interrupts. As a synchronous bus keeps
// clocking zero bytes while idle, after IdleFill without input the current
// half is padded with zeros so short messages are not held back.
type Peripheral struct {
	Name     string
	IdleFill time.Duration

	rw       io.ReadWriteCloser
	lock     sync.Mutex
	irq      bridge.Interrupts
	txBusy   bool
	closed   chan struct{}
	closeErr error
	once     sync.Once
}

// New creates a Peripheral on rw.
func New(name string, rw io.ReadWriteCloser) *Peripheral {
	return &Peripheral{
		Name:     name,
		IdleFill: DefaultIdleFill,
		rw:       rw,
		closed:   make(chan struct{}),
	}
}

// StartCircularReceive implements bridge.Peripheral.
func (p *Peripheral) StartCircularReceive(buf []byte, irq bridge.Interrupts) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.isClosed() {
		return periph.ErrClosed
	}
	if p.irq != nil {
		return periph.ErrBusy
	}
	p.irq = irq
	chunkCh, errCh := make(chan []byte, 4), make(chan error, 1)
	go p.readLoop(chunkCh, errCh)
	go p.receiveLoop(buf, irq, chunkCh, errCh)
	return nil
}

// StartTransmit implements bridge.Peripheral. The buffer is copied.
func (p *Peripheral) StartTransmit(buf []byte) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.isClosed() {
		return periph.ErrClosed
	}
	if p.irq == nil {
		return periph.ErrNotStarted
	}
	if p.txBusy {
		return periph.ErrBusy
	}
	p.txBusy = true
	go p.transmit(append([]byte(nil), buf...), p.irq)
	return nil
}

// Close stops the peripheral and closes the stream.
func (p *Peripheral) Close() error {
	p.once.Do(func() {
		close(p.closed)
		p.closeErr = p.rw.Close()
	})
	return p.closeErr
}

func (p *Peripheral) isClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

func (p *Peripheral) transmit(data []byte, irq bridge.Interrupts) {
	if _, err := p.rw.Write(data); err != nil && !p.isClosed() {
		glog.Warningf("%s: write error: %v", p.Name, err)
	}
	p.lock.Lock()
	p.txBusy = false
	p.lock.Unlock()
	irq.OnTransmitComplete()
}

func (p *Peripheral) readLoop(chunkCh chan<- []byte, errCh chan<- error) {
	buf := make([]byte, bridge.RxHalfLength)
	for {
		n, err := p.rw.Read(buf)
		if n > 0 {
			select {
			case chunkCh <- append([]byte(nil), buf[:n]...):
			case <-p.closed:
				return
			}
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}

func (p *Peripheral) receiveLoop(buf []byte, irq bridge.Interrupts, chunkCh <-chan []byte, errCh <-chan error) {
	half := len(buf) / 2
	pos := 0
	store := func(b byte) {
		buf[pos] = b
		pos++
		switch pos {
		case half:
			irq.OnReceiveHalfComplete()
		case len(buf):
			irq.OnReceiveComplete()
			pos = 0
		}
	}

	var idle <-chan time.Time
	for {
		select {
		case chunk := <-chunkCh:
			for _, b := range chunk {
				store(b)
			}
			idle = nil
			if p.IdleFill > 0 && pos%half != 0 {
				idle = time.After(p.IdleFill)
			}
		case <-idle:
			idle = nil
			for pos%half != 0 {
				store(0)
			}
		case err := <-errCh:
			if !p.isClosed() {
				glog.Warningf("%s: read error: %v", p.Name, err)
			}
			return
		case <-p.closed:
			return
		}
	}
}
