package bridge

import (
	"context"

	"github.com/golang/glog"
)

// Side is the bridging task of one peripheral. It reassembles what its
// peripheral receives into the peer's queue and transmits what the peer
// queued for it.
type Side struct {
	// Handler, if set, observes every transmitted frame.
	Handler FrameHandler
	// Fatal receives unrecoverable errors. DefaultFatalHandler if nil.
	Fatal FatalHandler

	name     string
	periph   Peripheral
	rxBuf    [RxBufferLength]byte
	txBuf    Frame
	notifier *Notifier
	inbound  *FrameQueue
	set      *WaitSet
	tx       TxGuard
	peer     *Side
	stats    Stats
}

// NewSide creates a side without a peer. Use Pair to connect two sides.
func NewSide(name string, periph Peripheral) (*Side, error) {
	if periph == nil {
		return nil, &FatalError{Side: name, Op: "create", Err: ErrNoPeripheral}
	}
	s := &Side{
		name:     name,
		periph:   periph,
		notifier: NewNotifier(),
		inbound:  NewFrameQueue(QueueDepth),
		set:      NewWaitSet(waitSetCapacity),
	}
	s.notifier.AddToSet(s.set)
	s.inbound.AddToSet(s.set)
	return s, nil
}

// Pair cross-wires two sides so each forwards into the other's queue.
func Pair(a, b *Side) {
	a.peer, b.peer = b, a
}

// Name implements framework.Named.
func (s *Side) Name() string {
	return s.name
}

// Peripheral returns the peripheral driven by the side.
func (s *Side) Peripheral() Peripheral {
	return s.periph
}

// Peer returns the side frames are forwarded to.
func (s *Side) Peer() *Side {
	return s.peer
}

// Inbound returns the queue of frames waiting to be transmitted.
func (s *Side) Inbound() *FrameQueue {
	return s.inbound
}

// Stats returns the counters of the side.
func (s *Side) Stats() *Stats {
	return &s.stats
}

// TxBusy indicates a transmission is in flight.
func (s *Side) TxBusy() bool {
	return s.tx.Busy()
}

// OnReceiveHalfComplete implements Interrupts.
func (s *Side) OnReceiveHalfComplete() {
	s.post(FirstHalf)
}

// OnReceiveComplete implements Interrupts.
func (s *Side) OnReceiveComplete() {
	s.post(SecondHalf)
}

// OnTransmitComplete implements Interrupts.
func (s *Side) OnTransmitComplete() {
	s.tx.Release()
	s.stats.TransmitsCompleted.Add(1)
	s.set.Post(MemberTxDone)
}

func (s *Side) post(h Half) {
	s.stats.NotificationsPosted.Add(1)
	if s.notifier.Post(h) {
		s.stats.NotificationsOverwritten.Add(1)
	}
}

// Run implements framework.Runnable. It starts circular reception and
// services the side until ctx is done. A failure to start reception is
// reported to the fatal handler and returned.
func (s *Side) Run(ctx context.Context) error {
	if err := s.start(); err != nil {
		return err
	}
	for {
		if err := s.step(ctx); err != nil {
			return err
		}
	}
}

func (s *Side) start() error {
	if s.peer == nil {
		return s.fatal("start", ErrNoPeer)
	}
	if err := s.periph.StartCircularReceive(s.rxBuf[:], s); err != nil {
		return s.fatal("start receive", err)
	}
	glog.V(2).Infof("%s: receiving", s.name)
	return nil
}

func (s *Side) fatal(op string, err error) error {
	fe := &FatalError{Side: s.name, Op: op, Err: err}
	h := s.Fatal
	if h == nil {
		h = DefaultFatalHandler
	}
	h.Fatal(fe)
	return fe
}

// step waits for one wake-up and services it.
func (s *Side) step(ctx context.Context) error {
	m, err := s.set.Select(ctx)
	if err != nil {
		return err
	}
	if m == MemberNotifier {
		s.receive()
	}
	s.transmit()
	return nil
}

func (s *Side) receive() {
	h, ok := s.notifier.Receive(NotificationWait)
	if !ok {
		s.stats.NotificationsMissed.Add(1)
		return
	}
	res := Reassemble(h.Window(s.rxBuf[:]), s.peer.inbound)
	s.stats.FramesForwarded.Add(uint64(res.Frames))
	s.stats.FramesDropped.Add(uint64(res.Dropped))
	s.stats.WindowsProcessed.Add(1)
	if glog.V(2) && (res.Frames > 0 || res.Dropped > 0) {
		glog.Infof("%s: half %d: %d frames, %d dropped", s.name, h, res.Frames, res.Dropped)
	}
}

func (s *Side) transmit() {
	if s.inbound.Len() == 0 {
		return
	}
	if !s.tx.TryAcquire() {
		s.stats.TransmitsDeferred.Add(1)
		return
	}
	f, ok := s.inbound.Receive(ReceiveWait)
	if !ok {
		s.tx.Release()
		return
	}
	s.txBuf = f
	if err := s.periph.StartTransmit(s.txBuf[:]); err != nil {
		// No completion follows a failed start.
		s.tx.Release()
		s.stats.TransmitErrors.Add(1)
		glog.Warningf("%s: transmit error: %v", s.name, err)
		return
	}
	s.stats.TransmitsStarted.Add(1)
	glog.V(2).Infof("%s: TX %q", s.name, f.Payload())
	if h := s.Handler; h != nil {
		h.HandleFrame(s.name, f)
	}
}
