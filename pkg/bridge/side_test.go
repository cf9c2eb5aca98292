package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakePeriph struct {
	startErr error
	txErr    error

	lock sync.Mutex
	buf  []byte
	irq  Interrupts
	sent []Frame
}

func (p *fakePeriph) StartCircularReceive(buf []byte, irq Interrupts) error {
	if p.startErr != nil {
		return p.startErr
	}
	p.lock.Lock()
	p.buf, p.irq = buf, irq
	p.lock.Unlock()
	return nil
}

func (p *fakePeriph) StartTransmit(buf []byte) error {
	if p.txErr != nil {
		return p.txErr
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	p.sent = append(p.sent, FrameOf(buf))
	return nil
}

// fill writes data at the start of a half, zero padding the rest of it.
func (p *fakePeriph) fill(h Half, data ...byte) {
	w := h.Window(p.buf)
	copy(w, padded(data...))
}

func (p *fakePeriph) started() Interrupts {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.irq
}

func (p *fakePeriph) sentFrames() []Frame {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]Frame(nil), p.sent...)
}

type sideTestEnv struct {
	t          *testing.T
	spi, uart  *fakePeriph
	bridge     *Bridge
	fatalCalls []*FatalError
}

func newSideTestEnv(t *testing.T) *sideTestEnv {
	env := &sideTestEnv{t: t, spi: &fakePeriph{}, uart: &fakePeriph{}}
	b, err := Enable(env.spi, env.uart)
	require.NoError(t, err)
	env.bridge = b.SetFatalHandler(FatalFunc(func(err *FatalError) {
		env.fatalCalls = append(env.fatalCalls, err)
	}))
	return env
}

func (e *sideTestEnv) start() *sideTestEnv {
	for _, s := range e.bridge.Sides() {
		require.NoError(e.t, s.start())
	}
	return e
}

func (e *sideTestEnv) step(s *Side) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	require.NoError(e.t, s.step(ctx), "%s: no wake-up", s.Name())
}

func (e *sideTestEnv) queue(s *Side, msgs ...string) {
	for _, msg := range msgs {
		require.True(e.t, s.Inbound().Send(FrameOf([]byte(msg)), ForwardWait))
	}
}

func TestEnable(t *testing.T) {
	b, err := Enable(&fakePeriph{}, &fakePeriph{})
	require.NoError(t, err)
	require.Equal(t, SideSPI, b.SPI.Name())
	require.Equal(t, SideUART, b.UART.Name())
	require.Equal(t, b.UART, b.SPI.Peer())
	require.Equal(t, b.SPI, b.UART.Peer())

	_, err = Enable(&fakePeriph{}, nil)
	require.Error(t, err)
	var fe *FatalError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, SideUART, fe.Side)
	require.True(t, errors.Is(err, ErrNoPeripheral))
}

func TestSideReassemblesIntoPeer(t *testing.T) {
	env := newSideTestEnv(t).start()
	spi, uart := env.bridge.SPI, env.bridge.UART

	env.spi.fill(FirstHalf, 'h', 'i', 0, 'y', 'o', 0)
	spi.OnReceiveHalfComplete()
	env.step(spi)
	require.Equal(t, 2, uart.Inbound().Len())

	env.spi.fill(SecondHalf, 'z')
	spi.OnReceiveComplete()
	env.step(spi)
	require.Equal(t, 3, uart.Inbound().Len())

	// the uart side transmits one frame per completed transmission.
	env.step(uart)
	require.Equal(t, framesOf("hi"), env.uart.sentFrames())
	uart.OnTransmitComplete()
	env.step(uart)
	uart.OnTransmitComplete()
	env.step(uart)
	require.Equal(t, framesOf("hi", "yo", "z"), env.uart.sentFrames())

	st := spi.Stats().Snapshot()
	require.Equal(t, uint64(2), st.WindowsProcessed)
	require.Equal(t, uint64(3), st.FramesForwarded)
	require.Empty(t, env.spi.sentFrames())
}

func TestSideDefersTransmitWhileBusy(t *testing.T) {
	env := newSideTestEnv(t).start()
	spi := env.bridge.SPI
	env.queue(spi, "one", "two")

	env.step(spi)
	require.Equal(t, framesOf("one"), env.spi.sentFrames())
	require.True(t, spi.TxBusy())

	// second wake-up comes from the queued frame, guard is still set.
	env.step(spi)
	require.Equal(t, framesOf("one"), env.spi.sentFrames(), "no DMA call while busy")
	require.Equal(t, 1, spi.Inbound().Len())
	require.Equal(t, uint64(1), spi.Stats().TransmitsDeferred.Load())

	spi.OnTransmitComplete()
	require.False(t, spi.TxBusy())
	env.step(spi)
	require.Equal(t, framesOf("one", "two"), env.spi.sentFrames())
	require.Equal(t, 0, spi.Inbound().Len())
}

func TestSideLosesOverwrittenNotification(t *testing.T) {
	env := newSideTestEnv(t).start()
	spi, uart := env.bridge.SPI, env.bridge.UART

	env.spi.fill(FirstHalf, 'l', 'o', 's', 't', 0)
	env.spi.fill(SecondHalf, 'k', 'e', 'p', 't', 0)
	spi.OnReceiveHalfComplete()
	spi.OnReceiveComplete()

	env.step(spi)
	require.Equal(t, 1, uart.Inbound().Len())
	f, ok := uart.Inbound().Receive(ReceiveWait)
	require.True(t, ok)
	require.Equal(t, FrameOf([]byte("kept")), f)

	st := spi.Stats().Snapshot()
	require.Equal(t, uint64(2), st.NotificationsPosted)
	require.Equal(t, uint64(1), st.NotificationsOverwritten)
	require.Equal(t, uint64(1), st.WindowsProcessed)
}

func TestSideRoundTripFIFO(t *testing.T) {
	env := newSideTestEnv(t).start()
	uart := env.bridge.UART

	var msgs []string
	for n := 0; n < QueueDepth; n++ {
		msgs = append(msgs, string([]byte{'a' + byte(n), 'A' + byte(n)}))
	}
	env.queue(uart, msgs...)
	for n := range msgs {
		env.step(uart)
		require.Len(t, env.uart.sentFrames(), n+1)
		uart.OnTransmitComplete()
	}
	require.Equal(t, framesOf(msgs...), env.uart.sentFrames())
}

func TestSideDropsWhenPeerFull(t *testing.T) {
	env := newSideTestEnv(t).start()
	spi, uart := env.bridge.SPI, env.bridge.UART
	for n := 0; n < QueueDepth; n++ {
		env.queue(uart, "x")
	}

	env.spi.fill(FirstHalf, 'n', 'o', 0)
	spi.OnReceiveHalfComplete()
	env.step(spi)

	require.Equal(t, QueueDepth, uart.Inbound().Len())
	require.Equal(t, uint64(1), spi.Stats().FramesDropped.Load())
	require.Empty(t, env.fatalCalls)
}

func TestSideTransmitError(t *testing.T) {
	env := newSideTestEnv(t)
	env.spi.txErr = errors.New("dma busy")
	env.start()
	spi := env.bridge.SPI
	env.queue(spi, "a")

	env.step(spi)
	require.False(t, spi.TxBusy(), "guard released after failed start")
	require.Equal(t, 0, spi.Inbound().Len())
	require.Equal(t, uint64(1), spi.Stats().TransmitErrors.Load())
	require.Empty(t, env.fatalCalls)
}

func TestSideStartFailureIsFatal(t *testing.T) {
	env := newSideTestEnv(t)
	env.uart.startErr = errors.New("no dma channel")

	err := env.bridge.UART.Run(context.Background())
	require.Error(t, err)
	require.Len(t, env.fatalCalls, 1)
	require.Equal(t, SideUART, env.fatalCalls[0].Side)
	require.Equal(t, "start receive", env.fatalCalls[0].Op)
	require.True(t, errors.Is(err, env.uart.startErr))
}

func TestBridgeRun(t *testing.T) {
	env := newSideTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- env.bridge.Run(ctx)
	}()

	for deadline := time.Now().Add(time.Second); env.uart.started() == nil; {
		if time.Now().After(deadline) {
			t.Fatal("receive not started")
		}
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, ErrAlreadyRunning, env.bridge.Run(ctx))

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("bridge not stopped")
	}
	require.Empty(t, env.fatalCalls)
}
