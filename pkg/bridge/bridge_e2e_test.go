package bridge_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/bridge.go/pkg/bridge"
	"github.com/robotalks/bridge.go/pkg/periph/sim"
)

type e2eEnv struct {
	t         *testing.T
	spi, uart *sim.Peripheral
	bridge    *bridge.Bridge
	cancel    func()
	errCh     chan error
}

func startE2E(t *testing.T, auto bool) *e2eEnv {
	e := &e2eEnv{t: t, spi: sim.New(auto), uart: sim.New(auto), errCh: make(chan error, 1)}
	b, err := bridge.Enable(e.spi, e.uart)
	require.NoError(t, err)
	e.bridge = b
	var ctx context.Context
	ctx, e.cancel = context.WithCancel(context.Background())
	go func() { e.errCh <- b.Run(ctx) }()
	e.waitFor("receive started", func() bool { return e.spi.Started() && e.uart.Started() })
	return e
}

func (e *e2eEnv) stop() {
	e.cancel()
	select {
	case err := <-e.errCh:
		require.NoError(e.t, err)
	case <-time.After(time.Second):
		e.t.Fatal("bridge not stopped")
	}
}

func (e *e2eEnv) waitFor(what string, cond func() bool) {
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		require.True(e.t, time.Now().Before(deadline), "timeout waiting for %s", what)
		time.Sleep(time.Millisecond)
	}
}

// send writes messages into one half of p and waits until side has read
// the half, so the next half never wraps onto unread data.
func (e *e2eEnv) send(p *sim.Peripheral, side *bridge.Side, msgs ...string) {
	before := side.Stats().WindowsProcessed.Load()
	for _, msg := range msgs {
		require.NoError(e.t, p.Inject(append([]byte(msg), 0)))
	}
	require.NoError(e.t, p.FillIdle())
	e.waitFor("window processed", func() bool {
		return side.Stats().WindowsProcessed.Load() > before
	})
}

// sent waits until p transmitted n frames and returns their payloads.
func (e *e2eEnv) sent(p *sim.Peripheral, n int) []string {
	e.waitFor(fmt.Sprintf("%d frames", n), func() bool { return len(p.Sent()) >= n })
	var payloads []string
	for _, data := range p.Sent() {
		f := bridge.FrameOf(data)
		payloads = append(payloads, string(f.Payload()))
	}
	return payloads
}

func TestBridgeBothDirections(t *testing.T) {
	e := startE2E(t, true)
	defer e.stop()

	const windows, perWindow = 8, 4
	var toUART, toSPI []string

	for w := 0; w < windows; w++ {
		var down, up []string
		for n := 0; n < perWindow; n++ {
			down = append(down, fmt.Sprintf("s%d.%d", w, n))
			up = append(up, fmt.Sprintf("u%d.%d", w, n))
		}
		e.send(e.spi, e.bridge.SPI, down...)
		e.send(e.uart, e.bridge.UART, up...)
		toUART, toSPI = append(toUART, down...), append(toSPI, up...)
	}

	require.Equal(t, toUART, e.sent(e.uart, len(toUART)))
	require.Equal(t, toSPI, e.sent(e.spi, len(toSPI)))
	for _, s := range e.bridge.Sides() {
		snap := s.Stats().Snapshot()
		require.Equal(t, uint64(windows), snap.WindowsProcessed, s.Name())
		require.Equal(t, uint64(windows*perWindow), snap.FramesForwarded, s.Name())
		require.Zero(t, snap.FramesDropped, s.Name())
		require.Zero(t, snap.NotificationsOverwritten, s.Name())
	}
}

func TestBridgeResumesAfterTransmitComplete(t *testing.T) {
	e := startE2E(t, false)
	defer e.stop()

	e.send(e.spi, e.bridge.SPI, "a", "b", "c")
	require.Equal(t, []string{"a"}, e.sent(e.uart, 1))
	e.waitFor("frames queued", func() bool { return e.bridge.UART.Inbound().Len() == 2 })

	// No more input arrives: only the completion may wake the task.
	for n := 2; n <= 3; n++ {
		require.True(t, e.uart.CompleteTransmit())
		require.Equal(t, []string{"a", "b", "c"}[:n], e.sent(e.uart, n))
	}
	require.True(t, e.uart.CompleteTransmit())
	e.waitFor("idle", func() bool { return !e.bridge.UART.TxBusy() })
	require.False(t, e.uart.CompleteTransmit())
}
