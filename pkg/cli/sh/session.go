package sh

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robotalks/bridge.go/pkg/bridge"
	"github.com/robotalks/bridge.go/pkg/periph/sim"
)

const (
	startWait  = time.Second
	settleWait = 100 * time.Millisecond
)

// Session is a running bridge over two sim peripherals.
type Session struct {
	Bridge  *bridge.Bridge
	Periphs map[string]*sim.Peripheral

	cancel func()
	errCh  chan error
}

// NewSession creates the bridge. Transmissions complete immediately unless
// auto completion is turned off.
func NewSession() (*Session, error) {
	spi, uart := sim.New(true), sim.New(true)
	b, err := bridge.Enable(spi, uart)
	if err != nil {
		return nil, err
	}
	return &Session{
		Bridge:  b,
		Periphs: map[string]*sim.Peripheral{bridge.SideSPI: spi, bridge.SideUART: uart},
	}, nil
}

// Start runs the bridge and waits until both sides receive.
func (s *Session) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 1)
	go func() { s.errCh <- s.Bridge.Run(ctx) }()
	deadline := time.Now().Add(startWait)
	for _, p := range s.Periphs {
		for !p.Started() {
			select {
			case err := <-s.errCh:
				return err
			case <-time.After(time.Millisecond):
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("bridge not started")
			}
		}
	}
	return nil
}

// Stop stops the bridge.
func (s *Session) Stop() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	s.cancel = nil
	return <-s.errCh
}

// Side finds a side and its peripheral by name.
func (s *Session) Side(name string) (*bridge.Side, *sim.Peripheral, error) {
	for _, side := range s.Bridge.Sides() {
		if side.Name() == name {
			return side, s.Periphs[name], nil
		}
	}
	return nil, nil, fmt.Errorf("unknown side %q, expect %s or %s", name, bridge.SideSPI, bridge.SideUART)
}

// Inject feeds data into the receive buffer of a side.
func (s *Session) Inject(name string, data []byte) error {
	side, p, err := s.Side(name)
	if err != nil {
		return err
	}
	return s.settle(side, func() error { return p.Inject(data) })
}

// Idle pads the current receive half of a side with zeros.
func (s *Session) Idle(name string) error {
	side, p, err := s.Side(name)
	if err != nil {
		return err
	}
	return s.settle(side, p.FillIdle)
}

// settle runs fn and waits briefly for the side to process the windows
// completed by fn, and for the peer to transmit what it forwarded.
func (s *Session) settle(side *bridge.Side, fn func() error) error {
	stats := side.Stats()
	before := stats.NotificationsPosted.Load()
	if err := fn(); err != nil {
		return err
	}
	posted := stats.NotificationsPosted.Load()
	if posted == before {
		return nil
	}
	deadline := time.Now().Add(settleWait)
	for time.Now().Before(deadline) {
		done := stats.WindowsProcessed.Load() + stats.NotificationsMissed.Load() + stats.NotificationsOverwritten.Load()
		if done >= posted && (side.Peer().Inbound().Len() == 0 || side.Peer().TxBusy()) {
			break
		}
		time.Sleep(time.Millisecond)
	}
	return nil
}

// Sent returns the frames transmitted by a side.
func (s *Session) Sent(name string) ([]bridge.Frame, error) {
	_, p, err := s.Side(name)
	if err != nil {
		return nil, err
	}
	var frames []bridge.Frame
	for _, data := range p.Sent() {
		frames = append(frames, bridge.FrameOf(data))
	}
	return frames, nil
}

// Complete fires the transmit complete interrupt of a side. It returns
// false if no transmission was pending.
func (s *Session) Complete(name string) (bool, error) {
	side, p, err := s.Side(name)
	if err != nil {
		return false, err
	}
	before := side.Stats().TransmitsStarted.Load()
	if !p.CompleteTransmit() {
		return false, nil
	}
	deadline := time.Now().Add(settleWait)
	for side.Inbound().Len() > 0 && side.Stats().TransmitsStarted.Load() == before && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	return true, nil
}

// SetAutoComplete switches auto completion of a side.
func (s *Session) SetAutoComplete(name string, auto bool) error {
	_, p, err := s.Side(name)
	if err != nil {
		return err
	}
	p.SetAutoComplete(auto)
	return nil
}

// Stats returns the counters of a side.
func (s *Session) Stats(name string) (bridge.StatsSnapshot, error) {
	side, _, err := s.Side(name)
	if err != nil {
		return bridge.StatsSnapshot{}, err
	}
	return side.Stats().Snapshot(), nil
}

// ParseData decodes shell arguments into bytes. Arguments are joined with
// spaces and Go escapes like \x00 or \n are honored.
func ParseData(args []string) ([]byte, error) {
	text := strings.Join(args, " ")
	decoded, err := strconv.Unquote(`"` + strings.Replace(text, `"`, `\"`, -1) + `"`)
	if err != nil {
		return nil, fmt.Errorf("invalid data %q: %v", text, err)
	}
	return []byte(decoded), nil
}

// FormatFrame prints the message carried by a frame as a quoted string.
func FormatFrame(f bridge.Frame) string {
	return strconv.Quote(string(f.Payload()))
}
