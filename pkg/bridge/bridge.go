package bridge

import (
	"context"
	"sync/atomic"

	fx "github.com/robotalks/bridge.go/pkg/framework"
)

// Side names.
const (
	SideSPI  = "spi"
	SideUART = "uart"
)

// Bridge connects a synchronous serial bus and an asynchronous serial port.
type Bridge struct {
	SPI  *Side
	UART *Side

	running atomic.Bool
}

// Enable creates both sides and cross-wires them. It must be called once
// per pair of peripherals, before Run.
func Enable(spi, uart Peripheral) (*Bridge, error) {
	spiSide, err := NewSide(SideSPI, spi)
	if err != nil {
		return nil, err
	}
	uartSide, err := NewSide(SideUART, uart)
	if err != nil {
		return nil, err
	}
	Pair(spiSide, uartSide)
	return &Bridge{SPI: spiSide, UART: uartSide}, nil
}

// MustEnable is Enable routing failures to DefaultFatalHandler.
func MustEnable(spi, uart Peripheral) *Bridge {
	b, err := Enable(spi, uart)
	if err != nil {
		fe, ok := err.(*FatalError)
		if !ok {
			fe = &FatalError{Side: "bridge", Op: "enable", Err: err}
		}
		DefaultFatalHandler.Fatal(fe)
	}
	return b
}

// Sides returns both sides.
func (b *Bridge) Sides() []*Side {
	return []*Side{b.SPI, b.UART}
}

// SetFatalHandler sets the fatal handler of both sides.
func (b *Bridge) SetFatalHandler(h FatalHandler) *Bridge {
	for _, s := range b.Sides() {
		s.Fatal = h
	}
	return b
}

// SetFrameHandler sets the frame observer of both sides.
func (b *Bridge) SetFrameHandler(h FrameHandler) *Bridge {
	for _, s := range b.Sides() {
		s.Handler = h
	}
	return b
}

// Run implements framework.Runnable. Both sides run until ctx is done or
// one of them fails.
func (b *Bridge) Run(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	return fx.NewRunnerWith(ctx).Go(b.SPI, b.UART).Wait()
}
