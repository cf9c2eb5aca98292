package bridge

import (
	"errors"
	"fmt"

	"github.com/golang/glog"
)

var (
	// ErrNoPeripheral indicates a side was created without a peripheral.
	ErrNoPeripheral = errors.New("no peripheral")
	// ErrNoPeer indicates a side was started without a peer side.
	ErrNoPeer = errors.New("no peer side")
	// ErrAlreadyRunning indicates Run was called more than once.
	ErrAlreadyRunning = errors.New("already running")
)

// FatalError is an unrecoverable failure of a side. The side stops
// operating after reporting it.
type FatalError struct {
	Side string
	Op   string
	Err  error
}

// Error implements error.
func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Side, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *FatalError) Unwrap() error {
	return e.Err
}

// FatalHandler is the process-wide handler for unrecoverable errors.
type FatalHandler interface {
	Fatal(*FatalError)
}

// FatalFunc is func type of FatalHandler.
type FatalFunc func(*FatalError)

// Fatal implements FatalHandler.
func (f FatalFunc) Fatal(err *FatalError) {
	f(err)
}

// DefaultFatalHandler logs the error and halts the process.
var DefaultFatalHandler FatalHandler = FatalFunc(func(err *FatalError) {
	glog.Errorf("bridge halted: %v", err)
	glog.Fatalf("fatal error on side %s", err.Side)
})
