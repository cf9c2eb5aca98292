// Package periph collects errors shared by the host peripheral drivers.
package periph

import "errors"

var (
	// ErrBusy indicates an operation is already in progress.
	ErrBusy = errors.New("peripheral busy")
	// ErrNotStarted indicates receive has not been started yet.
	ErrNotStarted = errors.New("receive not started")
	// ErrClosed indicates the peripheral is closed.
	ErrClosed = errors.New("peripheral closed")
)
