package bridge

import "time"

// Buffer geometry and queue depth. These are fixed at compile time and
// must match on both peers.
const (
	// RxBufferLength is the length of the circular receive buffer of a side.
	RxBufferLength = 256
	// RxHalfLength is the length of one half of the receive buffer.
	RxHalfLength = RxBufferLength / 2
	// FrameLength is the length of every frame exchanged between sides.
	FrameLength = 16
	// QueueDepth is the capacity of a transfer queue in frames.
	QueueDepth = 16

	waitSetCapacity = QueueDepth + 2
)

// Short bounded waits used inside the task loop. They only cover the race
// with the interrupt that produced the wake-up; none of them is a timeout
// policy.
const (
	// NotificationWait bounds reading the Notifier after a wake-up.
	NotificationWait = 10 * time.Millisecond
	// ForwardWait bounds sending a reassembled frame to the peer queue.
	ForwardWait = time.Millisecond
	// ReceiveWait bounds popping a frame from the inbound queue.
	ReceiveWait = 10 * time.Millisecond
)
