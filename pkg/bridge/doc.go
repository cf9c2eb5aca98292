// Package bridge moves byte-oriented messages between two peripherals.
package bridge

// Each side of the bridge owns a circular receive buffer filled by its
// peripheral in two halves. When a half completes, the peripheral's
// interrupt posts the half index to a single-slot Notifier; the side's task
// wakes, reassembles the half into fixed-length frames and queues them to
// the peer side, which transmits one frame at a time.
//
// The bridge has no integrity checking and no acknowledgement. Lagging
// tasks lose notifications, full queues drop frames, and a message that
// straddles two halves arrives as two frames. None of these are reported
// to the peers; they are only counted in Stats.
//
// Wire convention: zero-terminated messages of at most FrameLength bytes.
