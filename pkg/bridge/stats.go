package bridge

import "sync/atomic"

// Stats counts events on one side. The counters are informational only;
// nothing in the data path reads them.
type Stats struct {
	NotificationsPosted      atomic.Uint64
	NotificationsOverwritten atomic.Uint64
	NotificationsMissed      atomic.Uint64
	WindowsProcessed         atomic.Uint64
	FramesForwarded          atomic.Uint64
	FramesDropped            atomic.Uint64
	TransmitsStarted         atomic.Uint64
	TransmitsDeferred        atomic.Uint64
	TransmitsCompleted       atomic.Uint64
	TransmitErrors           atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	NotificationsPosted      uint64 `json:"notifications_posted"`
	NotificationsOverwritten uint64 `json:"notifications_overwritten"`
	NotificationsMissed      uint64 `json:"notifications_missed"`
	WindowsProcessed         uint64 `json:"windows_processed"`
	FramesForwarded          uint64 `json:"frames_forwarded"`
	FramesDropped            uint64 `json:"frames_dropped"`
	TransmitsStarted         uint64 `json:"transmits_started"`
	TransmitsDeferred        uint64 `json:"transmits_deferred"`
	TransmitsCompleted       uint64 `json:"transmits_completed"`
	TransmitErrors           uint64 `json:"transmit_errors"`
}

// Snapshot copies the counters. Counters are read one by one, so the copy
// is not atomic as a whole.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		NotificationsPosted:      s.NotificationsPosted.Load(),
		NotificationsOverwritten: s.NotificationsOverwritten.Load(),
		NotificationsMissed:      s.NotificationsMissed.Load(),
		WindowsProcessed:         s.WindowsProcessed.Load(),
		FramesForwarded:          s.FramesForwarded.Load(),
		FramesDropped:            s.FramesDropped.Load(),
		TransmitsStarted:         s.TransmitsStarted.Load(),
		TransmitsDeferred:        s.TransmitsDeferred.Load(),
		TransmitsCompleted:       s.TransmitsCompleted.Load(),
		TransmitErrors:           s.TransmitErrors.Load(),
	}
}
