package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/bridge.go/pkg/bridge"
)

// Topic suffixes under <id>/.
const (
	MetaTopic   = "meta"
	StatsTopic  = "stats"
	FramesTopic = "frames"
)

// Meta is the retained JSON description of a running bridge.
type Meta struct {
	ID             string    `json:"id"`
	Sides          []string  `json:"sides"`
	FrameLength    int       `json:"frame_length"`
	QueueDepth     int       `json:"queue_depth"`
	RxBufferLength int       `json:"rx_buffer_length"`
	Started        time.Time `json:"started"`
}

// StatsReport carries the counters of one side.
type StatsReport struct {
	BridgeId                 string `protobuf:"bytes,1,opt,name=bridge_id,json=bridgeId,proto3" json:"bridge_id,omitempty"`
	Side                     string `protobuf:"bytes,2,opt,name=side,proto3" json:"side,omitempty"`
	Timestamp                int64  `protobuf:"varint,3,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
	NotificationsPosted      uint64 `protobuf:"varint,4,opt,name=notifications_posted,json=notificationsPosted,proto3" json:"notifications_posted,omitempty"`
	NotificationsOverwritten uint64 `protobuf:"varint,5,opt,name=notifications_overwritten,json=notificationsOverwritten,proto3" json:"notifications_overwritten,omitempty"`
	NotificationsMissed      uint64 `protobuf:"varint,6,opt,name=notifications_missed,json=notificationsMissed,proto3" json:"notifications_missed,omitempty"`
	WindowsProcessed         uint64 `protobuf:"varint,7,opt,name=windows_processed,json=windowsProcessed,proto3" json:"windows_processed,omitempty"`
	FramesForwarded          uint64 `protobuf:"varint,8,opt,name=frames_forwarded,json=framesForwarded,proto3" json:"frames_forwarded,omitempty"`
	FramesDropped            uint64 `protobuf:"varint,9,opt,name=frames_dropped,json=framesDropped,proto3" json:"frames_dropped,omitempty"`
	TransmitsStarted         uint64 `protobuf:"varint,10,opt,name=transmits_started,json=transmitsStarted,proto3" json:"transmits_started,omitempty"`
	TransmitsDeferred        uint64 `protobuf:"varint,11,opt,name=transmits_deferred,json=transmitsDeferred,proto3" json:"transmits_deferred,omitempty"`
	TransmitsCompleted       uint64 `protobuf:"varint,12,opt,name=transmits_completed,json=transmitsCompleted,proto3" json:"transmits_completed,omitempty"`
	TransmitErrors           uint64 `protobuf:"varint,13,opt,name=transmit_errors,json=transmitErrors,proto3" json:"transmit_errors,omitempty"`
	QueueLength              uint32 `protobuf:"varint,14,opt,name=queue_length,json=queueLength,proto3" json:"queue_length,omitempty"`
}

// Reset implements proto.Message.
func (m *StatsReport) Reset() { *m = StatsReport{} }

// String implements proto.Message.
func (m *StatsReport) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*StatsReport) ProtoMessage() {}

// NewStatsReport builds a report from a side.
func NewStatsReport(id string, s *bridge.Side, ts time.Time) *StatsReport {
	snap := s.Stats().Snapshot()
	return &StatsReport{
		BridgeId:                 id,
		Side:                     s.Name(),
		Timestamp:                ts.UnixNano(),
		NotificationsPosted:      snap.NotificationsPosted,
		NotificationsOverwritten: snap.NotificationsOverwritten,
		NotificationsMissed:      snap.NotificationsMissed,
		WindowsProcessed:         snap.WindowsProcessed,
		FramesForwarded:          snap.FramesForwarded,
		FramesDropped:            snap.FramesDropped,
		TransmitsStarted:         snap.TransmitsStarted,
		TransmitsDeferred:        snap.TransmitsDeferred,
		TransmitsCompleted:       snap.TransmitsCompleted,
		TransmitErrors:           snap.TransmitErrors,
		QueueLength:              uint32(s.Inbound().Len()),
	}
}

// Snapshot converts the report back to counters.
func (m *StatsReport) Snapshot() bridge.StatsSnapshot {
	return bridge.StatsSnapshot{
		NotificationsPosted:      m.NotificationsPosted,
		NotificationsOverwritten: m.NotificationsOverwritten,
		NotificationsMissed:      m.NotificationsMissed,
		WindowsProcessed:         m.WindowsProcessed,
		FramesForwarded:          m.FramesForwarded,
		FramesDropped:            m.FramesDropped,
		TransmitsStarted:         m.TransmitsStarted,
		TransmitsDeferred:        m.TransmitsDeferred,
		TransmitsCompleted:       m.TransmitsCompleted,
		TransmitErrors:           m.TransmitErrors,
	}
}

// FrameEvent reports a frame handed to a peripheral for transmission.
type FrameEvent struct {
	BridgeId  string `protobuf:"bytes,1,opt,name=bridge_id,json=bridgeId,proto3" json:"bridge_id,omitempty"`
	Side      string `protobuf:"bytes,2,opt,name=side,proto3" json:"side,omitempty"`
	Timestamp int64  `protobuf:"varint,3,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
	Seq       uint64 `protobuf:"varint,4,opt,name=seq,proto3" json:"seq,omitempty"`
	Data      []byte `protobuf:"bytes,5,opt,name=data,proto3" json:"data,omitempty"`
}

// Reset implements proto.Message.
func (m *FrameEvent) Reset() { *m = FrameEvent{} }

// String implements proto.Message.
func (m *FrameEvent) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*FrameEvent) ProtoMessage() {}

// Frame returns the carried frame.
func (m *FrameEvent) Frame() bridge.Frame {
	return bridge.FrameOf(m.Data)
}

// Topic builds the topic of a bridge, e.g. Topic(id, "spi", StatsTopic).
func Topic(id string, parts ...string) string {
	return strings.Join(append([]string{id}, parts...), "/")
}

// ParseTopic splits a topic into bridge id, side and kind. For the meta
// topic side is empty.
func ParseTopic(topic string) (id, side, kind string, err error) {
	tokens := strings.Split(topic, "/")
	switch {
	case len(tokens) == 2 && tokens[1] == MetaTopic:
		return tokens[0], "", MetaTopic, nil
	case len(tokens) == 3 && (tokens[2] == StatsTopic || tokens[2] == FramesTopic):
		return tokens[0], tokens[1], tokens[2], nil
	}
	return "", "", "", fmt.Errorf("unknown topic %q", topic)
}

// Decode decodes the payload of a stats or frames topic.
func Decode(topic string, payload []byte) (proto.Message, error) {
	_, _, kind, err := ParseTopic(topic)
	if err != nil {
		return nil, err
	}
	var msg proto.Message
	switch kind {
	case StatsTopic:
		msg = &StatsReport{}
	case FramesTopic:
		msg = &FrameEvent{}
	default:
		return nil, fmt.Errorf("%s is not a protobuf topic", topic)
	}
	if err := proto.Unmarshal(payload, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
