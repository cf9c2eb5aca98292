// Package monitor publishes bridge counters and transmitted frames to an
// MQTT broker and decodes them for observers.
//
// Topics, relative to the broker URL prefix:
//
//	<id>/meta          retained JSON Meta, cleared by the will message
//	<id>/<side>/stats  StatsReport every report interval
//	<id>/<side>/frames FrameEvent per transmitted frame
package monitor

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/bridge.go/pkg/bridge"
	fx "github.com/robotalks/bridge.go/pkg/framework"
)

// DefaultInterval is the default stats report interval.
const DefaultInterval = time.Second

// clearWait bounds the wait for clearing the meta topic on shutdown.
const clearWait = 500 * time.Millisecond

// Conn is the part of Queue used by Reporter.
type Conn interface {
	Connect() paho.Token
	PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token
	Close() error
}

// Reporter publishes the state of a bridge.
type Reporter struct {
	ID       string
	Interval time.Duration
	Conn     Conn

	bridge  *bridge.Bridge
	started time.Time
	seq     atomic.Uint64
	now     func() time.Time
}

// NewReporter creates a Reporter and installs it as the frame handler of b.
func NewReporter(conn Conn, id string, b *bridge.Bridge) *Reporter {
	r := &Reporter{ID: id, Interval: DefaultInterval, Conn: conn, bridge: b, now: time.Now}
	b.SetFrameHandler(r)
	return r
}

// NewReporterFromURL connects to the broker at brokerURL. The meta topic is
// registered as the will so it is cleared when the bridge disappears.
func NewReporterFromURL(brokerURL, id string, b *bridge.Bridge) (*Reporter, error) {
	opts, prefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	if opts.ClientID == "" {
		opts.SetClientID("bridge-" + id)
	}
	opts.SetBinaryWill(prefix+Topic(id, MetaTopic), []byte{}, 1, true)
	q := NewQueue(opts, prefix)
	r := NewReporter(q, id, b)
	q.OnConnect = func(*Queue) { r.publishMeta() }
	return r, nil
}

// Name implements framework.Named.
func (r *Reporter) Name() string {
	return "monitor"
}

// Run implements framework.Runnable.
func (r *Reporter) Run(ctx context.Context) error {
	r.started = r.now()
	token := r.Conn.Connect()
	if err := fx.RunWithContext(ctx, func() error {
		token.Wait()
		return token.Error()
	}); err != nil {
		return err
	}
	defer r.Conn.Close()
	r.publishMeta()

	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.Conn.PubWith(Topic(r.ID, MetaTopic), []byte{}, 1, true).WaitTimeout(clearWait)
			return ctx.Err()
		case <-ticker.C:
			r.PublishStats()
		}
	}
}

// Meta describes the bridge.
func (r *Reporter) Meta() Meta {
	m := Meta{
		ID:             r.ID,
		FrameLength:    bridge.FrameLength,
		QueueDepth:     bridge.QueueDepth,
		RxBufferLength: bridge.RxBufferLength,
		Started:        r.started,
	}
	for _, s := range r.bridge.Sides() {
		m.Sides = append(m.Sides, s.Name())
	}
	return m
}

func (r *Reporter) publishMeta() {
	encoded, err := json.Marshal(r.Meta())
	if err != nil {
		glog.Errorf("encode meta error: %v", err)
		return
	}
	r.Conn.PubWith(Topic(r.ID, MetaTopic), encoded, 1, true)
}

// PublishStats publishes a StatsReport for each side.
func (r *Reporter) PublishStats() {
	ts := r.now()
	for _, s := range r.bridge.Sides() {
		r.publish(Topic(r.ID, s.Name(), StatsTopic), NewStatsReport(r.ID, s, ts))
	}
}

// HandleFrame implements bridge.FrameHandler. It runs in task context so
// it never waits for the broker.
func (r *Reporter) HandleFrame(side string, f bridge.Frame) {
	r.publish(Topic(r.ID, side, FramesTopic), &FrameEvent{
		BridgeId:  r.ID,
		Side:      side,
		Timestamp: r.now().UnixNano(),
		Seq:       r.seq.Add(1),
		Data:      f[:],
	})
}

func (r *Reporter) publish(topic string, msg proto.Message) {
	encoded, err := proto.Marshal(msg)
	if err != nil {
		glog.Errorf("encode %s error: %v", topic, err)
		return
	}
	r.Conn.PubWith(topic, encoded, 0, false)
}
