package env

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/robotalks/bridge.go/pkg/bridge"
	"github.com/robotalks/bridge.go/pkg/periph/serial"
	"github.com/robotalks/bridge.go/pkg/periph/sim"
	"github.com/robotalks/bridge.go/pkg/periph/stream"
	"github.com/robotalks/bridge.go/pkg/periph/websocket"
)

// Dialer opens a byte stream from a peripheral URL.
type Dialer func(u *url.URL) (io.ReadWriteCloser, error)

// Dialers maps URL schemes to stream dialers. The "sim" scheme is handled
// separately as it has no stream.
var Dialers = map[string]Dialer{
	"serial": serial.Open,
	"tcp":    dialTCP,
	"ws":     websocket.Dial,
	"wss":    websocket.Dial,
}

func dialTCP(u *url.URL) (io.ReadWriteCloser, error) {
	return net.Dial("tcp", u.Host)
}

// OpenPeripheral opens the peripheral described by rawURL for side name.
// The returned closer is nil when nothing needs to be released.
func OpenPeripheral(name, rawURL string, idleFill time.Duration) (bridge.Peripheral, io.Closer, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: invalid URL: %v", name, err)
	}
	if u.Scheme == "sim" {
		return sim.New(true), nil, nil
	}
	dial := Dialers[u.Scheme]
	if dial == nil {
		return nil, nil, fmt.Errorf("%s: unsupported scheme %q", name, u.Scheme)
	}
	rw, err := dial(u)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: open %s error: %v", name, rawURL, err)
	}
	p := stream.New(name, rw)
	p.IdleFill = idleFill
	return p, p, nil
}
