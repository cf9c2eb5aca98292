package env

import (
	"context"
	"io"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/bridge.go/pkg/bridge"
	"github.com/robotalks/bridge.go/pkg/periph"
	"github.com/robotalks/bridge.go/pkg/periph/sim"
	"github.com/robotalks/bridge.go/pkg/periph/stream"
)

func TestOpenPeripheral(t *testing.T) {
	p, closer, err := OpenPeripheral(bridge.SideSPI, "sim:", 0)
	require.NoError(t, err)
	require.Nil(t, closer)
	require.IsType(t, &sim.Peripheral{}, p)

	_, _, err = OpenPeripheral(bridge.SideSPI, "i2c://bus0", 0)
	require.Error(t, err)
	_, _, err = OpenPeripheral(bridge.SideSPI, "tcp://%zz", 0)
	require.Error(t, err)
	_, _, err = OpenPeripheral(bridge.SideSPI, "serial://", 0)
	require.Error(t, err)
}

func TestOpenTCPPeripheral(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		if conn, err := ln.Accept(); err == nil {
			io.Copy(io.Discard, conn)
		}
	}()

	p, closer, err := OpenPeripheral(bridge.SideUART, "tcp://"+ln.Addr().String(), time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, p, closer)
	sp := p.(*stream.Peripheral)
	require.Equal(t, bridge.SideUART, sp.Name)
	require.Equal(t, time.Millisecond, sp.IdleFill)
	require.NoError(t, closer.Close())
}

func TestCustomDialer(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	Dialers["pipe"] = func(u *url.URL) (io.ReadWriteCloser, error) {
		require.Equal(t, "loop", u.Opaque)
		return local, nil
	}
	defer delete(Dialers, "pipe")

	p, closer, err := OpenPeripheral(bridge.SideUART, "pipe:loop", 0)
	require.NoError(t, err)
	require.IsType(t, &stream.Peripheral{}, p)
	require.NoError(t, closer.Close())
}

func TestNewEnvErrors(t *testing.T) {
	_, err := (&Config{SPIURL: "sim:", UARTURL: "sim:", MQTTBrokerURL: "mqtt://localhost:1883/"}).NewEnv()
	require.Error(t, err)
	_, err = (&Config{SPIURL: "sim:", UARTURL: "can://bus"}).NewEnv()
	require.Error(t, err)
}

func TestEnvRun(t *testing.T) {
	conf := NewConfig()
	conf.SPIURL, conf.UARTURL, conf.MQTTBrokerURL = "sim:", "sim:", ""
	e, err := conf.NewEnv()
	require.NoError(t, err)
	require.Nil(t, e.Reporter)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- e.Run(ctx) }()

	spiPeriph, uartPeriph := sidePeriph(t, e, bridge.SideSPI), sidePeriph(t, e, bridge.SideUART)
	deadline := time.Now().Add(time.Second)
	for {
		err := spiPeriph.Inject([]byte("hi\x00"))
		if err == nil {
			break
		}
		require.Equal(t, periph.ErrNotStarted, err)
		require.True(t, time.Now().Before(deadline), "receive not started")
		time.Sleep(time.Millisecond)
	}
	require.NoError(t, spiPeriph.FillIdle())

	select {
	case sent := <-uartPeriph.Transmitted():
		require.Equal(t, bridge.FrameOf([]byte("hi\x00")), bridge.FrameOf(sent))
	case <-time.After(time.Second):
		t.Fatal("frame not transmitted")
	}

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("env not stopped")
	}
}

func sidePeriph(t *testing.T, e *Env, name string) *sim.Peripheral {
	for _, s := range e.Bridge.Sides() {
		if s.Name() == name {
			p, ok := s.Peripheral().(*sim.Peripheral)
			require.True(t, ok)
			return p
		}
	}
	t.Fatalf("no side %s", name)
	return nil
}
