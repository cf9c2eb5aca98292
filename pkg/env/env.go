// Package env assembles a bridge from command line flags and environment
// variables.
package env

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/bridge.go/pkg/bridge"
	fx "github.com/robotalks/bridge.go/pkg/framework"
	"github.com/robotalks/bridge.go/pkg/monitor"
	"github.com/robotalks/bridge.go/pkg/periph/stream"
)

// Config provides options to setup a bridge.
type Config struct {
	// SPIURL and UARTURL locate the peripherals, e.g.
	// serial:///dev/ttyUSB0?baud=115200, tcp://host:port, ws://host/path
	// or sim: for an in-memory peripheral.
	SPIURL  string
	UARTURL string

	// MQTTBrokerURL specifies the MQTT broker for monitoring, e.g.
	// mqtt://host:port/topic-prefix. Monitoring is off when empty.
	MQTTBrokerURL string

	// ID identifies the bridge in monitor topics.
	ID string

	IdleFill       time.Duration
	ReportInterval time.Duration
}

var defaultConfig = Config{
	SPIURL:         "sim:",
	UARTURL:        "sim:",
	IdleFill:       stream.DefaultIdleFill,
	ReportInterval: monitor.DefaultInterval,
}

func init() {
	for name, dst := range map[string]*string{
		"BRIDGE_SPI_URL":  &defaultConfig.SPIURL,
		"BRIDGE_UART_URL": &defaultConfig.UARTURL,
		"BRIDGE_MQTT_URL": &defaultConfig.MQTTBrokerURL,
		"BRIDGE_ID":       &defaultConfig.ID,
	} {
		if val := os.Getenv(name); val != "" {
			*dst = val
		}
	}
	if defaultConfig.ID == "" {
		defaultConfig.ID = MachineID()
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.SPIURL, "spi", defaultConfig.SPIURL, "SPI side peripheral URL")
	flag.StringVar(&defaultConfig.UARTURL, "uart", defaultConfig.UARTURL, "UART side peripheral URL")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL for monitoring")
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Bridge ID")
	flag.DurationVar(&defaultConfig.IdleFill, "idle-fill", defaultConfig.IdleFill, "Idle time before a partial half is zero padded")
	flag.DurationVar(&defaultConfig.ReportInterval, "report-interval", defaultConfig.ReportInterval, "Stats report interval")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Env is a bridge with its peripherals and optional monitor.
type Env struct {
	Config   *Config
	Bridge   *bridge.Bridge
	Reporter *monitor.Reporter

	closers []io.Closer
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	if c.MQTTBrokerURL != "" && c.ID == "" {
		return nil, fmt.Errorf("bridge id must be specified for monitoring")
	}
	e := &Env{Config: c}
	spi, err := e.open(bridge.SideSPI, c.SPIURL)
	if err != nil {
		return nil, err
	}
	uart, err := e.open(bridge.SideUART, c.UARTURL)
	if err != nil {
		e.Close()
		return nil, err
	}
	if e.Bridge, err = bridge.Enable(spi, uart); err != nil {
		e.Close()
		return nil, err
	}
	if c.MQTTBrokerURL != "" {
		if e.Reporter, err = monitor.NewReporterFromURL(c.MQTTBrokerURL, c.ID, e.Bridge); err != nil {
			e.Close()
			return nil, fmt.Errorf("create monitor error: %v", err)
		}
		e.Reporter.Interval = c.ReportInterval
	}
	return e, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	e, err := c.NewEnv()
	if err != nil {
		glog.Exit(err)
	}
	return e
}

func (e *Env) open(name, rawURL string) (bridge.Peripheral, error) {
	p, closer, err := OpenPeripheral(name, rawURL, e.Config.IdleFill)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		e.closers = append(e.closers, closer)
	}
	glog.Infof("%s: %s", name, rawURL)
	return p, nil
}

// Close releases the peripherals.
func (e *Env) Close() error {
	var errs fx.AggregatedError
	for _, c := range e.closers {
		errs.Add(c.Close())
	}
	e.closers = nil
	return errs.Aggregate()
}

// Run implements framework.Runnable. It runs the bridge and the monitor
// until ctx is done, then releases the peripherals.
func (e *Env) Run(ctx context.Context) error {
	r := fx.NewRunnerWith(ctx)
	r.Go(fx.NamedRun("bridge", fx.RunFunc(func(ctx context.Context) error {
		return fx.RunWithContextCloser(ctx, e, func() error {
			return e.Bridge.Run(ctx)
		})
	})))
	if e.Reporter != nil {
		r.Go(e.Reporter)
	}
	return r.Wait()
}
