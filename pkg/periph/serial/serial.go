// Package serial opens host serial ports for the stream peripheral.
package serial

import (
	"fmt"
	"io"
	"net/url"
	"strconv"

	goserial "github.com/jacobsa/go-serial/serial"
)

// DefaultBaudRate is used when the URL has no baud parameter.
const DefaultBaudRate = 115200

// OptionsFromURL converts a URL into port options, e.g.
//
//	serial:///dev/ttyUSB0?baud=115200&parity=none&stop=1&data=8&rtscts=0
func OptionsFromURL(u *url.URL) (opts goserial.OpenOptions, err error) {
	opts = goserial.OpenOptions{
		PortName:        u.Path,
		BaudRate:        DefaultBaudRate,
		DataBits:        8,
		StopBits:        1,
		ParityMode:      goserial.PARITY_NONE,
		MinimumReadSize: 1,
	}
	if opts.PortName == "" {
		opts.PortName = u.Opaque
	}
	if opts.PortName == "" {
		return opts, fmt.Errorf("serial port path missing in %q", u.String())
	}
	q := u.Query()
	for key, dst := range map[string]*uint{
		"baud": &opts.BaudRate,
		"data": &opts.DataBits,
		"stop": &opts.StopBits,
	} {
		if val := q.Get(key); val != "" {
			n, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return opts, fmt.Errorf("invalid %s %q: %v", key, val, err)
			}
			*dst = uint(n)
		}
	}
	switch parity := q.Get("parity"); parity {
	case "", "none":
	case "even":
		opts.ParityMode = goserial.PARITY_EVEN
	case "odd":
		opts.ParityMode = goserial.PARITY_ODD
	default:
		return opts, fmt.Errorf("invalid parity %q", parity)
	}
	if val := q.Get("rtscts"); val != "" {
		if opts.RTSCTSFlowControl, err = strconv.ParseBool(val); err != nil {
			return opts, fmt.Errorf("invalid rtscts %q: %v", val, err)
		}
	}
	return opts, nil
}

// Open opens the serial port described by u.
func Open(u *url.URL) (io.ReadWriteCloser, error) {
	opts, err := OptionsFromURL(u)
	if err != nil {
		return nil, err
	}
	return goserial.Open(opts)
}
