// Package websocket connects the stream peripheral to a websocket endpoint.
package websocket

import (
	"io"
	"net/url"

	"golang.org/x/net/websocket"
)

// DefaultOrigin is sent when the URL has no origin parameter.
const DefaultOrigin = "http://localhost/"

// Dial connects to u and returns a stream exchanging binary frames.
// The origin query parameter, if present, is removed from the URL and
// used as the Origin header.
func Dial(u *url.URL) (io.ReadWriteCloser, error) {
	target := *u
	q := target.Query()
	origin := q.Get("origin")
	if origin == "" {
		origin = DefaultOrigin
	}
	q.Del("origin")
	target.RawQuery = q.Encode()

	conn, err := websocket.Dial(target.String(), "", origin)
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	return conn, nil
}
