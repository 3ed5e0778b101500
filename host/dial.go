package host

import (
	"fmt"
	"io"
	"net"
	"os"

	"golang.org/x/net/websocket"

	"github.com/progrium/multiplex-go/codec"
)

type ioduplex struct {
	io.WriteCloser
	io.ReadCloser
}

func (d *ioduplex) Close() error {
	if err := d.WriteCloser.Close(); err != nil {
		return err
	}
	return d.ReadCloser.Close()
}

// DialIO returns a connection using a WriteCloser and a ReadCloser.
func DialIO(out io.WriteCloser, in io.ReadCloser, c codec.Codec, opts ...Option) (*Conn, error) {
	return New(&ioduplex{out, in}, c, opts...), nil
}

// DialStdio returns a connection using Stdout and Stdin.
func DialStdio(c codec.Codec, opts ...Option) (*Conn, error) {
	return DialIO(os.Stdout, os.Stdin, c, opts...)
}

func dialNet(proto, addr string, c codec.Codec, opts ...Option) (*Conn, error) {
	conn, err := net.Dial(proto, addr)
	if err != nil {
		return nil, err
	}
	return New(conn, c, opts...), nil
}

// DialTCP returns a connection over TCP.
func DialTCP(addr string, c codec.Codec, opts ...Option) (*Conn, error) {
	return dialNet("tcp", addr, c, opts...)
}

// DialUnix returns a connection over a Unix domain socket.
func DialUnix(path string, c codec.Codec, opts ...Option) (*Conn, error) {
	return dialNet("unix", path, c, opts...)
}

// DialWS returns a connection over WebSocket. The address must be a host
// and port. Opening a WebSocket connection at a particular path is not
// supported.
func DialWS(addr string, c codec.Codec, opts ...Option) (*Conn, error) {
	ws, err := websocket.Dial(fmt.Sprintf("ws://%s/", addr), "", fmt.Sprintf("http://%s/", addr))
	if err != nil {
		return nil, err
	}
	ws.PayloadType = websocket.BinaryFrame
	return New(ws, c, opts...), nil
}

// Dial returns a connection for one of the transports "tcp", "unix" or "ws".
func Dial(transport, addr string, c codec.Codec, opts ...Option) (*Conn, error) {
	switch transport {
	case "tcp":
		return DialTCP(addr, c, opts...)
	case "unix":
		return DialUnix(addr, c, opts...)
	case "ws":
		return DialWS(addr, c, opts...)
	default:
		return nil, fmt.Errorf("host: unknown transport %q", transport)
	}
}
