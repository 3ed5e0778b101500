package host

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/net/websocket"

	"github.com/progrium/multiplex-go/codec"
)

// A Listener is similar to a net.Listener but returns host connections.
// Accepted connections are not started.
type Listener interface {
	// Close closes the listener.
	// Any blocked Accept operations will be unblocked and return errors.
	Close() error

	// Accept waits for and returns the next incoming connection.
	Accept() (*Conn, error)

	// Addr returns the listener's network address if available.
	Addr() net.Addr
}

// NetListener wraps a net.Listener to return host connections.
type NetListener struct {
	net.Listener
	codec codec.Codec
	opts  []Option

	accepted  chan *Conn
	errs      chan error
	closer    chan struct{}
	closeOnce sync.Once
}

// Accept waits for and returns the next connection to the listener.
func (l *NetListener) Accept() (*Conn, error) {
	if l.accepted == nil {
		conn, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}
		return New(conn, l.codec, l.opts...), nil
	}
	select {
	case <-l.closer:
		return nil, io.EOF
	case err := <-l.errs:
		return nil, err
	case conn := <-l.accepted:
		return conn, nil
	}
}

// Close closes the listener.
// Any blocked Accept operations will be unblocked and return errors.
func (l *NetListener) Close() error {
	var result error
	l.closeOnce.Do(func() {
		if l.closer != nil {
			close(l.closer)
		}
		if err := l.Listener.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	})
	return result
}

func listenNet(proto, addr string, c codec.Codec, opts ...Option) (*NetListener, error) {
	l, err := net.Listen(proto, addr)
	if err != nil {
		return nil, err
	}
	return &NetListener{Listener: l, codec: c, opts: opts}, nil
}

// ListenTCP creates a TCP listener at the given address.
func ListenTCP(addr string, c codec.Codec, opts ...Option) (*NetListener, error) {
	return listenNet("tcp", addr, c, opts...)
}

// ListenUnix creates a Unix domain socket listener at the given path.
func ListenUnix(path string, c codec.Codec, opts ...Option) (*NetListener, error) {
	return listenNet("unix", path, c, opts...)
}

// HandleWS wraps a WebSocket connection as a host connection, hands it to
// l to be accepted and blocks until the connection is done.
func HandleWS(l *NetListener, ws *websocket.Conn) {
	ws.PayloadType = websocket.BinaryFrame
	conn := New(ws, l.codec, l.opts...)
	select {
	case l.accepted <- conn:
	case <-l.closer:
		ws.Close()
		return
	}
	conn.Wait()
}

// ListenWS returns a NetListener backed by an HTTP+WebSocket server on addr.
func ListenWS(addr string, c codec.Codec, opts ...Option) (*NetListener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	nl := &NetListener{
		Listener: l,
		codec:    c,
		opts:     opts,
		accepted: make(chan *Conn),
		errs:     make(chan error, 1),
		closer:   make(chan struct{}),
	}
	s := &http.Server{
		Addr: addr,
		Handler: websocket.Handler(func(ws *websocket.Conn) {
			HandleWS(nl, ws)
		}),
	}
	go func() {
		nl.errs <- s.Serve(l)
	}()
	return nl, nil
}

// Listen creates a listener for one of the transports "tcp", "unix" or "ws".
func Listen(transport, addr string, c codec.Codec, opts ...Option) (Listener, error) {
	switch transport {
	case "tcp":
		return ListenTCP(addr, c, opts...)
	case "unix":
		return ListenUnix(addr, c, opts...)
	case "ws":
		return ListenWS(addr, c, opts...)
	default:
		return nil, fmt.Errorf("host: unknown transport %q", transport)
	}
}
