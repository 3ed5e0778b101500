// Package host implements the physical connection that channels are
// multiplexed over: a codec-driven stream of payloads with open, data, end
// and close events and an inbound interception hook.
package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"

	"github.com/progrium/multiplex-go/codec"
	"github.com/progrium/multiplex-go/event"
	"github.com/progrium/multiplex-go/loop"
)

// Events emitted by a Conn.
const (
	EventOpen  = "open"
	EventData  = "data"
	EventEnd   = "end"
	EventClose = "close"
	EventError = "error"
)

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the logger used by the connection.
func WithLogger(logger hclog.Logger) Option {
	return func(c *Conn) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLoop makes the connection use l for its event delivery. The caller
// is responsible for running or draining l.
func WithLoop(l *loop.Loop) Option {
	return func(c *Conn) {
		c.loop = l
		c.external = true
	}
}

// Conn is one physical connection. All events, hooks and deferred work run
// on the connection's loop, one at a time.
type Conn struct {
	rwc io.ReadWriteCloser
	enc codec.Encoder
	dec codec.Decoder

	// writeMu serializes encoder writes.
	writeMu sync.Mutex

	loop     *loop.Loop
	external bool
	events   event.Emitter
	logger   hclog.Logger

	hookMu sync.Mutex
	hooks  []func(payload interface{}) bool

	open      atomic.Bool
	startOnce sync.Once
	started   atomic.Bool
	closeOnce sync.Once

	done chan struct{}
	err  error
}

// New returns a connection over rwc using c to encode and decode payloads.
// No events fire until Start is called.
func New(rwc io.ReadWriteCloser, c codec.Codec, opts ...Option) *Conn {
	conn := &Conn{
		rwc:    rwc,
		enc:    c.Encoder(rwc),
		dec:    c.Decoder(rwc),
		logger: hclog.NewNullLogger(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(conn)
	}
	if conn.loop == nil {
		conn.loop = loop.New()
	}
	return conn
}

// Start begins reading from the transport and emits open. It is safe to
// call more than once.
func (c *Conn) Start() {
	c.startOnce.Do(func() {
		c.started.Store(true)
		if !c.external {
			go c.loop.Run(context.Background())
		}
		c.loop.Post(func() {
			c.open.Store(true)
			c.logger.Debug("connection open")
			c.events.Emit(EventOpen)
		})
		go c.readLoop()
	})
}

// IsOpen reports whether open has fired and the connection has not closed.
func (c *Conn) IsOpen() bool {
	return c.open.Load()
}

// Intercept installs a hook that sees every inbound payload before data
// handlers do. Hooks run in installation order; a hook returning false
// suppresses delivery to data handlers and to later hooks.
func (c *Conn) Intercept(h func(payload interface{}) bool) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.hooks = append(c.hooks, h)
}

// Write encodes one payload onto the transport. It returns false if the
// connection is not open or the write failed; failures also end the
// connection.
func (c *Conn) Write(payload interface{}) bool {
	if !c.IsOpen() {
		c.logger.Trace("write on connection that is not open", "payload", payload)
		return false
	}
	c.writeMu.Lock()
	err := c.enc.Encode(payload)
	c.writeMu.Unlock()
	if err != nil {
		if isClosedErr(err) {
			c.shutdown(nil)
		} else {
			c.shutdown(fmt.Errorf("host: write: %w", err))
		}
		return false
	}
	return true
}

// Do runs fn on the connection's loop and waits for it to return. It must
// not be called from a handler already running on the loop.
func (c *Conn) Do(fn func()) {
	done := make(chan struct{})
	if !c.loop.Post(func() {
		defer close(done)
		fn()
	}) {
		return
	}
	<-done
}

// Defer runs fn on the next turn of the connection's loop. Once the
// connection has shut down there is no next turn, so fn runs right away.
func (c *Conn) Defer(fn func()) {
	if !c.loop.Defer(fn) {
		fn()
	}
}

// On subscribes to a connection event.
func (c *Conn) On(name string, fn event.Handler) func() {
	return c.events.On(name, fn)
}

// OnOpen subscribes fn to the open event.
func (c *Conn) OnOpen(fn func()) func() {
	return c.events.On(EventOpen, func(...interface{}) { fn() })
}

// OnData subscribes fn to payloads that no hook suppressed.
func (c *Conn) OnData(fn func(payload interface{})) func() {
	return c.events.On(EventData, func(args ...interface{}) { fn(args[0]) })
}

// OnEnd subscribes fn to the end event, fired when no more payloads will
// arrive.
func (c *Conn) OnEnd(fn func()) func() {
	return c.events.On(EventEnd, func(...interface{}) { fn() })
}

// OnClose subscribes fn to the close event, fired once after end.
func (c *Conn) OnClose(fn func()) func() {
	return c.events.On(EventClose, func(...interface{}) { fn() })
}

// OnError subscribes fn to transport errors that ended the connection.
func (c *Conn) OnError(fn func(error)) func() {
	return c.events.On(EventError, func(args ...interface{}) { fn(args[0].(error)) })
}

func (c *Conn) readLoop() {
	var err error
	for {
		var v interface{}
		if err = c.dec.Decode(&v); err != nil {
			break
		}
		c.loop.Post(func() {
			c.deliver(v)
		})
	}
	if !isClosedErr(err) {
		err = fmt.Errorf("host: read: %w", err)
	} else {
		err = nil
	}
	c.shutdown(err)
}

func (c *Conn) deliver(payload interface{}) {
	c.hookMu.Lock()
	hooks := append([]func(interface{}) bool(nil), c.hooks...)
	c.hookMu.Unlock()
	for _, h := range hooks {
		if !h(payload) {
			return
		}
	}
	c.events.Emit(EventData, payload)
}

// Close closes the transport. End and close fire on the loop afterwards,
// or before Close returns if the connection was never started.
func (c *Conn) Close() error {
	if !c.started.Load() {
		c.shutdown(nil)
		return nil
	}
	return c.rwc.Close()
}

func (c *Conn) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.rwc.Close()
		c.err = err
		if err != nil {
			c.logger.Error("connection failed", "error", err)
		}
		finish := func() {
			c.open.Store(false)
			if err != nil {
				c.events.Emit(EventError, err)
			}
			c.events.Emit(EventEnd)
			c.events.Emit(EventClose)
			c.logger.Debug("connection closed")
			c.loop.Close()
			close(c.done)
		}
		if !c.started.Load() {
			c.open.Store(false)
			c.events.Emit(EventEnd)
			c.events.Emit(EventClose)
			c.loop.Close()
			close(c.done)
			return
		}
		if !c.loop.Post(finish) {
			close(c.done)
		}
	})
}

// Wait blocks until the connection has shut down and its close event has
// been delivered. It returns the error that ended the connection, or nil
// for a clean close.
func (c *Conn) Wait() error {
	<-c.done
	return c.err
}

// Done is closed once the connection has shut down.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func isClosedErr(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed)
}
