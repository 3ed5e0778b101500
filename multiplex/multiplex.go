// Package multiplex runs many named channels over one message-oriented
// connection.
//
// Every multiplex frame is the sequence [type, channelId, channelName,
// payload?] with type 2 (MESSAGE), 3 (SUBSCRIBE) or 4 (UNSUBSCRIBE). The
// side that opens a channel assigns its id and sends SUBSCRIBE once the
// connection is open; the other side creates a mirror channel under the
// same id. Either side may end a channel with UNSUBSCRIBE. Inbound values
// that are not frames are left for the connection's own data handlers.
package multiplex

import (
	"sync"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"

	"github.com/progrium/multiplex-go/event"
)

const eventChannel = "channel"

// Conn is the physical connection a Multiplex runs over. *host.Conn
// implements it.
type Conn interface {
	// Write sends one payload. It reports whether the payload was accepted.
	Write(payload interface{}) bool

	// Intercept installs a hook that sees inbound payloads before normal
	// delivery; returning false suppresses delivery.
	Intercept(hook func(payload interface{}) bool)

	// OnOpen and OnClose subscribe to connection events and return a func
	// that unsubscribes.
	OnOpen(fn func()) func()
	OnClose(fn func()) func()

	// IsOpen reports whether the connection is currently writable.
	IsOpen() bool

	// Defer runs fn on the next turn of the connection's event loop, or
	// right away once the loop has stopped.
	Defer(fn func())
}

// Option configures a Multiplex.
type Option func(*Multiplex)

// WithLogger sets the logger used for routing diagnostics.
func WithLogger(logger hclog.Logger) Option {
	return func(m *Multiplex) {
		if logger != nil {
			m.logger = logger.Named("multiplex")
		}
	}
}

// WithIDGenerator sets the generator used for originated channel ids.
// The generator must not be shared with another connection.
func WithIDGenerator(ids IDGenerator) Option {
	return func(m *Multiplex) {
		m.ids = ids
	}
}

// WithDropHandler registers fn to observe frames that are dropped.
func WithDropHandler(fn DropHandler) Option {
	return func(m *Multiplex) {
		m.onDrop = fn
	}
}

// WithMetrics sends counters to sink instead of the global go-metrics
// instance.
func WithMetrics(sink MetricSink) Option {
	return func(m *Multiplex) {
		if sink != nil {
			m.sink = sink
		}
	}
}

// Multiplex is the per-connection dispatcher. It separates multiplex
// frames from ordinary traffic and routes them to channels.
type Multiplex struct {
	conn   Conn
	logger hclog.Logger
	sink   MetricSink
	ids    IDGenerator
	onDrop DropHandler
	events event.Emitter

	regOnce sync.Once
	reg     *Registry
}

// New installs a Multiplex on conn. It must be called once per connection,
// before any payload is delivered.
func New(conn Conn, opts ...Option) *Multiplex {
	m := &Multiplex{
		conn:   conn,
		logger: hclog.NewNullLogger(),
		sink:   globalSink{},
	}
	for _, opt := range opts {
		opt(m)
	}
	conn.Intercept(m.intercept)
	conn.OnClose(m.closeAll)
	return m
}

// Registry returns the connection's channel registry, creating it on first
// use.
func (m *Multiplex) Registry() *Registry {
	m.regOnce.Do(func() {
		ids := m.ids
		if ids == nil {
			ids = NewCounterGenerator()
		}
		m.reg = newRegistry(m, ids)
	})
	return m.reg
}

// Channel originates a new channel named name. Every call creates a new
// channel, even for a name already in use.
func (m *Multiplex) Channel(name string) *Channel {
	return m.Registry().Create(name)
}

// Get returns the live channel with the given id.
func (m *Multiplex) Get(id string) (*Channel, bool) {
	return m.Registry().Get(id)
}

// Channels returns the live channels ordered by id.
func (m *Multiplex) Channels() []*Channel {
	return m.Registry().Channels()
}

// OnChannel subscribes fn to mirror channels created for the peer's
// SUBSCRIBE frames. fn runs before any message for the channel is routed.
func (m *Multiplex) OnChannel(fn func(ch *Channel)) func() {
	return m.events.On(eventChannel, func(args ...interface{}) {
		fn(args[0].(*Channel))
	})
}

func (m *Multiplex) intercept(payload interface{}) bool {
	f, ok := Decode(payload)
	if !ok {
		return true
	}
	m.route(f)
	return false
}

func (m *Multiplex) route(f Frame) {
	reg := m.Registry()
	switch f.Type {
	case Subscribe:
		ch, created := reg.EnsureMirror(f.ChannelID, f.ChannelName)
		if !created {
			m.drop(f, DropDuplicateSubscribe)
			return
		}
		m.routed(f)
		m.events.Emit(eventChannel, ch)

	case Message:
		ch, ok := reg.Get(f.ChannelID)
		if !ok {
			m.drop(f, DropUnknownChannel)
			return
		}
		m.routed(f)
		ch.receive(f.Payload)

	case Unsubscribe:
		ch, ok := reg.take(f.ChannelID)
		if !ok {
			m.drop(f, DropUnknownChannel)
			return
		}
		m.routed(f)
		ch.closeNow()
	}
}

func (m *Multiplex) routed(f Frame) {
	m.logger.Trace("frame routed", "frame", f)
	m.sink.IncrCounterWithLabels(keyFrameRouted, 1, []metrics.Label{typeLabel(f.Type)})
}

func (m *Multiplex) drop(f Frame, reason DropReason) {
	m.logger.Trace("frame dropped", "frame", f, "reason", reason)
	m.sink.IncrCounterWithLabels(keyFrameDropped, 1, []metrics.Label{
		typeLabel(f.Type),
		{Name: "reason", Value: string(reason)},
	})
	if m.onDrop != nil {
		m.onDrop(f, reason)
	}
}

// closeAll closes every channel when the connection goes away. No
// UNSUBSCRIBE is written since the transport is gone.
func (m *Multiplex) closeAll() {
	if n := m.Registry().CloseAll(); n > 0 {
		m.logger.Debug("connection closed, channels closed", "count", n)
	}
}
