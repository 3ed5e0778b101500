package multiplex

import (
	"fmt"
	"sync"

	"github.com/progrium/multiplex-go/event"
)

// Channel events.
const (
	EventOpen  = "open"
	EventData  = "data"
	EventClose = "close"
)

// State is the lifecycle state of a Channel.
type State uint8

const (
	// StatePending channels wait for the connection to open before
	// subscribing.
	StatePending State = iota
	StateOpen
	// StateClosed is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Channel is one logical stream multiplexed over a connection. Its event
// emitter carries data(payload), open and close.
type Channel struct {
	*event.Emitter

	// R/O after creation
	id, name string
	reg      *Registry
	conn     Conn

	// mu guards state and queued, and is held while subscribing so that
	// no message is written ahead of the SUBSCRIBE frame.
	mu     sync.Mutex
	state  State
	queued []interface{}
	unbind func()
	// closeEmitted is set once close has been emitted. Guarded by mu.
	closeEmitted bool
}

func newChannel(reg *Registry, id, name string, state State) *Channel {
	return &Channel{
		Emitter: &event.Emitter{},
		id:      id,
		name:    name,
		reg:     reg,
		conn:    reg.mp.conn,
		state:   state,
	}
}

// ID returns the identifier of this channel within its connection.
func (ch *Channel) ID() string {
	return ch.id
}

// Name returns the name the channel was opened with.
func (ch *Channel) Name() string {
	return ch.name
}

// Conn returns the connection the channel runs over.
func (ch *Channel) Conn() Conn {
	return ch.conn
}

// State returns the current lifecycle state.
func (ch *Channel) State() State {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.state
}

func (ch *Channel) String() string {
	return fmt.Sprintf("Channel{%s %q %s}", ch.id, ch.name, ch.State())
}

// OnData subscribes fn to payloads arriving on the channel.
func (ch *Channel) OnData(fn func(payload interface{})) func() {
	return ch.On(EventData, func(args ...interface{}) { fn(args[0]) })
}

// OnClose subscribes fn to the close event. If close was already emitted,
// fn runs right away on the calling goroutine instead, so a listener
// attached after End returns sees close whichever goroutine called End.
func (ch *Channel) OnClose(fn func()) func() {
	ch.mu.Lock()
	if ch.closeEmitted {
		ch.mu.Unlock()
		fn()
		return func() {}
	}
	defer ch.mu.Unlock()
	return ch.On(EventClose, func(...interface{}) { fn() })
}

// OnOpen subscribes fn to the open event of an originated channel.
func (ch *Channel) OnOpen(fn func()) func() {
	return ch.On(EventOpen, func(...interface{}) { fn() })
}

// bind arranges for a pending channel to subscribe once the connection
// opens, or right away if it already is.
func (ch *Channel) bind() {
	off := ch.conn.OnOpen(ch.subscribe)
	ch.mu.Lock()
	if ch.state == StatePending {
		ch.unbind = off
		off = nil
	}
	ch.mu.Unlock()
	if off != nil {
		off()
		return
	}
	if ch.conn.IsOpen() {
		ch.subscribe()
	}
}

func (ch *Channel) subscribe() {
	ch.mu.Lock()
	if ch.state != StatePending {
		ch.mu.Unlock()
		return
	}
	ch.state = StateOpen
	ch.conn.Write(Encode(Subscribe, ch.id, ch.name, nil))
	for _, data := range ch.queued {
		ch.conn.Write(Encode(Message, ch.id, ch.name, data))
	}
	ch.queued = nil
	off := ch.unbind
	ch.unbind = nil
	ch.mu.Unlock()

	if off != nil {
		off()
	}
	ch.reg.mp.sink.IncrCounterWithLabels(keyChannelOpened, 1, nil)
	ch.reg.mp.logger.Trace("channel subscribed", "id", ch.id, "name", ch.name)
	ch.Emit(EventOpen)
}

// Write sends data to the other end as one message. Writes on a pending
// channel are held until it subscribes. Write always returns true; writes
// on a closed channel are not guarded and still reach the connection.
func (ch *Channel) Write(data interface{}) bool {
	ch.mu.Lock()
	if ch.state == StatePending {
		ch.queued = append(ch.queued, data)
		ch.mu.Unlock()
		return true
	}
	ch.mu.Unlock()
	ch.conn.Write(Encode(Message, ch.id, ch.name, data))
	return true
}

// End writes any given data, then unsubscribes and unregisters the
// channel. The close event fires on the next turn of the connection loop,
// never inside End, and OnClose listeners attached right after End returns
// still see it. Ending a channel that is no longer registered does nothing.
func (ch *Channel) End(data ...interface{}) *Channel {
	return ch.end(nil, data)
}

// EndFunc is End with a callback that runs after the close event.
func (ch *Channel) EndFunc(fn func(), data ...interface{}) *Channel {
	return ch.end(fn, data)
}

// Destroy ends the channel and drops all of its event subscriptions once
// close has fired. The channel must not be used afterwards.
func (ch *Channel) Destroy() {
	ch.end(func() {
		ch.RemoveAll()
	}, nil)
}

func (ch *Channel) end(fn func(), data []interface{}) *Channel {
	for _, d := range data {
		if d != nil {
			ch.Write(d)
		}
	}
	if !ch.reg.Remove(ch.id) {
		return ch
	}
	ch.conn.Write(Encode(Unsubscribe, ch.id, ch.name, nil))
	ch.markClosed()
	ch.reg.mp.logger.Trace("channel ended", "id", ch.id, "name", ch.name)
	ch.conn.Defer(func() {
		ch.emitClose()
		if fn != nil {
			fn()
		}
	})
	return ch
}

// markClosed moves the channel to closed. It reports false if the channel
// was already closed.
func (ch *Channel) markClosed() bool {
	ch.mu.Lock()
	if ch.state == StateClosed {
		ch.mu.Unlock()
		return false
	}
	ch.state = StateClosed
	ch.queued = nil
	off := ch.unbind
	ch.unbind = nil
	ch.mu.Unlock()

	if off != nil {
		off()
	}
	ch.reg.mp.sink.IncrCounterWithLabels(keyChannelClosed, 1, nil)
	return true
}

func (ch *Channel) receive(payload interface{}) {
	ch.Emit(EventData, payload)
}

// closeNow closes a channel the peer unsubscribed or whose connection went
// away. Unlike End, close is emitted synchronously.
func (ch *Channel) closeNow() {
	if ch.markClosed() {
		ch.emitClose()
	}
}

func (ch *Channel) emitClose() {
	ch.mu.Lock()
	ch.closeEmitted = true
	ch.mu.Unlock()
	ch.Emit(EventClose)
}
