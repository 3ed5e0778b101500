package multiplex

import (
	"strings"

	"github.com/armon/go-metrics"

	"github.com/progrium/multiplex-go/event"
	"github.com/progrium/multiplex-go/loop"
)

// fakeConn is a single-goroutine Conn. Deferred work runs when the test
// drains its loop.
type fakeConn struct {
	loop      *loop.Loop
	open      bool
	attempts  []interface{}
	written   []interface{}
	delivered []interface{}
	hooks     []func(interface{}) bool
	events    event.Emitter
}

func newFakeConn() *fakeConn {
	return &fakeConn{loop: loop.New()}
}

func (c *fakeConn) Write(payload interface{}) bool {
	c.attempts = append(c.attempts, payload)
	if !c.open {
		return false
	}
	c.written = append(c.written, payload)
	return true
}

func (c *fakeConn) Intercept(hook func(interface{}) bool) {
	c.hooks = append(c.hooks, hook)
}

func (c *fakeConn) OnOpen(fn func()) func() {
	return c.events.On("open", func(...interface{}) { fn() })
}

func (c *fakeConn) OnClose(fn func()) func() {
	return c.events.On("close", func(...interface{}) { fn() })
}

func (c *fakeConn) IsOpen() bool {
	return c.open
}

func (c *fakeConn) Defer(fn func()) {
	c.loop.Defer(fn)
}

func (c *fakeConn) Open() {
	c.open = true
	c.events.Emit("open")
}

func (c *fakeConn) Lose() {
	c.open = false
	c.events.Emit("close")
}

func (c *fakeConn) Deliver(payload interface{}) {
	for _, h := range c.hooks {
		if !h(payload) {
			return
		}
	}
	c.delivered = append(c.delivered, payload)
}

// take returns and clears the written payloads.
func (c *fakeConn) take() []interface{} {
	w := c.written
	c.written = nil
	return w
}

// relay delivers everything written on c to dst.
func (c *fakeConn) relay(dst *fakeConn) {
	for _, p := range c.take() {
		dst.Deliver(p)
	}
}

func countType(packets []interface{}, t PacketType) int {
	n := 0
	for _, p := range packets {
		if f, ok := Decode(p); ok && f.Type == t {
			n++
		}
	}
	return n
}

type fakeSink struct {
	counts map[string]float32
}

func newFakeSink() *fakeSink {
	return &fakeSink{counts: make(map[string]float32)}
}

func (s *fakeSink) IncrCounterWithLabels(key []string, val float32, labels []metrics.Label) {
	name := strings.Join(key, ".")
	for _, l := range labels {
		name += ";" + l.Name + "=" + l.Value
	}
	s.counts[name] += val
}
