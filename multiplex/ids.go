package multiplex

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/xid"
)

// IDGenerator hands out channel ids for one connection. Each Registry owns
// its generator; generators are never shared between connections.
type IDGenerator interface {
	NextID() string
}

// counter is a per-connection monotonic counter behind a fixed prefix.
type counter struct {
	mu     sync.Mutex
	prefix func() string
	n      uint64
}

func (c *counter) NextID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.prefix() + "$" + strconv.FormatUint(c.n, 10)
	c.n++
	return id
}

// NewCounterGenerator returns ids of the form "<xid>$<n>". The xid prefix
// is drawn once, so ids from the two ends of a connection never collide
// while n keeps ids on this end unique.
func NewCounterGenerator() IDGenerator {
	prefix := xid.New().String()
	return &counter{prefix: func() string { return prefix }}
}

// NewTimestampGenerator returns ids of the form "<unix millis>$<n>", the
// shape used by existing browser clients.
func NewTimestampGenerator() IDGenerator {
	return &counter{prefix: func() string {
		return strconv.FormatInt(time.Now().UnixMilli(), 10)
	}}
}

type xidGenerator struct{}

func (xidGenerator) NextID() string {
	return xid.New().String()
}

// XIDGenerator returns a fresh xid for every channel.
var XIDGenerator IDGenerator = xidGenerator{}

// NewGenerator returns a fresh generator of the given kind: "counter",
// "timestamp" or "xid".
func NewGenerator(kind string) (IDGenerator, error) {
	switch kind {
	case "", "counter":
		return NewCounterGenerator(), nil
	case "timestamp":
		return NewTimestampGenerator(), nil
	case "xid":
		return XIDGenerator, nil
	default:
		return nil, fmt.Errorf("multiplex: unknown id generator %q", kind)
	}
}
