package multiplex

import (
	"github.com/armon/go-metrics"
)

// DropReason says why an inbound frame was absorbed without effect.
type DropReason string

const (
	DropUnknownChannel     DropReason = "unknown-channel"
	DropDuplicateSubscribe DropReason = "duplicate-subscribe"
)

// DropHandler observes frames that were dropped. It runs on the
// connection's loop and must not block.
type DropHandler func(f Frame, reason DropReason)

// MetricSink receives the counters emitted by a Multiplex. *metrics.Metrics
// satisfies it.
type MetricSink interface {
	IncrCounterWithLabels(key []string, val float32, labels []metrics.Label)
}

type globalSink struct{}

func (globalSink) IncrCounterWithLabels(key []string, val float32, labels []metrics.Label) {
	metrics.IncrCounterWithLabels(key, val, labels)
}

var (
	keyChannelOpened = []string{"multiplex", "channel", "opened"}
	keyChannelClosed = []string{"multiplex", "channel", "closed"}
	keyFrameRouted   = []string{"multiplex", "frame", "routed"}
	keyFrameDropped  = []string{"multiplex", "frame", "dropped"}
)

func typeLabel(t PacketType) metrics.Label {
	return metrics.Label{Name: "type", Value: t.String()}
}
