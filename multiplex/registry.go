package multiplex

import (
	"sort"
	"sync"
)

// Registry maps channel ids to the channels of one connection.
type Registry struct {
	mp  *Multiplex
	ids IDGenerator

	mu    sync.Mutex
	chans map[string]*Channel
}

func newRegistry(mp *Multiplex, ids IDGenerator) *Registry {
	return &Registry{
		mp:    mp,
		ids:   ids,
		chans: make(map[string]*Channel),
	}
}

// Create originates a channel named name under a fresh id. The channel
// subscribes as soon as the connection is open.
func (r *Registry) Create(name string) *Channel {
	r.mu.Lock()
	id := r.ids.NextID()
	for {
		if _, taken := r.chans[id]; !taken {
			break
		}
		id = r.ids.NextID()
	}
	ch := newChannel(r, id, name, StatePending)
	r.chans[id] = ch
	r.mu.Unlock()

	r.mp.logger.Trace("channel created", "id", id, "name", name)
	ch.bind()
	return ch
}

// EnsureMirror returns the channel registered under id, creating an open
// mirror of the peer's channel if there is none. The bool reports whether
// a channel was created.
func (r *Registry) EnsureMirror(id, name string) (*Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.chans[id]; ok {
		return ch, false
	}
	ch := newChannel(r, id, name, StateOpen)
	r.chans[id] = ch
	r.mp.sink.IncrCounterWithLabels(keyChannelOpened, 1, nil)
	return ch, true
}

// Get returns the channel registered under id.
func (r *Registry) Get(id string) (*Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.chans[id]
	return ch, ok
}

// Remove unregisters id. It reports whether id was registered.
func (r *Registry) Remove(id string) bool {
	_, ok := r.take(id)
	return ok
}

func (r *Registry) take(id string) (*Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.chans[id]
	if ok {
		delete(r.chans, id)
	}
	return ch, ok
}

// Len returns the number of registered channels.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chans)
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.chans))
	for id := range r.chans {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Channels returns the registered channels ordered by id.
func (r *Registry) Channels() []*Channel {
	r.mu.Lock()
	chans := make([]*Channel, 0, len(r.chans))
	for _, ch := range r.chans {
		chans = append(chans, ch)
	}
	r.mu.Unlock()
	sort.Slice(chans, func(i, j int) bool { return chans[i].id < chans[j].id })
	return chans
}

// CloseAll unregisters every channel and closes it without writing
// UNSUBSCRIBE. It returns the number of channels closed.
func (r *Registry) CloseAll() int {
	chans := r.clear()
	for _, ch := range chans {
		ch.closeNow()
	}
	return len(chans)
}

// clear unregisters and returns every channel.
func (r *Registry) clear() []*Channel {
	r.mu.Lock()
	chans := make([]*Channel, 0, len(r.chans))
	for _, ch := range r.chans {
		chans = append(chans, ch)
	}
	r.chans = make(map[string]*Channel)
	r.mu.Unlock()
	sort.Slice(chans, func(i, j int) bool { return chans[i].id < chans[j].id })
	return chans
}
