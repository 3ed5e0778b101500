package multiplex

// Proxy mirrors every channel the peer opens on src onto dst under the same
// name and bridges the two. The returned func stops proxying new channels;
// channels already bridged stay bridged until either end closes.
func Proxy(dst, src *Multiplex) func() {
	return src.OnChannel(func(a *Channel) {
		Bridge(a, dst.Channel(a.Name()))
	})
}

// Bridge copies messages between a and b in both directions and ends each
// channel when the other closes.
func Bridge(a, b *Channel) {
	a.OnData(func(payload interface{}) {
		b.Write(payload)
	})
	b.OnData(func(payload interface{}) {
		a.Write(payload)
	})
	a.OnClose(func() {
		b.End()
	})
	b.OnClose(func() {
		a.End()
	})
}
