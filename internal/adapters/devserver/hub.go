package devserver

import "sync"

// hub fans reload notifications out to connected event stream clients.
type hub struct {
	mu      sync.Mutex
	clients map[chan []string]struct{}
	closed  bool
}

func newHub() *hub {
	return &hub{clients: make(map[chan []string]struct{})}
}

// subscribe registers a client. The returned channel is closed when the hub closes.
func (h *hub) subscribe() (<-chan []string, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan []string, 1)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.clients[ch] = struct{}{}

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
	}
}

// broadcast sends paths to every client. A client that has not consumed the previous
// notification gets the new paths merged into it instead.
func (h *hub) broadcast(paths []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.clients {
		select {
		case ch <- paths:
		default:
			select {
			case pending := <-ch:
				ch <- append(pending, paths...)
			default:
				ch <- paths
			}
		}
	}
}

// count returns the number of connected clients.
func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// close disconnects every client and rejects new ones.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
}
