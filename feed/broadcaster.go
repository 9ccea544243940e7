// Package feed pushes live updates to browsers over Server-Sent Events.
//
// Server-Sent Events is a one-way stream over a normal HTTP response: the
// server keeps the response open and writes `event:`/`data:` blocks separated by
// blank lines, and the browser's EventSource turns each block into a message.
// There is no client-to-server channel; new comments still arrive through the
// regular POST endpoint, and the comments service publishes them here after the
// write succeeded.
//
// A Broadcaster keeps one buffered channel per connected client and fans every
// published event out to all of them. Each HTTP handler goroutine owns one
// client and drains its channel into the response (see Stream).
package feed

import (
	"log/slog"
	"net/http"
	// `sync` guards the client map; `sync/atomic` counts drops without the lock.
	"sync"
	"sync/atomic"
	"time"

	// Client ids only need to be unique within the process.
	"github.com/google/uuid"
)

// clientBuffer is how many events a client may lag behind before it starts
// missing events.
const clientBuffer = 32

// client is the per-connection state. It is created by NewClient and lives until
// RemoveClient or Close closes its channel.
type client struct {
	// events is buffered so Publish never waits on a slow network write.
	// Closing it tells the Stream loop to return.
	events chan Event

	// dropped counts events this client missed because its buffer was full.
	// Publish increments it under the read lock, so several publishers may touch
	// it at once; hence the atomic.
	dropped atomic.Int64
}

// Broadcaster manages SSE clients and message broadcasting.
// The zero value is not usable; create one with NewBroadcaster.
type Broadcaster struct {
	// mu protects clients and closed.
	// RWMutex: publishing only reads the client map, connecting and
	// disconnecting write it. Sends happen under the read lock, which is safe
	// because a channel is only ever closed under the write lock.
	mu sync.RWMutex

	// clients maps a client id to its state.
	clients map[string]*client

	// closed is set by Close. Clients that connect afterwards get an already
	// closed channel, so a request racing with shutdown ends at once instead of
	// holding the server open.
	closed bool

	logger *slog.Logger
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		clients: make(map[string]*client),
		logger:  logger.With("component", "feed"),
	}
}

// NewClient registers a client and returns its id and the channel to read events from.
func (b *Broadcaster) NewClient() (string, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	c := &client{events: make(chan Event, clientBuffer)}
	// Not registered after Close: nothing would ever close the channel otherwise.
	if b.closed {
		close(c.events)
		return id, c.events
	}
	b.clients[id] = c
	b.logger.Debug("sse client connected", "client", id, "clients", len(b.clients))
	return id, c.events
}

// RemoveClient unregisters a client and closes its channel.
func (b *Broadcaster) RemoveClient(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Close may have removed the client already; closing its channel twice would panic.
	if c, ok := b.clients[id]; ok {
		close(c.events)
		delete(b.clients, id)
		b.logger.Debug("sse client disconnected", "client", id, "dropped", c.dropped.Load())
	}
}

// Publish sends event to every client without blocking. A client whose buffer
// is full misses the event.
func (b *Broadcaster) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, c := range b.clients {
		// Non-blocking send: one stalled browser must not delay every
		// other client, nor the comment write that triggered the publish.
		select {
		case c.events <- event:
		default:
			c.dropped.Add(1)
			b.logger.Warn("sse client too slow, event dropped", "client", id)
		}
	}
}

// Close disconnects every client and makes later clients end immediately.
// Streams return once their channel is closed, which lets server shutdown finish.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for id, c := range b.clients {
		close(c.events)
		delete(b.clients, id)
	}
}

// Len returns the number of connected clients.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Stream serves an SSE connection until the client goes away. Events are sent as
// they are published, with a comment line every heartbeat to keep proxies from
// closing an idle connection. A non-positive heartbeat disables it.
func (b *Broadcaster) Stream(w http.ResponseWriter, r *http.Request, heartbeat time.Duration) {
	// Without Flush the bytes would sit in the server's buffer until the
	// handler returns, and the browser would see nothing.
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx: do not buffer the stream
	w.WriteHeader(http.StatusOK)

	id, events := b.NewClient()
	defer b.RemoveClient(id)

	// Lines starting with ':' are SSE comments; EventSource ignores them, but they
	// get the headers and first bytes through any proxy right away.
	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// A nil channel never fires, which disables the heartbeat case below.
	var tick <-chan time.Time
	if heartbeat > 0 {
		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-r.Context().Done():
			// The browser went away or the server is shutting down.
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if _, err := ev.WriteTo(w); err != nil {
				return
			}
			flusher.Flush()
		case <-tick:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
