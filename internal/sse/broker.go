// Package sse pushes day file changes to viewer clients as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Event types sent to viewers.
const (
	TypeDayCreated   = "day.created"
	TypeDayUpdated   = "day.updated"
	TypeDayDeleted   = "day.deleted"
	TypeStatsUpdated = "stats.updated"
)

var dayEventTypes = map[string]string{
	"created": TypeDayCreated,
	"updated": TypeDayUpdated,
	"deleted": TypeDayDeleted,
}

// DayChange is the payload of the day.* events.
type DayChange struct {
	Date string `json:"date"`
}

const clientBuffer = 64

type frame struct {
	id  uint64
	raw []byte
}

// Broker fans events out to connected viewers. Every event gets a
// sequence number sent as the SSE id, and the most recent ones are kept so
// a reconnecting browser can catch up from its Last-Event-ID.
type Broker struct {
	statsEvery time.Duration
	keepAlive  time.Duration
	retry      time.Duration

	mu        sync.Mutex
	clients   map[chan []byte]struct{}
	seq       uint64
	history   []frame
	histSize  int
	lastStats time.Time
	closed    bool
}

// Option tunes a Broker.
type Option func(*Broker)

// WithStatsThrottle sends stats.updated at most once per d.
func WithStatsThrottle(d time.Duration) Option {
	return func(b *Broker) { b.statsEvery = d }
}

// WithKeepAlive sets how often an idle stream gets a comment line so
// proxies do not drop it. Zero disables keep-alives.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) { b.keepAlive = d }
}

// WithHistory sets how many recent events are kept for replay.
func WithHistory(n int) Option {
	return func(b *Broker) { b.histSize = n }
}

func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		statsEvery: 2 * time.Second,
		keepAlive:  25 * time.Second,
		retry:      3 * time.Second,
		clients:    make(map[chan []byte]struct{}),
		histSize:   128,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Close disconnects every viewer. Later calls are no-ops.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.clients {
		close(ch)
	}
	b.clients = nil
	b.history = nil
}

// Subscribe registers a viewer. Events after lastID that are still in
// the history are queued first. The channel is closed by Unsubscribe or
// Close.
func (b *Broker) Subscribe(lastID uint64) chan []byte {
	ch := make(chan []byte, clientBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	if lastID > 0 {
		for _, f := range b.history {
			if f.id <= lastID {
				continue
			}
			select {
			case ch <- f.raw:
			default:
			}
		}
	}
	b.clients[ch] = struct{}{}
	return ch
}

func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[ch]; ok {
		delete(b.clients, ch)
		close(ch)
	}
}

func (b *Broker) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Publish sends an event to every viewer. A viewer whose buffer is full
// misses the event instead of stalling the others.
func (b *Broker) Publish(typ string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.publishLocked(typ, payload)
}

func (b *Broker) publishLocked(typ string, payload []byte) {
	if b.closed {
		return
	}
	b.seq++
	f := frame{
		id:  b.seq,
		raw: []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", b.seq, typ, payload)),
	}
	if b.histSize > 0 {
		if len(b.history) == b.histSize {
			b.history = b.history[1:]
		}
		b.history = append(b.history, f)
	}
	for ch := range b.clients {
		select {
		case ch <- f.raw:
		default:
		}
	}
}

// PublishDayEvent reports that the day file for date was created, updated
// or deleted, followed by a throttled stats.updated. Other kinds are
// ignored.
func (b *Broker) PublishDayEvent(kind, date string) {
	typ, ok := dayEventTypes[kind]
	if !ok {
		return
	}
	payload, _ := json.Marshal(DayChange{Date: date})

	b.mu.Lock()
	defer b.mu.Unlock()
	b.publishLocked(typ, payload)

	if now := time.Now(); now.Sub(b.lastStats) >= b.statsEvery {
		b.lastStats = now
		b.publishLocked(TypeStatsUpdated, []byte("{}"))
	}
}

// ServeHTTP streams events to one viewer until it disconnects or the
// broker closes.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	var lastID uint64
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		lastID, _ = strconv.ParseUint(v, 10, 64)
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "retry: %d\n\n", b.retry.Milliseconds())
	flusher.Flush()

	ch := b.Subscribe(lastID)
	defer b.Unsubscribe(ch)

	var tick <-chan time.Time
	if b.keepAlive > 0 {
		t := time.NewTicker(b.keepAlive)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-tick:
			_, _ = w.Write([]byte(": keep-alive\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
