// Package realtime fans out row change events to in-process subscribers.
package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrClosed is returned by Subscribe after the hub was closed.
var ErrClosed = errors.New("realtime hub closed")

// EventType is the kind of row change.
type EventType string

const (
	Insert EventType = "INSERT"
	Update EventType = "UPDATE"
	Delete EventType = "DELETE"
	// Any matches every event type.
	Any EventType = "*"
)

// Event is a single row change. New and Old hold the row as JSON; Old is
// empty for inserts and New is empty for deletes.
type Event struct {
	Table string
	Type  EventType
	New   jx.Raw
	Old   jx.Raw
}

// Subscription receives events for one table and event type.
type Subscription struct {
	id    string
	table string
	typ   EventType
	ch    chan Event

	dropped atomic.Int64
}

// C returns the channel events are delivered on. It is closed on unsubscribe.
func (s *Subscription) C() <-chan Event { return s.ch }

// ID returns the subscription identifier.
func (s *Subscription) ID() string { return s.id }

// Dropped returns how many events were discarded because the subscriber
// was not keeping up.
func (s *Subscription) Dropped() int64 { return s.dropped.Load() }

func (s *Subscription) matches(e Event) bool {
	return s.table == e.Table && (s.typ == Any || s.typ == e.Type)
}

const defaultBuffer = 16

// Hub delivers published events to matching subscriptions.
type Hub struct {
	lg     *zap.Logger
	buffer int

	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
}

// NewHub creates a Hub. Each subscription gets a channel of buffer events;
// a non-positive buffer uses the default.
func NewHub(lg *zap.Logger, buffer int) *Hub {
	if lg == nil {
		lg = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		lg:     lg,
		buffer: buffer,
		subs:   make(map[*Subscription]struct{}),
	}
}

// Subscribe registers interest in events of typ on table.
func (h *Hub) Subscribe(table string, typ EventType) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}
	s := &Subscription{
		id:    uuid.New().String(),
		table: table,
		typ:   typ,
		ch:    make(chan Event, h.buffer),
	}
	h.subs[s] = struct{}{}
	h.lg.Debug("Subscribed",
		zap.String("subscription", s.id),
		zap.String("table", table),
		zap.String("type", string(typ)),
	)
	return s, nil
}

// Unsubscribe removes s and closes its channel. Calling it more than once
// is a no-op.
func (h *Hub) Unsubscribe(s *Subscription) {
	if s == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	close(s.ch)
	h.lg.Debug("Unsubscribed", zap.String("subscription", s.id))
}

// Publish delivers e to every matching subscription without blocking.
// Subscribers with a full buffer miss the event.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs {
		if !s.matches(e) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			s.dropped.Add(1)
			h.lg.Warn("Subscriber too slow, event dropped",
				zap.String("subscription", s.id),
				zap.String("table", e.Table),
			)
		}
	}
}

// Len returns the number of active subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close unsubscribes everyone. Later Subscribe calls fail with ErrClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		delete(h.subs, s)
		close(s.ch)
	}
}
