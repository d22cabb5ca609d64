// Package changefeed tells observers that rows behind a topic changed.
// Notifications carry no payload that observers rely on: a subscriber
// recomputes its view from the store whenever its channel fires.
package changefeed

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
)

const (
	TopicInvoices = "invoices"
	TopicJobs     = "jobs"
)

type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

var (
	ErrHubUnavailable = errors.New("hub_unavailable")
	ErrInvalidTopic   = errors.New("invalid_topic")
)

func InvoiceTopic(id snowflake.ID) string { return "invoice:" + id.String() }

func JobTopic(id snowflake.ID) string { return "job:" + id.String() }

type Change struct {
	ID       string    `json:"id"`
	Topic    string    `json:"topic"`
	Op       Op        `json:"op"`
	EntityID string    `json:"entity_id"`
	Origin   string    `json:"origin"`
	At       time.Time `json:"at"`
}

// Hub fans changes out to in-process subscribers. Publishing never blocks:
// each subscriber holds at most one pending change and later ones are
// absorbed by it.
type Hub struct {
	mu        sync.RWMutex
	streams   map[string]*stream
	origin    string
	forwardMu sync.RWMutex
	forward   []func(Change)
	now       func() time.Time
}

type stream struct {
	mu     sync.Mutex
	subs   map[uint64]chan Change
	nextID uint64
}

type Subscription struct {
	hub   *Hub
	topic string
	id    uint64
	ch    chan Change
	once  sync.Once
}

func NewHub() *Hub {
	return &Hub{
		streams: make(map[string]*stream),
		origin:  ulid.Make().String(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Origin identifies this process in bridged changes.
func (h *Hub) Origin() string { return h.origin }

// OnLocalChange registers fn to receive every change raised through Notify.
func (h *Hub) OnLocalChange(fn func(Change)) {
	h.forwardMu.Lock()
	h.forward = append(h.forward, fn)
	h.forwardMu.Unlock()
}

// Notify raises one change per topic.
func (h *Hub) Notify(op Op, entityID string, topics ...string) {
	if h == nil {
		return
	}
	at := h.now()
	for _, topic := range topics {
		change := Change{
			ID:       ulid.Make().String(),
			Topic:    topic,
			Op:       op,
			EntityID: entityID,
			Origin:   h.origin,
			At:       at,
		}
		h.Deliver(change)

		h.forwardMu.RLock()
		forward := h.forward
		h.forwardMu.RUnlock()
		for _, fn := range forward {
			fn(change)
		}
	}
}

// Deliver hands a change to local subscribers only.
func (h *Hub) Deliver(change Change) {
	if h == nil {
		return
	}
	topic := strings.TrimSpace(change.Topic)
	if topic == "" {
		return
	}
	h.mu.RLock()
	stream := h.streams[topic]
	h.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	subs := make([]chan Change, 0, len(stream.subs))
	for _, ch := range stream.subs {
		subs = append(subs, ch)
	}
	stream.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- change:
		default:
		}
	}
}

func (h *Hub) Subscribe(topic string) (*Subscription, error) {
	if h == nil {
		return nil, ErrHubUnavailable
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrInvalidTopic
	}

	stream := h.ensureStream(topic)
	stream.mu.Lock()
	id := stream.nextID
	stream.nextID++
	ch := make(chan Change, 1)
	stream.subs[id] = ch
	stream.mu.Unlock()

	return &Subscription{hub: h, topic: topic, id: id, ch: ch}, nil
}

// Subscribers reports how many subscriptions a topic has.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	stream := h.streams[topic]
	h.mu.RUnlock()
	if stream == nil {
		return 0
	}
	stream.mu.Lock()
	defer stream.mu.Unlock()
	return len(stream.subs)
}

func (h *Hub) ensureStream(topic string) *stream {
	h.mu.RLock()
	current := h.streams[topic]
	h.mu.RUnlock()
	if current != nil {
		return current
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	current = h.streams[topic]
	if current == nil {
		current = &stream{subs: make(map[uint64]chan Change)}
		h.streams[topic] = current
	}
	return current
}

func (h *Hub) unsubscribe(topic string, id uint64) {
	h.mu.RLock()
	stream := h.streams[topic]
	h.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	delete(stream.subs, id)
	remaining := len(stream.subs)
	stream.mu.Unlock()
	if remaining != 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.streams[topic] != stream {
		return
	}
	stream.mu.Lock()
	empty := len(stream.subs) == 0
	stream.mu.Unlock()
	if empty {
		delete(h.streams, topic)
	}
}

func (s *Subscription) Changes() <-chan Change {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.topic, s.id)
	})
}
