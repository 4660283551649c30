// Package events is the in-process publish/subscribe bus that tells views
// to refresh after a mutation, optionally mirrored to Kafka so that other
// storefront processes on the same machine refresh too.
package events

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/pkg/logging"
)

type Topic string

const (
	WishlistUpdated Topic = "wishlist_updated"
	CartUpdated     Topic = "cart_updated"
	ProfileUpdated  Topic = "profile_updated"
	OrdersUpdated   Topic = "orders_updated"
	SessionChanged  Topic = "session_changed"
)

var Topics = []Topic{WishlistUpdated, CartUpdated, ProfileUpdated, OrdersUpdated, SessionChanged}

type Event struct {
	Topic      Topic     `json:"topic"`
	CustomerID *int      `json:"customerId,omitempty"`
	Payload    any       `json:"payload,omitempty"`
	Origin     string    `json:"origin"`
	At         time.Time `json:"at"`
}

type Handler func(ctx context.Context, ev Event)

// Sink receives every locally originated event after subscribers ran.
type Sink interface {
	Forward(ctx context.Context, ev Event) error
}

const sinkTimeout = 5 * time.Second

type Bus struct {
	origin string

	mu    sync.RWMutex
	next  int
	subs  map[Topic]map[int]Handler
	all   map[int]Handler
	sinks []Sink

	inflight sync.WaitGroup
}

func NewBus() *Bus {
	return &Bus{
		origin: uuid.NewString(),
		subs:   map[Topic]map[int]Handler{},
		all:    map[int]Handler{},
	}
}

// Origin identifies events published by this process.
func (b *Bus) Origin() string {
	return b.origin
}

// Subscribe registers h for topic. The returned func removes it and is safe
// to call more than once.
func (b *Bus) Subscribe(topic Topic, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	if b.subs[topic] == nil {
		b.subs[topic] = map[int]Handler{}
	}
	b.subs[topic][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[topic], id)
	}
}

// SubscribeAll registers h for every topic.
func (b *Bus) SubscribeAll(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.all[id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.all, id)
	}
}

func (b *Bus) AddSink(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Publish delivers ev to subscribers synchronously, in registration order
// per group. Sinks run in the background; their failures are only logged.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	if ev.Origin == "" {
		ev.Origin = b.origin
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	b.mu.RLock()
	hs := make([]Handler, 0, len(b.subs[ev.Topic])+len(b.all))
	for _, id := range sortedIDs(b.subs[ev.Topic]) {
		hs = append(hs, b.subs[ev.Topic][id])
	}
	for _, id := range sortedIDs(b.all) {
		hs = append(hs, b.all[id])
	}
	sinks := append([]Sink(nil), b.sinks...)
	b.mu.RUnlock()

	for _, h := range hs {
		h(ctx, ev)
	}

	if ev.Origin != b.origin || len(sinks) == 0 {
		return
	}

	l := logging.FromContext(ctx)
	bg := context.WithoutCancel(ctx)
	for _, s := range sinks {
		b.inflight.Add(1)
		go func(s Sink) {
			defer b.inflight.Done()
			fctx, cancel := context.WithTimeout(bg, sinkTimeout)
			defer cancel()
			if err := s.Forward(fctx, ev); err != nil {
				l.Warn("event_forward_error", "topic", string(ev.Topic), "error", err)
			}
		}(s)
	}
}

// Wait blocks until every in-flight sink forward finished.
func (b *Bus) Wait() {
	b.inflight.Wait()
}

func sortedIDs(m map[int]Handler) []int {
	return slices.Sorted(maps.Keys(m))
}
