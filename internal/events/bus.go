// Package events carries pagefold's lifecycle events: an in-process typed
// bus for serve-mode orchestration, and an optional NATS mirror for
// build/deploy completion.
package events

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// Bus is a small, typed, in-process event bus.
//
// Publish blocks until every subscriber has accepted the event or the
// context is canceled, so slow consumers exert backpressure instead of
// dropping events. Close closes all subscription channels.
type Bus struct {
	mu        sync.RWMutex
	subs      map[reflect.Type]map[uint64]*subscriber
	nextID    atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

type subscriber struct {
	send  func(ctx context.Context, evt any) error
	close func()
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[reflect.Type]map[uint64]*subscriber)}
}

// Subscribe registers a subscription for events of type T and returns the
// receive channel plus an unsubscribe function. Subscribing to an interface
// type delivers every published event whose concrete type implements it.
func Subscribe[T any](b *Bus, buffer int) (<-chan T, func()) {
	eventType := reflect.TypeFor[T]()
	ch := make(chan T, buffer)

	if b.closed.Load() {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID.Add(1)

	var closeOnce sync.Once
	closeChannel := func() { closeOnce.Do(func() { close(ch) }) }

	var unsubOnce sync.Once
	unsubscribe := func() {
		unsubOnce.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if typeSubs, ok := b.subs[eventType]; ok {
				delete(typeSubs, id)
				if len(typeSubs) == 0 {
					delete(b.subs, eventType)
				}
			}
			closeChannel()
		})
	}

	sub := &subscriber{
		send: func(ctx context.Context, evt any) error {
			v, ok := evt.(T)
			if !ok {
				return fmt.Errorf("event bus: %s subscriber got %T", eventType, evt)
			}
			select {
			case ch <- v:
				return nil
			case <-ctx.Done():
				return fmt.Errorf("event bus: publish %s: %w", eventType, ctx.Err())
			}
		},
		close: closeChannel,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed.Load() {
		closeChannel()
		return ch, func() {}
	}
	if b.subs[eventType] == nil {
		b.subs[eventType] = make(map[uint64]*subscriber)
	}
	b.subs[eventType][id] = sub

	return ch, unsubscribe
}

// SubscriberCount reports the active subscriptions for type T. For tests
// and diagnostics.
func SubscriberCount[T any](b *Bus) int {
	if b == nil {
		return 0
	}
	eventType := reflect.TypeFor[T]()

	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[eventType])
}

// Publish delivers the event to every matching subscriber, blocking until
// each accepts it or ctx is canceled.
func (b *Bus) Publish(ctx context.Context, evt any) error {
	if evt == nil {
		return fmt.Errorf("event bus: nil event")
	}
	if b.closed.Load() {
		return fmt.Errorf("event bus: closed")
	}

	evtType := reflect.TypeOf(evt)

	b.mu.RLock()
	var targets []*subscriber
	for subType, typeSubs := range b.subs {
		match := subType == evtType
		if !match && subType.Kind() == reflect.Interface {
			match = evtType.Implements(subType)
		}
		if !match {
			continue
		}
		for _, s := range typeSubs {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range targets {
		if err := s.send(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the bus and every subscription channel.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		b.closed.Store(true)

		b.mu.Lock()
		var toClose []*subscriber
		for _, typeSubs := range b.subs {
			for _, s := range typeSubs {
				toClose = append(toClose, s)
			}
		}
		b.subs = make(map[reflect.Type]map[uint64]*subscriber)
		b.mu.Unlock()

		for _, s := range toClose {
			s.close()
		}
	})
}
