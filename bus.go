package ui

import (
	"fmt"
	"log/slog"
)

// Subscriber receives the events fired on a bus.
type Subscriber interface {
	Notify(Event)
}

// SubscriberFunc adapts a function to the Subscriber interface.
type SubscriberFunc func(Event)

func (f SubscriberFunc) Notify(evt Event) { f(evt) }

// EventBus is a synchronous publish/subscribe channel.
//
// It is owned by the UI goroutine: Subscribe, Unsubscribe and Fire must only be
// called from there (see Loop). A subscriber that panics is recovered and
// logged, and the event still reaches the subscribers after it.
type EventBus struct {
	log  *slog.Logger
	keys []string
	subs map[string]Subscriber
}

// NewEventBus returns an empty bus. A nil logger means slog.Default().
func NewEventBus(log *slog.Logger) *EventBus {
	if log == nil {
		log = slog.Default()
	}
	return &EventBus{log: log, subs: make(map[string]Subscriber)}
}

// Subscribe registers s under key. Registering an existing key replaces the
// previous subscriber and keeps its position in the delivery order.
func (b *EventBus) Subscribe(key string, s Subscriber) {
	if _, ok := b.subs[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.subs[key] = s
}

// Unsubscribe removes the subscriber registered under key, if any.
func (b *EventBus) Unsubscribe(key string) {
	if _, ok := b.subs[key]; !ok {
		return
	}
	delete(b.subs, key)
	for i, k := range b.keys {
		if k == key {
			b.keys = append(b.keys[:i], b.keys[i+1:]...)
			break
		}
	}
}

// Fire delivers evt to every current subscriber, once each, in registration order.
// It returns after the last subscriber.
func (b *EventBus) Fire(evt Event) {
	keys := append([]string(nil), b.keys...)
	b.log.Debug("event", "kind", evt.Kind())
	for _, k := range keys {
		s, ok := b.subs[k]
		if !ok {
			continue
		}
		b.deliver(k, s, evt)
	}
}

// Len returns the number of subscribers.
func (b *EventBus) Len() int { return len(b.keys) }

func (b *EventBus) deliver(key string, s Subscriber, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("subscriber failed", "subscriber", key, "kind", evt.Kind(), "err", fmt.Sprint(r))
		}
	}()
	s.Notify(evt)
}
