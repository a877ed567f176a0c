package feed

import (
	"context"
	"sync"
)

// LocalBroker delivers changes to subscribers in the same process
type LocalBroker struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]func(Change)
	nextID uint64
}

// NewLocalBroker creates an empty LocalBroker
func NewLocalBroker() *LocalBroker {
	return &LocalBroker{subs: make(map[string]map[uint64]func(Change))}
}

// Publish calls every subscriber of the change's topic
func (b *LocalBroker) Publish(_ context.Context, change Change) {
	b.mu.RLock()
	handlers := make([]func(Change), 0, len(b.subs[change.Topic]))
	for _, fn := range b.subs[change.Topic] {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(change)
	}
}

// Subscribe registers fn for topic
func (b *LocalBroker) Subscribe(topic string, fn func(Change)) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]func(Change))
	}
	b.subs[topic][id] = fn

	return &localSubscription{broker: b, topic: topic, id: id}
}

// SubscriberCount returns the number of live registrations for topic
func (b *LocalBroker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

func (b *LocalBroker) remove(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if handlers, ok := b.subs[topic]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(b.subs, topic)
		}
	}
}

type localSubscription struct {
	broker *LocalBroker
	topic  string
	id     uint64
	once   sync.Once
}

func (s *localSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.broker.remove(s.topic, s.id)
	})
}
