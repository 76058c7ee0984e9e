// Package eventbus fans session state changes out to live subscribers.
package eventbus

import (
	"sync"

	evbus "github.com/asaskevich/EventBus"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/vibecheck/internal/core/domain"
	"github.com/ewilliams-labs/vibecheck/internal/core/ports"
)

var _ ports.StateNotifier = (*Bus)(nil)

// Topic is the event topic for one session.
func Topic(sessionID string) string {
	return "session:" + sessionID
}

type topicSubs struct {
	handler func(domain.SessionState)

	mu    sync.Mutex
	chans map[uint64]chan domain.SessionState
}

// Bus publishes state changes on a per-session topic. Subscribers get a
// buffered channel; when a subscriber falls behind, its oldest pending state
// is dropped so the newest always arrives.
//
// Lock order: Bus.mu before the EventBus lock before topicSubs.mu. Handlers
// run under the EventBus lock and only take topicSubs.mu.
type Bus struct {
	bus    evbus.Bus
	buffer int
	logger *zap.Logger

	mu     sync.Mutex
	next   uint64
	topics map[string]*topicSubs
}

// New returns an empty bus.
func New(buffer int, logger *zap.Logger) *Bus {
	if buffer < 1 {
		buffer = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		bus:    evbus.New(),
		buffer: buffer,
		logger: logger,
		topics: make(map[string]*topicSubs),
	}
}

// StateChanged publishes st to the session's subscribers.
func (b *Bus) StateChanged(sessionID string, st domain.SessionState) {
	b.bus.Publish(Topic(sessionID), st)
}

// Subscribe returns a channel of state changes for a session and a function
// that ends the subscription and closes the channel.
func (b *Bus) Subscribe(sessionID string) (<-chan domain.SessionState, func(), error) {
	topic := Topic(sessionID)

	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.topics[topic]
	if !ok {
		subs = &topicSubs{chans: make(map[uint64]chan domain.SessionState)}
		subs.handler = func(st domain.SessionState) { b.fanout(topic, subs, st) }
		if err := b.bus.Subscribe(topic, subs.handler); err != nil {
			return nil, nil, err
		}
		b.topics[topic] = subs
	}

	b.next++
	id := b.next
	ch := make(chan domain.SessionState, b.buffer)
	subs.mu.Lock()
	subs.chans[id] = ch
	subs.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() { b.unsubscribe(topic, id) })
	}
	return ch, cancel, nil
}

// Subscribers counts live subscriptions for a session.
func (b *Bus) Subscribers(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs, ok := b.topics[Topic(sessionID)]; ok {
		subs.mu.Lock()
		defer subs.mu.Unlock()
		return len(subs.chans)
	}
	return 0
}

func (b *Bus) unsubscribe(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.topics[topic]
	if !ok {
		return
	}
	subs.mu.Lock()
	if ch, ok := subs.chans[id]; ok {
		delete(subs.chans, id)
		close(ch)
	}
	empty := len(subs.chans) == 0
	subs.mu.Unlock()

	if empty {
		if err := b.bus.Unsubscribe(topic, subs.handler); err != nil {
			b.logger.Warn("unsubscribe failed", zap.String("topic", topic), zap.Error(err))
		}
		delete(b.topics, topic)
	}
}

func (b *Bus) fanout(topic string, subs *topicSubs, st domain.SessionState) {
	subs.mu.Lock()
	defer subs.mu.Unlock()

	for _, ch := range subs.chans {
		select {
		case ch <- st:
			continue
		default:
		}
		// Full: drop the oldest pending state.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
			b.logger.Debug("subscriber saturated", zap.String("topic", topic))
		}
	}
}
