package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/geoyee/eventbus/pkg/property"
)

// topicBus implements EventBus.
//
// Three locks guard three independent structures and no code path holds two
// of them at once:
//   - mu guards the topics map (topics are never removed)
//   - topic.mu guards the registrations of one topic
//   - cacheMu guards the latest-bundle cache
type topicBus struct {
	mu     sync.RWMutex
	topics map[string]*topic

	cacheMu sync.RWMutex
	latest  map[string]property.Properties

	ids        IDGenerator
	dispatcher Dispatcher
	observer   Observer
	logger     Logger
	closed     atomic.Bool
}

// NewEventBus creates a new event bus. Without options callbacks run on their
// own goroutines and IDs count up from "0".
func NewEventBus(opts ...Option) EventBus {
	return newTopicBus(opts...).setDefaults()
}

func newTopicBus(opts ...Option) *topicBus {
	eb := &topicBus{
		topics:   make(map[string]*topic),
		latest:   make(map[string]property.Properties),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(eb)
	}
	return eb
}

// setDefaults fills in everything the options left unset
func (eb *topicBus) setDefaults() *topicBus {
	if eb.ids == nil {
		eb.ids = &SequenceGenerator{}
	}
	if eb.logger == nil {
		eb.logger = NewDefaultLogger()
	}
	if eb.dispatcher == nil {
		eb.dispatcher = NewGoDispatcher()
	}
	return eb
}

func (eb *topicBus) Listen(name string, cb Callback) SubscriptionID {
	// Fail-fast: a nil callback is a programming error
	if err := ValidateCallback(cb); err != nil {
		FailFast(err)
	}

	h := newHandle(eb.ids.NextID(), cb)
	eb.topicFor(name).add(h, eb.reportSubscribers(name))

	eb.logger.WithFields(map[string]interface{}{
		"topic":        name,
		"subscription": string(h.id),
	}).Debug("listener registered")
	return h.id
}

func (eb *topicBus) Unlisten(name string, id SubscriptionID) {
	t := eb.lookup(name)
	if t == nil {
		return
	}
	if !t.remove(id, eb.reportSubscribers(name)) {
		return
	}

	eb.logger.WithFields(map[string]interface{}{
		"topic":        name,
		"subscription": string(id),
	}).Debug("listener removed")
}

func (eb *topicBus) Publish(name string, props property.Properties) {
	eb.cacheMu.Lock()
	eb.latest[name] = props.Clone()
	eb.cacheMu.Unlock()
	eb.observer.Published(name)

	t := eb.lookup(name)
	if t == nil || eb.closed.Load() {
		return
	}

	for _, h := range t.snapshot() {
		// resolve as late as possible so a concurrent Unlisten is honoured
		cb := h.resolve()
		if cb == nil {
			continue
		}
		payload := props.Clone()
		id := h.id
		err := eb.dispatcher.Dispatch(func() {
			eb.invoke(name, id, cb, payload)
		})
		if err != nil {
			eb.observer.DispatchDropped(name)
			eb.logger.WithFields(map[string]interface{}{
				"topic":        name,
				"subscription": string(id),
			}).Error(fmt.Sprintf("dispatch failed: %v", err))
			continue
		}
		eb.observer.Dispatched(name)
	}
}

// invoke runs one callback and isolates its panics from the rest of the bus
func (eb *topicBus) invoke(name string, id SubscriptionID, cb Callback, props property.Properties) {
	start := time.Now()
	defer func() {
		r := recover()
		eb.observer.CallbackCompleted(name, time.Since(start), r != nil)
		if r != nil {
			eb.logger.WithFields(map[string]interface{}{
				"topic":        name,
				"subscription": string(id),
				"panic":        fmt.Sprint(r),
				"stack":        string(debug.Stack()),
			}).Error("subscriber callback panicked")
		}
	}()
	cb(props)
}

func (eb *topicBus) GetLatest(name string) (property.Properties, bool) {
	eb.cacheMu.RLock()
	defer eb.cacheMu.RUnlock()
	props, ok := eb.latest[name]
	if !ok {
		return nil, false
	}
	return props.Clone(), true
}

func (eb *topicBus) Subscribers(name string) int {
	t := eb.lookup(name)
	if t == nil {
		return 0
	}
	return t.count()
}

func (eb *topicBus) Topics() []string {
	seen := make(map[string]struct{})

	eb.mu.RLock()
	for name := range eb.topics {
		seen[name] = struct{}{}
	}
	eb.mu.RUnlock()

	eb.cacheMu.RLock()
	for name := range eb.latest {
		seen[name] = struct{}{}
	}
	eb.cacheMu.RUnlock()

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (eb *topicBus) Close(ctx context.Context) error {
	if !eb.closed.CompareAndSwap(false, true) {
		return nil
	}
	eb.logger.Info("event bus closing")
	return eb.dispatcher.Close(ctx)
}

// reportSubscribers forwards registration counts of topic name to the observer
func (eb *topicBus) reportSubscribers(name string) func(int) {
	return func(count int) {
		eb.observer.SubscribersChanged(name, count)
	}
}

func (eb *topicBus) lookup(name string) *topic {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return eb.topics[name]
}

// topicFor returns the topic, creating it under the write lock if needed
func (eb *topicBus) topicFor(name string) *topic {
	if t := eb.lookup(name); t != nil {
		return t
	}
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if t, ok := eb.topics[name]; ok {
		return t
	}
	t := newTopic()
	eb.topics[name] = t
	return t
}
