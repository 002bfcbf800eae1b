package core

import "time"

// Observer receives bus activity for metrics.
// Methods are called on the publishing and dispatching goroutines and must not block.
type Observer interface {
	// Published is called once per Publish, after the cache update
	Published(topic string)
	// Dispatched is called for every callback handed to the dispatcher
	Dispatched(topic string)
	// DispatchDropped is called when the dispatcher refused a callback
	DispatchDropped(topic string)
	// DispatchOverflowed is called when a full worker queue pushed a callback onto its own goroutine
	DispatchOverflowed()
	// CallbackCompleted is called after a callback returned or panicked
	CallbackCompleted(topic string, elapsed time.Duration, panicked bool)
	// SubscribersChanged reports the new registration count of topic.
	// It is called with the topic lock held and must not call back into the bus.
	SubscribersChanged(topic string, count int)
}

type nopObserver struct{}

func (nopObserver) Published(string)                              {}
func (nopObserver) Dispatched(string)                             {}
func (nopObserver) DispatchDropped(string)                        {}
func (nopObserver) DispatchOverflowed()                           {}
func (nopObserver) CallbackCompleted(string, time.Duration, bool) {}
func (nopObserver) SubscribersChanged(string, int)                {}
