package core

import (
	"context"

	"github.com/geoyee/eventbus/pkg/property"
)

// SubscriptionID identifies one Listen registration. IDs are never reused by a bus.
type SubscriptionID string

// Callback receives a private copy of each bundle published to its topic
type Callback func(props property.Properties)

// EventBus is a process-local publish/subscribe bus of named topics.
// Each topic keeps a set of subscriber callbacks and, independently, the last
// bundle published to it.
//
// Thread-safety: All methods are safe for concurrent use, including from inside
// a running callback.
//
// Error handling patterns:
//   - Listen: PANICS on a nil callback (fail-fast for programmer errors)
//   - Unlisten, Publish, GetLatest: never fail; unknown topics and IDs are no-ops
//   - A panicking callback is recovered and logged, it never reaches the publisher
type EventBus interface {
	// Listen registers cb for topic and returns the ID needed to cancel it.
	// The topic is created if it does not exist yet.
	Listen(topic string, cb Callback) SubscriptionID

	// Unlisten cancels the registration id on topic.
	// Dispatches that already picked up the callback still run.
	Unlisten(topic string, id SubscriptionID)

	// Publish caches a copy of props as the latest bundle of topic and schedules
	// every current subscriber with its own copy. It returns once scheduling is
	// done, without waiting for any callback.
	Publish(topic string, props property.Properties)

	// GetLatest returns a copy of the last bundle published to topic.
	// The bool is false if nothing was ever published to it.
	GetLatest(topic string) (property.Properties, bool)

	// Subscribers returns the number of active registrations on topic
	Subscribers(topic string) int

	// Topics returns the sorted names of all topics that have subscribers
	// registered at some point or a cached bundle
	Topics() []string

	// Close stops scheduling callbacks and waits for the dispatcher to drain
	// until ctx is done. Publish keeps updating the latest-bundle cache.
	Close(ctx context.Context) error
}

// Errors
var (
	ErrDispatcherClosed = &Error{Code: "DISPATCHER_CLOSED", Message: "dispatcher is closed"}
	ErrInvalidCallback  = &Error{Code: "INVALID_CALLBACK", Message: "callback cannot be nil"}
)

// Error represents an event bus error
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
