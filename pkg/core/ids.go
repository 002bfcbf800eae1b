package core

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces subscription IDs. Implementations must be safe for
// concurrent use and never return the same ID twice.
type IDGenerator interface {
	NextID() SubscriptionID
}

// SequenceGenerator hands out decimal IDs counting up from "0"
type SequenceGenerator struct {
	next atomic.Uint64
}

// NextID returns the next ID in the sequence
func (g *SequenceGenerator) NextID() SubscriptionID {
	return SubscriptionID(strconv.FormatUint(g.next.Add(1)-1, 10))
}

// UUIDGenerator hands out random UUIDs, for IDs that must not be guessable
// or must stay unique across bus instances.
type UUIDGenerator struct{}

// NextID returns a new random UUID
func (UUIDGenerator) NextID() SubscriptionID {
	return SubscriptionID(uuid.NewString())
}
