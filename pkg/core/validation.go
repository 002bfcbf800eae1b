package core

import (
	"fmt"
)

// ValidateCallback validates a subscriber callback
func ValidateCallback(cb Callback) error {
	if cb == nil {
		return ErrInvalidCallback
	}
	return nil
}

// FailFast panics with an error (fail-fast principle)
func FailFast(err error) {
	if err != nil {
		panic(fmt.Errorf("fail-fast: %w", err))
	}
}
