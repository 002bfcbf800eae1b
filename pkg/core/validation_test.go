package core

import (
	"errors"
	"testing"

	"github.com/geoyee/eventbus/pkg/property"
	"github.com/stretchr/testify/assert"
)

func TestValidateCallback(t *testing.T) {
	assert.ErrorIs(t, ValidateCallback(nil), ErrInvalidCallback)
	assert.NoError(t, ValidateCallback(func(property.Properties) {}))
}

func TestFailFast(t *testing.T) {
	assert.NotPanics(t, func() { FailFast(nil) })

	defer func() {
		r := recover()
		err, ok := r.(error)
		if assert.True(t, ok, "FailFast should panic with an error") {
			assert.True(t, errors.Is(err, ErrInvalidCallback))
		}
	}()
	FailFast(ErrInvalidCallback)
}
