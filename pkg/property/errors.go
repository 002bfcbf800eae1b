package property

import (
	"fmt"
	"reflect"
)

// Error represents a property access error
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Errors
var (
	ErrEmptyAccess  = &Error{Code: "EMPTY_ACCESS", Message: "property holds no value"}
	ErrTypeMismatch = &Error{Code: "TYPE_MISMATCH", Message: "property type mismatch"}
	ErrKeyNotFound  = &Error{Code: "KEY_NOT_FOUND", Message: "property key not found"}
)

// TypeMismatchError reports the requested and the stored type of a failed access.
// It matches ErrTypeMismatch with errors.Is.
type TypeMismatchError struct {
	Requested reflect.Type
	Stored    reflect.Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("property type mismatch: requested %s, stored %s", typeName(e.Requested), typeName(e.Stored))
}

func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
