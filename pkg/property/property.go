// Package property provides a type-erased single value container and the
// string-keyed bundle of containers that travels through the event bus.
//
// A Property remembers the exact static type it was created with. Reads must
// name that same type; there is no conversion between numeric types and an
// interface type parameter only matches a value stored under that interface.
//
//	p := property.Of(3)
//	n, err := property.Value[int](p)        // 3, nil
//	_, err = property.Value[float64](p)     // ErrTypeMismatch
package property

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Cloner is implemented by values that control their own copy when a Property
// is cloned. Other values are deep-copied through slices, maps, arrays,
// pointers, interfaces and exported struct fields. Unexported struct fields
// are copied by assignment, so types holding references there should
// implement Cloner.
type Cloner[T any] interface {
	Clone() T
}

// holder is the hidden generic storage behind a Property
type holder interface {
	valueType() reflect.Type
	clone() holder
	get() any
}

type cell[T any] struct {
	v T
}

func (c *cell[T]) valueType() reflect.Type {
	return reflect.TypeFor[T]()
}

func (c *cell[T]) clone() holder {
	if cl, ok := any(c.v).(Cloner[T]); ok {
		return &cell[T]{v: cl.Clone()}
	}
	return &cell[T]{v: deepCopy(c.v)}
}

func (c *cell[T]) get() any {
	return c.v
}

// Property holds zero or one value of any type.
//
// The zero value is an empty Property. Assigning a Property struct shares the
// stored value; use Clone for an independent copy.
type Property struct {
	h holder
}

// Empty returns an empty Property
func Empty() Property {
	return Property{}
}

// Of returns a Property holding v
func Of[T any](v T) Property {
	return Property{h: &cell[T]{v: v}}
}

// Set replaces the content of p with v. The previous type is discarded.
func Set[T any](p *Property, v T) {
	p.h = &cell[T]{v: v}
}

// HasValue reports whether p holds a value
func (p Property) HasValue() bool {
	return p.h != nil
}

// Type returns the type identity of the stored value
func (p Property) Type() (reflect.Type, error) {
	if p.h == nil {
		return nil, ErrEmptyAccess
	}
	return p.h.valueType(), nil
}

// Reset empties p
func (p *Property) Reset() {
	p.h = nil
}

// Swap exchanges the contents of p and other
func (p *Property) Swap(other *Property) {
	p.h, other.h = other.h, p.h
}

// Clone returns a Property holding a copy of the stored value
func (p Property) Clone() Property {
	if p.h == nil {
		return Property{}
	}
	return Property{h: p.h.clone()}
}

// Equal reports whether both properties are empty, or hold values of the same
// type that are deeply equal.
func (p Property) Equal(other Property) bool {
	if p.h == nil || other.h == nil {
		return p.h == nil && other.h == nil
	}
	if p.h.valueType() != other.h.valueType() {
		return false
	}
	return reflect.DeepEqual(p.h.get(), other.h.get())
}

// Interface returns the stored value as an untyped interface, or nil if empty.
// Typed reads should go through Value, Ref or Extract.
func (p Property) Interface() any {
	if p.h == nil {
		return nil
	}
	return p.h.get()
}

func (p Property) String() string {
	if p.h == nil {
		return "<empty>"
	}
	return fmt.Sprintf("%v", p.h.get())
}

// MarshalJSON encodes the stored value, or null when empty
func (p Property) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Interface())
}

func lookup[T any](p Property) (*cell[T], error) {
	if p.h == nil {
		return nil, ErrEmptyAccess
	}
	c, ok := p.h.(*cell[T])
	if !ok {
		return nil, &TypeMismatchError{Requested: reflect.TypeFor[T](), Stored: p.h.valueType()}
	}
	return c, nil
}

// Ref returns a pointer to the stored value. Writes through the pointer are
// visible to every Property sharing the same storage.
func Ref[T any](p Property) (*T, error) {
	c, err := lookup[T](p)
	if err != nil {
		return nil, err
	}
	return &c.v, nil
}

// Value returns a copy of the stored value
func Value[T any](p Property) (T, error) {
	c, err := lookup[T](p)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.v, nil
}

// MustValue is like Value but panics on error.
// It is meant for subscriber callbacks, where the bus recovers the panic.
func MustValue[T any](p Property) T {
	v, err := Value[T](p)
	if err != nil {
		panic(err)
	}
	return v
}

// Extract moves the stored value out of p and leaves p empty.
// On error p is left untouched.
func Extract[T any](p *Property) (T, error) {
	c, err := lookup[T](*p)
	if err != nil {
		var zero T
		return zero, err
	}
	p.h = nil
	return c.v, nil
}
