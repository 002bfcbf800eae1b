package property

import (
	"reflect"
	"sync"
	"time"

	"github.com/mohae/deepcopy"
)

// refTypes caches hasRefs per type
var refTypes sync.Map // reflect.Type -> bool

var timeType = reflect.TypeFor[time.Time]()

// visit identifies a pointer, slice or map during a walk
type visit struct {
	ptr uintptr
	typ reflect.Type
	n   int
}

// deepCopy returns a copy of v sharing no mutable memory with it, except
// through unexported struct fields, channels and functions.
func deepCopy[T any](v T) T {
	if !hasRefs(reflect.TypeFor[T]()) {
		return v
	}
	rv := reflect.ValueOf(&v).Elem()
	if faithful(rv, make(map[visit]bool)) {
		if cp, ok := deepcopy.Copy(v).(T); ok {
			return cp
		}
	}
	var out T
	reflect.ValueOf(&out).Elem().Set(copyValue(rv, make(map[visit]reflect.Value)))
	return out
}

// hasRefs reports whether two values of t can share memory after assignment
func hasRefs(t reflect.Type) bool {
	if v, ok := refTypes.Load(t); ok {
		return v.(bool)
	}
	r := typeHasRefs(t, make(map[reflect.Type]bool))
	refTypes.Store(t, r)
	return r
}

func typeHasRefs(t reflect.Type, seen map[reflect.Type]bool) bool {
	// a type can only recur through a reference, which reports true below
	if seen[t] {
		return false
	}
	seen[t] = true

	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return true
	case reflect.Array:
		return typeHasRefs(t.Elem(), seen)
	case reflect.Struct:
		if t == timeType {
			return false
		}
		for i := range t.NumField() {
			if typeHasRefs(t.Field(i).Type, seen) {
				return true
			}
		}
	}
	return false
}

// faithful reports whether deepcopy.Copy reproduces v. It zeroes unexported
// struct fields, assigns arrays as a whole and does not terminate on cycles,
// so the walk follows the dynamic values behind interfaces.
func faithful(v reflect.Value, path map[visit]bool) bool {
	switch v.Kind() {
	case reflect.Interface:
		return v.IsNil() || faithful(v.Elem(), path)
	case reflect.Pointer, reflect.Slice, reflect.Map:
		if v.IsNil() {
			return true
		}
		key := visitOf(v)
		if path[key] {
			return false
		}
		path[key] = true
		defer delete(path, key)

		switch v.Kind() {
		case reflect.Pointer:
			return faithful(v.Elem(), path)
		case reflect.Slice:
			for i := range v.Len() {
				if !faithful(v.Index(i), path) {
					return false
				}
			}
		case reflect.Map:
			iter := v.MapRange()
			for iter.Next() {
				if !faithful(iter.Key(), path) || !faithful(iter.Value(), path) {
					return false
				}
			}
		}
		return true
	case reflect.Array:
		return !hasRefs(v.Type())
	case reflect.Struct:
		t := v.Type()
		if t == timeType {
			return true
		}
		for i := range v.NumField() {
			if !t.Field(i).IsExported() || !faithful(v.Field(i), path) {
				return false
			}
		}
	}
	return true
}

// copyValue copies v element by element. Pointers, slices and maps seen
// twice are copied once, so sharing and cycles survive in the copy.
func copyValue(v reflect.Value, memo map[visit]reflect.Value) reflect.Value {
	t := v.Type()
	if !hasRefs(t) {
		return v
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(t).Elem()
		out.Set(copyValue(v.Elem(), memo))
		return out
	case reflect.Pointer:
		if v.IsNil() {
			return v
		}
		key := visitOf(v)
		if c, ok := memo[key]; ok {
			return c
		}
		out := reflect.New(t.Elem())
		memo[key] = out
		out.Elem().Set(copyValue(v.Elem(), memo))
		return out
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		key := visitOf(v)
		if c, ok := memo[key]; ok {
			return c
		}
		out := reflect.MakeSlice(t, v.Len(), v.Len())
		memo[key] = out
		for i := range v.Len() {
			out.Index(i).Set(copyValue(v.Index(i), memo))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		key := visitOf(v)
		if c, ok := memo[key]; ok {
			return c
		}
		out := reflect.MakeMapWithSize(t, v.Len())
		memo[key] = out
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(copyValue(iter.Key(), memo), copyValue(iter.Value(), memo))
		}
		return out
	case reflect.Array:
		out := reflect.New(t).Elem()
		for i := range v.Len() {
			out.Index(i).Set(copyValue(v.Index(i), memo))
		}
		return out
	case reflect.Struct:
		out := reflect.New(t).Elem()
		out.Set(v)
		for i := range v.NumField() {
			if t.Field(i).IsExported() {
				out.Field(i).Set(copyValue(v.Field(i), memo))
			}
		}
		return out
	}
	return v
}

func visitOf(v reflect.Value) visit {
	k := visit{ptr: v.Pointer(), typ: v.Type()}
	if v.Kind() == reflect.Slice {
		k.n = v.Len()
	}
	return k
}
