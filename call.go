package impstub

import (
	"fmt"
	"reflect"
	"strings"
)

// Call dispatches a call on target's method through s and converts the
// result to T. A missing or nil result yields T's zero value.
//
// Hand-written doubles use it to forward their methods:
//
//	func (c *clockDouble) Now() time.Time {
//		now, err := impstub.Call[time.Time](c.session, "Clock", "Now")
//		if err != nil {
//			panic(err)
//		}
//		return now
//	}
func Call[T any](s *Session, target, method string, args ...any) (T, error) {
	var zero T

	result, err := s.Dispatch(target, method, args...)
	if err != nil {
		return zero, err
	}

	if result == NoValue || result == nil {
		return zero, nil
	}

	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s::%s returned %T, want %T", ErrResultType, target, method, result, zero)
	}

	return typed, nil
}

// Invoke dispatches a call whose only result is an error. A configured
// failure is returned as is; a configured error value is returned as the
// call's result.
func Invoke(s *Session, target, method string, args ...any) error {
	result, err := s.Dispatch(target, method, args...)
	if err != nil {
		return err
	}

	if resultErr, ok := result.(error); ok {
		return resultErr
	}

	return nil
}

// Target returns the target identity for type T, typically an interface the
// system under test depends on.
func Target[T any]() string {
	return typeName(reflect.TypeFor[T]())
}

// TargetOf returns the target identity of v's dynamic type. Pointer and value
// receivers share an identity.
func TargetOf(v any) string {
	if v == nil {
		return "<nil>"
	}

	return typeName(reflect.TypeOf(v))
}

func typeName(t reflect.Type) string {
	return strings.TrimLeft(t.String(), "*")
}
