package option

import "fmt"

// Option holds either a value (Some) or nothing at all (Nothing).
// The zero value is Nothing.
type Option[T any] struct {
	val   T
	valid bool
}

// Some wraps val in a present Option.
func Some[T any](val T) Option[T] {
	return Option[T]{val: val, valid: true}
}

// Nothing returns an absent Option.
func Nothing[T any]() Option[T] {
	return Option[T]{}
}

// IsSome reports whether the Option holds a value.
func (o Option[T]) IsSome() bool {
	return o.valid
}

// IsNothing reports whether the Option is absent.
func (o Option[T]) IsNothing() bool {
	return !o.valid
}

// Unwrap returns the held value.
// Panics if the Option is Nothing.
func (o Option[T]) Unwrap() T {
	if !o.valid {
		panic("called Unwrap on a Nothing Option")
	}
	return o.val
}

// UnwrapOr returns the held value, or def when absent.
func (o Option[T]) UnwrapOr(def T) T {
	if o.valid {
		return o.val
	}
	return def
}

// UnwrapOrElse returns the held value, or the result of f when absent.
func (o Option[T]) UnwrapOrElse(f func() T) T {
	if o.valid {
		return o.val
	}
	return f()
}

// Map transforms the held value with f, keeping Nothing as Nothing.
func Map[T any, U any](o Option[T], f func(T) U) Option[U] {
	if o.valid {
		return Some(f(o.val))
	}
	return Nothing[U]()
}

// String implements fmt.Stringer.
func (o Option[T]) String() string {
	if o.valid {
		return fmt.Sprintf("Some(%v)", o.val)
	}
	return "Nothing"
}
