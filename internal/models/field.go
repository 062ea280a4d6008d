package models

// Field is a partial-update slot: either Keep (the zero value) or Set(v).
type Field[T any] struct {
	value T
	set   bool
}

// Keep leaves the stored value untouched.
func Keep[T any]() Field[T] {
	return Field[T]{}
}

// Set replaces the stored value with v, including a nil v.
func Set[T any](v T) Field[T] {
	return Field[T]{value: v, set: true}
}

func (f Field[T]) IsSet() bool {
	return f.set
}

// Get returns the value and whether it was set.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.set
}

// Or returns the set value, or current when the field is kept.
func (f Field[T]) Or(current T) T {
	if f.set {
		return f.value
	}
	return current
}
