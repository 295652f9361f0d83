package models

// Field is a three-state optional update value: absent (the zero value),
// explicitly cleared, or set to a concrete value. It lets callers distinguish
// "leave this column alone" from "set this column to NULL".
type Field[T any] struct {
	present bool
	value   *T
}

// SetField returns a Field carrying v.
func SetField[T any](v T) Field[T] {
	return Field[T]{present: true, value: &v}
}

// ClearField returns a Field that clears the column.
func ClearField[T any]() Field[T] {
	return Field[T]{present: true}
}

// Present reports whether the caller provided the field at all.
func (f Field[T]) Present() bool { return f.present }

// Value returns the provided value, or nil when the field is absent or cleared.
func (f Field[T]) Value() *T { return f.value }
