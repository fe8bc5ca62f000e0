package track

// Value wraps a comparable value with a dirty flag so readers can ask
// "did this change since I last looked" without keeping their own copy.
type Value[T comparable] struct {
	val   T
	dirty bool
}

// New returns a clean Value holding v.
func New[T comparable](v T) Value[T] {
	return Value[T]{val: v}
}

// Get returns the current value. The dirty flag is untouched.
func (v *Value[T]) Get() T { return v.val }

// Set stores x and marks the value dirty, unless x equals the current value.
func (v *Value[T]) Set(x T) {
	if x == v.val {
		return
	}
	v.val = x
	v.dirty = true
}

// Mut returns a pointer to the contained value and marks it dirty whether or
// not the caller ends up changing anything.
func (v *Value[T]) Mut() *T {
	v.dirty = true
	return &v.val
}

// Update applies fn and marks dirty only if the result differs.
func (v *Value[T]) Update(fn func(T) T) {
	v.Set(fn(v.val))
}

// TakeDirty reports whether the value changed since the last call and clears the flag.
func (v *Value[T]) TakeDirty() bool {
	d := v.dirty
	v.dirty = false
	return d
}
