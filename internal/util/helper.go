package util

// Clone returns a copy of src. The copy is never nil, so callers may hand it out
// without exposing the backing array of src.
func Clone[T any](src []T) []T {
	dst := make([]T, len(src))
	copy(dst, src)

	return dst
}
