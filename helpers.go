package taskpacker

func ternary[T any](condition bool, value1, value2 T) T {
	if condition {
		return value1
	}

	return value2
}

// Ptr returns a pointer to a copy of value, handy for the optional task fields.
func Ptr[T any](value T) *T {
	return &value
}

func copyPtr[T any](value *T) *T {
	if value == nil {
		return nil
	}

	result := *value

	return &result
}
