package parallel

// Source yields a finite, ordered sequence of tasks.
type Source[T any] interface {
	// Next returns the next task, or false once the source is exhausted.
	Next() (T, bool)
}

// SourceFunc adapts a function to Source.
type SourceFunc[T any] func() (T, bool)

// Next implements Source.
func (f SourceFunc[T]) Next() (T, bool) { return f() }

// FromSlice yields items in order.
func FromSlice[T any](items []T) Source[T] {
	i := 0
	return SourceFunc[T](func() (T, bool) {
		var zero T
		if i >= len(items) {
			return zero, false
		}
		item := items[i]
		i++
		return item, true
	})
}

// Repeat yields v n times.
func Repeat[T any](v T, n int) Source[T] {
	i := 0
	return SourceFunc[T](func() (T, bool) {
		var zero T
		if i >= n {
			return zero, false
		}
		i++
		return v, true
	})
}

// Collect drains src into a slice. The result is never nil.
func Collect[T any](src Source[T]) []T {
	items := make([]T, 0)
	if src == nil {
		return items
	}
	for {
		item, ok := src.Next()
		if !ok {
			return items
		}
		items = append(items, item)
	}
}
