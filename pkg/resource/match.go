package resource

// Handler maps one shape of RequestState to a value of type R.
type Handler[T, R any] interface {
	handle(s RequestState[T]) (R, bool)
}

// Match returns the value of the first handler that accepts s, or the zero
// R when none does.
//
//	label := resource.Match(r.State(),
//	    resource.WhenLoading[[]User](func() string { return "loading" }),
//	    resource.WhenError[[]User](func(msg string) string { return msg }),
//	    resource.WhenReady(func(u []User) string { return fmt.Sprint(len(u)) }),
//	)
func Match[T, R any](s RequestState[T], handlers ...Handler[T, R]) R {
	for _, h := range handlers {
		if v, ok := h.handle(s); ok {
			return v
		}
	}
	var zero R
	return zero
}

type handlerFunc[T, R any] func(s RequestState[T]) (R, bool)

func (f handlerFunc[T, R]) handle(s RequestState[T]) (R, bool) {
	return f(s)
}

// WhenIdle handles a resource that has not run since creation or Reset.
func WhenIdle[T, R any](fn func() R) Handler[T, R] {
	return handlerFunc[T, R](func(s RequestState[T]) (R, bool) {
		if s.Status != Idle {
			var zero R
			return zero, false
		}
		return fn(), true
	})
}

// WhenLoading handles a call in flight.
func WhenLoading[T, R any](fn func() R) Handler[T, R] {
	return handlerFunc[T, R](func(s RequestState[T]) (R, bool) {
		if !s.Loading {
			var zero R
			return zero, false
		}
		return fn(), true
	})
}

// WhenError handles a settled failure.
func WhenError[T, R any](fn func(msg string) R) Handler[T, R] {
	return handlerFunc[T, R](func(s RequestState[T]) (R, bool) {
		if s.Loading || s.Error == "" {
			var zero R
			return zero, false
		}
		return fn(s.Error), true
	})
}

// WhenReady handles settled data.
func WhenReady[T, R any](fn func(data T) R) Handler[T, R] {
	return handlerFunc[T, R](func(s RequestState[T]) (R, bool) {
		if s.Loading || s.Error != "" || !s.HasData {
			var zero R
			return zero, false
		}
		return fn(s.Data), true
	})
}

// WhenLoadingOrIdle handles both Loading and Idle.
func WhenLoadingOrIdle[T, R any](fn func() R) Handler[T, R] {
	return handlerFunc[T, R](func(s RequestState[T]) (R, bool) {
		if !s.Loading && s.Status != Idle {
			var zero R
			return zero, false
		}
		return fn(), true
	})
}
