package statehub

import "github.com/vango-dev/fetchkit/pkg/resource"

// Source is anything that announces state changes, such as a resource.
type Source interface {
	Subscribe(fn func()) (unsubscribe func())
}

// Watch publishes snapshot() on topic now and after every change of src.
// The returned function stops watching.
func Watch(h *Hub, topic string, src Source, snapshot func() any) (stop func()) {
	h.Publish(topic, snapshot())
	return src.Subscribe(func() {
		h.Publish(topic, snapshot())
	})
}

// Snapshot is the wire form of a resource.RequestState.
type Snapshot[T any] struct {
	Status     string             `json:"status"`
	Loading    bool               `json:"loading"`
	Error      string             `json:"error,omitempty"`
	Data       *T                 `json:"data"`
	Generation uint64             `json:"generation"`
	Page       *resource.PageInfo `json:"page,omitempty"`
}

// StateSnapshot converts s. Data is null when s carries none.
func StateSnapshot[T any](s resource.RequestState[T]) Snapshot[T] {
	snap := Snapshot[T]{
		Status:     s.Status.String(),
		Loading:    s.Loading,
		Error:      s.Error,
		Generation: s.Generation,
	}
	if s.HasData {
		data := s.Data
		snap.Data = &data
	}
	return snap
}

// PageSnapshot converts a paginated state.
func PageSnapshot[T any](s resource.PageState[T]) Snapshot[T] {
	snap := StateSnapshot(s.RequestState)
	info := s.PageInfo
	snap.Page = &info
	return snap
}

// WatchResource streams r's state on topic.
func WatchResource[T any](h *Hub, topic string, r *resource.Resource[T]) (stop func()) {
	return Watch(h, topic, r, func() any { return StateSnapshot(r.State()) })
}

// WatchPaginated streams p's state, including page bookkeeping, on topic.
func WatchPaginated[T any](h *Hub, topic string, p *resource.Paginated[T]) (stop func()) {
	return Watch(h, topic, p, func() any { return PageSnapshot(p.PageState()) })
}
