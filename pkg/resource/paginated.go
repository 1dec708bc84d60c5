package resource

import (
	"context"
	"sync"

	"github.com/vango-dev/fetchkit/pkg/reactive"
)

// PageState is the published surface of a Paginated resource.
type PageState[T any] struct {
	RequestState[T]
	PageInfo

	HasNextPage     bool
	HasPreviousPage bool
}

// Paginated is a Resource whose calls carry "page" and "limit" parameters
// and whose responses report totals.
type Paginated[T any] struct {
	*Resource[T]

	mu         sync.Mutex
	page       int
	limit      int
	total      int
	totalPages int
	version    uint64

	info *reactive.Signal[pageSnapshot]
}

// pageSnapshot orders publications of the page bookkeeping.
type pageSnapshot struct {
	PageInfo
	version uint64
}

// NewPaginated creates a Paginated resource. Every invocation of call
// receives the current page and limit merged under any caller params;
// caller keys win.
func NewPaginated[T any](call CallFunc[T], opts ...Option) *Paginated[T] {
	if call == nil {
		panic("resource: nil call function")
	}

	cfg := buildConfig(opts)
	p := &Paginated[T]{
		page:  cfg.initialPage,
		limit: cfg.initialLimit,
	}
	p.info = reactive.NewSignal(p.snapshotLocked()).WithEquals(func(a, b pageSnapshot) bool {
		return a.version == b.version
	})

	p.Resource = newResource(func(ctx context.Context, params Params) (CallResult[T], error) {
		return call(ctx, p.merge(params))
	}, cfg)
	p.Resource.afterSettle = p.applyPagination
	p.Resource.start()

	return p
}

// merge builds the parameters of one call.
func (p *Paginated[T]) merge(params Params) Params {
	p.mu.Lock()
	merged := Params{"page": p.page, "limit": p.limit}
	p.mu.Unlock()

	for k, v := range params {
		merged[k] = v
	}
	return merged
}

// applyPagination records the totals of a successful response.
func (p *Paginated[T]) applyPagination(res CallResult[T], err error) {
	if err != nil || !res.Success || res.Pagination == nil {
		return
	}

	p.mu.Lock()
	p.total = res.Pagination.Total
	p.totalPages = res.Pagination.TotalPages
	if p.totalPages <= 0 {
		p.totalPages = pageCount(p.total, p.limit)
	}

	clamped := false
	if maxPage := max(p.totalPages, 1); p.page > maxPage {
		p.page = maxPage
		clamped = true
	}
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.publish(snap)
	if clamped {
		// The correction refetches whether or not the resource is immediate,
		// so the data always belongs to the published page.
		p.Resource.log.Debug("page out of range after fetch, clamping", "page", snap.Page, "totalPages", snap.TotalPages)
		p.Resource.trigger(nil)
	}
}

// PageState returns the current request state together with the page bookkeeping.
func (p *Paginated[T]) PageState() PageState[T] {
	req := p.Resource.State()
	info := p.info.Get().PageInfo
	return PageState[T]{
		RequestState:    req,
		PageInfo:        info,
		HasNextPage:     info.Page < info.TotalPages,
		HasPreviousPage: info.Page > 1,
	}
}

// Page returns the current page.
func (p *Paginated[T]) Page() int {
	return p.info.Get().Page
}

// Limit returns the current page size.
func (p *Paginated[T]) Limit() int {
	return p.info.Get().Limit
}

// Subscribe calls fn after every change of the request state or of the
// page bookkeeping.
func (p *Paginated[T]) Subscribe(fn func()) (unsubscribe func()) {
	unsubState := p.Resource.Subscribe(fn)
	unsubInfo := p.info.Subscribe(fn)
	return func() {
		unsubState()
		unsubInfo()
	}
}

// NextPage moves one page forward when a next page exists.
func (p *Paginated[T]) NextPage() bool {
	return p.move(func(page, _, totalPages int) (int, bool) {
		return page + 1, page < totalPages
	})
}

// PreviousPage moves one page back when the previous page lies within
// [1, TotalPages]. Before the first fetch TotalPages is 0 and it does nothing.
func (p *Paginated[T]) PreviousPage() bool {
	return p.move(func(page, _, totalPages int) (int, bool) {
		return page - 1, page > 1 && page-1 <= totalPages
	})
}

// GoToPage moves to page n when 1 <= n <= TotalPages. Moving to the current
// page is a no-op.
func (p *Paginated[T]) GoToPage(n int) bool {
	return p.move(func(page, _, totalPages int) (int, bool) {
		return n, n >= 1 && n <= totalPages && n != page
	})
}

// SetLimit changes the page size and returns to the first page. It always
// causes one fetch when the resource is immediate. Limits below 1 are ignored.
func (p *Paginated[T]) SetLimit(limit int) bool {
	if limit < 1 {
		return false
	}

	p.mu.Lock()
	p.limit = limit
	p.page = 1
	if p.total > 0 {
		p.totalPages = pageCount(p.total, limit)
	}
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.publish(snap)
	p.navigated()
	return true
}

// move applies a page transition computed by step and reports whether it
// changed the page.
func (p *Paginated[T]) move(step func(page, limit, totalPages int) (int, bool)) bool {
	p.mu.Lock()
	next, ok := step(p.page, p.limit, p.totalPages)
	if !ok {
		p.mu.Unlock()
		return false
	}
	p.page = next
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.publish(snap)
	p.navigated()
	return true
}

// navigated starts the single fetch that follows a page or limit change.
// The fetch reads the page and limit current at invocation.
func (p *Paginated[T]) navigated() {
	if p.Resource.cfg.immediate {
		p.Resource.trigger(nil)
	}
}

// snapshotLocked captures the bookkeeping under a new version. p.mu must be held.
func (p *Paginated[T]) snapshotLocked() pageSnapshot {
	p.version++
	return pageSnapshot{
		PageInfo: PageInfo{
			Page:       p.page,
			Limit:      p.limit,
			Total:      p.total,
			TotalPages: p.totalPages,
		},
		version: p.version,
	}
}

// publish hands snap to listeners unless a newer snapshot was published first.
func (p *Paginated[T]) publish(snap pageSnapshot) {
	p.info.Update(func(old pageSnapshot) pageSnapshot {
		if snap.version <= old.version {
			return old
		}
		return snap
	})
}

// pageCount is ceil(total/limit).
func pageCount(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
