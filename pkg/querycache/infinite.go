package querycache

import (
	"context"
	"errors"
	"sync"
)

// ErrNoMorePages is returned by FetchNextPage once the server reported hasMore=false
var ErrNoMorePages = errors.New("no more pages")

// Page is one server window. HasMore is the server's flag, nothing derived.
type Page[T any] struct {
	Items   []T
	Limit   int
	Offset  int
	Total   int64
	HasMore bool
}

// PageFetcher loads the window at (limit, offset)
type PageFetcher[T any] func(ctx context.Context, limit, offset int) (Page[T], error)

// NextOffset derives the next page param from the last page loaded
func NextOffset[T any](last Page[T]) (int, bool) {
	if !last.HasMore {
		return 0, false
	}
	return last.Offset + last.Limit, true
}

// InfiniteQuery accumulates forward-only pages starting at offset 0.
// Once it has ended it stays ended; build a new one to start over.
type InfiniteQuery[T any] struct {
	limit int
	fetch PageFetcher[T]

	fetchMu sync.Mutex
	mu      sync.RWMutex
	pages   []Page[T]
}

// NewInfiniteQuery creates an empty query with page size limit
func NewInfiniteQuery[T any](limit int, fetch PageFetcher[T]) *InfiniteQuery[T] {
	return &InfiniteQuery[T]{limit: limit, fetch: fetch}
}

// Limit returns the page size
func (q *InfiniteQuery[T]) Limit() int {
	return q.limit
}

// HasNextPage reports whether another page can be fetched
func (q *InfiniteQuery[T]) HasNextPage() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	_, ok := q.nextOffsetLocked()
	return ok
}

func (q *InfiniteQuery[T]) nextOffsetLocked() (int, bool) {
	if len(q.pages) == 0 {
		return 0, true
	}
	return NextOffset(q.pages[len(q.pages)-1])
}

// FetchNextPage loads and appends the next page. Calls are serialized so
// pages always arrive in offset order.
func (q *InfiniteQuery[T]) FetchNextPage(ctx context.Context) (Page[T], error) {
	q.fetchMu.Lock()
	defer q.fetchMu.Unlock()

	q.mu.RLock()
	offset, ok := q.nextOffsetLocked()
	q.mu.RUnlock()
	if !ok {
		return Page[T]{}, ErrNoMorePages
	}

	page, err := q.fetch(ctx, q.limit, offset)
	if err != nil {
		return Page[T]{}, err
	}

	q.mu.Lock()
	q.pages = append(q.pages, page)
	q.mu.Unlock()
	return page, nil
}

// Pages returns the loaded pages in order
func (q *InfiniteQuery[T]) Pages() []Page[T] {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]Page[T], len(q.pages))
	copy(out, q.pages)
	return out
}

// Items flattens every loaded page
func (q *InfiniteQuery[T]) Items() []T {
	q.mu.RLock()
	defer q.mu.RUnlock()
	var items []T
	for _, p := range q.pages {
		items = append(items, p.Items...)
	}
	return items
}
