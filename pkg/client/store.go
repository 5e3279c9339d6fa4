package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/killallgit/lectra-api/internal/models"
	"github.com/killallgit/lectra-api/pkg/querycache"
)

// TranscriptionPage is a history page as the cache stores it
type TranscriptionPage = querycache.Page[models.Transcription]

// Store reads through a query cache and keeps it coherent after mutations
type Store struct {
	api   *Client
	cache *querycache.Cache
	now   func() time.Time
}

// NewStore wires an API client to a cache. A nil cache gets a fresh one.
func NewStore(api *Client, cache *querycache.Cache) *Store {
	if cache == nil {
		cache = querycache.New()
	}
	return &Store{api: api, cache: cache, now: time.Now}
}

// Cache exposes the underlying cache
func (s *Store) Cache() *querycache.Cache {
	return s.cache
}

func toPage(p *HistoryPage) TranscriptionPage {
	return TranscriptionPage{
		Items:   p.Data,
		Limit:   p.Pagination.Limit,
		Offset:  p.Pagination.Offset,
		Total:   p.Pagination.Total,
		HasMore: p.Pagination.HasMore,
	}
}

// History returns one offset page, fresh for two minutes
func (s *Store) History(ctx context.Context, limit, offset int) (TranscriptionPage, error) {
	return querycache.FetchAs(ctx, s.cache, querycache.List(limit, offset), querycache.ListStaleTime,
		func(ctx context.Context) (TranscriptionPage, error) {
			p, err := s.api.History(ctx, limit, offset)
			if err != nil {
				return TranscriptionPage{}, err
			}
			return toPage(p), nil
		})
}

// Search returns one page of server-side search results. A blank term
// lists the history page instead.
func (s *Store) Search(ctx context.Context, term string, limit, offset int) (TranscriptionPage, error) {
	if strings.TrimSpace(term) == "" {
		return s.History(ctx, limit, offset)
	}
	return querycache.FetchAs(ctx, s.cache, querycache.Search(term, limit, offset), querycache.ListStaleTime,
		func(ctx context.Context) (TranscriptionPage, error) {
			p, err := s.api.Search(ctx, term, limit, offset)
			if err != nil {
				return TranscriptionPage{}, err
			}
			return toPage(p), nil
		})
}

// InfiniteHistory returns the cached infinite query for limit. Once the list
// views are invalidated or go stale the accumulated pages are discarded and
// a new query starting at offset 0 takes its place.
func (s *Store) InfiniteHistory(limit int) *querycache.InfiniteQuery[models.Transcription] {
	key := querycache.Infinite(limit)
	if e, ok := s.cache.Peek(key); ok && !e.IsStale(s.now()) {
		if q, ok := e.Data.(*querycache.InfiniteQuery[models.Transcription]); ok {
			return q
		}
	}

	q := querycache.NewInfiniteQuery(limit, func(ctx context.Context, limit, offset int) (TranscriptionPage, error) {
		p, err := s.api.History(ctx, limit, offset)
		if err != nil {
			return TranscriptionPage{}, err
		}
		return toPage(p), nil
	})
	s.cache.Set(key, q, querycache.ListStaleTime)
	return q
}

// Transcription returns one row, fresh for five minutes
func (s *Store) Transcription(ctx context.Context, id string) (models.Transcription, error) {
	return querycache.FetchAs(ctx, s.cache, querycache.Detail(id), querycache.DetailStaleTime,
		func(ctx context.Context) (models.Transcription, error) {
			return s.api.Get(ctx, id)
		})
}

// Transcribe uploads audio and marks every list stale on success
func (s *Store) Transcribe(ctx context.Context, fileName string, data []byte, languageCode string) (*TranscribeResult, error) {
	res, err := s.api.Transcribe(ctx, fileName, data, languageCode)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(querycache.Lists())
	return res, nil
}

// UpdateText edits the transcript optimistically. The cached detail shows
// the new text at once; a failure puts the previous entry back unchanged and
// a success replaces it with the server's row and marks the lists stale.
func (s *Store) UpdateText(ctx context.Context, id, text string) (models.Transcription, error) {
	key := querycache.Detail(id)
	update := querycache.BeginOptimistic(s.cache, key, func(t models.Transcription) models.Transcription {
		t.TranscriptionText = text
		t.UpdatedAt = s.now()
		return t
	})

	row, err := s.api.UpdateText(ctx, id, text)
	if err != nil {
		if rerr := update.Revert(); rerr != nil {
			return models.Transcription{}, fmt.Errorf("%w (rollback: %v)", err, rerr)
		}
		return models.Transcription{}, err
	}

	if err := update.Commit(row, querycache.Lists()); err != nil {
		return models.Transcription{}, err
	}
	return row, nil
}

// Delete removes the row's detail entry and marks every list stale
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.api.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Remove(querycache.Detail(id))
	s.cache.Invalidate(querycache.Lists())
	return nil
}

// Health reports backend reachability, cached for a minute
func (s *Store) Health(ctx context.Context) bool {
	ok, err := querycache.FetchAs(ctx, s.cache, querycache.Health(), querycache.HealthStaleTime,
		func(ctx context.Context) (bool, error) {
			return s.api.Health(ctx) == nil, nil
		})
	return err == nil && ok
}
