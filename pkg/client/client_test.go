package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/lectra-api/internal/models"
	"github.com/killallgit/lectra-api/pkg/audio"
	"github.com/killallgit/lectra-api/pkg/querycache"
)

// fakeAPI serves a fixed set of rows the way the REST API shapes them
type fakeAPI struct {
	mu   sync.Mutex
	rows []models.Transcription

	historyCalls atomic.Int32
	detailCalls  atomic.Int32
	updateCalls  atomic.Int32
	uploadCalls  atomic.Int32

	// failUpdates answers the next n PUTs with this status
	failUpdates      int
	failUpdateStatus int
	uploadStatus     int

	// failHistory answers the next n history reads with this status
	failHistory       int
	failHistoryStatus int
}

func newFakeAPI(n int) *fakeAPI {
	f := &fakeAPI{}
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		f.rows = append(f.rows, models.Transcription{
			ID:                fmt.Sprintf("id-%02d", i),
			AudioFileName:     fmt.Sprintf("note-%02d.m4a", i),
			TranscriptionText: fmt.Sprintf("note number %d", i),
			LanguageCode:      "en-US",
			Status:            "completed",
			CreatedAt:         base.Add(-time.Duration(i) * time.Minute),
			UpdatedAt:         base,
		})
	}
	return f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/transcription/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	})
	mux.HandleFunc("GET /api/transcription/history", func(w http.ResponseWriter, r *http.Request) {
		f.historyCalls.Add(1)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failHistory > 0 {
			f.failHistory--
			writeJSON(w, f.failHistoryStatus, envelope{Status: "error", Message: "Failed to fetch transcription history"})
			return
		}
		end := min(offset+limit, len(f.rows))
		start := min(offset, end)
		writeJSON(w, http.StatusOK, HistoryPage{
			Status: "success",
			Data:   f.rows[start:end],
			Pagination: Pagination{
				Limit: limit, Offset: offset, Total: int64(len(f.rows)),
				HasMore: offset+limit < len(f.rows),
			},
		})
	})
	mux.HandleFunc("GET /api/transcription/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.detailCalls.Add(1)
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, row := range f.rows {
			if row.ID == r.PathValue("id") {
				writeJSON(w, http.StatusOK, detailResponse{Status: "success", Data: row})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, envelope{Status: "fail", Message: "Transcription not found"})
	})
	mux.HandleFunc("PUT /api/transcription/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.updateCalls.Add(1)
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failUpdates > 0 {
			f.failUpdates--
			writeJSON(w, f.failUpdateStatus, envelope{Status: "error", Message: "Failed to update transcription"})
			return
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, envelope{Status: "fail", Message: "Invalid request body"})
			return
		}
		for i, row := range f.rows {
			if row.ID == r.PathValue("id") {
				row.TranscriptionText = body["transcription_text"]
				wc := 2
				row.WordCount = &wc
				row.UpdatedAt = row.UpdatedAt.Add(time.Hour)
				f.rows[i] = row
				writeJSON(w, http.StatusOK, detailResponse{Status: "success", Data: row})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, envelope{Status: "fail", Message: "Transcription not found or could not be updated"})
	})
	mux.HandleFunc("DELETE /api/transcription/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, row := range f.rows {
			if row.ID == r.PathValue("id") {
				f.rows = append(f.rows[:i], f.rows[i+1:]...)
				writeJSON(w, http.StatusOK, envelope{Status: "success", Message: "Transcription deleted successfully"})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, envelope{Status: "fail", Message: "Transcription not found"})
	})
	mux.HandleFunc("POST /api/transcription/transcribe", func(w http.ResponseWriter, r *http.Request) {
		f.uploadCalls.Add(1)
		if f.uploadStatus != 0 {
			writeJSON(w, f.uploadStatus, envelope{Status: "fail", Message: "File too large. Maximum size is 10MB"})
			return
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, envelope{Status: "fail", Message: "No audio file uploaded"})
			return
		}
		defer file.Close()
		writeJSON(w, http.StatusOK, TranscribeResult{
			Status:        "success",
			Transcription: "hello there",
			ID:            "new-id",
			Metadata: &Metadata{
				OriginalName: header.Filename,
				FileSize:     header.Size,
				LanguageCode: r.FormValue("language_code"),
			},
		})
	})
	return mux
}

func newTestStore(t *testing.T, api *fakeAPI) (*Store, *Client) {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	c := New(Config{BaseURL: srv.URL + "/api", RetryBackoff: time.Millisecond})
	return NewStore(c, querycache.New()), c
}

func TestStoreHistoryIsCached(t *testing.T) {
	api := newFakeAPI(25)
	store, _ := newTestStore(t, api)
	ctx := context.Background()

	page, err := store.History(ctx, 20, 0)
	require.NoError(t, err)
	assert.Len(t, page.Items, 20)
	assert.True(t, page.HasMore)
	assert.Equal(t, int64(25), page.Total)

	_, err = store.History(ctx, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(1), api.historyCalls.Load())

	page, err = store.History(ctx, 20, 20)
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.False(t, page.HasMore)
}

func TestStoreHistoryRetriesServerErrors(t *testing.T) {
	api := newFakeAPI(3)
	api.failHistory = 1
	api.failHistoryStatus = http.StatusServiceUnavailable
	store, _ := newTestStore(t, api)

	page, err := store.History(context.Background(), 20, 0)
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, int32(2), api.historyCalls.Load())
}

func TestHistoryGivesUpAfterQueryAttempts(t *testing.T) {
	api := newFakeAPI(3)
	api.failHistory = 10
	api.failHistoryStatus = http.StatusBadGateway
	_, c := newTestStore(t, api)

	_, err := c.History(context.Background(), 20, 0)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, int32(DefaultQueryAttempts), api.historyCalls.Load())
}

func TestDetailNotFoundIsNotRetried(t *testing.T) {
	api := newFakeAPI(1)
	store, _ := newTestStore(t, api)

	_, err := store.Transcription(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, int32(1), api.detailCalls.Load())
}

func TestInfiniteHistoryPageRetries(t *testing.T) {
	api := newFakeAPI(5)
	api.failHistory = 2
	api.failHistoryStatus = http.StatusInternalServerError
	store, _ := newTestStore(t, api)

	q := store.InfiniteHistory(20)
	_, err := q.FetchNextPage(context.Background())
	require.NoError(t, err)
	assert.Len(t, q.Items(), 5)
	assert.Equal(t, int32(3), api.historyCalls.Load())
}

func TestStoreSearchBlankTermListsHistory(t *testing.T) {
	api := newFakeAPI(4)
	store, _ := newTestStore(t, api)

	for _, term := range []string{"", "   "} {
		page, err := store.Search(context.Background(), term, 20, 0)
		require.NoError(t, err)
		assert.Len(t, page.Items, 4)
	}
	assert.Equal(t, int32(1), api.historyCalls.Load(), "blank searches share the cached history page")
}

func TestStoreInfiniteHistory(t *testing.T) {
	api := newFakeAPI(45)
	store, _ := newTestStore(t, api)
	ctx := context.Background()

	q := store.InfiniteHistory(20)
	for q.HasNextPage() {
		_, err := q.FetchNextPage(ctx)
		require.NoError(t, err)
	}
	items := q.Items()
	require.Len(t, items, 45)
	assert.Equal(t, "id-00", items[0].ID)
	assert.Equal(t, "id-44", items[44].ID)

	assert.Same(t, q, store.InfiniteHistory(20), "cached query is reused while fresh")

	_, err := store.Transcribe(ctx, "new.m4a", []byte("audio"), "")
	require.NoError(t, err)

	fresh := store.InfiniteHistory(20)
	assert.NotSame(t, q, fresh, "invalidation restarts the sequence")
	assert.Empty(t, fresh.Pages())
}

func TestStoreUpdateTextSuccess(t *testing.T) {
	api := newFakeAPI(3)
	store, _ := newTestStore(t, api)
	ctx := context.Background()

	_, err := store.Transcription(ctx, "id-01")
	require.NoError(t, err)
	_, err = store.History(ctx, 20, 0)
	require.NoError(t, err)

	row, err := store.UpdateText(ctx, "id-01", "edited text")
	require.NoError(t, err)
	require.NotNil(t, row.WordCount)
	assert.Equal(t, 2, *row.WordCount)

	cached, ok := store.Cache().Get(querycache.Detail("id-01"))
	require.True(t, ok)
	assert.Equal(t, row, cached, "detail holds the server row")

	e, _ := store.Cache().Peek(querycache.List(20, 0))
	assert.True(t, e.Invalidated)
}

func TestStoreUpdateTextRollback(t *testing.T) {
	api := newFakeAPI(3)
	api.failUpdates = 1
	api.failUpdateStatus = http.StatusNotFound
	store, _ := newTestStore(t, api)
	ctx := context.Background()

	_, err := store.Transcription(ctx, "id-02")
	require.NoError(t, err)
	before, _ := store.Cache().Peek(querycache.Detail("id-02"))
	beforeJSON, _ := json.Marshal(before)

	_, err = store.UpdateText(ctx, "id-02", "will fail")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, int32(1), api.updateCalls.Load(), "4xx is never retried")

	after, _ := store.Cache().Peek(querycache.Detail("id-02"))
	afterJSON, _ := json.Marshal(after)
	assert.Equal(t, string(beforeJSON), string(afterJSON))
}

func TestUpdateRetriesServerErrors(t *testing.T) {
	api := newFakeAPI(1)
	api.failUpdates = 2
	api.failUpdateStatus = http.StatusInternalServerError
	_, c := newTestStore(t, api)

	row, err := c.UpdateText(context.Background(), "id-00", "third time")
	require.NoError(t, err)
	assert.Equal(t, "third time", row.TranscriptionText)
	assert.Equal(t, int32(3), api.updateCalls.Load())
}

func TestUpdateGivesUpAfterMaxAttempts(t *testing.T) {
	api := newFakeAPI(1)
	api.failUpdates = 10
	api.failUpdateStatus = http.StatusServiceUnavailable
	_, c := newTestStore(t, api)

	_, err := c.UpdateText(context.Background(), "id-00", "never")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, int32(DefaultMaxAttempts), api.updateCalls.Load())
}

func TestStoreDelete(t *testing.T) {
	api := newFakeAPI(2)
	store, _ := newTestStore(t, api)
	ctx := context.Background()

	_, err := store.Transcription(ctx, "id-00")
	require.NoError(t, err)
	_, err = store.History(ctx, 20, 0)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "id-00"))

	_, ok := store.Cache().Peek(querycache.Detail("id-00"))
	assert.False(t, ok, "detail entry is removed, not just marked stale")
	e, _ := store.Cache().Peek(querycache.List(20, 0))
	assert.True(t, e.Invalidated)

	err = store.Delete(ctx, "id-00")
	assert.True(t, IsNotFound(err))
}

func TestTranscribe(t *testing.T) {
	api := newFakeAPI(0)
	_, c := newTestStore(t, api)

	res, err := c.Transcribe(context.Background(), "/tmp/voice memo.m4a", []byte("audio-bytes"), "fr-FR")
	require.NoError(t, err)
	assert.Equal(t, "hello there", res.Transcription)
	require.NotNil(t, res.Metadata)
	assert.Equal(t, "voice memo.m4a", res.Metadata.OriginalName)
	assert.Equal(t, "fr-FR", res.Metadata.LanguageCode)
	assert.Equal(t, int64(11), res.Metadata.FileSize)
}

func TestTranscribeTooLargeNeverUploads(t *testing.T) {
	api := newFakeAPI(0)
	_, c := newTestStore(t, api)

	_, err := c.Transcribe(context.Background(), "big.wav", make([]byte, audio.MaxUploadBytes+1), "")
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Equal(t, int32(0), api.uploadCalls.Load())
}

func TestTranscribeServerRejectIsNotRetried(t *testing.T) {
	api := newFakeAPI(0)
	api.uploadStatus = http.StatusRequestEntityTooLarge
	_, c := newTestStore(t, api)

	_, err := c.Transcribe(context.Background(), "a.wav", []byte("x"), "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "File too large. Maximum size is 10MB", apiErr.Message)
	assert.Equal(t, int32(1), api.uploadCalls.Load())
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(&TransportError{Err: errors.New("connection refused")}))
	assert.True(t, retryable(&APIError{StatusCode: 502}))
	assert.False(t, retryable(&APIError{StatusCode: 400}))
	assert.False(t, retryable(&APIError{StatusCode: 429}))
	assert.False(t, retryable(context.Canceled))
	assert.False(t, retryable(errors.New("decoding response: bad json")))
}

func TestHealth(t *testing.T) {
	api := newFakeAPI(0)
	store, _ := newTestStore(t, api)
	assert.True(t, store.Health(context.Background()))

	down := NewStore(New(Config{BaseURL: "http://127.0.0.1:1/api", Timeout: time.Second, RetryBackoff: time.Millisecond}), nil)
	assert.False(t, down.Health(context.Background()))
}

func TestFilterLocal(t *testing.T) {
	items := []models.Transcription{
		{ID: "a", TranscriptionText: "Buy MILK tomorrow"},
		{ID: "b", TranscriptionText: "call the dentist"},
		{ID: "c", TranscriptionText: ""},
	}

	assert.Equal(t, items, FilterLocal(items, "   "))
	assert.Equal(t, []string{"a"}, IDs(FilterLocal(items, "milk")))
	assert.Equal(t, []string{"b"}, IDs(FilterLocal(items, "DENTIST")))
	assert.Empty(t, FilterLocal(items, "zebra"))
}
