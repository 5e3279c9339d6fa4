package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/lectra-api/internal/models"
	"github.com/killallgit/lectra-api/pkg/client"
)

var fixedNow = time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC)

func fixtureRows() []models.Transcription {
	wc := func(n int) *int { return &n }
	return []models.Transcription{
		{ID: "t3", AudioFileName: "standup.m4a", TranscriptionText: "standup notes for monday", LanguageCode: "en-US", WordCount: wc(4), CreatedAt: fixedNow.Add(-5 * time.Minute)},
		{ID: "t2", AudioFileName: "groceries.m4a", TranscriptionText: "eggs milk bread", LanguageCode: "en-US", WordCount: wc(3), CreatedAt: fixedNow.Add(-2 * time.Hour)},
		{ID: "t1", AudioFileName: "retro.m4a", TranscriptionText: "Standup moved to ten", LanguageCode: "en-US", WordCount: wc(4), CreatedAt: fixedNow.Add(-10 * 24 * time.Hour)},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// newFakeAPI serves canned history, search and detail responses
func newFakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	rows := fixtureRows()

	page := func(w http.ResponseWriter, r *http.Request, items []models.Transcription) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		end := min(offset+limit, len(items))
		var data []models.Transcription
		if offset < len(items) {
			data = items[offset:end]
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "success",
			"data":   data,
			"pagination": map[string]any{
				"limit":   limit,
				"offset":  offset,
				"total":   len(items),
				"hasMore": offset+limit < len(items),
			},
		})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/transcription/history", func(w http.ResponseWriter, r *http.Request) {
		page(w, r, rows)
	})
	mux.HandleFunc("GET /api/transcription/search", func(w http.ResponseWriter, r *http.Request) {
		q := strings.ToLower(r.URL.Query().Get("q"))
		var hits []models.Transcription
		for _, row := range rows {
			if strings.Contains(strings.ToLower(row.TranscriptionText), q) {
				hits = append(hits, row)
			}
		}
		page(w, r, hits)
	})
	mux.HandleFunc("GET /api/transcription/{id}", func(w http.ResponseWriter, r *http.Request) {
		for _, row := range rows {
			if row.ID == r.PathValue("id") {
				writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": row})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "fail", "message": "Transcription not found"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestStore(t *testing.T) *client.Store {
	srv := newFakeAPI(t)
	api := client.New(client.Config{BaseURL: srv.URL + "/api", RetryBackoff: time.Millisecond})
	return client.NewStore(api, nil)
}

func TestListHistory_Table(t *testing.T) {
	store := newTestStore(t)

	var out bytes.Buffer
	err := listHistory(context.Background(), store, historyOptions{Limit: 20}, &out, fixedNow)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "ID")
	assert.Contains(t, text, "5 minutes ago")
	assert.Contains(t, text, "2 hours ago")
	assert.Contains(t, text, "Jan 10, 2025")
	assert.Contains(t, text, "3 of 3 transcription(s)")
}

func TestListHistory_AllPagesWithLocalFilter(t *testing.T) {
	store := newTestStore(t)

	var out bytes.Buffer
	opts := historyOptions{Limit: 2, All: true, Filter: "STANDUP", IDs: true}
	require.NoError(t, listHistory(context.Background(), store, opts, &out, fixedNow))

	assert.Equal(t, "t3\nt1\n", out.String())
}

func TestListHistory_Search(t *testing.T) {
	store := newTestStore(t)

	var out bytes.Buffer
	opts := historyOptions{Limit: 20, Search: "milk", IDs: true}
	require.NoError(t, listHistory(context.Background(), store, opts, &out, fixedNow))

	assert.Equal(t, "t2\n", out.String())
}

func TestListHistory_BlankSearchListsEverything(t *testing.T) {
	store := newTestStore(t)

	var out bytes.Buffer
	opts := historyOptions{Limit: 20, Search: "   ", IDs: true}
	require.NoError(t, listHistory(context.Background(), store, opts, &out, fixedNow))

	assert.Equal(t, "t3\nt2\nt1\n", out.String())
}

func TestShowCommand(t *testing.T) {
	srv := newFakeAPI(t)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"show", "t2", "--api-url", srv.URL + "/api"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "File:      groceries.m4a")
	assert.Contains(t, buf.String(), "eggs milk bread")
}

func TestShowCommand_NotFound(t *testing.T) {
	srv := newFakeAPI(t)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"show", "nope", "--api-url", srv.URL + "/api"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, client.IsNotFound(err))
}

func TestExportTranscription(t *testing.T) {
	row := fixtureRows()[0]
	dir := filepath.Join(t.TempDir(), "exports")

	path, err := exportTranscription(row, dir, nil, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "standup_"+strconv.FormatInt(fixedNow.UnixMilli(), 10)+".txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "LECTRA TRANSCRIPTION")
	assert.Contains(t, string(data), "standup notes for monday")
}

func TestExportTranscription_Stdout(t *testing.T) {
	var out bytes.Buffer
	path, err := exportTranscription(fixtureRows()[1], "-", &out, fixedNow)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Contains(t, out.String(), "File: groceries.m4a")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short text", preview("short   text\n"))

	long := strings.Repeat("word ", 30)
	p := preview(long)
	assert.Len(t, []rune(p), previewLength)
	assert.True(t, strings.HasSuffix(p, "..."))
}

func TestPrintTranscribeResult(t *testing.T) {
	url := "http://localhost:3000/audio/1736955000000-note.m4a"
	var out bytes.Buffer
	printTranscribeResult(&out, &client.TranscribeResult{
		Status:        "success",
		Transcription: "hello there",
		ID:            "abc",
		AudioURL:      &url,
	})

	assert.Contains(t, out.String(), "ID:     abc")
	assert.Contains(t, out.String(), "Audio:  "+url)
	assert.Contains(t, out.String(), "hello there")
}
