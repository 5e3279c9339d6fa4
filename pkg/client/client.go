package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/killallgit/lectra-api/internal/models"
	"github.com/killallgit/lectra-api/pkg/audio"
)

// ErrFileTooLarge is returned before any upload is attempted
var ErrFileTooLarge = errors.New("file too large")

// APIError is a non-2xx response decoded from the server's status/message envelope
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// TransportError means the request never got an HTTP response
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "executing request: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// Config holds configuration for the API client. MaxAttempts bounds
// mutations and QueryAttempts bounds reads.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	MaxAttempts   int
	QueryAttempts int
	RetryBackoff  time.Duration
	HTTPClient    *http.Client
}

// Client talks to the transcription REST API
type Client struct {
	httpClient    *http.Client
	baseURL       string
	maxAttempts   int
	queryAttempts int
	retryBackoff  time.Duration
}

// New creates a new API client
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:3000/api"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.QueryAttempts <= 0 {
		cfg.QueryAttempts = DefaultQueryAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		httpClient:    httpClient,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		maxAttempts:   cfg.MaxAttempts,
		queryAttempts: cfg.QueryAttempts,
		retryBackoff:  cfg.RetryBackoff,
	}
}

// Pagination mirrors the server's pagination block
type Pagination struct {
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"hasMore"`
}

// HistoryPage is one page of history or search results
type HistoryPage struct {
	Status     string                 `json:"status"`
	Data       []models.Transcription `json:"data"`
	Pagination Pagination             `json:"pagination"`
	Query      string                 `json:"query,omitempty"`
}

// Metadata describes a transcribed upload
type Metadata struct {
	OriginalName string     `json:"originalName"`
	MimeType     string     `json:"mimeType"`
	FileSize     int64      `json:"fileSize"`
	LanguageCode string     `json:"languageCode"`
	WordCount    *int       `json:"wordCount,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
}

// TranscribeResult is the response to an upload
type TranscribeResult struct {
	Status        string    `json:"status"`
	Message       string    `json:"message,omitempty"`
	Transcription string    `json:"transcription"`
	ID            string    `json:"id,omitempty"`
	AudioURL      *string   `json:"audioUrl"`
	Metadata      *Metadata `json:"metadata,omitempty"`
	Warning       string    `json:"warning,omitempty"`
}

type detailResponse struct {
	Status string               `json:"status"`
	Data   models.Transcription `json:"data"`
}

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// do sends req and decodes a 2xx body into result. Non-2xx bodies become *APIError.
func (c *Client) do(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var env envelope
		if json.Unmarshal(body, &env) == nil {
			apiErr.Status = env.Status
			apiErr.Message = env.Message
		}
		return apiErr
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// get sends a GET, retrying transport failures and 5xx like mutations do
func (c *Client) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	return c.withRetry(ctx, "GET "+path, c.queryAttempts, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		return c.do(req, result)
	})
}

// Health reports whether the transcription service answers
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/transcription/health", nil, nil)
}

// History fetches one page of history
func (c *Client) History(ctx context.Context, limit, offset int) (*HistoryPage, error) {
	var page HistoryPage
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	if err := c.get(ctx, "/transcription/history", q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Search runs a server-side search
func (c *Client) Search(ctx context.Context, term string, limit, offset int) (*HistoryPage, error) {
	var page HistoryPage
	q := url.Values{}
	q.Set("q", term)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	if err := c.get(ctx, "/transcription/search", q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get fetches one transcription
func (c *Client) Get(ctx context.Context, id string) (models.Transcription, error) {
	var resp detailResponse
	if err := c.get(ctx, "/transcription/"+url.PathEscape(id), nil, &resp); err != nil {
		return models.Transcription{}, err
	}
	return resp.Data, nil
}

// Transcribe uploads audio. Files over the server ceiling are rejected locally.
func (c *Client) Transcribe(ctx context.Context, fileName string, data []byte, languageCode string) (*TranscribeResult, error) {
	if audio.TooLarge(int64(len(data))) {
		return nil, fmt.Errorf("%w (%.2fMB). Maximum size is 10MB", ErrFileTooLarge, float64(len(data))/1024/1024)
	}

	var result TranscribeResult
	err := c.withRetry(ctx, "transcribe", c.maxAttempts, func(ctx context.Context) error {
		body, contentType, err := multipartBody(fileName, data, languageCode)
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcription/transcribe", body)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", contentType)
		return c.do(req, &result)
	})
	if err != nil {
		return nil, err
	}
	if result.Status != "success" {
		return nil, fmt.Errorf("transcription failed: %s", result.Message)
	}
	if result.Warning != "" {
		log.Printf("[WARN] %s", result.Warning)
	}
	return &result, nil
}

func multipartBody(fileName string, data []byte, languageCode string) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename="%s"`, escapeQuotes(filepath.Base(fileName))))
	h.Set("Content-Type", audio.DetectMimeType(mime.TypeByExtension(filepath.Ext(fileName)), data))
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("writing form file: %w", err)
	}
	if languageCode != "" {
		if err := w.WriteField("language_code", languageCode); err != nil {
			return nil, "", fmt.Errorf("writing language field: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// UpdateText replaces the transcript text
func (c *Client) UpdateText(ctx context.Context, id, text string) (models.Transcription, error) {
	var resp detailResponse
	err := c.withRetry(ctx, "update", c.maxAttempts, func(ctx context.Context) error {
		payload, err := json.Marshal(map[string]string{"transcription_text": text})
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/transcription/"+url.PathEscape(id), bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		return c.do(req, &resp)
	})
	if err != nil {
		return models.Transcription{}, err
	}
	return resp.Data, nil
}

// Delete soft-deletes a transcription
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.withRetry(ctx, "delete", c.maxAttempts, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/transcription/"+url.PathEscape(id), nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		return c.do(req, nil)
	})
}
