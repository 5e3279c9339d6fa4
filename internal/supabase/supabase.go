// Package supabase owns the lifecycle of the Supabase client shared by the
// PostgREST transcript store and the storage-backed blob store.
package supabase

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/supabase-community/postgrest-go"
	storage_go "github.com/supabase-community/storage-go"
	supa "github.com/supabase-community/supabase-go"
)

// ErrClosed is returned when a closed handle is used.
var ErrClosed = errors.New("supabase handle is closed")

// Config holds the connection settings for a Supabase project.
type Config struct {
	URL    string
	Key    string
	Schema string
}

// Handle is an explicitly constructed Supabase client. Collaborators receive
// it by reference; nothing in this package keeps process-wide state.
type Handle struct {
	mu     sync.RWMutex
	client *supa.Client
	closed bool
}

// Open validates cfg and builds a client handle.
func Open(cfg Config) (*Handle, error) {
	if cfg.URL == "" {
		return nil, errors.New("supabase url is not configured")
	}
	if cfg.Key == "" {
		return nil, errors.New("supabase key is not configured")
	}

	opts := &supa.ClientOptions{}
	if cfg.Schema != "" {
		opts.Schema = cfg.Schema
	}

	client, err := supa.NewClient(cfg.URL, cfg.Key, opts)
	if err != nil {
		return nil, fmt.Errorf("creating supabase client: %w", err)
	}

	log.Printf("[INFO] Supabase client initialized for %s", cfg.URL)
	return &Handle{client: client}, nil
}

// From starts a PostgREST query against table. It returns nil once the
// handle is closed.
func (h *Handle) From(table string) *postgrest.QueryBuilder {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil
	}
	return h.client.From(table)
}

// Storage returns the storage API client, or nil once the handle is closed.
func (h *Handle) Storage() *storage_go.Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil
	}
	return h.client.Storage
}

// Err reports ErrClosed once the handle has been closed.
func (h *Handle) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrClosed
	}
	return nil
}

// Close releases the handle. The underlying HTTP clients hold no open
// resources, so Close only prevents further use.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	h.closed = true
	h.client = nil
	log.Printf("[INFO] Supabase client closed")
	return nil
}
