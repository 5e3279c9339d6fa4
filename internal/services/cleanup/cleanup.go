package cleanup

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/killallgit/lectra-api/internal/services/blobstore"
)

// Store is what the sweeper needs from the blob backend
type Store interface {
	blobstore.Store
	blobstore.Lister
}

// References reports whether any row, deleted or not, points at a blob URL
type References interface {
	ReferencesAudio(ctx context.Context, url string) (bool, error)
}

// Service removes audio blobs that no transcription references
type Service struct {
	blobs    Store
	refs     References
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new orphan sweeper
func NewService(blobs Store, refs References, maxAge, interval time.Duration) *Service {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Service{
		blobs:    blobs,
		refs:     refs,
		maxAge:   maxAge,
		interval: interval,
		now:      time.Now,
	}
}

// Start runs one sweep immediately and then one per interval until Stop
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.Sweep(ctx)
		for {
			select {
			case <-ticker.C:
				s.Sweep(ctx)
			case <-ctx.Done():
				log.Println("[INFO] Orphan sweeper stopped")
				return
			}
		}
	}()

	log.Printf("[INFO] Orphan sweeper started (interval: %v, max age: %v)", s.interval, s.maxAge)
}

// Stop cancels the sweeper and waits for the running sweep to return
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Sweep deletes every unreferenced blob older than maxAge and returns how
// many were removed
func (s *Service) Sweep(ctx context.Context) int {
	objects, err := s.blobs.List(ctx)
	if err != nil {
		log.Printf("[ERROR] Orphan sweep could not list blobs: %v", err)
		return 0
	}

	cutoff := s.now().Add(-s.maxAge)
	removed := 0
	for _, obj := range objects {
		if ctx.Err() != nil {
			break
		}
		if obj.ModTime.After(cutoff) {
			continue
		}

		referenced, err := s.refs.ReferencesAudio(ctx, obj.URL)
		if err != nil {
			log.Printf("[WARN] Skipping %s, reference check failed: %v", obj.Name, err)
			continue
		}
		if referenced {
			continue
		}

		if err := s.blobs.Delete(ctx, obj.URL); err != nil {
			log.Printf("[WARN] Failed to remove orphan blob %s: %v", obj.Name, err)
			continue
		}
		log.Printf("[DEBUG] Removed orphan blob: %s", obj.Name)
		removed++
	}

	if removed > 0 {
		log.Printf("[INFO] Orphan sweep removed %d blob(s)", removed)
	}
	return removed
}
