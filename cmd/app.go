package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/killallgit/lectra-api/api"
	"github.com/killallgit/lectra-api/api/types"
	"github.com/killallgit/lectra-api/internal/database"
	"github.com/killallgit/lectra-api/internal/services/blobstore"
	"github.com/killallgit/lectra-api/internal/services/cleanup"
	"github.com/killallgit/lectra-api/internal/services/pipeline"
	"github.com/killallgit/lectra-api/internal/services/recognition"
	"github.com/killallgit/lectra-api/internal/services/transcriptions"
	"github.com/killallgit/lectra-api/internal/supabase"
	"github.com/killallgit/lectra-api/pkg/config"
	"github.com/killallgit/lectra-api/pkg/ffmpeg"
)

// application is everything serve needs, built from configuration
type application struct {
	deps    *types.Dependencies
	sweeper *cleanup.Service
	closers []func() error
}

// Close releases resources in reverse order of acquisition
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("[WARN] Failed to release resource: %v", err)
		}
	}
	a.closers = nil
}

func newApplication() *application {
	return &application{deps: &types.Dependencies{}}
}

// openSupabase opens the shared Supabase handle on first use
func (a *application) openSupabase(cfg config.SupabaseConfig) (*supabase.Handle, error) {
	if a.deps.Supabase != nil {
		return a.deps.Supabase, nil
	}
	h, err := supabase.Open(supabase.Config{
		URL:    cfg.URL,
		Key:    cfg.Key,
		Schema: cfg.Schema,
	})
	if err != nil {
		return nil, err
	}
	a.deps.Supabase = h
	a.closers = append(a.closers, h.Close)
	return h, nil
}

// buildApplication wires the transcript store, blob store, recognizer and
// pipeline. On error everything opened so far is released.
func buildApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	app := newApplication()
	built := false
	defer func() {
		if !built {
			app.Close()
		}
	}()

	repo, err := buildRepository(cfg, app)
	if err != nil {
		return nil, err
	}
	app.deps.Transcriptions = repo

	blobs, err := buildBlobStore(cfg, app)
	if err != nil {
		return nil, err
	}

	recognizer, err := recognition.New(ctx, recognitionConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("initializing speech recognizer: %w", err)
	}
	log.Printf("[INFO] Speech recognition provider: %s", recognizer.Name())

	app.deps.Pipeline = pipeline.NewService(recognizer, blobs, repo, pipelineOptions(cfg)...)

	if cfg.Cleanup.OrphanSweepEnabled {
		if store, ok := blobs.(cleanup.Store); ok {
			app.sweeper = cleanup.NewService(store, repo, cfg.Cleanup.MaxAge, cfg.Cleanup.Interval)
		} else {
			log.Printf("[WARN] Orphan sweep enabled but the %s storage backend cannot list objects", cfg.Storage.Backend)
		}
	}

	built = true
	return app, nil
}

func buildRepository(cfg *config.Config, app *application) (transcriptions.Repository, error) {
	switch cfg.Database.Backend {
	case "supabase":
		h, err := app.openSupabase(cfg.Supabase)
		if err != nil {
			return nil, fmt.Errorf("opening supabase: %w", err)
		}
		log.Printf("[INFO] Transcript store: supabase table %q", cfg.Database.Table)
		return transcriptions.NewPostgrestRepository(h, cfg.Database.Table), nil
	case "sqlite", "":
		db, err := database.InitializeWithPool(cfg.Database.Path, cfg.Database.LogQueries, database.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxConnections,
			MaxIdleConns:    cfg.Database.MaxIdleConnections,
			ConnMaxLifetime: cfg.Database.ConnectionMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing database: %w", err)
		}
		app.closers = append(app.closers, db.Close)
		if err := db.Migrate(); err != nil {
			return nil, err
		}
		app.deps.DB = db
		log.Printf("[INFO] Transcript store: sqlite at %s", cfg.Database.Path)
		return transcriptions.NewRepository(db.DB), nil
	default:
		return nil, fmt.Errorf("unknown database backend: %q", cfg.Database.Backend)
	}
}

func buildBlobStore(cfg *config.Config, app *application) (blobstore.Store, error) {
	switch cfg.Storage.Backend {
	case "supabase":
		h, err := app.openSupabase(cfg.Supabase)
		if err != nil {
			return nil, fmt.Errorf("opening supabase: %w", err)
		}
		client := h.Storage()
		if client == nil {
			return nil, errors.New("supabase storage client is unavailable")
		}
		store, err := blobstore.NewSupabaseStore(client, cfg.Storage.Bucket, cfg.Storage.CacheControl)
		if err != nil {
			return nil, err
		}
		log.Printf("[INFO] Audio store: supabase bucket %q", cfg.Storage.Bucket)
		return store, nil
	case "filesystem", "":
		store, err := blobstore.NewFilesystemStore(cfg.Storage.AudioDir, cfg.Storage.PublicBaseURL)
		if err != nil {
			return nil, fmt.Errorf("initializing audio directory: %w", err)
		}
		app.deps.AudioDir = store.BasePath()
		log.Printf("[INFO] Audio store: %s served at %s", store.BasePath(), cfg.Storage.PublicBaseURL)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Storage.Backend)
	}
}

func recognitionConfig(cfg *config.Config) recognition.Config {
	rc := cfg.Recognition
	return recognition.Config{
		Provider: rc.Provider,
		Google: recognition.GoogleConfig{
			APIKey:          rc.Google.APIKey,
			CredentialsFile: rc.Google.CredentialsFile,
			CredentialsJSON: rc.Google.CredentialsJSON,
			BaseURL:         rc.Google.BaseURL,
			SampleRateHertz: rc.Google.SampleRateHertz,
			Model:           rc.Google.Model,
			UseEnhanced:     rc.Google.UseEnhanced,
			PollInterval:    rc.Google.PollInterval,
			Timeout:         rc.Timeout,
		},
		Whisper: recognition.WhisperConfig{
			APIKey:  rc.Whisper.APIKey,
			BaseURL: rc.Whisper.BaseURL,
			Model:   rc.Whisper.Model,
			Timeout: rc.Timeout,
		},
	}
}

func pipelineOptions(cfg *config.Config) []pipeline.Option {
	opts := []pipeline.Option{
		pipeline.WithLongRunningThreshold(cfg.Recognition.LongRunningThreshold),
	}

	if cfg.Upload.ProbeDuration {
		prober := ffmpeg.New(cfg.Upload.FFprobePath, cfg.Upload.ProbeTimeout)
		if err := prober.ValidateBinary(); err != nil {
			log.Printf("[WARN] Duration probing disabled: %v", err)
		} else {
			opts = append(opts, pipeline.WithDurationProber(prober))
		}
	}

	return opts
}

// serverSettings maps configuration onto the HTTP server
func serverSettings(cfg *config.Config) api.Settings {
	settings := api.Settings{
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		RateLimit: api.RateLimitSettings{
			Enabled:     cfg.RateLimiting.Enabled,
			MaxRequests: cfg.RateLimiting.MaxRequests,
			Window:      cfg.RateLimiting.Window,
		},
		UploadSlack: cfg.Upload.MultipartSlack,
		Version:     Version,
	}
	if cfg.Security.EnableCORS {
		settings.CORS = api.CORSOptions{
			Origins: cfg.Security.CORSOrigins,
			Methods: cfg.Security.CORSMethods,
			Headers: cfg.Security.CORSHeaders,
		}
	}
	return settings
}
