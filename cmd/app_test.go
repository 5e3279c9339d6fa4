package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/lectra-api/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Database: config.DatabaseConfig{Backend: "sqlite", Path: ":memory:"},
		Storage: config.StorageConfig{
			Backend:       "filesystem",
			AudioDir:      t.TempDir(),
			PublicBaseURL: "http://localhost:3000/audio",
		},
		Recognition: config.RecognitionConfig{
			Provider:             "whisper",
			LongRunningThreshold: 1 << 20,
			Whisper:              config.WhisperConfig{APIKey: "test-key", Model: "whisper-1"},
		},
	}
}

func TestBuildApplication_SQLiteAndFilesystem(t *testing.T) {
	cfg := testConfig(t)

	app, err := buildApplication(context.Background(), cfg)
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.deps.DB)
	assert.NotNil(t, app.deps.Transcriptions)
	assert.NotNil(t, app.deps.Pipeline)
	assert.Nil(t, app.deps.Supabase)
	assert.Equal(t, cfg.Storage.AudioDir, app.deps.AudioDir)
	assert.Nil(t, app.sweeper, "sweeper is opt-in")
	assert.NoError(t, app.deps.DB.HealthCheck())
}

func TestBuildApplication_SweeperWhenEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cleanup = config.CleanupConfig{OrphanSweepEnabled: true, MaxAge: time.Hour, Interval: time.Hour}

	app, err := buildApplication(context.Background(), cfg)
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.sweeper)
}

func TestBuildApplication_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "unknown database backend",
			mutate:  func(c *config.Config) { c.Database.Backend = "mysql" },
			wantErr: "unknown database backend",
		},
		{
			name:    "unknown storage backend",
			mutate:  func(c *config.Config) { c.Storage.Backend = "s3" },
			wantErr: "unknown storage backend",
		},
		{
			name:    "supabase without credentials",
			mutate:  func(c *config.Config) { c.Database.Backend = "supabase" },
			wantErr: "supabase url is not configured",
		},
		{
			name:    "whisper without api key",
			mutate:  func(c *config.Config) { c.Recognition.Whisper.APIKey = "" },
			wantErr: "whisper api key is not configured",
		},
		{
			name:    "unknown recognition provider",
			mutate:  func(c *config.Config) { c.Recognition.Provider = "sphinx" },
			wantErr: "sphinx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)

			app, err := buildApplication(context.Background(), cfg)
			require.Error(t, err)
			assert.Nil(t, app)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRecognitionConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Recognition.Timeout = 45 * time.Second
	cfg.Recognition.Google = config.GoogleConfig{
		CredentialsFile: "/etc/lectra/sa.json",
		CredentialsJSON: `{"type":"service_account"}`,
		Model:           "latest_short",
	}

	rc := recognitionConfig(cfg)
	assert.Equal(t, "whisper", rc.Provider)
	assert.Equal(t, "/etc/lectra/sa.json", rc.Google.CredentialsFile)
	assert.Equal(t, `{"type":"service_account"}`, rc.Google.CredentialsJSON)
	assert.Equal(t, "latest_short", rc.Google.Model)
	assert.Equal(t, 45*time.Second, rc.Google.Timeout)
	assert.Equal(t, "test-key", rc.Whisper.APIKey)
	assert.Equal(t, 45*time.Second, rc.Whisper.Timeout)
}

func TestPipelineOptions(t *testing.T) {
	cfg := testConfig(t)
	assert.Len(t, pipelineOptions(cfg), 1)

	// A missing ffprobe leaves probing off instead of failing startup
	cfg.Upload = config.UploadConfig{ProbeDuration: true, FFprobePath: "/nonexistent/ffprobe", ProbeTimeout: time.Second}
	assert.Len(t, pipelineOptions(cfg), 1)
}

func TestServerSettings(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server = config.ServerConfig{ReadTimeout: 10 * time.Second, WriteTimeout: time.Minute, MaxHeaderBytes: 4096}
	cfg.RateLimiting = config.RateLimitConfig{Enabled: true, MaxRequests: 50, Window: time.Minute}
	cfg.Upload.MultipartSlack = 1024
	cfg.Security = config.SecurityConfig{
		EnableCORS:  true,
		CORSOrigins: []string{"http://localhost:8081"},
		CORSMethods: []string{"GET"},
	}

	s := serverSettings(cfg)
	assert.Equal(t, 10*time.Second, s.ReadTimeout)
	assert.Equal(t, time.Minute, s.WriteTimeout)
	assert.Equal(t, 4096, s.MaxHeaderBytes)
	assert.True(t, s.RateLimit.Enabled)
	assert.Equal(t, 50, s.RateLimit.MaxRequests)
	assert.Equal(t, int64(1024), s.UploadSlack)
	assert.Equal(t, []string{"http://localhost:8081"}, s.CORS.Origins)
	assert.Equal(t, Version, s.Version)

	cfg.Security.EnableCORS = false
	assert.Empty(t, serverSettings(cfg).CORS.Origins)
}
