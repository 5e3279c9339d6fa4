package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Environment  string            `mapstructure:"environment"`
	Server       ServerConfig      `mapstructure:"server"`
	Database     DatabaseConfig    `mapstructure:"database"`
	Supabase     SupabaseConfig    `mapstructure:"supabase"`
	Storage      StorageConfig     `mapstructure:"storage"`
	Recognition  RecognitionConfig `mapstructure:"recognition"`
	Upload       UploadConfig      `mapstructure:"upload"`
	RateLimiting RateLimitConfig   `mapstructure:"rate_limiting"`
	Security     SecurityConfig    `mapstructure:"security"`
	Cleanup      CleanupConfig     `mapstructure:"cleanup"`
	Client       ClientConfig      `mapstructure:"client"`
	Logging      LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
}

// DatabaseConfig selects and tunes the transcript store.
// Backend is "sqlite" or "supabase".
type DatabaseConfig struct {
	Backend               string        `mapstructure:"backend"`
	Path                  string        `mapstructure:"path"`
	Table                 string        `mapstructure:"table"`
	MaxConnections        int           `mapstructure:"max_connections"`
	MaxIdleConnections    int           `mapstructure:"max_idle_connections"`
	ConnectionMaxLifetime time.Duration `mapstructure:"connection_max_lifetime"`
	LogQueries            bool          `mapstructure:"log_queries"`
}

// SupabaseConfig contains the project endpoint and key
type SupabaseConfig struct {
	URL    string `mapstructure:"url"`
	Key    string `mapstructure:"key"`
	Schema string `mapstructure:"schema"`
}

// StorageConfig selects the audio blob store.
// Backend is "filesystem" or "supabase".
type StorageConfig struct {
	Backend       string `mapstructure:"backend"`
	AudioDir      string `mapstructure:"audio_dir"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	Bucket        string `mapstructure:"bucket"`
	CacheControl  string `mapstructure:"cache_control"`
}

// RecognitionConfig contains speech provider settings
type RecognitionConfig struct {
	Provider             string        `mapstructure:"provider"`
	LongRunningThreshold int           `mapstructure:"long_running_threshold"`
	Timeout              time.Duration `mapstructure:"timeout"`
	Google               GoogleConfig  `mapstructure:"google"`
	Whisper              WhisperConfig `mapstructure:"whisper"`
}

// GoogleConfig contains Google Speech-to-Text settings
type GoogleConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	CredentialsJSON string        `mapstructure:"credentials_json"`
	BaseURL         string        `mapstructure:"base_url"`
	SampleRateHertz int           `mapstructure:"sample_rate_hertz"`
	Model           string        `mapstructure:"model"`
	UseEnhanced     bool          `mapstructure:"use_enhanced"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
}

// WhisperConfig contains OpenAI Whisper settings
type WhisperConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// UploadConfig contains upload handling settings
type UploadConfig struct {
	MultipartSlack int64         `mapstructure:"multipart_slack"`
	ProbeDuration  bool          `mapstructure:"probe_duration"`
	FFprobePath    string        `mapstructure:"ffprobe_path"`
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout"`
}

// RateLimitConfig contains the per-client request ceiling
type RateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

// SecurityConfig contains security settings
type SecurityConfig struct {
	EnableCORS     bool     `mapstructure:"enable_cors"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
	CORSMethods    []string `mapstructure:"cors_methods"`
	CORSHeaders    []string `mapstructure:"cors_headers"`
	EnableRecovery bool     `mapstructure:"enable_recovery"`
}

// CleanupConfig contains orphan blob sweeper settings
type CleanupConfig struct {
	OrphanSweepEnabled bool          `mapstructure:"orphan_sweep_enabled"`
	MaxAge             time.Duration `mapstructure:"max_age"`
	Interval           time.Duration `mapstructure:"interval"`
}

// ClientConfig contains settings for the CLI client commands
type ClientConfig struct {
	APIURL        string        `mapstructure:"api_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	QueryAttempts int           `mapstructure:"query_attempts"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}
