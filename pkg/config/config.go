package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. LECTRA_SERVER_PORT
const EnvPrefix = "LECTRA"

var (
	once    sync.Once
	initErr error

	configPath = filepath.Clean("./config/settings.yaml")
	envFile    = ".env"
)

// Init initializes the configuration system
// This should be called once at application startup
func Init() error {
	once.Do(func() {
		// .env is optional; real environment variables win over it
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			initErr = fmt.Errorf("error loading %s: %w", envFile, err)
			return
		}

		setDefaults()

		viper.SetEnvPrefix(EnvPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		viper.SetConfigFile(configPath)

		fileLoaded := true
		if err := viper.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				initErr = fmt.Errorf("error reading config file %s: %w", configPath, err)
				return
			}
			fileLoaded = false
		}

		if err := validate(); err != nil {
			initErr = fmt.Errorf("invalid configuration: %w", err)
			return
		}

		if fileLoaded {
			viper.OnConfigChange(onConfigChange)
			viper.WatchConfig()
		}
	})

	return initErr
}

func onConfigChange(e fsnotify.Event) {
	log.Printf("[INFO] Config file changed (%s): %s", e.Op, e.Name)
	if err := validate(); err != nil {
		log.Printf("[WARN] Reloaded configuration is invalid: %v", err)
	}
}

// reset clears the loaded state so tests can call Init again
func reset() {
	viper.Reset()
	once = sync.Once{}
	initErr = nil
}

// GetConfig returns the current configuration as a struct
// Init() must be called before using this
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// Get returns a config value by key using Viper directly
func Get(key string) any {
	return viper.Get(key)
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// validate validates the configuration using Viper values
func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %d", port)
	}

	switch backend := viper.GetString("database.backend"); backend {
	case "sqlite":
		if viper.GetString("database.path") == "" {
			return fmt.Errorf("database.path is required for the sqlite backend")
		}
	case "supabase":
		if err := requireSupabase("database"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown database backend: %q", backend)
	}

	switch backend := viper.GetString("storage.backend"); backend {
	case "filesystem":
	case "supabase":
		if err := requireSupabase("storage"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown storage backend: %q", backend)
	}

	// Auto-correct invalid rate limit values
	if viper.GetInt("rate_limiting.max_requests") <= 0 {
		viper.Set("rate_limiting.max_requests", 100)
	}
	if viper.GetDuration("rate_limiting.window") <= 0 {
		viper.Set("rate_limiting.window", 15*time.Minute)
	}

	floor := orphanAgeFloor(viper.GetDuration("recognition.timeout"))
	if maxAge := viper.GetDuration("cleanup.max_age"); maxAge < floor {
		log.Printf("[WARN] cleanup.max_age %v is below %v, using %v", maxAge, floor, floor)
		viper.Set("cleanup.max_age", floor)
	}
	if viper.GetDuration("cleanup.interval") <= 0 {
		viper.Set("cleanup.interval", time.Hour)
	}

	if viper.GetInt("client.retry_attempts") <= 0 {
		viper.Set("client.retry_attempts", 3)
	}
	if viper.GetInt("client.query_attempts") <= 0 {
		viper.Set("client.query_attempts", 3)
	}

	warnMissingCredentials()
	return nil
}

// orphanAgeFloor is the youngest blob the sweeper may consider. An upload is
// stored before its row is written, so anything younger than one recognition
// round trip may still be claimed.
func orphanAgeFloor(recognitionTimeout time.Duration) time.Duration {
	if recognitionTimeout <= 0 {
		return 2 * time.Minute
	}
	return recognitionTimeout
}

func requireSupabase(section string) error {
	if viper.GetString("supabase.url") == "" || viper.GetString("supabase.key") == "" {
		return fmt.Errorf("%s.backend is supabase but supabase.url or supabase.key is missing", section)
	}
	return nil
}

// warnMissingCredentials logs when the selected provider has nothing to
// authenticate with. Google may still find application default credentials.
func warnMissingCredentials() {
	switch viper.GetString("recognition.provider") {
	case "whisper", "openai":
		if viper.GetString("recognition.whisper.api_key") == "" {
			log.Println("[WARN] recognition.whisper.api_key is not set")
		}
	default:
		if viper.GetString("recognition.google.api_key") == "" &&
			viper.GetString("recognition.google.credentials_file") == "" &&
			viper.GetString("recognition.google.credentials_json") == "" {
			log.Println("[WARN] No Google API key or credentials configured, falling back to application default credentials")
		}
	}
}

// Validate validates a Config struct (for testing)
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Backend == "sqlite" && c.Database.Path == "" {
		return fmt.Errorf("database.path is required for the sqlite backend")
	}

	if c.RateLimiting.MaxRequests <= 0 {
		c.RateLimiting.MaxRequests = 100
	}

	if c.RateLimiting.Window <= 0 {
		c.RateLimiting.Window = 15 * time.Minute
	}

	if floor := orphanAgeFloor(c.Recognition.Timeout); c.Cleanup.MaxAge < floor {
		c.Cleanup.MaxAge = floor
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 3000)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 2*time.Minute)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_header_bytes", 1048576)

	// Database defaults
	viper.SetDefault("database.backend", "sqlite")
	viper.SetDefault("database.path", "./data/lectra.db")
	viper.SetDefault("database.table", "transcriptions")
	viper.SetDefault("database.max_connections", 10)
	viper.SetDefault("database.max_idle_connections", 5)
	viper.SetDefault("database.connection_max_lifetime", 30*time.Minute)
	viper.SetDefault("database.log_queries", false)

	// Supabase defaults
	viper.SetDefault("supabase.url", "")
	viper.SetDefault("supabase.key", "")
	viper.SetDefault("supabase.schema", "public")

	// Storage defaults
	viper.SetDefault("storage.backend", "filesystem")
	viper.SetDefault("storage.audio_dir", "./data/audio")
	viper.SetDefault("storage.public_base_url", "http://localhost:3000/audio")
	viper.SetDefault("storage.bucket", "audio-recordings")
	viper.SetDefault("storage.cache_control", "3600")

	// Recognition defaults
	viper.SetDefault("recognition.provider", "google")
	viper.SetDefault("recognition.long_running_threshold", 1048576)
	viper.SetDefault("recognition.timeout", 2*time.Minute)
	viper.SetDefault("recognition.google.api_key", "")
	viper.SetDefault("recognition.google.credentials_file", "")
	viper.SetDefault("recognition.google.credentials_json", "")
	viper.SetDefault("recognition.google.base_url", "https://speech.googleapis.com/v1")
	viper.SetDefault("recognition.google.sample_rate_hertz", 16000)
	viper.SetDefault("recognition.google.model", "default")
	viper.SetDefault("recognition.google.use_enhanced", true)
	viper.SetDefault("recognition.google.poll_interval", 2*time.Second)
	viper.SetDefault("recognition.whisper.api_key", "")
	viper.SetDefault("recognition.whisper.base_url", "")
	viper.SetDefault("recognition.whisper.model", "whisper-1")

	// Upload defaults
	viper.SetDefault("upload.multipart_slack", 64*1024)
	viper.SetDefault("upload.probe_duration", false)
	viper.SetDefault("upload.ffprobe_path", "ffprobe")
	viper.SetDefault("upload.probe_timeout", "10s")

	// Rate limiting defaults
	viper.SetDefault("rate_limiting.enabled", true)
	viper.SetDefault("rate_limiting.max_requests", 100)
	viper.SetDefault("rate_limiting.window", 15*time.Minute)

	// Security defaults
	viper.SetDefault("security.enable_cors", true)
	viper.SetDefault("security.cors_origins", []string{
		"http://localhost:8081",
		"http://localhost:19006",
		"exp://localhost:8081",
	})
	viper.SetDefault("security.cors_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors_headers", []string{"Content-Type", "Authorization"})
	viper.SetDefault("security.enable_recovery", true)

	// Cleanup defaults
	viper.SetDefault("cleanup.orphan_sweep_enabled", false)
	viper.SetDefault("cleanup.max_age", 24*time.Hour)
	viper.SetDefault("cleanup.interval", 1*time.Hour)

	// Client defaults
	viper.SetDefault("client.api_url", "http://localhost:3000/api")
	viper.SetDefault("client.timeout", 2*time.Minute)
	viper.SetDefault("client.retry_attempts", 3)
	viper.SetDefault("client.query_attempts", 3)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
}
