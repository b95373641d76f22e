package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorageBackendSupabase = "supabase"
	StorageBackendS3       = "s3"
)

type Config struct {
	// Supabase
	SupabaseURL            string
	SupabasePublishableKey string
	SupabaseJWTSecret      string
	SupabaseStorageBucket  string

	// Object storage
	StorageBackend string
	StoragePrefix  string
	S3Bucket       string
	S3Region       string
	S3EndpointURL  string
	S3AccessKey    string
	S3SecretKey    string
	S3PublicURL    string

	// Remote job proxy
	ProxyBaseURL    string
	PollMaxAttempts int
	PollInterval    time.Duration
	RequestTimeout  time.Duration

	// Workers
	MaxConcurrentJobs int
	SessionIdleTTL    time.Duration
	LocalImageDir     string
	RealtimeEvents    bool

	// Database
	DatabaseURL string

	// Server
	Port        string
	BaseURL     string
	CORSOrigins []string
	Environment string
	LogLevel    string
}

// Load reads .env (when present) and the process environment. Values set by
// flags on v take precedence when the caller passes its own viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.New())
}

func LoadFrom(v *viper.Viper) (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	v.AutomaticEnv()
	SetDefaults(v)

	cfg := &Config{
		SupabaseURL:            v.GetString("SUPABASE_URL"),
		SupabasePublishableKey: v.GetString("SUPABASE_PUBLISHABLE_KEY"),
		SupabaseJWTSecret:      v.GetString("SUPABASE_JWT_SECRET"),
		SupabaseStorageBucket:  v.GetString("SUPABASE_STORAGE_BUCKET"),

		StorageBackend: strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_BACKEND"))),
		StoragePrefix:  strings.Trim(v.GetString("STORAGE_PREFIX"), "/"),
		S3Bucket:       v.GetString("S3_BUCKET"),
		S3Region:       v.GetString("S3_REGION"),
		S3EndpointURL:  v.GetString("S3_ENDPOINT_URL"),
		S3AccessKey:    v.GetString("S3_ACCESS_KEY"),
		S3SecretKey:    v.GetString("S3_SECRET_KEY"),
		S3PublicURL:    v.GetString("S3_PUBLIC_URL"),

		ProxyBaseURL:    strings.TrimRight(v.GetString("PROXY_BASE_URL"), "/"),
		PollMaxAttempts: v.GetInt("POLL_MAX_ATTEMPTS"),
		PollInterval:    v.GetDuration("POLL_INTERVAL"),
		RequestTimeout:  v.GetDuration("REQUEST_TIMEOUT"),

		MaxConcurrentJobs: v.GetInt("MAX_CONCURRENT_JOBS"),
		SessionIdleTTL:    v.GetDuration("SESSION_IDLE_TTL"),
		LocalImageDir:     v.GetString("LOCAL_IMAGE_DIR"),
		RealtimeEvents:    v.GetBool("REALTIME_EVENTS"),

		DatabaseURL: v.GetString("DATABASE_URL"),

		Port:        v.GetString("PORT"),
		BaseURL:     strings.TrimRight(v.GetString("BASE_URL"), "/"),
		CORSOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		Environment: v.GetString("ENVIRONMENT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("SUPABASE_STORAGE_BUCKET", "generations")
	v.SetDefault("STORAGE_BACKEND", StorageBackendSupabase)
	v.SetDefault("STORAGE_PREFIX", "uploads")
	v.SetDefault("S3_REGION", "auto")
	v.SetDefault("POLL_MAX_ATTEMPTS", 60)
	v.SetDefault("POLL_INTERVAL", 3*time.Second)
	v.SetDefault("REQUEST_TIMEOUT", 30*time.Second)
	v.SetDefault("MAX_CONCURRENT_JOBS", 4)
	v.SetDefault("SESSION_IDLE_TTL", 24*time.Hour)
	v.SetDefault("LOCAL_IMAGE_DIR", filepath.Join(os.TempDir(), "photo-studio"))
	v.SetDefault("REALTIME_EVENTS", true)
	v.SetDefault("PORT", "8080")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
}

// Validate checks what every entry point needs: a usable storage backend and
// a sane poll policy.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageBackendSupabase:
		if c.SupabaseURL == "" {
			return fmt.Errorf("SUPABASE_URL is required")
		}
		if c.SupabasePublishableKey == "" {
			return fmt.Errorf("SUPABASE_PUBLISHABLE_KEY is required")
		}
	case StorageBackendS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required")
		}
		if c.S3AccessKey == "" || c.S3SecretKey == "" {
			return fmt.Errorf("S3_ACCESS_KEY and S3_SECRET_KEY are required")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", StorageBackendSupabase, StorageBackendS3, c.StorageBackend)
	}
	if c.PollMaxAttempts <= 0 {
		return fmt.Errorf("POLL_MAX_ATTEMPTS must be positive")
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("POLL_INTERVAL must not be negative")
	}
	if c.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_JOBS must be positive")
	}
	if c.SessionIdleTTL < 0 {
		return fmt.Errorf("SESSION_IDLE_TTL must not be negative")
	}
	return nil
}

// ValidateServer adds the checks only the HTTP service needs.
func (c *Config) ValidateServer() error {
	if c.SupabaseJWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required")
	}
	if c.RealtimeEvents && (c.SupabaseURL == "" || c.SupabasePublishableKey == "") {
		return fmt.Errorf("REALTIME_EVENTS needs SUPABASE_URL and SUPABASE_PUBLISHABLE_KEY")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
