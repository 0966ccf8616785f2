package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tomreid/pictura"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Host          string
	Port          int
	Environment   string
	LogLevel      string
	MaxUploadSize int64

	// Database settings
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	// Storage settings
	StorageProvider  string
	StorageLocalPath string
	StorageLocalURL  string
	StorageS3Bucket  string
	StorageS3Region  string
	StorageS3BaseURL string

	// Style settings
	Styles       []pictura.StyleSpec
	DefaultStyle string

	// Variant settings
	AllowedMediaTypes []string
	MaxConcurrent     int
	ResultTTL         time.Duration

	// Queue settings
	QueueWorkerCount     int
	QueuePollInterval    time.Duration
	QueueJobTimeout      time.Duration
	QueueShutdownTimeout time.Duration
}

// LoadConfig loads configuration from environment variables.
func LoadConfig(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		// Server settings
		Host:          envString(getenv, "SERVER_HOST", "localhost"),
		Port:          envInt(getenv, "SERVER_PORT", 8080),
		Environment:   envString(getenv, "ENVIRONMENT", "dev"),
		LogLevel:      envString(getenv, "LOG_LEVEL", "info"),
		MaxUploadSize: int64(envInt(getenv, "UPLOAD_MAX_BYTES", 10*1024*1024)),

		// Database settings
		DBUser:     envString(getenv, "DB_USER", "postgres"),
		DBPassword: envString(getenv, "DB_PASSWORD", ""),
		DBHost:     envString(getenv, "DB_HOSTNAME", "localhost"),
		DBPort:     envString(getenv, "DB_PORT", "5432"),
		DBName:     envString(getenv, "DB_NAME", "postgres"),

		// Storage settings
		StorageProvider:  envString(getenv, "STORAGE_PROVIDER", "local"),
		StorageLocalPath: envString(getenv, "STORAGE_LOCAL_PATH", "./blobs"),
		StorageLocalURL:  envString(getenv, "STORAGE_LOCAL_URL", "http://localhost:8080/blobs"),
		StorageS3Bucket:  envString(getenv, "STORAGE_S3_BUCKET", ""),
		StorageS3Region:  envString(getenv, "STORAGE_S3_REGION", "us-east-1"),
		StorageS3BaseURL: envString(getenv, "STORAGE_S3_BASE_URL", ""),

		// Style settings
		DefaultStyle: envString(getenv, "DEFAULT_STYLE", "thumbnail"),

		// Variant settings
		AllowedMediaTypes: envList(getenv, "ALLOWED_MEDIA_TYPES", []string{"image/jpeg", "image/png", "image/gif"}),
		MaxConcurrent:     envInt(getenv, "VARIANT_MAX_CONCURRENT", 4),
		ResultTTL:         envDuration(getenv, "VARIANT_RESULT_TTL", 5*time.Minute),

		// Queue settings
		QueueWorkerCount:     envInt(getenv, "QUEUE_WORKER_COUNT", 3),
		QueuePollInterval:    envDuration(getenv, "QUEUE_POLL_INTERVAL", time.Second),
		QueueJobTimeout:      envDuration(getenv, "QUEUE_JOB_TIMEOUT", 60*time.Second),
		QueueShutdownTimeout: envDuration(getenv, "QUEUE_SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	styles, err := parseStyles(envString(getenv, "STYLES", "thumbnail=160x160,preview=680x680"))
	if err != nil {
		return nil, err
	}
	cfg.Styles = styles

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DatabaseURL returns the PostgreSQL connection string.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// validate checks configuration invariants that would otherwise surface as
// runtime failures deep in a request.
func (c *Config) validate() error {
	if len(c.Styles) == 0 {
		return fmt.Errorf("STYLES must define at least one style")
	}

	found := false
	for _, spec := range c.Styles {
		if spec.Name == c.DefaultStyle {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("DEFAULT_STYLE %q is not defined in STYLES", c.DefaultStyle)
	}

	if c.StorageProvider == "s3" && c.StorageS3Bucket == "" {
		return fmt.Errorf("STORAGE_S3_BUCKET must be set when STORAGE_PROVIDER is s3")
	}

	return nil
}

// parseStyles parses a style list of the form
// "name=WxH,name=WxH:mode" where mode is bounding_box, exact, or crop.
// Mode defaults to bounding_box when omitted.
func parseStyles(value string) ([]pictura.StyleSpec, error) {
	var specs []pictura.StyleSpec

	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		name, size, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid style %q: expected name=WxH", entry)
		}

		mode := pictura.ModeBoundingBox
		if size2, modeStr, ok := strings.Cut(size, ":"); ok {
			size = size2
			mode = pictura.ResizeMode(modeStr)
		}

		widthStr, heightStr, ok := strings.Cut(size, "x")
		if !ok {
			return nil, fmt.Errorf("invalid style %q: expected name=WxH", entry)
		}

		width, err := strconv.Atoi(widthStr)
		if err != nil {
			return nil, fmt.Errorf("invalid width in style %q: %w", entry, err)
		}
		height, err := strconv.Atoi(heightStr)
		if err != nil {
			return nil, fmt.Errorf("invalid height in style %q: %w", entry, err)
		}

		spec := pictura.StyleSpec{
			Name:   strings.TrimSpace(name),
			Width:  width,
			Height: height,
			Mode:   mode,
		}
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("invalid style %q: %w", entry, err)
		}
		specs = append(specs, spec)
	}

	return specs, nil
}

// Helper functions for loading environment variables with defaults.

func envString(getenv func(string) string, key, defaultValue string) string {
	if value := getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(getenv func(string) string, key string, defaultValue int) int {
	if value := getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func envDuration(getenv func(string) string, key string, defaultValue time.Duration) time.Duration {
	if value := getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func envList(getenv func(string) string, key string, defaultValue []string) []string {
	value := getenv(key)
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	if len(list) == 0 {
		return defaultValue
	}
	return list
}
