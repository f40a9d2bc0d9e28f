package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DataDir                 string
	ListenAddress           string
	ServerPort              string
	// BaseURL prefixes the links in aria2 lists. When empty they are built
	// from the request Host and X-Forwarded-Proto, which any client can set.
	BaseURL                 string
	ServerReadHeaderTimeout time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration
	TransferMaxDuration     time.Duration
	TransferIdleTimeout     time.Duration
	CORSOrigins             []string
	RateLimitRPM            int
	LogLevel                string
	LogFormat               string
	MetricsEnabled          bool
	ArchiveChunkSize        int
	ThumbnailMaxPixels      int
}

// Overrides carries command-line values. Empty fields leave the environment
// value in place.
type Overrides struct {
	DataDir       string
	ListenAddress string
	Port          string
	BaseURL       string
	LogLevel      string
	LogFormat     string
}

func Load(overrides Overrides) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:                 getEnv("DATA_DIR", "./data"),
		ListenAddress:           getEnv("LISTEN_ADDRESS", "0.0.0.0"),
		ServerPort:              getEnv("SERVER_PORT", "3779"),
		BaseURL:                 getEnv("BASE_URL", ""),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		TransferMaxDuration:     getDuration("TRANSFER_MAX_DURATION", 24*time.Hour),
		TransferIdleTimeout:     getDuration("TRANSFER_IDLE_TIMEOUT", 2*time.Minute),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 600),
		LogLevel:                strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:               strings.ToLower(getEnv("LOG_FORMAT", "pretty")),
		MetricsEnabled:          getBool("METRICS_ENABLED", true),
		ArchiveChunkSize:        getInt("ARCHIVE_CHUNK_SIZE", 32*1024),
		ThumbnailMaxPixels:      getInt("THUMBNAIL_MAX_PIXELS", 40_000_000),
	}

	cfg.apply(overrides)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) apply(o Overrides) {
	setIfPresent(&c.DataDir, o.DataDir)
	setIfPresent(&c.ListenAddress, o.ListenAddress)
	setIfPresent(&c.ServerPort, o.Port)
	setIfPresent(&c.BaseURL, o.BaseURL)
	setIfPresent(&c.LogLevel, strings.ToLower(o.LogLevel))
	setIfPresent(&c.LogFormat, strings.ToLower(o.LogFormat))
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DATA_DIR cannot be empty")
	}

	port, err := strconv.Atoi(c.ServerPort)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("SERVER_PORT must be a port number, got %q", c.ServerPort)
	}

	if c.BaseURL != "" && !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("BASE_URL must start with http:// or https://")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.TransferMaxDuration <= 0 || c.TransferIdleTimeout <= 0 {
		return fmt.Errorf("TRANSFER_MAX_DURATION and TRANSFER_IDLE_TIMEOUT must be positive")
	}

	if c.ArchiveChunkSize < 512 || c.ArchiveChunkSize > 16<<20 {
		return fmt.Errorf("ARCHIVE_CHUNK_SIZE must be between 512 and 16777216")
	}

	if c.ThumbnailMaxPixels <= 0 {
		return fmt.Errorf("THUMBNAIL_MAX_PIXELS must be positive")
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}

	if c.LogFormat != "pretty" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be pretty or json, got %q", c.LogFormat)
	}

	return nil
}

// Addr is the listen address for http.Server.
func (c *Config) Addr() string {
	return c.ListenAddress + ":" + c.ServerPort
}

func ParseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", raw)
	}
}

func setIfPresent(target *string, value string) {
	if strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
