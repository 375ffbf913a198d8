package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const devJWTSecret = "versa-dev-secret"

// Config represents the companion service configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	LogLevel         string
	Port             string
	DatabaseURL      string
	DBMaxConns       int
	RedisURL         string
	JWTSecret        string
	VIPKeys          []string
	VIPTokenTTL      time.Duration
	StorageDir       string
	StorageBaseURL   string
	GeoIPDBPath      string
	CatalogPath      string
	DefaultLocale    string
	CORSOrigins      []string
	MaxImageBytes    int
	MaxImagePixels   int
	Workers          int
	TaskTimeout      time.Duration
	CacheTTL         time.Duration
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		Port:             port,
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DBMaxConns:       getEnvInt("DB_MAX_CONNS", 0),
		RedisURL:         os.Getenv("REDIS_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		VIPKeys:          getEnvList("VIP_KEYS"),
		VIPTokenTTL:      getEnvDuration("VIP_TOKEN_TTL", 12*time.Hour),
		StorageDir:       getEnv("STORAGE_DIR", "./data/storage"),
		StorageBaseURL:   getEnv("STORAGE_BASE_URL", "http://localhost:"+port+"/static"),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		CatalogPath:      os.Getenv("CATALOG_PATH"),
		DefaultLocale:    getEnv("DEFAULT_LOCALE", "en"),
		CORSOrigins:      getEnvList("CORS_ORIGINS"),
		MaxImageBytes:    getEnvInt("MAX_IMAGE_BYTES", 10<<20),
		MaxImagePixels:   getEnvInt("MAX_IMAGE_PIXELS", 4096*4096),
		Workers:          getEnvInt("WORKERS", 2),
		TaskTimeout:      getEnvDuration("TASK_TIMEOUT", 30*time.Second),
		CacheTTL:         getEnvDuration("CACHE_TTL", 30*time.Minute),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.JWTSecret == "" {
		if cfg.AppEnv != "development" {
			return nil, fmt.Errorf("JWT_SECRET is required")
		}
		cfg.JWTSecret = devJWTSecret
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("WORKERS must be positive, got %d", cfg.Workers)
	}

	return cfg, nil
}

// ClientConfig configures the versa command line client.
type ClientConfig struct {
	APIURL         string
	RequestTimeout time.Duration
	PrefsPath      string
	LogLevel       string
}

// LoadClientConfig reads the client settings. The preferences path defaults
// to the user config directory.
func LoadClientConfig() (*ClientConfig, error) {
	cfg := &ClientConfig{
		APIURL:         getEnv("VERSA_API_URL", "http://localhost:8080"),
		RequestTimeout: getEnvDuration("VERSA_REQUEST_TIMEOUT", 2*time.Minute),
		PrefsPath:      os.Getenv("VERSA_PREFS_PATH"),
		LogLevel:       getEnv("VERSA_LOG_LEVEL", "warn"),
	}
	if cfg.PrefsPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		cfg.PrefsPath = filepath.Join(dir, "versa", "prefs.json")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
