package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	StorageBackend string
	SQLitePath     string
	CSVOutputPath  string

	FetchLimit     int
	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int
	RetryBaseDelay time.Duration
	CacheTTL       time.Duration
	CacheSize      int

	ChartPeriod  string
	ChartMetrics string
	ChartAgg     string

	WatchlistPath  string
	ArchiveDir     string
	ProfileBaseURL string
	ScrollPause    time.Duration
	PageTimeout    time.Duration
	ChromeBin      string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "dashboard"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "dashboard123"),
		PostgresDB:       getEnv("POSTGRES_DB", "engagement_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", "none")),
		SQLitePath:     getEnv("SQLITE_PATH", "./output/engagement.db"),
		CSVOutputPath:  getEnv("CSV_OUTPUT_PATH", ""),

		FetchLimit:     getEnvInt("FETCH_LIMIT", 1000),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 1),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 0),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		RetryBaseDelay: time.Duration(getEnvInt("RETRY_BASE_DELAY_MS", 2000)) * time.Millisecond,
		CacheTTL:       time.Duration(getEnvInt("CACHE_TTL_SECONDS", 900)) * time.Second,
		CacheSize:      getEnvInt("CACHE_SIZE", 64),

		ChartPeriod:  getEnv("CHART_PERIOD", "date"),
		ChartMetrics: getEnv("CHART_METRICS", ""),
		ChartAgg:     getEnv("CHART_AGGREGATION", "sum"),

		WatchlistPath:  getEnv("WATCHLIST_PATH", ""),
		ArchiveDir:     getEnv("ARCHIVE_DIR", ""),
		ProfileBaseURL: strings.TrimRight(getEnv("PROFILE_BASE_URL", "https://x.com"), "/"),
		ScrollPause:    time.Duration(getEnvInt("SCROLL_PAUSE_MS", 1500)) * time.Millisecond,
		PageTimeout:    time.Duration(getEnvInt("PAGE_TIMEOUT_SECONDS", 300)) * time.Second,
		ChromeBin:      getEnv("CHROME_BIN", ""),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
