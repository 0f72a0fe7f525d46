package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External APIs
	OddsFeed  OddsFeedConfig
	StatsFeed StatsFeedConfig
	InjuryWeb InjuryWebConfig
	Research  ResearchConfig

	// Notifications
	Telegram TelegramConfig

	// Pipeline
	Pipeline PipelineConfig

	// Scheduler
	Scheduler SchedulerConfig

	// Realtime line watcher
	Realtime RealtimeConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// OddsFeedConfig holds the odds API configuration.
// Region filters which sportsbooks the feed returns ("us", "eu", ...).
// RateLimit is the per-minute request budget for the feed client.
type OddsFeedConfig struct {
	APIKey    string
	BaseURL   string
	Region    string
	CacheTTL  time.Duration
	RateLimit int
	MaxStale  time.Duration
}

// StatsFeedConfig holds the team stats API configuration
type StatsFeedConfig struct {
	APIKey   string
	BaseURL  string
	CacheTTL time.Duration
}

// InjuryWebConfig holds the injury report page scraper configuration
type InjuryWebConfig struct {
	BaseURL  string
	CacheTTL time.Duration
}

// ResearchConfig holds the LLM research ensemble configuration
type ResearchConfig struct {
	OpenAIKey      string
	OpenAIModel    string
	AnthropicKey   string
	AnthropicModel string
	BaseTimeout    time.Duration
	CacheTTL       time.Duration
}

// TelegramConfig holds pick alert configuration
type TelegramConfig struct {
	Enabled  bool
	BotToken string
	ChatID   int64
}

// PipelineConfig holds run pipeline configuration
type PipelineConfig struct {
	SportKey      string // league the engine trades, e.g. "basketball_nba"
	ProfileDir    string
	ActiveProfile string
	StageTimeout  time.Duration
	Workers       int
	GitCommit     string
}

// SchedulerConfig holds cron trigger configuration
type SchedulerConfig struct {
	Enabled       bool
	SlateCron     string // daily slate scan
	LineCacheCron string // live line cache refresh
}

// RealtimeConfig holds the live line watcher configuration
type RealtimeConfig struct {
	Enabled   bool
	StreamURL string
	PollEvery time.Duration
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8091"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "delphi_v2"),
			User:            getEnv("DB_USER", "delphi_v2"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		// External APIs
		OddsFeed: OddsFeedConfig{
			APIKey:    getEnv("ODDS_API_KEY", ""),
			BaseURL:   getEnv("ODDS_API_BASE_URL", "https://api.the-odds-api.com/v4"),
			Region:    getEnv("ODDS_API_REGION", "us"),
			CacheTTL:  getEnvAsDuration("ODDS_CACHE_TTL", "60s"),
			RateLimit: getEnvAsInt("ODDS_RATE_LIMIT_PER_MIN", 30),
			MaxStale:  getEnvAsDuration("ODDS_MAX_STALE", "10m"),
		},

		StatsFeed: StatsFeedConfig{
			APIKey:   getEnv("STATS_API_KEY", ""),
			BaseURL:  getEnv("STATS_API_BASE_URL", "https://api.natstat.app/v1"),
			CacheTTL: getEnvAsDuration("STATS_CACHE_TTL", "15m"),
		},

		InjuryWeb: InjuryWebConfig{
			BaseURL:  getEnv("INJURY_BASE_URL", "https://www.cbssports.com/nba/injuries"),
			CacheTTL: getEnvAsDuration("INJURY_CACHE_TTL", "30m"),
		},

		Research: ResearchConfig{
			OpenAIKey:      getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			AnthropicKey:   getEnv("ANTHROPIC_API_KEY", ""),
			AnthropicModel: getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
			BaseTimeout:    getEnvAsDuration("RESEARCH_TIMEOUT", "20s"),
			CacheTTL:       getEnvAsDuration("RESEARCH_CACHE_TTL", "1h"),
		},

		// Notifications
		Telegram: TelegramConfig{
			Enabled:  getEnvAsBool("TELEGRAM_ENABLED", false),
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnvAsInt64("TELEGRAM_CHAT_ID", 0),
		},

		// Pipeline
		Pipeline: PipelineConfig{
			SportKey:      getEnv("SPORT_KEY", "basketball_nba"),
			ProfileDir:    getEnv("PROFILE_DIR", "config/profiles"),
			ActiveProfile: getEnv("ACTIVE_PROFILE", "delphi_nba_v2"),
			StageTimeout:  getEnvAsDuration("STAGE_TIMEOUT", "45s"),
			Workers:       getEnvAsInt("PIPELINE_WORKERS", 4),
			GitCommit:     getEnv("GIT_COMMIT", "dev"),
		},

		// Scheduler
		Scheduler: SchedulerConfig{
			Enabled:       getEnvAsBool("SCHEDULER_ENABLED", true),
			SlateCron:     getEnv("SLATE_CRON", "0 0 10 * * *"),
			LineCacheCron: getEnv("LINE_CACHE_CRON", "0 */5 * * * *"),
		},

		// Realtime
		Realtime: RealtimeConfig{
			Enabled:   getEnvAsBool("REALTIME_ENABLED", false),
			StreamURL: getEnv("REALTIME_STREAM_URL", ""),
			PollEvery: getEnvAsDuration("REALTIME_POLL_EVERY", "30s"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Database URL is required
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("PIPELINE_WORKERS must be >= 1")
	}
	if c.Pipeline.StageTimeout <= 0 {
		return fmt.Errorf("STAGE_TIMEOUT must be positive")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN is required when TELEGRAM_ENABLED=true")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_ENABLED=true")
		}
	}

	if c.Realtime.Enabled && c.Realtime.StreamURL == "" {
		return fmt.Errorf("REALTIME_STREAM_URL is required when REALTIME_ENABLED=true")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",         // Current directory
		"backend/.env", // From project root
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
