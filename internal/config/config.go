// Package config loads the bot configuration from environment variables.
// envconfig maps variables onto struct fields; a .env file, if present,
// is loaded into the environment first.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Database holds the PostgreSQL connection settings.
// It is a separate block so tools like cmd/seed can load it alone.
type Database struct {
	// Inside docker-compose the database host is the service name, not localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"trivia"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"island_trivia"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`
}

// Config holds every application setting.
type Config struct {
	Database

	// --- Telegram ---
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	// Members of this chat play as signed-in users; 0 signs in every private chat.
	CommunityChatID int64   `envconfig:"COMMUNITY_CHAT_ID" default:"0"`
	AdminIDsRaw     string  `envconfig:"ADMIN_IDS"`
	AdminIDs        []int64 `envconfig:"-"` // parsed from AdminIDsRaw

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"America/Barbados"`

	// --- Bot runtime ---
	// Max updates handled in parallel
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Long polling timeout (seconds)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Admin ---
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`

	// --- Trivia ---
	TriviaSessionSize     int           `envconfig:"TRIVIA_SESSION_SIZE" default:"5"`
	TriviaSessionTTL      time.Duration `envconfig:"TRIVIA_SESSION_TTL" default:"30m"`
	TriviaMinAnswerDelay  time.Duration `envconfig:"TRIVIA_MIN_ANSWER_DELAY" default:"2s"`
	TriviaRewardEasy      int64         `envconfig:"TRIVIA_REWARD_EASY" default:"5"`
	TriviaRewardMedium    int64         `envconfig:"TRIVIA_REWARD_MEDIUM" default:"10"`
	TriviaRewardHard      int64         `envconfig:"TRIVIA_REWARD_HARD" default:"21"`
	QuestionsFile         string        `envconfig:"QUESTIONS_FILE" default:"configs/questions.yaml"`

	// --- Achievements ---
	AchievementsFile       string `envconfig:"ACHIEVEMENTS_FILE" default:"configs/achievements.yaml"`
	AchievementsReloadCron string `envconfig:"ACHIEVEMENTS_RELOAD_CRON" default:"*/15 * * * *"`

	// --- Rate Limiting ---
	RateLimitRequests       int           `envconfig:"RATE_LIMIT_REQUESTS" default:"20"`
	RateLimitAnswerRequests int           `envconfig:"RATE_LIMIT_ANSWER_REQUESTS" default:"40"` // answer button taps
	RateLimitWindow         time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Feature Flags ---
	FeatureGuestsEnabled       bool `envconfig:"FEATURE_GUESTS_ENABLED" default:"true"`
	FeatureAchievementsEnabled bool `envconfig:"FEATURE_ACHIEVEMENTS_ENABLED" default:"true"`
}

// DatabaseDSN returns the PostgreSQL connection string.
func (d *Database) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.DBUser, d.DBPassword, d.DBHost, d.DBPort, d.DBName, d.DBSSLMode,
	)
}

// Validate rejects pool settings that pgxpool would refuse.
func (d *Database) Validate() error {
	if d.DBMaxConns <= 0 || d.DBMinConns < 0 || d.DBMinConns > d.DBMaxConns {
		return fmt.Errorf("invalid DB_MIN_CONNS/DB_MAX_CONNS")
	}
	return nil
}

func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT must be > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS must be > 0")
	}
	if c.TriviaSessionSize <= 0 {
		return fmt.Errorf("TRIVIA_SESSION_SIZE must be > 0")
	}
	if c.TriviaSessionTTL <= 0 {
		return fmt.Errorf("TRIVIA_SESSION_TTL must be > 0")
	}
	if c.TriviaMinAnswerDelay < 0 {
		return fmt.Errorf("TRIVIA_MIN_ANSWER_DELAY must be >= 0")
	}
	if c.TriviaRewardEasy <= 0 || c.TriviaRewardMedium <= 0 || c.TriviaRewardHard <= 0 {
		return fmt.Errorf("TRIVIA_REWARD_* must be > 0")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS/RATE_LIMIT_WINDOW must be > 0")
	}
	return nil
}

// IsAdmin reports whether userID is listed in ADMIN_IDS.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Load reads the environment (and .env, if any) into Config.
func Load() (*Config, error) {
	loadDotEnv()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	ids, err := parseInt64CSV(cfg.AdminIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_IDS parse: %w", err)
	}
	cfg.AdminIDs = ids

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDatabase reads only the database block.
func LoadDatabase() (*Database, error) {
	loadDotEnv()

	var db Database
	if err := envconfig.Process("", &db); err != nil {
		return nil, fmt.Errorf("failed to load database configuration: %w", err)
	}
	if err := db.Validate(); err != nil {
		return nil, err
	}
	return &db, nil
}

// loadDotEnv is best effort: a missing .env just means plain environment.
func loadDotEnv() {
	_ = godotenv.Load()
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
