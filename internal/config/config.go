// Package config reads service settings from the environment. A .env file in the
// working directory is loaded first by godotenv/autoload in cmd/server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/DOYOUNG-0314/kissingyou/internal/game"
	"github.com/sirupsen/logrus"
)

// Config is everything the server needs at startup.
type Config struct {
	Port          string
	PublicBaseURL string
	LogLevel      logrus.Level

	Rules             game.Rules
	OracleSuccessRate float64
	OracleLatency     time.Duration

	RedisAddr  string // empty disables the action stream
	RedisDB    int
	EventQueue string

	// Postgres; PGHost empty means guests only, no user directory.
	PGUser     string
	PGPassword string
	PGHost     string
	PGPort     string
	PGDatabase string

	TokenExpire time.Duration // 0 => tokens never expire
	// Raw ed25519 key files; when unset a fresh pair is generated at boot.
	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
}

// Load reads the environment, falling back to defaults for anything unset.
func Load() (Config, error) {
	defaults := game.DefaultRules()
	cfg := Config{
		Port:          getEnv("PORT", "8080"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		Rules: game.Rules{
			TotalRounds:         getEnvInt("TOTAL_ROUNDS", defaults.TotalRounds),
			CountdownSeconds:    getEnvInt("COUNTDOWN_SECONDS", defaults.CountdownSeconds),
			RecordingSeconds:    getEnvInt("RECORDING_SECONDS", defaults.RecordingSeconds),
			JudgingDelaySeconds: getEnvInt("JUDGING_DELAY_SECONDS", defaults.JudgingDelaySeconds),
			JudgeTimeoutSeconds: getEnvInt("JUDGE_TIMEOUT_SECONDS", defaults.JudgeTimeoutSeconds),
		},
		OracleSuccessRate: getEnvFloat("ORACLE_SUCCESS_RATE", 0.7),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		EventQueue:        getEnv("EVENT_QUEUE_NAME", "kissingyou_session_actions"),
		PGUser:            getEnv("POSTGRES_USER", "postgres"),
		PGPassword:        getEnv("POSTGRES_PASSWORD", ""),
		PGHost:            getEnv("PG_HOST", ""),
		PGPort:            getEnv("PG_PORT", "5432"),
		PGDatabase:        getEnv("PG_DATABASE", "kissingyou"),
		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY", ""),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY", ""),
	}

	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level
	if (cfg.JWTPrivateKeyPath == "") != (cfg.JWTPublicKeyPath == "") {
		return Config{}, fmt.Errorf("JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set together")
	}

	if err := cfg.Rules.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid session rules: %w", err)
	}
	if cfg.OracleSuccessRate < 0 || cfg.OracleSuccessRate > 1 {
		return Config{}, fmt.Errorf("ORACLE_SUCCESS_RATE must be within [0,1], got %v", cfg.OracleSuccessRate)
	}

	latency, err := getEnvDuration("ORACLE_LATENCY", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.OracleLatency = latency

	if expire := os.Getenv("TOKEN_EXPIRE_TIME"); expire != "" && expire != "never" && expire != "0" {
		d, err := time.ParseDuration(expire)
		if err != nil {
			return Config{}, fmt.Errorf("failed to parse TOKEN_EXPIRE_TIME: %w", err)
		}
		cfg.TokenExpire = d
	}
	return cfg, nil
}

// PostgresURL builds the pgx connection string, or "" when no host is configured.
func (c Config) PostgresURL() string {
	if c.PGHost == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

// getEnvInt retrieves an integer value from an environment variable or returns a default value.
func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}

func getEnvFloat(key string, defVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defVal
	}
	return f
}

func getEnvDuration(key string, defVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return d, nil
}
