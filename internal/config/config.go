package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/sparshsam/wager-ai-assistant/internal/constants"
)

type Config struct {
	AbacusAPIKey  string
	AbacusBaseURL string
	Model         string
	DBPath        string
	ServerPort    string
	LogLevel      string
	SessionSecret string
	SessionTTL    time.Duration
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		AbacusAPIKey:  getEnv("ABACUSAI_API_KEY", ""),
		AbacusBaseURL: getEnv("ABACUSAI_BASE_URL", "https://apps.abacus.ai/v1/chat/completions"),
		Model:         getEnv("AI_MODEL", "gpt-4o-mini"),
		DBPath:        getEnv("DB_PATH", "wager.db"),
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		SessionSecret: getEnv("SESSION_SECRET", ""),
		SessionTTL:    constants.DefaultSessionTTL,
	}

	if cfg.AbacusAPIKey == "" {
		return nil, fmt.Errorf("ABACUSAI_API_KEY is required")
	}
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	logger.Info().
		Str("base_url", cfg.AbacusBaseURL).
		Str("model", cfg.Model).
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Dur("session_ttl", cfg.SessionTTL).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
