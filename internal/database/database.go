package database

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sparshsam/wager-ai-assistant/internal/config"
	"github.com/sparshsam/wager-ai-assistant/internal/constants"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// New opens the SQLite database, tunes it, applies migrations and returns
// both the raw connection pool and a gorm handle over the same pool.
func New(cfg *config.Config, logger zerolog.Logger) (*sql.DB, *gorm.DB, error) {
	logger.Info().Str("path", cfg.DBPath).Msg("connecting to database")

	sqlDB, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB.SetMaxOpenConns(constants.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(constants.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(constants.DBConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(constants.DBMaxIdleTime)

	if err := optimizeSQLite(sqlDB, logger); err != nil {
		logger.Error().Err(err).Msg("failed to optimize SQLite")
		return nil, nil, fmt.Errorf("failed to optimize SQLite: %w", err)
	}
	if err := runMigrations(sqlDB, logger); err != nil {
		logger.Error().Err(err).Msg("failed to run migrations")
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	gormDB, err := gorm.Open(sqlite.Dialector{Conn: sqlDB}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to open gorm handle")
		return nil, nil, fmt.Errorf("failed to open gorm handle: %w", err)
	}

	logger.Info().Msg("database connection established and optimized")
	return sqlDB, gormDB, nil
}

func runMigrations(db *sql.DB, logger zerolog.Logger) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run goose migrations: %w", err)
	}

	logger.Info().Msg("migrations completed successfully")
	return nil
}

func optimizeSQLite(sqlDB *sql.DB, logger zerolog.Logger) error {
	pragmas := []struct {
		name  string
		value string
	}{
		{"journal_mode", "WAL"},
		{"synchronous", "NORMAL"},
		{"cache_size", "-64000"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "ON"},
		{"temp_store", "MEMORY"},
	}

	for _, pragma := range pragmas {
		query := fmt.Sprintf("PRAGMA %s = %s", pragma.name, pragma.value)
		if _, err := sqlDB.Exec(query); err != nil {
			logger.Warn().
				Err(err).
				Str("pragma", pragma.name).
				Str("value", pragma.value).
				Msg("failed to set pragma")
			return fmt.Errorf("failed to set PRAGMA %s: %w", pragma.name, err)
		}
	}

	return nil
}
