package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sparshsam/wager-ai-assistant/internal/config"
	"github.com/sparshsam/wager-ai-assistant/internal/database"
	"github.com/sparshsam/wager-ai-assistant/internal/domain"
	"github.com/sparshsam/wager-ai-assistant/internal/repository"
)

var testDBCounter atomic.Int64

// newTestDB opens a fresh in-memory database with the production migration
// path. The shared cache keeps every pooled connection on the same database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := &config.Config{
		DBPath: fmt.Sprintf("file:svc_test_%d?mode=memory&cache=shared", testDBCounter.Add(1)),
	}
	sqlDB, gormDB, err := database.New(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return gormDB
}

func seedUser(t *testing.T, db *gorm.DB, email string) (*domain.User, domain.Principal) {
	t.Helper()

	users := repository.NewUserRepository(db, zerolog.Nop())
	user := &domain.User{
		Email:           email,
		PasswordHash:    "test-hash",
		Name:            "Test User",
		CurrentBankroll: 1000,
	}
	require.NoError(t, users.Create(context.Background(), user))

	return user, domain.Principal{UserID: user.ID, Email: user.Email}
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }
