package repository

import (
	"context"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sparshsam/wager-ai-assistant/internal/domain"
)

// BankrollRepository appends to and reads the bankroll audit log. Rows are
// never updated or deleted.
type BankrollRepository struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewBankrollRepository(db *gorm.DB, logger zerolog.Logger) *BankrollRepository {
	return &BankrollRepository{db: db, logger: logger}
}

func (r *BankrollRepository) Append(ctx context.Context, entry *domain.BankrollHistory) error {
	if entry.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		entry.ID = id
	}

	r.logger.Debug().
		Str("user_id", entry.UserID).
		Str("change_type", entry.ChangeType).
		Float64("amount", entry.Amount).
		Float64("change", entry.Change).
		Msg("appending bankroll history")

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append bankroll history: %w", err)
	}
	return nil
}

func (r *BankrollRepository) ListByUser(ctx context.Context, userID string) ([]domain.BankrollHistory, error) {
	var entries []domain.BankrollHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list bankroll history: %w", err)
	}
	return entries, nil
}
