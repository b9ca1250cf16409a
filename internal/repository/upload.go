package repository

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sparshsam/wager-ai-assistant/internal/domain"
)

type UploadRepository struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewUploadRepository(db *gorm.DB, logger zerolog.Logger) *UploadRepository {
	return &UploadRepository{db: db, logger: logger}
}

// Create inserts the upload as the active row for its (user, sport, league)
// scope, deactivating any previous active rows in the same transaction.
func (r *UploadRepository) Create(ctx context.Context, upload *domain.UploadedData) error {
	if upload.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		upload.ID = id
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&domain.UploadedData{}).
			Where("user_id = ? AND sport = ? AND league = ? AND is_active = ?",
				upload.UserID, upload.Sport, upload.League, true).
			Updates(map[string]any{"is_active": false, "updated_at": time.Now()}).Error
		if err != nil {
			return fmt.Errorf("failed to deactivate previous uploads: %w", err)
		}

		if err := tx.Create(upload).Error; err != nil {
			return fmt.Errorf("failed to create upload: %w", err)
		}
		return nil
	})
}

// ListActive returns the user's active uploads, optionally filtered by sport
// and league, newest first.
func (r *UploadRepository) ListActive(ctx context.Context, userID, sport, league string) ([]domain.UploadedData, error) {
	q := r.db.WithContext(ctx).Where("user_id = ? AND is_active = ?", userID, true)
	if sport != "" {
		q = q.Where("sport = ?", sport)
	}
	if league != "" {
		q = q.Where("league = ?", league)
	}

	var uploads []domain.UploadedData
	if err := q.Order("upload_date DESC").Find(&uploads).Error; err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	return uploads, nil
}
