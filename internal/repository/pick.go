package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sparshsam/wager-ai-assistant/internal/domain"
)

// PickFilter narrows a pick listing. All fields are optional and combined
// with AND; the date bounds are inclusive.
type PickFilter struct {
	Sport    string
	League   string
	BetType  string
	Result   string
	DateFrom *time.Time
	DateTo   *time.Time
}

type PickRepository struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewPickRepository(db *gorm.DB, logger zerolog.Logger) *PickRepository {
	return &PickRepository{db: db, logger: logger}
}

func (r *PickRepository) Create(ctx context.Context, pick *domain.Pick) error {
	if pick.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		pick.ID = id
	}
	if err := r.db.WithContext(ctx).Create(pick).Error; err != nil {
		return fmt.Errorf("failed to create pick: %w", err)
	}
	return nil
}

func (r *PickRepository) Get(ctx context.Context, id string) (*domain.Pick, error) {
	var pick domain.Pick
	err := r.db.WithContext(ctx).First(&pick, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pick, nil
}

func (r *PickRepository) List(ctx context.Context, userID string, filter PickFilter) ([]domain.Pick, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)

	if filter.Sport != "" {
		q = q.Where("sport = ?", filter.Sport)
	}
	if filter.League != "" {
		q = q.Where("league = ?", filter.League)
	}
	if filter.BetType != "" {
		q = q.Where("bet_type = ?", filter.BetType)
	}
	if filter.Result != "" {
		q = q.Where("result = ?", filter.Result)
	}
	if filter.DateFrom != nil {
		q = q.Where("date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		q = q.Where("date <= ?", *filter.DateTo)
	}

	var picks []domain.Pick
	if err := q.Order("date DESC").Find(&picks).Error; err != nil {
		return nil, fmt.Errorf("failed to list picks: %w", err)
	}
	return picks, nil
}

func (r *PickRepository) Save(ctx context.Context, pick *domain.Pick) error {
	if err := r.db.WithContext(ctx).Save(pick).Error; err != nil {
		return fmt.Errorf("failed to save pick: %w", err)
	}
	return nil
}

func (r *PickRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&domain.Pick{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete pick: %w", err)
	}
	return nil
}
