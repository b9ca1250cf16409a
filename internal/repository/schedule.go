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

type ScheduleRepository struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewScheduleRepository(db *gorm.DB, logger zerolog.Logger) *ScheduleRepository {
	return &ScheduleRepository{db: db, logger: logger}
}

func (r *ScheduleRepository) Create(ctx context.Context, schedule *domain.LeagueSchedule) error {
	if schedule.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		schedule.ID = id
	}
	if err := r.db.WithContext(ctx).Create(schedule).Error; err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) Get(ctx context.Context, id string) (*domain.LeagueSchedule, error) {
	var schedule domain.LeagueSchedule
	err := r.db.WithContext(ctx).First(&schedule, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *ScheduleRepository) ListByUser(ctx context.Context, userID string) ([]domain.LeagueSchedule, error) {
	var schedules []domain.LeagueSchedule
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC").
		Find(&schedules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return schedules, nil
}

// ListBetween returns the user's matches with date in [from, to), ordered by
// kickoff time.
func (r *ScheduleRepository) ListBetween(ctx context.Context, userID string, from, to time.Time) ([]domain.LeagueSchedule, error) {
	var schedules []domain.LeagueSchedule
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date < ?", userID, from, to).
		Order("time ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules in range: %w", err)
	}
	return schedules, nil
}

func (r *ScheduleRepository) Save(ctx context.Context, schedule *domain.LeagueSchedule) error {
	if err := r.db.WithContext(ctx).Save(schedule).Error; err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&domain.LeagueSchedule{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	return nil
}
