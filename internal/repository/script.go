package repository

import (
	"context"
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sparshsam/wager-ai-assistant/internal/domain"
)

type ScriptRepository struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewScriptRepository(db *gorm.DB, logger zerolog.Logger) *ScriptRepository {
	return &ScriptRepository{db: db, logger: logger}
}

func (r *ScriptRepository) Create(ctx context.Context, script *domain.BettingScript) error {
	if script.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		script.ID = id
	}
	if err := r.db.WithContext(ctx).Create(script).Error; err != nil {
		return fmt.Errorf("failed to create script: %w", err)
	}
	return nil
}

func (r *ScriptRepository) Get(ctx context.Context, id string) (*domain.BettingScript, error) {
	var script domain.BettingScript
	err := r.db.WithContext(ctx).First(&script, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &script, nil
}

// GetByUserLeague looks up the single script a user keeps per league.
func (r *ScriptRepository) GetByUserLeague(ctx context.Context, userID, league string) (*domain.BettingScript, error) {
	var script domain.BettingScript
	err := r.db.WithContext(ctx).
		First(&script, "user_id = ? AND league = ?", userID, league).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &script, nil
}

func (r *ScriptRepository) ListByUser(ctx context.Context, userID string) ([]domain.BettingScript, error) {
	var scripts []domain.BettingScript
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&scripts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}
	return scripts, nil
}

func (r *ScriptRepository) Save(ctx context.Context, script *domain.BettingScript) error {
	// Save skips nil pointer columns, so clearing last_used needs an explicit
	// update alongside it.
	err := r.db.WithContext(ctx).Model(script).
		Select("*").
		Updates(script).Error
	if err != nil {
		return fmt.Errorf("failed to save script: %w", err)
	}
	return nil
}

func (r *ScriptRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&domain.BettingScript{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete script: %w", err)
	}
	return nil
}
