package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/sparshsam/wager-ai-assistant/internal/domain"
	"github.com/sparshsam/wager-ai-assistant/internal/repository"
)

type UploadDataRequest struct {
	FileName      string         `json:"fileName"`
	Sport         string         `json:"sport"`
	League        string         `json:"league"`
	BettingScript datatypes.JSON `json:"bettingScript"`
	Fixtures      datatypes.JSON `json:"fixtures"`
	Stats         datatypes.JSON `json:"stats"`
}

// UploadService stores spreadsheet payloads for later script execution. A new
// upload for the same sport and league supersedes the previous active one.
type UploadService struct {
	uploads *repository.UploadRepository
	logger  zerolog.Logger
}

func NewUploadService(uploads *repository.UploadRepository, logger zerolog.Logger) *UploadService {
	return &UploadService{uploads: uploads, logger: logger}
}

func (s *UploadService) Store(ctx context.Context, p domain.Principal, req UploadDataRequest) (*domain.UploadedData, error) {
	if req.FileName == "" || req.Sport == "" || req.League == "" {
		return nil, domain.Invalid("Missing required fields")
	}

	upload := &domain.UploadedData{
		UserID:        p.UserID,
		FileName:      req.FileName,
		Sport:         req.Sport,
		League:        req.League,
		BettingScript: req.BettingScript,
		Fixtures:      req.Fixtures,
		Stats:         req.Stats,
		IsActive:      true,
		UploadDate:    time.Now(),
	}

	if err := s.uploads.Create(ctx, upload); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", p.UserID).
		Str("file_name", upload.FileName).
		Str("sport", upload.Sport).
		Str("league", upload.League).
		Msg("upload data stored")

	return upload, nil
}

// Active lists the user's active uploads. Sport and league are optional
// filters; empty means all scopes.
func (s *UploadService) Active(ctx context.Context, p domain.Principal, sport, league string) ([]domain.UploadedData, error) {
	return s.uploads.ListActive(ctx, p.UserID, sport, league)
}
