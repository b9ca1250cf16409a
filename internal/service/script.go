package service

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sparshsam/wager-ai-assistant/internal/constants"
	"github.com/sparshsam/wager-ai-assistant/internal/domain"
	"github.com/sparshsam/wager-ai-assistant/internal/repository"
)

type ScriptService struct {
	repo   *repository.ScriptRepository
	logger zerolog.Logger
}

func NewScriptService(repo *repository.ScriptRepository, logger zerolog.Logger) *ScriptService {
	return &ScriptService{repo: repo, logger: logger}
}

type ScriptStats struct {
	TotalScripts   int     `json:"totalScripts"`
	ActiveScripts  int     `json:"activeScripts"`
	LeaguesCovered int     `json:"leaguesCovered"`
	AvgSuccessRate float64 `json:"avgSuccessRate"`
}

type ScriptOverview struct {
	Scripts []domain.BettingScript `json:"scripts"`
	Stats   ScriptStats            `json:"stats"`
}

type CreateScriptInput struct {
	League      string `json:"league"`
	Sport       string `json:"sport"`
	Content     string `json:"content"`
	Description string `json:"description"`
	FileName    string `json:"fileName"`
}

type ScriptPatch struct {
	League      *string  `json:"league"`
	Sport       *string  `json:"sport"`
	Content     *string  `json:"content"`
	Description *string  `json:"description"`
	FileName    *string  `json:"fileName"`
	Version     *string  `json:"version"`
	IsActive    *bool    `json:"isActive"`
	SuccessRate *float64 `json:"successRate"`
}

type ScriptUploadInput struct {
	FileName string `json:"fileName"`
	League   string `json:"league"`
	Content  string `json:"content"`
	Sport    string `json:"sport"`
}

type ScriptUploadResult struct {
	Success  bool                  `json:"success"`
	FileName string                `json:"fileName"`
	League   string                `json:"league"`
	Content  string                `json:"content"`
	Script   *domain.BettingScript `json:"script"`
	Updated  bool                  `json:"updated"`
}

// bumpVersion adds 0.1 to the string-encoded version and formats the result
// with the shortest round-trip representation, so repeated bumps visibly
// accumulate floating-point drift ("1.2000000000000002"). That drift is an
// observable part of the contract.
func bumpVersion(version string) string {
	f, err := strconv.ParseFloat(strings.TrimSpace(version), 64)
	if err != nil {
		f = math.NaN()
	}
	return strconv.FormatFloat(f+0.1, 'f', -1, 64)
}

// detectSport resolves a sport label from the league name by case-insensitive
// substring match, first keyword wins.
func detectSport(league, sport string) string {
	if sport != "" && sport != "Unknown" {
		return sport
	}
	lower := strings.ToLower(league)
	for _, kw := range constants.LeagueKeywords {
		if strings.Contains(lower, kw.Substring) {
			return kw.Sport
		}
	}
	return "Unknown"
}

func (s *ScriptService) List(ctx context.Context, p domain.Principal) (*ScriptOverview, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	scripts, err := s.repo.ListByUser(ctx, p.UserID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", p.UserID).Msg("failed to list scripts")
		return nil, err
	}

	stats := ScriptStats{TotalScripts: len(scripts)}
	leagues := make(map[string]struct{})
	var rateSum float64
	for _, script := range scripts {
		if script.IsActive {
			stats.ActiveScripts++
		}
		leagues[script.League] = struct{}{}
		if script.SuccessRate != nil {
			rateSum += *script.SuccessRate
		}
	}
	stats.LeaguesCovered = len(leagues)
	if len(scripts) > 0 {
		stats.AvgSuccessRate = rateSum / float64(len(scripts))
	}

	return &ScriptOverview{Scripts: scripts, Stats: stats}, nil
}

func (s *ScriptService) Get(ctx context.Context, p domain.Principal, id string) (*domain.BettingScript, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.ownedScript(ctx, p, id)
}

// Create rejects a second script for a league the user already covers; the
// upload path merges instead.
func (s *ScriptService) Create(ctx context.Context, p domain.Principal, in CreateScriptInput) (*domain.BettingScript, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if in.League == "" || in.Content == "" {
		return nil, domain.Invalid("Missing required fields")
	}
	league := strings.TrimSpace(in.League)

	if _, err := s.repo.GetByUserLeague(ctx, p.UserID, league); err == nil {
		return nil, domain.Invalid("Script for this league already exists")
	} else if err != domain.ErrNotFound {
		return nil, err
	}

	sport := in.Sport
	if sport == "" {
		sport = "Unknown"
	}
	fileName := in.FileName
	if fileName == "" {
		fileName = league + ".txt"
	}

	script := &domain.BettingScript{
		UserID:   p.UserID,
		League:   league,
		Sport:    sport,
		FileName: fileName,
		Content:  strings.TrimSpace(in.Content),
		Version:  constants.DefaultVersion,
		IsActive: true,
	}
	if desc := strings.TrimSpace(in.Description); desc != "" {
		script.Description = &desc
	}

	if err := s.repo.Create(ctx, script); err != nil {
		s.logger.Error().Err(err).Str("user_id", p.UserID).Str("league", league).Msg("failed to create script")
		return nil, err
	}

	s.logger.Info().Str("script_id", script.ID).Str("league", league).Msg("script created")
	return script, nil
}

func (s *ScriptService) ownedScript(ctx context.Context, p domain.Principal, id string) (*domain.BettingScript, error) {
	script, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, domain.NotFound("Script not found")
		}
		return nil, err
	}
	if script.UserID != p.UserID {
		return nil, domain.Forbidden("Forbidden")
	}
	return script, nil
}

// Update applies a partial patch. When no explicit version is supplied the
// stored version is bumped by 0.1.
func (s *ScriptService) Update(ctx context.Context, p domain.Principal, id string, patch ScriptPatch) (*domain.BettingScript, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	script, err := s.ownedScript(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if patch.League != nil && strings.TrimSpace(*patch.League) != "" {
		script.League = strings.TrimSpace(*patch.League)
	}
	if patch.Sport != nil && *patch.Sport != "" {
		script.Sport = *patch.Sport
	}
	if patch.Content != nil && strings.TrimSpace(*patch.Content) != "" {
		script.Content = strings.TrimSpace(*patch.Content)
	}
	if patch.FileName != nil && strings.TrimSpace(*patch.FileName) != "" {
		script.FileName = strings.TrimSpace(*patch.FileName)
	}
	if patch.Description != nil {
		trimmed := strings.TrimSpace(*patch.Description)
		script.Description = emptyToNil(trimmed)
	}
	if patch.Version != nil && *patch.Version != "" {
		script.Version = *patch.Version
	} else {
		script.Version = bumpVersion(script.Version)
	}
	if patch.IsActive != nil {
		script.IsActive = *patch.IsActive
	}
	if patch.SuccessRate != nil {
		script.SuccessRate = patch.SuccessRate
	}

	if err := s.repo.Save(ctx, script); err != nil {
		s.logger.Error().Err(err).Str("script_id", id).Msg("failed to update script")
		return nil, err
	}
	return script, nil
}

func (s *ScriptService) Delete(ctx context.Context, p domain.Principal, id string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if _, err := s.ownedScript(ctx, p, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("script_id", id).Msg("failed to delete script")
		return err
	}

	s.logger.Info().Str("script_id", id).Str("user_id", p.UserID).Msg("script deleted")
	return nil
}

// Upload merges into the user's existing script for the league (version bump,
// usage stats reset) or creates a fresh one.
func (s *ScriptService) Upload(ctx context.Context, p domain.Principal, in ScriptUploadInput) (*ScriptUploadResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if in.FileName == "" || in.League == "" || in.Content == "" {
		return nil, domain.Invalid("Missing required fields")
	}

	league := strings.TrimSpace(in.League)
	content := strings.TrimSpace(in.Content)
	sport := detectSport(league, in.Sport)

	existing, err := s.repo.GetByUserLeague(ctx, p.UserID, league)
	if err != nil && err != domain.ErrNotFound {
		return nil, err
	}

	if existing != nil {
		existing.FileName = strings.TrimSpace(in.FileName)
		existing.Content = content
		existing.Sport = sport
		existing.Version = bumpVersion(existing.Version)
		existing.LastUsed = nil

		if err := s.repo.Save(ctx, existing); err != nil {
			s.logger.Error().Err(err).Str("script_id", existing.ID).Msg("failed to update uploaded script")
			return nil, err
		}

		s.logger.Info().
			Str("script_id", existing.ID).
			Str("league", league).
			Str("version", existing.Version).
			Msg("script re-uploaded")

		return &ScriptUploadResult{
			Success:  true,
			FileName: in.FileName,
			League:   league,
			Content:  content,
			Script:   existing,
			Updated:  true,
		}, nil
	}

	script := &domain.BettingScript{
		UserID:   p.UserID,
		League:   league,
		Sport:    sport,
		FileName: strings.TrimSpace(in.FileName),
		Content:  content,
		Version:  constants.DefaultVersion,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, script); err != nil {
		s.logger.Error().Err(err).Str("league", league).Msg("failed to create uploaded script")
		return nil, err
	}

	s.logger.Info().Str("script_id", script.ID).Str("league", league).Msg("script uploaded")
	return &ScriptUploadResult{
		Success:  true,
		FileName: in.FileName,
		League:   league,
		Content:  content,
		Script:   script,
		Updated:  false,
	}, nil
}
