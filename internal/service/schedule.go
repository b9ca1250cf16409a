package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sparshsam/wager-ai-assistant/internal/constants"
	"github.com/sparshsam/wager-ai-assistant/internal/domain"
	"github.com/sparshsam/wager-ai-assistant/internal/repository"
)

// scheduleDateLayouts are tried in order when parsing user-supplied dates.
var scheduleDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006",
}

type ScheduleService struct {
	repo   *repository.ScheduleRepository
	logger zerolog.Logger
}

func NewScheduleService(repo *repository.ScheduleRepository, logger zerolog.Logger) *ScheduleService {
	return &ScheduleService{repo: repo, logger: logger}
}

type ScheduleStats struct {
	TotalSchedules       int `json:"totalSchedules"`
	TodaysGames          int `json:"todaysGames"`
	LeaguesWithSchedules int `json:"leaguesWithSchedules"`
}

type ScheduleOverview struct {
	Schedules     []domain.LeagueSchedule `json:"schedules"`
	TodaysMatches []domain.LeagueSchedule `json:"todaysMatches"`
	Stats         ScheduleStats           `json:"stats"`
}

type CreateScheduleInput struct {
	HomeTeam string `json:"homeTeam"`
	AwayTeam string `json:"awayTeam"`
	League   string `json:"league"`
	Sport    string `json:"sport"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Venue    string `json:"venue"`
}

// SchedulePatch applies only the fields present in the payload; nil means
// keep the stored value.
type SchedulePatch struct {
	HomeTeam  *string `json:"homeTeam"`
	AwayTeam  *string `json:"awayTeam"`
	League    *string `json:"league"`
	Sport     *string `json:"sport"`
	Date      *string `json:"date"`
	Time      *string `json:"time"`
	Venue     *string `json:"venue"`
	Status    *string `json:"status"`
	HomeScore *int    `json:"homeScore"`
	AwayScore *int    `json:"awayScore"`
	Notes     *string `json:"notes"`
}

type ScheduleRow struct {
	Date     string `json:"date"`
	HomeTeam string `json:"homeTeam"`
	AwayTeam string `json:"awayTeam"`
	League   string `json:"league"`
	Sport    string `json:"sport"`
	Time     string `json:"time"`
	Venue    string `json:"venue"`
}

type ScheduleUploadReport struct {
	Success        bool     `json:"success"`
	FileName       string   `json:"fileName"`
	TotalRows      int      `json:"totalRows"`
	SuccessfulRows int      `json:"successfulRows"`
	TodaysMatches  int      `json:"todaysMatches"`
	Errors         []string `json:"errors,omitempty"`
}

// todayWindow returns [local midnight, next local midnight). Upload counting
// and the todaysMatches query both use this boundary.
func todayWindow() (time.Time, time.Time) {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return today, today.AddDate(0, 0, 1)
}

func parseScheduleDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range scheduleDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

func (s *ScheduleService) List(ctx context.Context, p domain.Principal) (*ScheduleOverview, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	today, tomorrow := todayWindow()

	var schedules, todays []domain.LeagueSchedule
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		schedules, err = s.repo.ListByUser(gCtx, p.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		todays, err = s.repo.ListBetween(gCtx, p.UserID, today, tomorrow)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Str("user_id", p.UserID).Msg("failed to fetch schedules")
		return nil, err
	}

	leagues := make(map[string]struct{})
	for _, schedule := range schedules {
		leagues[schedule.League] = struct{}{}
	}

	return &ScheduleOverview{
		Schedules:     schedules,
		TodaysMatches: todays,
		Stats: ScheduleStats{
			TotalSchedules:       len(schedules),
			TodaysGames:          len(todays),
			LeaguesWithSchedules: len(leagues),
		},
	}, nil
}

func (s *ScheduleService) Create(ctx context.Context, p domain.Principal, in CreateScheduleInput) (*domain.LeagueSchedule, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if in.HomeTeam == "" || in.AwayTeam == "" || in.League == "" || in.Date == "" {
		return nil, domain.Invalid("Missing required fields")
	}

	date, err := parseScheduleDate(in.Date)
	if err != nil {
		return nil, domain.Invalid("Invalid date")
	}

	sport := in.Sport
	if sport == "" {
		sport = "Unknown"
	}

	schedule := &domain.LeagueSchedule{
		UserID:   p.UserID,
		Date:     date,
		HomeTeam: strings.TrimSpace(in.HomeTeam),
		AwayTeam: strings.TrimSpace(in.AwayTeam),
		League:   strings.TrimSpace(in.League),
		Sport:    sport,
		Status:   "Scheduled",
	}
	if in.Time != "" {
		t := strings.TrimSpace(in.Time)
		schedule.Time = &t
	}
	if in.Venue != "" {
		v := strings.TrimSpace(in.Venue)
		schedule.Venue = &v
	}

	if err := s.repo.Create(ctx, schedule); err != nil {
		s.logger.Error().Err(err).Str("user_id", p.UserID).Msg("failed to create schedule")
		return nil, err
	}

	s.logger.Info().Str("schedule_id", schedule.ID).Str("user_id", p.UserID).Msg("schedule created")
	return schedule, nil
}

// ownedSchedule loads a schedule and verifies the caller owns it.
func (s *ScheduleService) ownedSchedule(ctx context.Context, p domain.Principal, id string) (*domain.LeagueSchedule, error) {
	schedule, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, domain.NotFound("Schedule not found")
		}
		return nil, err
	}
	if schedule.UserID != p.UserID {
		return nil, domain.Forbidden("Forbidden")
	}
	return schedule, nil
}

func (s *ScheduleService) Update(ctx context.Context, p domain.Principal, id string, patch SchedulePatch) (*domain.LeagueSchedule, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	schedule, err := s.ownedSchedule(ctx, p, id)
	if err != nil {
		return nil, err
	}

	// Required fields keep their stored value when patched to empty; the
	// optional ones clear.
	if patch.HomeTeam != nil && strings.TrimSpace(*patch.HomeTeam) != "" {
		schedule.HomeTeam = strings.TrimSpace(*patch.HomeTeam)
	}
	if patch.AwayTeam != nil && strings.TrimSpace(*patch.AwayTeam) != "" {
		schedule.AwayTeam = strings.TrimSpace(*patch.AwayTeam)
	}
	if patch.League != nil && strings.TrimSpace(*patch.League) != "" {
		schedule.League = strings.TrimSpace(*patch.League)
	}
	if patch.Sport != nil && *patch.Sport != "" {
		schedule.Sport = *patch.Sport
	}
	if patch.Date != nil && *patch.Date != "" {
		date, err := parseScheduleDate(*patch.Date)
		if err != nil {
			return nil, domain.Invalid("Invalid date")
		}
		schedule.Date = date
	}
	if patch.Status != nil && *patch.Status != "" {
		schedule.Status = *patch.Status
	}
	if patch.Time != nil {
		schedule.Time = emptyToNil(*patch.Time)
	}
	if patch.Venue != nil {
		schedule.Venue = emptyToNil(*patch.Venue)
	}
	if patch.Notes != nil {
		schedule.Notes = emptyToNil(*patch.Notes)
	}
	if patch.HomeScore != nil {
		schedule.HomeScore = patch.HomeScore
	}
	if patch.AwayScore != nil {
		schedule.AwayScore = patch.AwayScore
	}

	if err := s.repo.Save(ctx, schedule); err != nil {
		s.logger.Error().Err(err).Str("schedule_id", id).Msg("failed to update schedule")
		return nil, err
	}
	return schedule, nil
}

func (s *ScheduleService) Delete(ctx context.Context, p domain.Principal, id string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if _, err := s.ownedSchedule(ctx, p, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("schedule_id", id).Msg("failed to delete schedule")
		return err
	}

	s.logger.Info().Str("schedule_id", id).Str("user_id", p.UserID).Msg("schedule deleted")
	return nil
}

// UploadBatch ingests spreadsheet rows one at a time. Bad rows are recorded
// by 1-based row number and skipped; the batch never aborts.
func (s *ScheduleService) UploadBatch(ctx context.Context, p domain.Principal, fileName string, rows []ScheduleRow) (*ScheduleUploadReport, error) {
	report := &ScheduleUploadReport{Success: true, FileName: fileName, TotalRows: len(rows)}
	today, tomorrow := todayWindow()

	for i, row := range rows {
		if row.Date == "" || row.HomeTeam == "" || row.AwayTeam == "" || row.League == "" {
			report.Errors = append(report.Errors, fmt.Sprintf("Row %d: Missing required fields", i+1))
			continue
		}

		date, err := parseScheduleDate(row.Date)
		if err != nil {
			s.logger.Warn().Err(err).Int("row", i+1).Msg("failed to parse schedule row date")
			report.Errors = append(report.Errors, fmt.Sprintf("Row %d: Processing error", i+1))
			continue
		}

		sport := "Unknown"
		if strings.TrimSpace(row.Sport) != "" {
			sport = strings.TrimSpace(row.Sport)
		}

		schedule := &domain.LeagueSchedule{
			UserID:   p.UserID,
			Date:     date,
			HomeTeam: strings.TrimSpace(row.HomeTeam),
			AwayTeam: strings.TrimSpace(row.AwayTeam),
			League:   strings.TrimSpace(row.League),
			Sport:    sport,
			Status:   "Scheduled",
		}
		if strings.TrimSpace(row.Time) != "" {
			t := strings.TrimSpace(row.Time)
			schedule.Time = &t
		}
		if strings.TrimSpace(row.Venue) != "" {
			v := strings.TrimSpace(row.Venue)
			schedule.Venue = &v
		}

		if err := s.repo.Create(ctx, schedule); err != nil {
			s.logger.Error().Err(err).Int("row", i+1).Msg("failed to persist schedule row")
			report.Errors = append(report.Errors, fmt.Sprintf("Row %d: Processing error", i+1))
			continue
		}

		if !date.Before(today) && date.Before(tomorrow) {
			report.TodaysMatches++
		}
		report.SuccessfulRows++
	}

	s.logger.Info().
		Str("user_id", p.UserID).
		Str("file_name", fileName).
		Int("total", report.TotalRows).
		Int("ok", report.SuccessfulRows).
		Int("errors", len(report.Errors)).
		Msg("schedule batch processed")

	return report, nil
}

func emptyToNil(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
