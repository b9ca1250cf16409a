package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparshsam/wager-ai-assistant/internal/domain"
	"github.com/sparshsam/wager-ai-assistant/internal/repository"
)

func newScheduleService(t *testing.T) (*ScheduleService, domain.Principal, domain.Principal) {
	t.Helper()
	db := newTestDB(t)
	_, p1 := seedUser(t, db, "sched-one@example.com")
	_, p2 := seedUser(t, db, "sched-two@example.com")
	return NewScheduleService(repository.NewScheduleRepository(db, zerolog.Nop()), zerolog.Nop()), p1, p2
}

func TestParseScheduleDate(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2026-03-15", time.Date(2026, 3, 15, 0, 0, 0, 0, time.Local)},
		{"2026-03-15T19:30:00", time.Date(2026, 3, 15, 19, 30, 0, 0, time.Local)},
		{"03/15/2026", time.Date(2026, 3, 15, 0, 0, 0, 0, time.Local)},
		{" 2026-03-15 ", time.Date(2026, 3, 15, 0, 0, 0, 0, time.Local)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseScheduleDate(tt.raw)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got))
		})
	}

	_, err := parseScheduleDate("next tuesday")
	assert.Error(t, err)
}

func TestScheduleService_Create(t *testing.T) {
	svc, p1, _ := newScheduleService(t)
	ctx := context.Background()

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.Create(ctx, p1, CreateScheduleInput{HomeTeam: "Lakers"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := svc.Create(ctx, p1, CreateScheduleInput{
			HomeTeam: "Lakers", AwayTeam: "Celtics", League: "NBA", Date: "whenever",
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("creates", func(t *testing.T) {
		schedule, err := svc.Create(ctx, p1, CreateScheduleInput{
			HomeTeam: "Lakers", AwayTeam: "Celtics", League: "NBA",
			Date: "2026-03-15", Time: "19:30", Venue: "Crypto.com Arena",
		})
		require.NoError(t, err)
		assert.Equal(t, "Scheduled", schedule.Status)
		assert.Equal(t, "Unknown", schedule.Sport)
		require.NotNil(t, schedule.Time)
		assert.Equal(t, "19:30", *schedule.Time)
	})
}

func TestScheduleService_UpdateAndDelete(t *testing.T) {
	svc, p1, p2 := newScheduleService(t)
	ctx := context.Background()

	schedule, err := svc.Create(ctx, p1, CreateScheduleInput{
		HomeTeam: "Yankees", AwayTeam: "Red Sox", League: "MLB", Date: "2026-05-01",
	})
	require.NoError(t, err)

	t.Run("patch keeps unset fields", func(t *testing.T) {
		updated, err := svc.Update(ctx, p1, schedule.ID, SchedulePatch{Status: strPtr("Completed")})
		require.NoError(t, err)
		assert.Equal(t, "Completed", updated.Status)
		assert.Equal(t, "Yankees", updated.HomeTeam)
	})

	t.Run("scores", func(t *testing.T) {
		home, away := 5, 3
		updated, err := svc.Update(ctx, p1, schedule.ID, SchedulePatch{HomeScore: &home, AwayScore: &away})
		require.NoError(t, err)
		require.NotNil(t, updated.HomeScore)
		assert.Equal(t, 5, *updated.HomeScore)
	})

	t.Run("other user forbidden", func(t *testing.T) {
		_, err := svc.Update(ctx, p2, schedule.ID, SchedulePatch{Status: strPtr("Cancelled")})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("delete not found", func(t *testing.T) {
		err := svc.Delete(ctx, p1, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, p1, schedule.ID))
		err := svc.Delete(ctx, p1, schedule.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestScheduleService_UploadBatch(t *testing.T) {
	svc, p1, _ := newScheduleService(t)
	ctx := context.Background()

	today := time.Now().Format("2006-01-02")
	rows := []ScheduleRow{
		{Date: today, HomeTeam: "Lakers", AwayTeam: "Celtics", League: "NBA"},
		{Date: "2026-06-01", HomeTeam: "Heat", AwayTeam: "Bulls", League: "NBA"},
		{Date: "2026-06-01", HomeTeam: "", AwayTeam: "Knicks", League: "NBA"},
		{Date: "not a date", HomeTeam: "Nets", AwayTeam: "Sixers", League: "NBA"},
	}

	report, err := svc.UploadBatch(ctx, p1, "sched.xlsx", rows)
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, "sched.xlsx", report.FileName)
	assert.Equal(t, 4, report.TotalRows)
	assert.Equal(t, 2, report.SuccessfulRows)
	assert.Equal(t, 1, report.TodaysMatches)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, "Row 3: Missing required fields", report.Errors[0])
	assert.Equal(t, "Row 4: Processing error", report.Errors[1])

	overview, err := svc.List(ctx, p1)
	require.NoError(t, err)
	assert.Equal(t, 2, overview.Stats.TotalSchedules)
	assert.Equal(t, 1, overview.Stats.TodaysGames)
	assert.Equal(t, 1, overview.Stats.LeaguesWithSchedules)
	require.Len(t, overview.TodaysMatches, 1)
	assert.Equal(t, "Lakers", overview.TodaysMatches[0].HomeTeam)
}
