package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparshsam/wager-ai-assistant/internal/domain"
)

func TestDecimalOdds(t *testing.T) {
	tests := []struct {
		american string
		want     float64
	}{
		{"+150", 2.5},
		{"150", 2.5},
		{"-110", 1.9090909090909092},
		{"-200", 1.5},
		{"+100", 2},
		{"not-odds", 1.91},
		{"", 1.91},
	}
	for _, tt := range tests {
		t.Run(tt.american, func(t *testing.T) {
			assert.InDelta(t, tt.want, DecimalOdds(tt.american), 1e-12)
		})
	}
}

func TestExtractRecommendations(t *testing.T) {
	t.Run("bare array", func(t *testing.T) {
		raws, err := extractRecommendations([]byte(`[{"matchup":"A vs B"}]`))
		require.NoError(t, err)
		require.Len(t, raws, 1)
		assert.Equal(t, "A vs B", raws[0].Matchup)
	})

	t.Run("recommendations envelope", func(t *testing.T) {
		raws, err := extractRecommendations([]byte(`{"recommendations":[{"matchup":"A vs B"},{"matchup":"C vs D"}]}`))
		require.NoError(t, err)
		require.Len(t, raws, 2)
		assert.Equal(t, "C vs D", raws[1].Matchup)
	})

	t.Run("bets envelope", func(t *testing.T) {
		raws, err := extractRecommendations([]byte(`{"bets":[{"matchup":"A vs B"}]}`))
		require.NoError(t, err)
		require.Len(t, raws, 1)
	})

	t.Run("recommendations wins over bets", func(t *testing.T) {
		raws, err := extractRecommendations([]byte(`{"bets":[{"matchup":"bets"}],"recommendations":[{"matchup":"recs"}]}`))
		require.NoError(t, err)
		require.Len(t, raws, 1)
		assert.Equal(t, "recs", raws[0].Matchup)
	})

	t.Run("first array value in key order", func(t *testing.T) {
		raws, err := extractRecommendations([]byte(`{"note":"x","wagers":[{"matchup":"first"}],"other":[{"matchup":"second"}]}`))
		require.NoError(t, err)
		require.Len(t, raws, 1)
		assert.Equal(t, "first", raws[0].Matchup)
	})

	t.Run("no array anywhere", func(t *testing.T) {
		_, err := extractRecommendations([]byte(`{"note":"nothing here"}`))
		assert.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := extractRecommendations([]byte(`Sorry, I cannot help with that.`))
		assert.Error(t, err)
	})
}

func TestNormalizeRecommendation(t *testing.T) {
	t.Run("fills defaults", func(t *testing.T) {
		rec := normalizeRecommendation(rawRecommendation{})
		assert.Equal(t, "Unknown Match", rec.Matchup)
		assert.Equal(t, "Moneyline", rec.BetType)
		assert.Equal(t, "TBD", rec.Selection)
		assert.Equal(t, "-110", rec.OddsAmerican)
		assert.Equal(t, 25.0, rec.Stake)
		assert.Equal(t, 7, rec.Confidence)
		assert.Equal(t, "Standard betting script applied", rec.ScriptSummary)
		assert.Equal(t, "Based on comprehensive analysis", rec.Justification)
		assert.Nil(t, rec.Line)
		assert.InDelta(t, 1.9090909090909092, rec.OddsDecimal, 1e-12)
	})

	t.Run("potential win is always recomputed", func(t *testing.T) {
		rec := normalizeRecommendation(rawRecommendation{
			OddsAmerican: "+150",
			OddsDecimal:  2.5,
			Stake:        50,
			PotentialWin: 9999,
		})
		assert.Equal(t, 75.0, rec.PotentialWin)
	})

	t.Run("numeric odds and line", func(t *testing.T) {
		rec := normalizeRecommendation(rawRecommendation{
			OddsAmerican: float64(-110),
			Line:         float64(-3.5),
		})
		assert.Equal(t, "-110", rec.OddsAmerican)
		require.NotNil(t, rec.Line)
		assert.Equal(t, "-3.5", *rec.Line)
	})
}

func TestFallbackRecommendation(t *testing.T) {
	t.Run("uses first matchup", func(t *testing.T) {
		rec := fallbackRecommendation([]ExecutionMatch{{Matchup: "Lakers vs Celtics"}})
		assert.Equal(t, "Lakers vs Celtics", rec.Matchup)
		assert.Equal(t, "Moneyline", rec.BetType)
		assert.Equal(t, "TBD", rec.Selection)
		assert.Equal(t, "-110", rec.OddsAmerican)
		assert.Equal(t, 1.91, rec.OddsDecimal)
		assert.Equal(t, 25.0, rec.Stake)
		assert.Equal(t, 6, rec.Confidence)
		assert.Equal(t, 22.75, rec.PotentialWin)
		assert.Equal(t, "Analysis completed but formatting error occurred", rec.ScriptSummary)
	})

	t.Run("no matches", func(t *testing.T) {
		rec := fallbackRecommendation(nil)
		assert.Equal(t, "Unknown Match", rec.Matchup)
	})
}

func TestExecutionService_ExecuteValidation(t *testing.T) {
	svc := NewExecutionService(nil, zerolog.Nop())
	p := domain.Principal{UserID: "u1"}

	t.Run("no matches", func(t *testing.T) {
		_, err := svc.Execute(context.Background(), p, ExecutionRequest{CISAnalysis: "cis"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("no cis", func(t *testing.T) {
		_, err := svc.Execute(context.Background(), p, ExecutionRequest{
			SelectedMatches: []ExecutionMatch{{Matchup: "A vs B"}},
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestScriptRuleUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []ScriptRule
	}{
		{"strings", `["Bet home favorites","Skip back-to-backs"]`, []ScriptRule{"Bet home favorites", "Skip back-to-backs"}},
		{"rule objects", `[{"rule":"Bet home favorites"}]`, []ScriptRule{"Bet home favorites"}},
		{"description objects", `[{"description":"Fade the public"}]`, []ScriptRule{"Fade the public"}},
		{"rule wins over description", `[{"rule":"primary","description":"secondary"}]`, []ScriptRule{"primary"}},
		{"other values keep json text", `[{"weight":3},42]`, []ScriptRule{`{"weight":3}`, "42"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rules []ScriptRule
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &rules))
			assert.Equal(t, tt.want, rules)
		})
	}

	t.Run("mixed shapes inside a match", func(t *testing.T) {
		var match ExecutionMatch
		raw := `{"matchup":"A vs B","scriptRules":["plain",{"rule":"from object"}]}`
		require.NoError(t, json.Unmarshal([]byte(raw), &match))
		assert.Equal(t, []ScriptRule{"plain", "from object"}, match.ScriptRules)
	})
}

func TestBuildExecutionPrompt(t *testing.T) {
	req := ExecutionRequest{
		SelectedMatches: []ExecutionMatch{{
			Matchup:     "Lakers vs Celtics",
			League:      "NBA",
			Sport:       "Basketball",
			Date:        "2026-01-15",
			ScriptRules: []ScriptRule{"Bet home favorites", "Skip back-to-backs"},
		}},
		Preview:     "Lakers healthy.",
		CISAnalysis: "Full CIS text",
	}
	prompt := buildExecutionPrompt(req)

	assert.Contains(t, prompt, "MATCH 1: Lakers vs Celtics")
	assert.Contains(t, prompt, "1. Bet home favorites")
	assert.Contains(t, prompt, "2. Skip back-to-backs")
	assert.Contains(t, prompt, "CIS ANALYSIS:\nFull CIS text")
	assert.Contains(t, prompt, "CURRENT BANKROLL: $1000")
	assert.Contains(t, prompt, "Respond with raw JSON only.")

	req.Bankroll = 1525.5
	assert.Contains(t, buildExecutionPrompt(req), "CURRENT BANKROLL: $1525.5")
}
