package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sparshsam/wager-ai-assistant/internal/api"
	"github.com/sparshsam/wager-ai-assistant/internal/constants"
	"github.com/sparshsam/wager-ai-assistant/internal/domain"
)

const executionSystemPrompt = "You are a professional betting script executor. Generate specific, " +
	"actionable betting recommendations based on the provided data and rules. Always respond with valid JSON format."

type ExecutionMatch struct {
	Matchup     string          `json:"matchup"`
	League      string          `json:"league"`
	Sport       string          `json:"sport"`
	Date        string          `json:"date"`
	ScriptRules []ScriptRule    `json:"scriptRules"`
	FixtureData json.RawMessage `json:"fixtureData,omitempty"`
	StatsData   json.RawMessage `json:"statsData,omitempty"`
}

// ScriptRule is one betting rule. Clients send these as plain strings or as
// objects carrying the text under "rule" or "description"; anything else is
// kept as its JSON text.
type ScriptRule string

func (r *ScriptRule) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = ScriptRule(s)
		return nil
	}

	var obj struct {
		Rule        string `json:"rule"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		if obj.Rule != "" {
			*r = ScriptRule(obj.Rule)
			return nil
		}
		if obj.Description != "" {
			*r = ScriptRule(obj.Description)
			return nil
		}
	}

	var compacted bytes.Buffer
	if err := json.Compact(&compacted, data); err != nil {
		*r = ScriptRule(data)
		return nil
	}
	*r = ScriptRule(compacted.String())
	return nil
}

type ExecutionRequest struct {
	SelectedMatches []ExecutionMatch `json:"selectedMatches"`
	Preview         string           `json:"preview"`
	Odds            string           `json:"odds"`
	CISAnalysis     string           `json:"cisAnalysis"`
	Bankroll        float64          `json:"bankroll"`
}

type Recommendation struct {
	Matchup       string  `json:"matchup"`
	BetType       string  `json:"betType"`
	Selection     string  `json:"selection"`
	Line          *string `json:"line"`
	OddsAmerican  string  `json:"oddsAmerican"`
	OddsDecimal   float64 `json:"oddsDecimal"`
	Stake         float64 `json:"stake"`
	ScriptSummary string  `json:"scriptSummary"`
	Justification string  `json:"justification"`
	Confidence    int     `json:"confidence"`
	PotentialWin  float64 `json:"potentialWin"`
}

type ExecutionResult struct {
	Success         bool             `json:"success"`
	Recommendations []Recommendation `json:"recommendations"`
	ExecutionDate   time.Time        `json:"executionDate"`
}

// rawRecommendation tolerates the loose field types the model emits; odds and
// line may arrive as strings or numbers.
type rawRecommendation struct {
	Matchup       string  `json:"matchup"`
	BetType       string  `json:"betType"`
	Selection     string  `json:"selection"`
	Line          any     `json:"line"`
	OddsAmerican  any     `json:"oddsAmerican"`
	OddsDecimal   float64 `json:"oddsDecimal"`
	Stake         float64 `json:"stake"`
	ScriptSummary string  `json:"scriptSummary"`
	Justification string  `json:"justification"`
	Confidence    float64 `json:"confidence"`
	PotentialWin  float64 `json:"potentialWin"`
}

type ExecutionService struct {
	llm    *api.AbacusClient
	logger zerolog.Logger
}

func NewExecutionService(llm *api.AbacusClient, logger zerolog.Logger) *ExecutionService {
	return &ExecutionService{llm: llm, logger: logger}
}

// DecimalOdds converts American odds to decimal. Unparseable input falls back
// to 1.91.
func DecimalOdds(american string) float64 {
	odds, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(american), "+"), 64)
	if err != nil {
		return constants.DefaultDecimalOdds
	}
	if odds > 0 {
		return odds/100 + 1
	}
	return 100/math.Abs(odds) + 1
}

func (s *ExecutionService) Execute(ctx context.Context, p domain.Principal, req ExecutionRequest) (*ExecutionResult, error) {
	if len(req.SelectedMatches) == 0 || req.CISAnalysis == "" {
		return nil, domain.Invalid("Selected matches and CIS analysis are required")
	}

	prompt := buildExecutionPrompt(req)

	s.logger.Info().
		Str("user_id", p.UserID).
		Int("matches", len(req.SelectedMatches)).
		Int("prompt_len", len(prompt)).
		Msg("executing betting script")

	llmCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	content, err := s.llm.Complete(llmCtx, executionSystemPrompt, prompt, api.CompletionOptions{
		MaxTokens:   constants.ExecuteMaxTokens,
		Temperature: constants.ExecuteTemperature,
		JSONObject:  true,
	})
	if err != nil {
		// A failed round trip is a hard error; only shape problems downgrade
		// to the fallback recommendation.
		s.logger.Error().Err(err).Str("user_id", p.UserID).Msg("betting script execution failed")
		return nil, err
	}

	raws, err := extractRecommendations([]byte(content))
	if err != nil || len(raws) == 0 {
		s.logger.Warn().Err(err).Str("user_id", p.UserID).Msg("failed to parse recommendations, using fallback")
		return &ExecutionResult{
			Success:         true,
			Recommendations: []Recommendation{fallbackRecommendation(req.SelectedMatches)},
			ExecutionDate:   time.Now(),
		}, nil
	}

	recommendations := make([]Recommendation, len(raws))
	for i, raw := range raws {
		recommendations[i] = normalizeRecommendation(raw)
	}

	return &ExecutionResult{
		Success:         true,
		Recommendations: recommendations,
		ExecutionDate:   time.Now(),
	}, nil
}

// shapeMatcher extracts a recommendation array from one accepted envelope
// shape, or reports no match.
type shapeMatcher struct {
	name    string
	extract func(data []byte) ([]json.RawMessage, bool)
}

// recommendationShapes are tried in order: a bare array, the
// "recommendations" and "bets" envelopes, then the first array-valued
// property in key order.
var recommendationShapes = []shapeMatcher{
	{"bare-array", bareArray},
	{"recommendations-key", objectKey("recommendations")},
	{"bets-key", objectKey("bets")},
	{"first-array-value", firstArrayValue},
}

func extractRecommendations(data []byte) ([]rawRecommendation, error) {
	for _, shape := range recommendationShapes {
		items, ok := shape.extract(data)
		if !ok {
			continue
		}
		raws := make([]rawRecommendation, len(items))
		for i, item := range items {
			if err := json.Unmarshal(item, &raws[i]); err != nil {
				return nil, fmt.Errorf("%w: bad element in %s shape: %v", domain.ErrParse, shape.name, err)
			}
		}
		return raws, nil
	}
	return nil, domain.ErrParse
}

func bareArray(data []byte) ([]json.RawMessage, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false
	}
	return items, true
}

func objectKey(key string) func([]byte) ([]json.RawMessage, bool) {
	return func(data []byte) ([]json.RawMessage, bool) {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, false
		}
		raw, ok := envelope[key]
		if !ok {
			return nil, false
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, false
		}
		return items, true
	}
}

// firstArrayValue scans the top-level object's properties in declaration
// order and takes the first array value. Maps lose key order, so this walks
// the tokens directly.
func firstArrayValue(data []byte) ([]json.RawMessage, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, false
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, false
	}

	for dec.More() {
		if _, err := dec.Token(); err != nil { // property name
			return nil, false
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, false
		}
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var items []json.RawMessage
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, false
			}
			return items, true
		}
	}
	return nil, false
}

// normalizeRecommendation fills defaults and recomputes the derived numbers.
// The model's own potentialWin is never trusted.
func normalizeRecommendation(raw rawRecommendation) Recommendation {
	rec := Recommendation{
		Matchup:       raw.Matchup,
		BetType:       raw.BetType,
		Selection:     raw.Selection,
		Line:          looseString(raw.Line),
		OddsAmerican:  looseOdds(raw.OddsAmerican),
		OddsDecimal:   raw.OddsDecimal,
		Stake:         raw.Stake,
		ScriptSummary: raw.ScriptSummary,
		Justification: raw.Justification,
		Confidence:    int(raw.Confidence),
	}

	if rec.Matchup == "" {
		rec.Matchup = "Unknown Match"
	}
	if rec.BetType == "" {
		rec.BetType = "Moneyline"
	}
	if rec.Selection == "" {
		rec.Selection = "TBD"
	}
	if rec.ScriptSummary == "" {
		rec.ScriptSummary = "Standard betting script applied"
	}
	if rec.Justification == "" {
		rec.Justification = "Based on comprehensive analysis"
	}
	if rec.Confidence == 0 {
		rec.Confidence = constants.DefaultConfidence
	}
	if rec.Stake == 0 {
		rec.Stake = constants.DefaultStake
	}
	if rec.OddsDecimal == 0 {
		rec.OddsDecimal = DecimalOdds(rec.OddsAmerican)
	}
	rec.PotentialWin = rec.Stake * (rec.OddsDecimal - 1)

	return rec
}

func fallbackRecommendation(matches []ExecutionMatch) Recommendation {
	matchup := "Unknown Match"
	if len(matches) > 0 && matches[0].Matchup != "" {
		matchup = matches[0].Matchup
	}
	return Recommendation{
		Matchup:       matchup,
		BetType:       "Moneyline",
		Selection:     "TBD",
		Line:          nil,
		OddsAmerican:  constants.DefaultOddsAmerican,
		OddsDecimal:   constants.DefaultDecimalOdds,
		Stake:         constants.DefaultStake,
		ScriptSummary: "Analysis completed but formatting error occurred",
		Justification: "Recommendation generated based on available data",
		Confidence:    6,
		PotentialWin:  22.75,
	}
}

func buildExecutionPrompt(req ExecutionRequest) string {
	var b strings.Builder
	b.WriteString(`Execute betting script analysis and generate specific betting recommendations. You must respond with a JSON array of betting recommendations.

Each recommendation should have this exact structure:
{
  "matchup": "Team A vs Team B",
  "betType": "Moneyline|Point Spread|Total Points|Player Props|etc",
  "selection": "Specific selection (team, over/under, player)",
  "line": "Point spread or total line if applicable",
  "oddsAmerican": "American odds format (e.g., -110, +150)",
  "oddsDecimal": 1.91,
  "stake": 25,
  "scriptSummary": "Brief summary of script rules applied",
  "justification": "Detailed explanation for this bet",
  "confidence": 8,
  "potentialWin": 47.75
}

BETTING SCRIPT RULES AND DATA:`)

	for i, match := range req.SelectedMatches {
		fmt.Fprintf(&b, "\n\nMATCH %d: %s", i+1, match.Matchup)
		fmt.Fprintf(&b, "\nLeague: %s", match.League)
		fmt.Fprintf(&b, "\nSport: %s", match.Sport)
		fmt.Fprintf(&b, "\nDate: %s", match.Date)

		if len(match.ScriptRules) > 0 {
			b.WriteString("\nBetting Script Rules:")
			for j, rule := range match.ScriptRules {
				fmt.Fprintf(&b, "\n  %d. %s", j+1, rule)
			}
		}
		if len(match.FixtureData) > 0 {
			fmt.Fprintf(&b, "\nFixture Data: %s", truncateJSON(match.FixtureData, 500))
		}
		if len(match.StatsData) > 0 {
			fmt.Fprintf(&b, "\nStats Data: %s", truncateJSON(match.StatsData, 500))
		}
	}

	b.WriteString("\n\nPREVIEW DATA:")
	if req.Preview != "" {
		fmt.Fprintf(&b, "\nAnalysis: %s", req.Preview)
	}
	if req.Odds != "" {
		fmt.Fprintf(&b, "\nOdds: %s", req.Odds)
	}

	fmt.Fprintf(&b, "\n\nCIS ANALYSIS:\n%s", req.CISAnalysis)

	bankroll := req.Bankroll
	if bankroll == 0 {
		bankroll = constants.DefaultBankroll
	}
	fmt.Fprintf(&b, "\n\nCURRENT BANKROLL: $%s", strconv.FormatFloat(bankroll, 'f', -1, 64))

	b.WriteString(`

STAKING GUIDELINES:
- Use 1-5% of bankroll for stakes based on confidence
- Never bet more than $100 per bet regardless of bankroll
- Avoid bets with odds worse than -300 unless exceptional confidence
- Confidence scale: 1-5 (avoid), 6-7 (small stake), 8-9 (medium stake), 10 (large stake)

Generate 1-3 betting recommendations based on the strongest opportunities from the data provided. Respond with raw JSON only.`)

	return b.String()
}

func truncateJSON(raw json.RawMessage, limit int) string {
	var compacted bytes.Buffer
	s := string(raw)
	if err := json.Compact(&compacted, raw); err == nil {
		s = compacted.String()
	}
	if len(s) > limit {
		return s[:limit]
	}
	return s
}

func looseString(v any) *string {
	switch value := v.(type) {
	case string:
		if value == "" {
			return nil
		}
		return &value
	case float64:
		s := strconv.FormatFloat(value, 'f', -1, 64)
		return &s
	default:
		return nil
	}
}

func looseOdds(v any) string {
	switch value := v.(type) {
	case string:
		if value != "" {
			return value
		}
	case float64:
		if value != 0 {
			return strconv.FormatFloat(value, 'f', -1, 64)
		}
	}
	return constants.DefaultOddsAmerican
}
