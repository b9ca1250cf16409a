package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sparshsam/wager-ai-assistant/internal/api"
	"github.com/sparshsam/wager-ai-assistant/internal/constants"
	"github.com/sparshsam/wager-ai-assistant/internal/domain"
)

const cisSystemPrompt = "You are an expert sports betting analyst with deep knowledge of statistics, " +
	"team performance, and market dynamics. Provide comprehensive, actionable betting intelligence."

// CISMatch carries the facts about one selected fixture that feed the prompt.
type CISMatch struct {
	Matchup      string `json:"matchup"`
	League       string `json:"league"`
	Date         string `json:"date"`
	Venue        string `json:"venue"`
	HomeForm     string `json:"homeForm"`
	AwayForm     string `json:"awayForm"`
	HomeInjuries string `json:"homeInjuries"`
	AwayInjuries string `json:"awayInjuries"`
	Trends       string `json:"trends"`
	HasStats     bool   `json:"hasStats"`
	HasScript    bool   `json:"hasScript"`
}

type CISRequest struct {
	SelectedMatches []CISMatch `json:"selectedMatches"`
	PreviewAnalysis string     `json:"previewAnalysis"`
	OddsData        string     `json:"oddsData"`
	InjuryContext   string     `json:"injuryContext"`
}

type CISSection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type CISResult struct {
	Success      bool         `json:"success"`
	CIS          string       `json:"cis"`
	Sections     []CISSection `json:"sections"`
	AnalysisDate time.Time    `json:"analysisDate"`
}

type InjuryValidation struct {
	Detected    bool     `json:"detected"`
	Keywords    []string `json:"keywords"`
	Confidence  int      `json:"confidence"`
	Suggestions []string `json:"suggestions"`
}

// cisSectionPatterns split the free-text summary into labeled sections. Each
// pattern is tried independently; when none match, the whole text becomes a
// single fallback section.
var cisSectionPatterns = []struct {
	title string
	re    *regexp.Regexp
}{
	{"Key Stats", regexp.MustCompile(`(?is)(?:KEY STATS|STATISTICS|STATISTICAL ANALYSIS)[:\n](.*?)(?:\n\n|\n[A-Z]{2,}|$)`)},
	{"Form & Pattern", regexp.MustCompile(`(?is)(?:FORM|PATTERNS?|RECENT FORM)[:\n](.*?)(?:\n\n|\n[A-Z]{2,}|$)`)},
	{"Injury Insights", regexp.MustCompile(`(?is)(?:INJUR(?:Y|IES)|TEAM NEWS|AVAILABILITY)[:\n](.*?)(?:\n\n|\n[A-Z]{2,}|$)`)},
	{"Opportunities & Risks", regexp.MustCompile(`(?is)(?:OPPORTUNIT(?:Y|IES)|RISKS?|THREATS?)[:\n](.*?)(?:\n\n|\n[A-Z]{2,}|$)`)},
	{"Market Evaluation", regexp.MustCompile(`(?is)(?:MARKET|ODDS|BETTING|VALUE)[:\n](.*?)(?:\n\n|\n[A-Z]{2,}|$)`)},
}

type AnalysisService struct {
	llm    *api.AbacusClient
	logger zerolog.Logger
}

func NewAnalysisService(llm *api.AbacusClient, logger zerolog.Logger) *AnalysisService {
	return &AnalysisService{llm: llm, logger: logger}
}

// ValidateInjuryMentions scans preview text for injury keywords. Confidence
// is 20 points per matched keyword, capped at 100.
func ValidateInjuryMentions(text string) InjuryValidation {
	lower := strings.ToLower(text)

	var found []string
	for _, keyword := range constants.InjuryKeywords {
		if strings.Contains(lower, keyword) {
			found = append(found, keyword)
		}
	}

	confidence := len(found) * constants.InjuryKeywordWeight
	if confidence > constants.MaxInjuryConfidence {
		confidence = constants.MaxInjuryConfidence
	}

	validation := InjuryValidation{
		Detected:   len(found) > 0,
		Keywords:   found,
		Confidence: confidence,
	}
	if !validation.Detected {
		validation.Suggestions = constants.InjurySuggestions
	}
	return validation
}

func (s *AnalysisService) GenerateCIS(ctx context.Context, p domain.Principal, req CISRequest) (*CISResult, error) {
	if len(req.SelectedMatches) == 0 && req.PreviewAnalysis == "" && req.OddsData == "" {
		return nil, domain.Invalid("Insufficient data for CIS generation")
	}

	prompt := buildCISPrompt(req)

	s.logger.Info().
		Str("user_id", p.UserID).
		Int("matches", len(req.SelectedMatches)).
		Int("prompt_len", len(prompt)).
		Msg("generating CIS")

	llmCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	content, err := s.llm.Complete(llmCtx, cisSystemPrompt, prompt, api.CompletionOptions{
		MaxTokens:   constants.CISMaxTokens,
		Temperature: constants.CISTemperature,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", p.UserID).Msg("CIS generation failed")
		return nil, err
	}
	if content == "" {
		content = "Failed to generate CIS analysis."
	}

	return &CISResult{
		Success:      true,
		CIS:          content,
		Sections:     SplitCISSections(content),
		AnalysisDate: time.Now(),
	}, nil
}

// SplitCISSections best-effort splits generated text into the five named
// sections.
func SplitCISSections(cis string) []CISSection {
	var sections []CISSection
	for _, pattern := range cisSectionPatterns {
		match := pattern.re.FindStringSubmatch(cis)
		if match != nil && strings.TrimSpace(match[1]) != "" {
			sections = append(sections, CISSection{
				Title:   pattern.title,
				Content: strings.TrimSpace(match[1]),
			})
		}
	}
	if len(sections) == 0 {
		sections = append(sections, CISSection{Title: "Comprehensive Analysis", Content: cis})
	}
	return sections
}

func buildCISPrompt(req CISRequest) string {
	var b strings.Builder
	b.WriteString(`Generate a comprehensive intelligence summary (CIS) for betting analysis. Structure your response with the following sections:

KEY STATS:
Provide statistical analysis and key performance metrics.

FORM & PATTERN:
Analyze recent form, patterns, and trends.

INJURY INSIGHTS:
Detail any injury concerns and team news impact.

OPPORTUNITIES & RISKS:
Identify betting opportunities and potential risks.

MARKET EVALUATION:
Evaluate the betting markets and identify value.

Data available for analysis:`)

	if len(req.SelectedMatches) > 0 {
		b.WriteString("\n\nSELECTED MATCHES:")
		for i, match := range req.SelectedMatches {
			fmt.Fprintf(&b, "\n%d. %s (%s)", i+1, match.Matchup, match.League)
			fmt.Fprintf(&b, "\n   Date: %s", match.Date)
			if match.Venue != "" {
				fmt.Fprintf(&b, "\n   Venue: %s", match.Venue)
			}
			if match.HomeForm != "" || match.AwayForm != "" {
				fmt.Fprintf(&b, "\n   Form: Home %s | Away %s", orNA(match.HomeForm), orNA(match.AwayForm))
			}
			if match.HomeInjuries != "" || match.AwayInjuries != "" {
				fmt.Fprintf(&b, "\n   Injuries: Home %s | Away %s", orNone(match.HomeInjuries), orNone(match.AwayInjuries))
			}
			if match.Trends != "" {
				fmt.Fprintf(&b, "\n   Trends: %s", match.Trends)
			}
			if match.HasStats {
				b.WriteString("\n   Stats Data Available: Yes")
			}
			if match.HasScript {
				b.WriteString("\n   Betting Script Available: Yes")
			}
		}
	}

	if req.PreviewAnalysis != "" {
		fmt.Fprintf(&b, "\n\nPREVIEW ANALYSIS:\n%s", req.PreviewAnalysis)
	}
	if req.OddsData != "" {
		fmt.Fprintf(&b, "\n\nODDS DATA:\n%s", req.OddsData)
	}
	if req.InjuryContext != "" {
		fmt.Fprintf(&b, "\n\nINJURY CONTEXT:\n%s", req.InjuryContext)
	}

	b.WriteString("\n\nPlease provide a detailed, professional analysis following The Wager's established tone - analytical, confident, and focused on value identification. Include specific recommendations where possible.")
	return b.String()
}

func orNA(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}

func orNone(v string) string {
	if v == "" {
		return "None"
	}
	return v
}
