package constants

import "time"

const (
	ExternalAPITimeout = 60 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 90 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultBankroll     = 1000.0
	DefaultStake        = 25.0
	DefaultOddsAmerican = "-110"
	DefaultDecimalOdds  = 1.91
	DefaultConfidence   = 7
	DefaultVersion      = "1.0"
)

const (
	CISMaxTokens       = 2000
	CISTemperature     = 0.7
	ExecuteMaxTokens   = 1500
	ExecuteTemperature = 0.3
)

const (
	InjuryKeywordWeight = 20
	MaxInjuryConfidence = 100
)

const (
	SessionTokenLength = 32
	DefaultSessionTTL  = 30 * 24 * time.Hour
)

// InjuryKeywords is scanned case-insensitively against preview text. Matched
// keywords are reported in this order.
var InjuryKeywords = []string{
	"injury", "injured", "doubtful", "out", "ruled out",
	"questionable", "probable", "day-to-day", "sidelined", "unavailable",
	"fitness", "knock", "strain", "sprain", "tear", "surgery",
	"rehabilitation", "recovery", "medical", "treatment",
}

// InjurySuggestions is returned when no injury keywords are found.
var InjurySuggestions = []string{
	"Consider mentioning injury status of key players",
	"Check team news for last-minute changes",
	"Verify lineup confirmations before betting",
}

// LeagueKeyword maps a league-name substring to a sport label. Checked in
// order, first match wins.
type LeagueKeyword struct {
	Substring string
	Sport     string
}

var LeagueKeywords = []LeagueKeyword{
	{"nba", "NBA"},
	{"wnba", "WNBA"},
	{"mls", "MLS"},
	{"ufc", "UFC"},
	{"nhl", "NHL"},
	{"nfl", "NFL"},
	{"mlb", "MLB"},
	{"premier", "Premier League"},
	{"champions", "Champions League"},
	{"la liga", "La Liga"},
	{"serie a", "Serie A"},
	{"bundesliga", "Bundesliga"},
	{"tennis", "Tennis"},
}
