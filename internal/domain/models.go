package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Principal identifies the authenticated user for a single request. It is
// resolved once by the session middleware and passed explicitly into every
// operation.
type Principal struct {
	UserID string
	Email  string
}

type User struct {
	ID              string  `gorm:"primaryKey;size:21" json:"id"`
	Email           string  `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash    string  `json:"-"`
	Name            string  `json:"name"`
	CurrentBankroll float64 `gorm:"default:1000" json:"currentBankroll"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type Session struct {
	Token     string    `gorm:"primaryKey;size:64" json:"-"`
	UserID    string    `gorm:"index;size:21" json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

type LeagueSchedule struct {
	ID        string    `gorm:"primaryKey;size:21" json:"id"`
	UserID    string    `gorm:"index;size:21" json:"userId"`
	Date      time.Time `gorm:"index" json:"date"`
	HomeTeam  string    `json:"homeTeam"`
	AwayTeam  string    `json:"awayTeam"`
	League    string    `json:"league"`
	Sport     string    `json:"sport"`
	Time      *string   `json:"time,omitempty"`
	Venue     *string   `json:"venue,omitempty"`
	Status    string    `gorm:"default:Scheduled" json:"status"`
	HomeScore *int      `json:"homeScore,omitempty"`
	AwayScore *int      `json:"awayScore,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type BettingScript struct {
	ID          string     `gorm:"primaryKey;size:21" json:"id"`
	UserID      string     `gorm:"uniqueIndex:idx_scripts_user_league;size:21" json:"userId"`
	League      string     `gorm:"uniqueIndex:idx_scripts_user_league;size:128" json:"league"`
	Sport       string     `json:"sport"`
	FileName    string     `json:"fileName"`
	Content     string     `json:"content"`
	Description *string    `json:"description,omitempty"`
	Version     string     `gorm:"default:1.0" json:"version"`
	IsActive    bool       `gorm:"default:true" json:"isActive"`
	LastUsed    *time.Time `json:"lastUsed,omitempty"`
	TimesUsed   int        `json:"timesUsed"`
	SuccessRate *float64   `json:"successRate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Pick result lifecycle: Pending until settled, then Win/Loss/Push/Void. A
// settled pick may be re-settled; each settlement appends a bankroll history
// row.
const (
	ResultPending = "Pending"
	ResultWin     = "Win"
	ResultLoss    = "Loss"
	ResultPush    = "Push"
	ResultVoid    = "Void"
)

type Pick struct {
	ID              string    `gorm:"primaryKey;size:21" json:"id"`
	UserID          string    `gorm:"index;size:21" json:"userId"`
	MatchID         *string   `json:"matchId,omitempty"`
	EntryID         string    `json:"entryId"`
	Date            time.Time `gorm:"index" json:"date"`
	Sport           string    `json:"sport"`
	League          string    `json:"league"`
	Event           string    `json:"event"`
	BetType         string    `json:"betType"`
	Selection       string    `json:"selection"`
	Line            *string   `json:"line,omitempty"`
	OddsAmerican    string    `json:"oddsAmerican"`
	OddsDecimal     *float64  `json:"oddsDecimal,omitempty"`
	Stake           float64   `json:"stake"`
	PotentialWin    *float64  `json:"potentialWin,omitempty"`
	Result          string    `gorm:"default:Pending" json:"result"`
	ActualResult    *string   `json:"actualResult,omitempty"`
	ProfitLoss      *float64  `json:"profitLoss,omitempty"`
	RunningBankroll *float64  `json:"runningBankroll,omitempty"`
	BankrollChange  *float64  `json:"bankrollChange,omitempty"`
	ROI             *float64  `gorm:"column:roi" json:"roi,omitempty"`
	CISGenerated    *string   `gorm:"column:cis_generated" json:"cisGenerated,omitempty"`
	ScriptSummary   *string   `json:"scriptSummary,omitempty"`
	Justification   *string   `json:"justification,omitempty"`
	Confidence      *int      `json:"confidence,omitempty"`
	Tags            *string   `json:"tags,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

const (
	ChangeDeposit    = "Deposit"
	ChangeWithdrawal = "Withdrawal"
	ChangeBetPlaced  = "Bet_Placed"
	ChangeBetWin     = "Bet_Win"
	ChangeBetLoss    = "Bet_Loss"
	ChangeAdjustment = "Adjustment"
)

// BankrollHistory is an append-only audit log. Amount is the bankroll after
// the event, Change the delta applied by it.
type BankrollHistory struct {
	ID            string    `gorm:"primaryKey;size:21" json:"id"`
	UserID        string    `gorm:"index;size:21" json:"userId"`
	Amount        float64   `json:"amount"`
	Change        float64   `json:"change"`
	ChangeType    string    `json:"changeType"`
	Description   string    `json:"description"`
	RelatedPickID *string   `json:"relatedPickId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (BankrollHistory) TableName() string { return "bankroll_history" }

// UploadedData keeps spreadsheet payloads as opaque JSON blobs. At most one
// row per (user, sport, league) is active.
type UploadedData struct {
	ID            string         `gorm:"primaryKey;size:21" json:"id"`
	UserID        string         `gorm:"index;size:21" json:"userId"`
	FileName      string         `json:"fileName"`
	Sport         string         `json:"sport"`
	League        string         `json:"league"`
	BettingScript datatypes.JSON `json:"bettingScript,omitempty"`
	Fixtures      datatypes.JSON `json:"fixtures,omitempty"`
	Stats         datatypes.JSON `json:"stats,omitempty"`
	IsActive      bool           `gorm:"default:true" json:"isActive"`
	UploadDate    time.Time      `json:"uploadDate"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func (UploadedData) TableName() string { return "uploaded_data" }
