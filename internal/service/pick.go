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

type LogPickRequest struct {
	MatchID       *string    `json:"matchId"`
	Date          *time.Time `json:"date"`
	Sport         string     `json:"sport"`
	League        string     `json:"league"`
	Event         string     `json:"event"`
	BetType       string     `json:"betType"`
	Selection     string     `json:"selection"`
	Line          *string    `json:"line"`
	OddsAmerican  string     `json:"oddsAmerican"`
	OddsDecimal   *float64   `json:"oddsDecimal"`
	Stake         float64    `json:"stake"`
	CISGenerated  *string    `json:"cisGenerated"`
	ScriptSummary *string    `json:"scriptSummary"`
	Justification *string    `json:"justification"`
	Confidence    *int       `json:"confidence"`
	Tags          *string    `json:"tags"`
	Notes         *string    `json:"notes"`
}

// PickPatch updates a logged pick. Nil fields keep the stored value. A
// settlement supplies Result plus RunningBankroll and BankrollChange; the
// service folds those into the user's bankroll and the audit log.
type PickPatch struct {
	Result          *string  `json:"result"`
	ActualResult    *string  `json:"actualResult"`
	ProfitLoss      *float64 `json:"profitLoss"`
	RunningBankroll *float64 `json:"runningBankroll"`
	BankrollChange  *float64 `json:"bankrollChange"`
	ROI             *float64 `json:"roi"`
	Notes           *string  `json:"notes"`
	Tags            *string  `json:"tags"`
}

type PickStats struct {
	TotalPicks      int     `json:"totalPicks"`
	PendingPicks    int     `json:"pendingPicks"`
	WonPicks        int     `json:"wonPicks"`
	LostPicks       int     `json:"lostPicks"`
	PushPicks       int     `json:"pushPicks"`
	TotalWagered    float64 `json:"totalWagered"`
	TotalWon        float64 `json:"totalWon"`
	TotalLoss       float64 `json:"totalLoss"`
	NetProfit       float64 `json:"netProfit"`
	ROI             float64 `json:"roi"`
	WinRate         float64 `json:"winRate"`
	CurrentBankroll float64 `json:"currentBankroll"`
}

type PickList struct {
	Picks []domain.Pick `json:"picks"`
	Stats PickStats     `json:"stats"`
}

type PickService struct {
	picks    *repository.PickRepository
	users    *repository.UserRepository
	bankroll *repository.BankrollRepository
	logger   zerolog.Logger
}

func NewPickService(
	picks *repository.PickRepository,
	users *repository.UserRepository,
	bankroll *repository.BankrollRepository,
	logger zerolog.Logger,
) *PickService {
	return &PickService{picks: picks, users: users, bankroll: bankroll, logger: logger}
}

func (s *PickService) Log(ctx context.Context, p domain.Principal, req LogPickRequest) (*domain.Pick, error) {
	if req.Sport == "" || req.League == "" || req.Event == "" || req.BetType == "" ||
		req.Selection == "" || req.OddsAmerican == "" || req.Stake <= 0 {
		return nil, domain.Invalid("Missing required fields")
	}

	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}

	oddsDecimal := DecimalOdds(req.OddsAmerican)
	if req.OddsDecimal != nil && *req.OddsDecimal > 0 {
		oddsDecimal = *req.OddsDecimal
	}
	potentialWin := req.Stake * (oddsDecimal - 1)

	pick := &domain.Pick{
		UserID:        p.UserID,
		MatchID:       req.MatchID,
		EntryID:       fmt.Sprintf("PICK-%d", time.Now().UnixMilli()),
		Date:          date,
		Sport:         req.Sport,
		League:        req.League,
		Event:         req.Event,
		BetType:       req.BetType,
		Selection:     req.Selection,
		Line:          req.Line,
		OddsAmerican:  req.OddsAmerican,
		OddsDecimal:   &oddsDecimal,
		Stake:         req.Stake,
		PotentialWin:  &potentialWin,
		Result:        domain.ResultPending,
		CISGenerated:  req.CISGenerated,
		ScriptSummary: req.ScriptSummary,
		Justification: req.Justification,
		Confidence:    req.Confidence,
		Tags:          req.Tags,
		Notes:         req.Notes,
	}

	if err := s.picks.Create(ctx, pick); err != nil {
		return nil, err
	}

	// The placement row records the bankroll at bet time without moving it;
	// money only moves at settlement.
	user, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	entry := &domain.BankrollHistory{
		UserID:        p.UserID,
		Amount:        user.CurrentBankroll,
		Change:        0,
		ChangeType:    domain.ChangeBetPlaced,
		Description:   fmt.Sprintf("Bet placed: %s - %s", pick.Event, pick.BetType),
		RelatedPickID: &pick.ID,
	}
	if err := s.bankroll.Append(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", p.UserID).
		Str("pick_id", pick.ID).
		Str("event", pick.Event).
		Float64("stake", pick.Stake).
		Msg("pick logged")

	return pick, nil
}

func (s *PickService) Update(ctx context.Context, p domain.Principal, id string, patch PickPatch) (*domain.Pick, error) {
	pick, err := s.ownedPick(ctx, p, id)
	if err != nil {
		return nil, err
	}

	previousResult := pick.Result

	if patch.Result != nil {
		pick.Result = *patch.Result
	}
	if patch.ActualResult != nil {
		pick.ActualResult = patch.ActualResult
	}
	if patch.ProfitLoss != nil {
		pick.ProfitLoss = patch.ProfitLoss
	}
	if patch.RunningBankroll != nil {
		pick.RunningBankroll = patch.RunningBankroll
	}
	if patch.BankrollChange != nil {
		pick.BankrollChange = patch.BankrollChange
	}
	if patch.ROI != nil {
		pick.ROI = patch.ROI
	}
	if patch.Notes != nil {
		pick.Notes = patch.Notes
	}
	if patch.Tags != nil {
		pick.Tags = patch.Tags
	}

	if err := s.picks.Save(ctx, pick); err != nil {
		return nil, err
	}

	if patch.RunningBankroll != nil {
		if err := s.users.UpdateBankroll(ctx, p.UserID, *patch.RunningBankroll); err != nil {
			return nil, err
		}

		// Only an actual settlement gets an audit row; re-saving the same
		// result or flipping back to Pending does not.
		if pick.Result != previousResult && pick.Result != domain.ResultPending {
			changeType := domain.ChangeAdjustment
			switch pick.Result {
			case domain.ResultWin:
				changeType = domain.ChangeBetWin
			case domain.ResultLoss:
				changeType = domain.ChangeBetLoss
			}

			change := 0.0
			if patch.BankrollChange != nil {
				change = *patch.BankrollChange
			}

			entry := &domain.BankrollHistory{
				UserID:        p.UserID,
				Amount:        *patch.RunningBankroll,
				Change:        change,
				ChangeType:    changeType,
				Description:   fmt.Sprintf("Bet %s: %s", strings.ToLower(pick.Result), pick.Event),
				RelatedPickID: &pick.ID,
			}
			if err := s.bankroll.Append(ctx, entry); err != nil {
				return nil, err
			}
		}
	}

	s.logger.Info().
		Str("user_id", p.UserID).
		Str("pick_id", pick.ID).
		Str("result", pick.Result).
		Msg("pick updated")

	return pick, nil
}

func (s *PickService) Delete(ctx context.Context, p domain.Principal, id string) error {
	if _, err := s.ownedPick(ctx, p, id); err != nil {
		return err
	}
	return s.picks.Delete(ctx, id)
}

func (s *PickService) List(ctx context.Context, p domain.Principal, filter repository.PickFilter) (*PickList, error) {
	var (
		picks []domain.Pick
		user  *domain.User
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		picks, err = s.picks.List(gCtx, p.UserID, filter)
		return err
	})
	g.Go(func() error {
		var err error
		user, err = s.users.GetByID(gCtx, p.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &PickList{Picks: picks, Stats: computePickStats(picks, user.CurrentBankroll)}, nil
}

func (s *PickService) History(ctx context.Context, p domain.Principal) ([]domain.BankrollHistory, error) {
	return s.bankroll.ListByUser(ctx, p.UserID)
}

func (s *PickService) ownedPick(ctx context.Context, p domain.Principal, id string) (*domain.Pick, error) {
	pick, err := s.picks.Get(ctx, id)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, domain.NotFound("Pick not found")
		}
		return nil, err
	}
	if pick.UserID != p.UserID {
		return nil, domain.Forbidden("Forbidden")
	}
	return pick, nil
}

func computePickStats(picks []domain.Pick, bankroll float64) PickStats {
	stats := PickStats{
		TotalPicks:      len(picks),
		CurrentBankroll: bankroll,
	}
	if bankroll == 0 {
		stats.CurrentBankroll = constants.DefaultBankroll
	}

	for _, pick := range picks {
		stats.TotalWagered += pick.Stake
		switch pick.Result {
		case domain.ResultPending:
			stats.PendingPicks++
		case domain.ResultWin:
			stats.WonPicks++
			if pick.ProfitLoss != nil {
				stats.TotalWon += *pick.ProfitLoss
			}
		case domain.ResultLoss:
			stats.LostPicks++
			if pick.ProfitLoss != nil {
				stats.TotalLoss += *pick.ProfitLoss
			}
		case domain.ResultPush:
			stats.PushPicks++
		}
	}
	if stats.TotalLoss < 0 {
		stats.TotalLoss = -stats.TotalLoss
	}
	stats.NetProfit = stats.TotalWon - stats.TotalLoss

	if stats.TotalWagered > 0 {
		stats.ROI = stats.NetProfit / stats.TotalWagered * 100
	}
	settled := stats.WonPicks + stats.LostPicks + stats.PushPicks
	if settled > 0 {
		stats.WinRate = float64(stats.WonPicks) / float64(settled) * 100
	}

	return stats
}
