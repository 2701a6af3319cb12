package dto

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/radieske/prop-miss-tracker/internal/betting"
	"github.com/radieske/prop-miss-tracker/internal/season"
)

var (
	defaultOdds  = -110
	defaultStake = decimal.NewFromInt(1)
)

type CreateBetRequest struct {
	BetDate      string           `json:"bet_date"`  // YYYY-MM-DD
	GameDate     string           `json:"game_date"` // YYYY-MM-DD
	BetType      string           `json:"bet_type"`  // default "parlay"
	Odds         *int             `json:"odds"`      // default -110
	Stake        *decimal.Decimal `json:"stake"`     // default 1.00
	PotentialWin *decimal.Decimal `json:"potential_win,omitempty"`
}

// ToNewBet converte o payload, valida as datas e deriva o payout quando ausente
func (r CreateBetRequest) ToNewBet() (betting.NewBet, error) {
	betDate, err := season.ParseDate(r.BetDate)
	if err != nil {
		return betting.NewBet{}, err
	}
	gameDate, err := season.ParseDate(r.GameDate)
	if err != nil {
		return betting.NewBet{}, err
	}
	nb := betting.NewBet{
		BetDate:      betDate,
		GameDate:     gameDate,
		BetType:      r.BetType,
		Odds:         defaultOdds,
		Stake:        defaultStake,
		PotentialWin: r.PotentialWin,
	}
	if r.Odds != nil {
		nb.Odds = *r.Odds
	}
	if r.Stake != nil {
		nb.Stake = *r.Stake
	}
	return nb.Normalize()
}

type AddPropRequest struct {
	PlayerID   int     `json:"player_id"`
	PlayerName string  `json:"player_name"`
	PropType   string  `json:"prop_type"` // "points", "rebounds", "pra"...
	Line       float64 `json:"line"`
	OverUnder  string  `json:"over_under"` // default "over"
}

func (r AddPropRequest) ToNewProp() (betting.NewProp, error) {
	np := betting.NewProp{
		PlayerID:   r.PlayerID,
		PlayerName: r.PlayerName,
		PropType:   r.PropType,
		Line:       r.Line,
	}
	if strings.TrimSpace(r.OverUnder) != "" {
		ou, err := betting.ParseOverUnder(r.OverUnder)
		if err != nil {
			return betting.NewProp{}, err
		}
		np.OverUnder = ou
	}
	return np.Normalize()
}

type BetResultRequest struct {
	Result string `json:"result"` // won | lost | push
}

type PropResultRequest struct {
	Result       string   `json:"result"` // hit | miss
	ActualValue  *float64 `json:"actual_value"`
	CaptureStats *bool    `json:"capture_stats"` // default true
}

// WantsCapture indica se a captura deve rodar: só para miss e com capture_stats != false
func (r PropResultRequest) WantsCapture(result betting.PropResult) bool {
	if result != betting.PropMiss {
		return false
	}
	return r.CaptureStats == nil || *r.CaptureStats
}
