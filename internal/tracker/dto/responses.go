package dto

import (
	"time"

	"github.com/radieske/prop-miss-tracker/internal/analytics"
	"github.com/radieske/prop-miss-tracker/internal/betting"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Kind    string `json:"kind"`
}

type HealthResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Service string `json:"service"`
}

type PlayersResponse struct {
	Success bool             `json:"success"`
	Count   int              `json:"count"`
	Players []betting.Player `json:"players"`
}

type PlayerResponse struct {
	Success bool           `json:"success"`
	Player  betting.Player `json:"player"`
}

type CreateBetResponse struct {
	Success bool   `json:"success"`
	BetID   string `json:"bet_id"`
	Message string `json:"message,omitempty"`
}

type AddPropResponse struct {
	Success bool   `json:"success"`
	PropID  string `json:"prop_id"`
	Message string `json:"message,omitempty"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// CaptureError descreve por que a captura falhou depois que o resultado da prop já foi gravado
type CaptureError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type PropResultResponse struct {
	Success       bool          `json:"success"`
	Message       string        `json:"message,omitempty"`
	StatsCaptured bool          `json:"stats_captured"`
	Stats         *MissStat     `json:"stats,omitempty"`
	CaptureError  *CaptureError `json:"capture_error,omitempty"`
	CaptureQueued bool          `json:"capture_queued,omitempty"`
}

type PropResponse struct {
	Success bool      `json:"success"`
	Prop    Prop      `json:"prop"`
	Stats   *MissStat `json:"stats,omitempty"`
}

type RecentBetsResponse struct {
	Success bool  `json:"success"`
	Count   int   `json:"count"`
	Bets    []Bet `json:"bets"`
}

type BustPlayersResponse struct {
	Success bool                   `json:"success"`
	Count   int                    `json:"count"`
	Players []analytics.BustPlayer `json:"players"`
}

type ToughMatchupsResponse struct {
	Success bool                     `json:"success"`
	Count   int                      `json:"count"`
	Teams   []analytics.ToughMatchup `json:"teams"`
}

type PlayerVsOpponentResponse struct {
	Success bool `json:"success"`
	analytics.PlayerVsOpponent
}

// PlayerOpponentsResponse é devolvido quando player-vs-opponent vem sem opponent
type PlayerOpponentsResponse struct {
	Success   bool              `json:"success"`
	PlayerID  int               `json:"player_id"`
	Count     int               `json:"count"`
	Opponents []analytics.Split `json:"opponents"`
}

type Bet struct {
	BetID        string    `json:"bet_id"`
	BetDate      string    `json:"bet_date"`
	GameDate     string    `json:"game_date"`
	BetType      string    `json:"bet_type"`
	Odds         int       `json:"odds"`
	Stake        string    `json:"stake"`
	PotentialWin string    `json:"potential_win"`
	Result       string    `json:"result"`
	CreatedAt    time.Time `json:"created_at"`
	NumProps     int       `json:"num_props"`
	PropsHit     int       `json:"props_hit"`
	PropsMiss    int       `json:"props_miss"`
	Props        []Prop    `json:"props"`
}

type Prop struct {
	PropID      string    `json:"prop_id"`
	BetID       string    `json:"bet_id"`
	PlayerID    int       `json:"player_id"`
	PlayerName  string    `json:"player_name"`
	PropType    string    `json:"prop_type"`
	Line        float64   `json:"line"`
	OverUnder   string    `json:"over_under"`
	Result      string    `json:"result"`
	ActualValue *float64  `json:"actual_value"`
	GameDate    string    `json:"game_date,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type MissStat struct {
	StatID            string    `json:"stat_id"`
	PropID            string    `json:"prop_id"`
	PlayerID          int       `json:"player_id"`
	PlayerName        string    `json:"player_name"`
	GameDate          string    `json:"game_date"`
	Season            string    `json:"season"`
	OpponentTeam      string    `json:"opponent_team"`
	OpponentTeamID    *int      `json:"opponent_team_id"`
	PropType          string    `json:"prop_type"`
	Line              float64   `json:"line"`
	ActualValue       float64   `json:"actual_value"`
	ShootingPct       float64   `json:"shooting_pct"`
	FGPct             float64   `json:"fg_pct"`
	FG3Pct            float64   `json:"fg3_pct"`
	FTPct             float64   `json:"ft_pct"`
	OpponentDefRating *float64  `json:"opponent_def_rating"`
	OpponentOppPts    *float64  `json:"opponent_opp_pts"`
	MissedBy          float64   `json:"missed_by"`
	CreatedAt         time.Time `json:"created_at"`
}

func FromBet(b betting.Bet) Bet {
	total, hit, miss := b.PropCounts()
	out := Bet{
		BetID:        b.ID,
		BetDate:      b.BetDate.Format(betting.DateLayout),
		GameDate:     b.GameDate.Format(betting.DateLayout),
		BetType:      b.BetType,
		Odds:         b.Odds,
		Stake:        b.Stake.StringFixed(2),
		PotentialWin: b.PotentialWin.StringFixed(2),
		Result:       string(b.Result),
		CreatedAt:    b.CreatedAt,
		NumProps:     total,
		PropsHit:     hit,
		PropsMiss:    miss,
		Props:        make([]Prop, 0, len(b.Props)),
	}
	for _, p := range b.Props {
		out.Props = append(out.Props, FromProp(p))
	}
	return out
}

func FromProp(p betting.Prop) Prop {
	out := Prop{
		PropID:      p.ID,
		BetID:       p.BetID,
		PlayerID:    p.PlayerID,
		PlayerName:  p.PlayerName,
		PropType:    p.PropType,
		Line:        p.Line,
		OverUnder:   string(p.OverUnder),
		Result:      string(p.Result),
		ActualValue: p.ActualValue,
		CreatedAt:   p.CreatedAt,
	}
	if !p.GameDate.IsZero() {
		out.GameDate = p.GameDate.Format(betting.DateLayout)
	}
	return out
}

func FromMissStat(s betting.PropMissStat) *MissStat {
	return &MissStat{
		StatID:            s.ID,
		PropID:            s.PropID,
		PlayerID:          s.PlayerID,
		PlayerName:        s.PlayerName,
		GameDate:          s.GameDate.Format(betting.DateLayout),
		Season:            s.Season,
		OpponentTeam:      s.OpponentTeam,
		OpponentTeamID:    s.OpponentTeamID,
		PropType:          s.PropType,
		Line:              s.Line,
		ActualValue:       s.ActualValue,
		ShootingPct:       s.ShootingPct,
		FGPct:             s.FGPct,
		FG3Pct:            s.FG3Pct,
		FTPct:             s.FTPct,
		OpponentDefRating: s.OpponentDefRating,
		OpponentOppPts:    s.OpponentOppPts,
		MissedBy:          s.MissedBy,
		CreatedAt:         s.CreatedAt,
	}
}
