package betting

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Payout calcula o lucro potencial a partir de odds americanas, arredondado em centavos
func Payout(odds int, stake decimal.Decimal) decimal.Decimal {
	o := decimal.NewFromInt(int64(odds))
	if odds > 0 {
		return stake.Mul(o).Div(hundred).Round(2)
	}
	return stake.Mul(hundred).Div(o.Abs()).Round(2)
}

// NewBet são os campos enviados na criação de uma aposta
type NewBet struct {
	BetDate      time.Time
	GameDate     time.Time
	BetType      string
	Odds         int
	Stake        decimal.Decimal
	PotentialWin *decimal.Decimal
}

// Normalize valida os campos e deriva potential_win quando não informado
func (n NewBet) Normalize() (NewBet, error) {
	if n.BetType = strings.TrimSpace(n.BetType); n.BetType == "" {
		n.BetType = "parlay"
	}
	if n.Odds > -100 && n.Odds < 100 {
		return n, &ValidationError{Field: "odds", Value: strconv.Itoa(n.Odds), Reason: "american odds must be <= -100 or >= 100"}
	}
	if !n.Stake.IsPositive() {
		return n, &ValidationError{Field: "stake", Value: n.Stake.String(), Reason: "must be positive"}
	}
	if n.PotentialWin == nil {
		pw := Payout(n.Odds, n.Stake)
		n.PotentialWin = &pw
	} else if n.PotentialWin.IsNegative() {
		return n, &ValidationError{Field: "potential_win", Value: n.PotentialWin.String(), Reason: "must not be negative"}
	}
	return n, nil
}

// NewProp são os campos de uma prop adicionada a uma aposta
type NewProp struct {
	PlayerID   int
	PlayerName string
	PropType   string
	Line       float64
	OverUnder  OverUnder
}

func (n NewProp) Normalize() (NewProp, error) {
	n.PropType = strings.ToLower(strings.TrimSpace(n.PropType))
	n.PlayerName = strings.TrimSpace(n.PlayerName)
	if n.PlayerID <= 0 {
		return n, &ValidationError{Field: "player_id", Value: strconv.Itoa(n.PlayerID), Reason: "must be positive"}
	}
	if n.PropType == "" {
		return n, &ValidationError{Field: "prop_type", Reason: "required"}
	}
	if n.Line < 0 {
		return n, &ValidationError{Field: "line", Value: strconv.FormatFloat(n.Line, 'f', -1, 64), Reason: "must not be negative"}
	}
	if n.OverUnder == "" {
		n.OverUnder = Over
	}
	return n, nil
}
