package betting

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BetResult é o estado de liquidação de uma aposta
type BetResult string

const (
	BetPending BetResult = "pending"
	BetWon     BetResult = "won"
	BetLost    BetResult = "lost"
	BetPush    BetResult = "push"
)

// ParseBetResult valida o texto recebido na borda; valores desconhecidos são rejeitados
func ParseBetResult(s string) (BetResult, error) {
	switch r := BetResult(strings.ToLower(strings.TrimSpace(s))); r {
	case BetPending, BetWon, BetLost, BetPush:
		return r, nil
	}
	return "", &ValidationError{Field: "result", Value: s, Reason: "expected pending, won, lost or push"}
}

func (r BetResult) Terminal() bool { return r == BetWon || r == BetLost || r == BetPush }

// PropResult é o resultado individual de uma prop
type PropResult string

const (
	PropPending PropResult = "pending"
	PropHit     PropResult = "hit"
	PropMiss    PropResult = "miss"
)

func ParsePropResult(s string) (PropResult, error) {
	switch r := PropResult(strings.ToLower(strings.TrimSpace(s))); r {
	case PropPending, PropHit, PropMiss:
		return r, nil
	}
	return "", &ValidationError{Field: "result", Value: s, Reason: "expected pending, hit or miss"}
}

// OverUnder indica o lado da linha escolhido pelo apostador
type OverUnder string

const (
	Over  OverUnder = "over"
	Under OverUnder = "under"
)

func ParseOverUnder(s string) (OverUnder, error) {
	switch ou := OverUnder(strings.ToLower(strings.TrimSpace(s))); ou {
	case Over, Under:
		return ou, nil
	}
	return "", &ValidationError{Field: "over_under", Value: s, Reason: "expected over or under"}
}

// Player é dado de referência vindo do provedor de estatísticas
type Player struct {
	ID       int    `json:"player_id"`
	FullName string `json:"full_name"`
	Active   bool   `json:"is_active"`
}

// Bet é uma aposta registrada pelo usuário (normalmente um parlay)
type Bet struct {
	ID           string
	BetDate      time.Time
	GameDate     time.Time
	BetType      string
	Odds         int // convenção americana (-110, +250)
	Stake        decimal.Decimal
	PotentialWin decimal.Decimal
	Result       BetResult
	CreatedAt    time.Time

	Props []Prop // preenchido apenas em listagens
}

// PropCounts retorna total, acertos e erros das props carregadas
func (b Bet) PropCounts() (total, hit, miss int) {
	for _, p := range b.Props {
		switch p.Result {
		case PropHit:
			hit++
		case PropMiss:
			miss++
		}
	}
	return len(b.Props), hit, miss
}

// Prop é uma linha de desempenho de jogador dentro de uma aposta
type Prop struct {
	ID          string
	BetID       string
	PlayerID    int
	PlayerName  string // snapshot no momento da criação
	PropType    string
	Line        float64
	OverUnder   OverUnder
	Result      PropResult
	ActualValue *float64 // ausente enquanto Result == pending
	GameDate    time.Time
	CreatedAt   time.Time
}

// PropMissStat é o registro de enriquecimento gravado quando uma prop falha
type PropMissStat struct {
	ID                string
	PropID            string
	PlayerID          int
	PlayerName        string
	GameDate          time.Time
	Season            string
	OpponentTeam      string
	OpponentTeamID    *int
	PropType          string
	Line              float64
	ActualValue       float64
	ShootingPct       float64
	FGPct             float64
	FG3Pct            float64
	FTPct             float64
	OpponentDefRating *float64
	OpponentOppPts    *float64
	MissedBy          float64
	CreatedAt         time.Time
}

// PropOutcome junta uma prop liquidada e, se houver, a estatística capturada
type PropOutcome struct {
	Prop Prop
	Miss *PropMissStat
}
