package analytics

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/radieske/prop-miss-tracker/internal/betting"
	"github.com/radieske/prop-miss-tracker/internal/statsapi"
)

// Store fornece o histórico de props liquidadas
type Store interface {
	History(ctx context.Context, playerID int) ([]betting.PropOutcome, error)
}

type BustPlayer struct {
	PlayerID         int      `json:"player_id"`
	PlayerName       string   `json:"player_name"`
	TotalProps       int      `json:"total_props"`
	Misses           int      `json:"misses"`
	MissRate         float64  `json:"miss_rate"`
	AvgValueWhenMiss *float64 `json:"avg_value_when_miss"`
}

type ToughMatchup struct {
	OpponentTeam string   `json:"opponent_team"`
	TotalGames   int      `json:"total_games"`
	Misses       int      `json:"misses"`
	MissRate     float64  `json:"miss_rate"`
	AvgDefRating *float64 `json:"avg_def_rating"`
	AvgOppPts    *float64 `json:"avg_opp_pts"`
}

// Split agrega um recorte (tipo de prop ou adversário) do histórico de um jogador
type Split struct {
	Category       string   `json:"category"`
	Total          int      `json:"total"`
	Misses         int      `json:"misses"`
	MissRate       float64  `json:"miss_rate"`
	AvgMissedBy    float64  `json:"avg_missed_by"`
	AvgShootingPct float64  `json:"avg_shooting_pct"`
	AvgDefRating   *float64 `json:"avg_def_rating"`
}

type PlayerVsOpponent struct {
	PlayerID       int     `json:"player_id"`
	OpponentTeam   string  `json:"opponent_team"`
	TotalProps     int     `json:"total_props"`
	Misses         int     `json:"misses"`
	MissRate       float64 `json:"miss_rate"`
	AvgShootingPct float64 `json:"avg_shooting_pct"`
	AvgMissedBy    float64 `json:"avg_missed_by"`
	ByPropType     []Split `json:"by_prop_type"`
}

// Aggregator calcula os rankings sobre o histórico do Store (somente leitura)
type Aggregator struct{ store Store }

func NewAggregator(store Store) *Aggregator { return &Aggregator{store: store} }

// BustPlayers agrupa todas as props liquidadas por jogador e ordena por taxa de miss
func (a *Aggregator) BustPlayers(ctx context.Context, minProps int) ([]BustPlayer, error) {
	hist, err := a.store.History(ctx, 0)
	if err != nil {
		return nil, err
	}

	type acc struct {
		row      BustPlayer
		missVals mean
	}
	groups := map[int]*acc{}
	for _, o := range hist {
		g, ok := groups[o.Prop.PlayerID]
		if !ok {
			g = &acc{row: BustPlayer{PlayerID: o.Prop.PlayerID}}
			groups[o.Prop.PlayerID] = g
		}
		g.row.PlayerName = o.Prop.PlayerName
		g.row.TotalProps++
		if o.Prop.Result == betting.PropMiss {
			g.row.Misses++
			if o.Prop.ActualValue != nil {
				g.missVals.add(*o.Prop.ActualValue)
			}
		}
	}

	out := []BustPlayer{}
	for _, g := range groups {
		if g.row.TotalProps < minProps {
			continue
		}
		g.row.MissRate = rate(g.row.Misses, g.row.TotalProps)
		g.row.AvgValueWhenMiss = g.missVals.ptr()
		out = append(out, g.row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MissRate != out[j].MissRate {
			return out[i].MissRate > out[j].MissRate
		}
		if out[i].TotalProps != out[j].TotalProps {
			return out[i].TotalProps > out[j].TotalProps
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out, nil
}

// ToughMatchups agrupa as estatísticas capturadas por adversário. Médias
// defensivas consideram apenas linhas em que o valor existe.
func (a *Aggregator) ToughMatchups(ctx context.Context, minGames int) ([]ToughMatchup, error) {
	hist, err := a.store.History(ctx, 0)
	if err != nil {
		return nil, err
	}

	type acc struct {
		row         ToughMatchup
		def, oppPts mean
	}
	groups := map[string]*acc{}
	for _, o := range hist {
		s := o.Miss
		if s == nil || s.OpponentTeam == statsapi.UnknownOpponent {
			continue
		}
		g, ok := groups[s.OpponentTeam]
		if !ok {
			g = &acc{row: ToughMatchup{OpponentTeam: s.OpponentTeam}}
			groups[s.OpponentTeam] = g
		}
		g.row.TotalGames++
		if o.Prop.Result == betting.PropMiss {
			g.row.Misses++
		}
		g.def.addPtr(s.OpponentDefRating)
		g.oppPts.addPtr(s.OpponentOppPts)
	}

	out := []ToughMatchup{}
	for _, g := range groups {
		if g.row.TotalGames < minGames {
			continue
		}
		g.row.MissRate = rate(g.row.Misses, g.row.TotalGames)
		g.row.AvgDefRating = g.def.ptr()
		g.row.AvgOppPts = g.oppPts.ptr()
		out = append(out, g.row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MissRate != out[j].MissRate {
			return out[i].MissRate > out[j].MissRate
		}
		if out[i].TotalGames != out[j].TotalGames {
			return out[i].TotalGames > out[j].TotalGames
		}
		return out[i].OpponentTeam < out[j].OpponentTeam
	})
	return out, nil
}

// PlayerVsOpponent resume o histórico do jogador contra um adversário, com quebra
// por tipo de prop. Sem histórico devolve o resultado zerado.
func (a *Aggregator) PlayerVsOpponent(ctx context.Context, playerID int, opponent string) (PlayerVsOpponent, error) {
	opponent = strings.ToUpper(strings.TrimSpace(opponent))
	res := PlayerVsOpponent{PlayerID: playerID, OpponentTeam: opponent, ByPropType: []Split{}}

	hist, err := a.store.History(ctx, playerID)
	if err != nil {
		return res, err
	}

	var total splitAcc
	byType := map[string]*splitAcc{}
	for _, o := range hist {
		if o.Miss == nil || o.Miss.OpponentTeam != opponent {
			continue
		}
		total.add(o)
		g, ok := byType[o.Prop.PropType]
		if !ok {
			g = &splitAcc{}
			byType[o.Prop.PropType] = g
		}
		g.add(o)
	}
	if total.n == 0 {
		return res, nil
	}

	sum := total.split("")
	res.TotalProps = sum.Total
	res.Misses = sum.Misses
	res.MissRate = sum.MissRate
	res.AvgShootingPct = sum.AvgShootingPct
	res.AvgMissedBy = sum.AvgMissedBy
	for propType, g := range byType {
		res.ByPropType = append(res.ByPropType, g.split(propType))
	}
	sort.Slice(res.ByPropType, func(i, j int) bool { return res.ByPropType[i].Category < res.ByPropType[j].Category })
	return res, nil
}

// PlayerOpponents quebra o histórico do jogador por adversário, mais misses primeiro
func (a *Aggregator) PlayerOpponents(ctx context.Context, playerID int) ([]Split, error) {
	hist, err := a.store.History(ctx, playerID)
	if err != nil {
		return nil, err
	}
	byOpp := map[string]*splitAcc{}
	for _, o := range hist {
		if o.Miss == nil {
			continue
		}
		g, ok := byOpp[o.Miss.OpponentTeam]
		if !ok {
			g = &splitAcc{}
			byOpp[o.Miss.OpponentTeam] = g
		}
		g.add(o)
	}
	out := make([]Split, 0, len(byOpp))
	for team, g := range byOpp {
		out = append(out, g.split(team))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Misses != out[j].Misses {
			return out[i].Misses > out[j].Misses
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

type splitAcc struct {
	n, misses               int
	missedBy, shooting, def mean
}

func (s *splitAcc) add(o betting.PropOutcome) {
	s.n++
	if o.Prop.Result == betting.PropMiss {
		s.misses++
	}
	s.missedBy.add(o.Miss.MissedBy)
	s.shooting.add(o.Miss.ShootingPct)
	s.def.addPtr(o.Miss.OpponentDefRating)
}

func (s *splitAcc) split(category string) Split {
	return Split{
		Category:       category,
		Total:          s.n,
		Misses:         s.misses,
		MissRate:       rate(s.misses, s.n),
		AvgMissedBy:    s.missedBy.value(),
		AvgShootingPct: s.shooting.value(),
		AvgDefRating:   s.def.ptr(),
	}
}

// mean acumula uma média ignorando valores ausentes
type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.n++
}

func (m *mean) addPtr(v *float64) {
	if v != nil {
		m.add(*v)
	}
}

func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return round(m.sum/float64(m.n), 2)
}

func (m mean) ptr() *float64 {
	if m.n == 0 {
		return nil
	}
	v := m.value()
	return &v
}

// rate é 100*part/total com uma casa decimal
func rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round(100*float64(part)/float64(total), 1)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
