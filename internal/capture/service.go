package capture

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/prop-miss-tracker/internal/betting"
	"github.com/radieske/prop-miss-tracker/internal/season"
	"github.com/radieske/prop-miss-tracker/internal/statsapi"
)

// Store é o subconjunto do repositório usado pela captura
type Store interface {
	GetProp(ctx context.Context, propID string) (betting.Prop, error)
	GetMissStat(ctx context.Context, propID string) (betting.PropMissStat, bool, error)
	InsertMissStat(ctx context.Context, s betting.PropMissStat) (bool, error)
}

// Players valida a identidade do jogador da prop
type Players interface {
	GetByID(ctx context.Context, playerID int) (betting.Player, error)
}

// Outcomes reportados em OnCapture
const (
	OutcomeCaptured = "captured"
	OutcomeExisting = "existing"
	OutcomeDegraded = "degraded" // sem estatísticas defensivas do adversário
	OutcomeFailed   = "failed"
)

// Service enriquece props que falharam com o box score do jogador e a defesa do adversário
type Service struct {
	store   Store
	players Players
	source  statsapi.Source
	log     *zap.Logger

	OnCapture func(outcome string) // métricas
}

func NewService(store Store, players Players, source statsapi.Source, log *zap.Logger) *Service {
	return &Service{store: store, players: players, source: source, log: log}
}

// CaptureStats grava (uma única vez) a PropMissStat da prop. Chamadas repetidas
// devolvem a linha já gravada sem consultar o provedor. Nada é persistido
// se alguma etapa obrigatória falhar.
func (s *Service) CaptureStats(ctx context.Context, propID string) (betting.PropMissStat, error) {
	stat, outcome, err := s.capture(ctx, propID)
	if err != nil {
		outcome = OutcomeFailed
		s.log.Warn("capture failed", zap.String("prop_id", propID), zap.Error(err))
	}
	if s.OnCapture != nil {
		s.OnCapture(outcome)
	}
	return stat, err
}

func (s *Service) capture(ctx context.Context, propID string) (betting.PropMissStat, string, error) {
	if existing, found, err := s.store.GetMissStat(ctx, propID); err != nil {
		return betting.PropMissStat{}, "", err
	} else if found {
		return existing, OutcomeExisting, nil
	}

	prop, err := s.store.GetProp(ctx, propID)
	if err != nil {
		return betting.PropMissStat{}, "", err
	}
	if prop.Result != betting.PropMiss {
		return betting.PropMissStat{}, "", &betting.InvalidStateError{Entity: "prop", ID: propID, Reason: "stats are captured only for missed props"}
	}
	if prop.ActualValue == nil {
		return betting.PropMissStat{}, "", &betting.InvalidStateError{Entity: "prop", ID: propID, Reason: "actual_value is missing"}
	}
	if _, err := s.players.GetByID(ctx, prop.PlayerID); err != nil {
		return betting.PropMissStat{}, "", err
	}

	label := season.Resolve(prop.GameDate)
	game, err := s.findGame(ctx, prop.PlayerID, prop.GameDate, label)
	if err != nil {
		return betting.PropMissStat{}, "", err
	}

	stat := betting.PropMissStat{
		PropID:       prop.ID,
		PlayerID:     prop.PlayerID,
		PlayerName:   prop.PlayerName,
		GameDate:     prop.GameDate,
		Season:       label,
		OpponentTeam: statsapi.OpponentFromMatchup(game.Matchup),
		PropType:     prop.PropType,
		Line:         prop.Line,
		ActualValue:  *prop.ActualValue,
		ShootingPct:  shootingPct(game.FGM, game.FGA, game.FTM, game.FTA),
		FGPct:        pct(game.FGM, game.FGA),
		FG3Pct:       pct(game.FG3M, game.FG3A),
		FTPct:        pct(game.FTM, game.FTA),
		MissedBy:     missedBy(prop.OverUnder, prop.Line, *prop.ActualValue),
	}

	outcome := OutcomeCaptured
	if err := s.resolveOpponent(ctx, &stat); err != nil {
		var nts *betting.NoTeamStatsError
		if !errors.As(err, &nts) {
			return betting.PropMissStat{}, "", err
		}
		outcome = OutcomeDegraded
		s.log.Warn("opponent defensive stats unavailable",
			zap.String("prop_id", propID),
			zap.String("team", nts.Team),
			zap.String("season", nts.Season),
		)
	}

	inserted, err := s.store.InsertMissStat(ctx, stat)
	if err != nil {
		return betting.PropMissStat{}, "", err
	}
	if !inserted {
		outcome = OutcomeExisting
	}
	// relê para devolver exatamente a linha persistida (inclusive em corrida com outra captura)
	saved, found, err := s.store.GetMissStat(ctx, propID)
	if err != nil {
		return betting.PropMissStat{}, "", err
	}
	if !found {
		return betting.PropMissStat{}, "", &betting.NotFoundError{Entity: "prop", ID: propID}
	}

	s.log.Info("miss stats captured",
		zap.String("prop_id", propID),
		zap.Int("player_id", saved.PlayerID),
		zap.String("opponent", saved.OpponentTeam),
		zap.Float64("missed_by", saved.MissedBy),
		zap.String("outcome", outcome),
	)
	return saved, outcome, nil
}

// findGame procura o jogo na temporada regular e, para datas de abril a junho,
// também nos playoffs
func (s *Service) findGame(ctx context.Context, playerID int, date time.Time, label string) (statsapi.GameLine, error) {
	types := []statsapi.SeasonType{statsapi.RegularSeason}
	if m := date.Month(); m >= time.April && m <= time.June {
		types = append(types, statsapi.Playoffs)
	}
	notFound := &betting.NoGameFoundError{PlayerID: playerID, GameDate: date}
	for _, st := range types {
		lines, err := s.source.PlayerGameLog(ctx, playerID, label, st)
		if errors.Is(err, statsapi.ErrRejected) {
			s.log.Warn("game log rejected by provider",
				zap.Int("player_id", playerID), zap.String("season_type", string(st)), zap.Error(err))
			return statsapi.GameLine{}, notFound
		}
		if err != nil {
			return statsapi.GameLine{}, err
		}
		if g, ok := statsapi.FindGame(lines, date); ok {
			return g, nil
		}
		if g, ok, err := s.refreshGame(ctx, playerID, date, label, st); err != nil {
			return statsapi.GameLine{}, err
		} else if ok {
			return g, nil
		}
	}
	return statsapi.GameLine{}, notFound
}

// refreshGame relê o game log ignorando o cache; um log guardado antes do jogo
// terminar não tem a partida
func (s *Service) refreshGame(ctx context.Context, playerID int, date time.Time, label string, st statsapi.SeasonType) (statsapi.GameLine, bool, error) {
	r, ok := s.source.(statsapi.Refresher)
	if !ok {
		return statsapi.GameLine{}, false, nil
	}
	lines, refreshed, err := r.RefreshGameLog(ctx, playerID, label, st)
	if errors.Is(err, statsapi.ErrRejected) {
		return statsapi.GameLine{}, false, nil
	}
	if err != nil || !refreshed {
		return statsapi.GameLine{}, false, err
	}
	g, found := statsapi.FindGame(lines, date)
	return g, found, nil
}

// resolveOpponent preenche id e médias defensivas do adversário. Devolve
// NoTeamStatsError quando a temporada não tem os números do time ou o provedor
// recusa a consulta; só indisponibilidade e cancelamento interrompem a captura.
func (s *Service) resolveOpponent(ctx context.Context, stat *betting.PropMissStat) error {
	noStats := &betting.NoTeamStatsError{Team: stat.OpponentTeam, Season: stat.Season}
	team, ok := statsapi.TeamByAbbrev(stat.OpponentTeam)
	if !ok {
		return noStats
	}
	id := team.ID
	stat.OpponentTeamID = &id

	all, err := s.source.TeamDefense(ctx, stat.Season)
	if err != nil {
		var pu *betting.ProviderUnavailableError
		if errors.As(err, &pu) || ctx.Err() != nil {
			return err
		}
		s.log.Warn("team defense lookup failed", zap.String("season", stat.Season), zap.Error(err))
		return noStats
	}
	for _, td := range all {
		if td.TeamID != team.ID {
			continue
		}
		if td.DefRating == nil && td.OppPts == nil {
			break
		}
		stat.OpponentDefRating = td.DefRating
		stat.OpponentOppPts = td.OppPts
		return nil
	}
	return noStats
}
