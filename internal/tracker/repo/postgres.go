package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/radieske/prop-miss-tracker/internal/betting"
)

// Postgres implementa a persistência de apostas, props e estatísticas de miss
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Ping é usado pelo /healthz
func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// CreateBet insere uma aposta pendente. Os campos já devem vir normalizados.
func (p *Postgres) CreateBet(ctx context.Context, b betting.NewBet) (string, error) {
	id := uuid.NewString()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO bets (id,bet_date,game_date,bet_type,odds,stake,potential_win,result)
		VALUES ($1,$2,$3,$4,$5,$6,$7,'pending')`,
		id, b.BetDate, b.GameDate, b.BetType, b.Odds, b.Stake, *b.PotentialWin,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// AddProp insere uma prop pendente; falha com NotFoundError se a aposta não existe
func (p *Postgres) AddProp(ctx context.Context, betID string, np betting.NewProp) (string, error) {
	id := uuid.NewString()
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO props (id,bet_id,player_id,player_name,prop_type,line,over_under,result)
		SELECT $1,$2,$3,$4,$5,$6,$7,'pending'
		WHERE EXISTS (SELECT 1 FROM bets WHERE id=$2)`,
		id, betID, np.PlayerID, np.PlayerName, np.PropType, np.Line, string(np.OverUnder),
	)
	if err != nil {
		return "", err
	}
	if n, err := res.RowsAffected(); err != nil {
		return "", err
	} else if n == 0 {
		return "", &betting.NotFoundError{Entity: "bet", ID: betID}
	}
	return id, nil
}

// SetPropResult grava o resultado da prop. Não é possível voltar para pending e
// actual_value é obrigatório. Regravar o mesmo resultado é permitido (última escrita vence).
func (p *Postgres) SetPropResult(ctx context.Context, propID string, result betting.PropResult, actual *float64) error {
	if result == betting.PropPending {
		return &betting.InvalidStateError{Entity: "prop", ID: propID, Reason: "result cannot be reset to pending"}
	}
	if actual == nil {
		return &betting.InvalidStateError{Entity: "prop", ID: propID, Reason: "actual_value is required when result is " + string(result)}
	}
	res, err := p.db.ExecContext(ctx,
		`UPDATE props SET result=$2, actual_value=$3 WHERE id=$1`,
		propID, string(result), *actual,
	)
	if err != nil {
		return err
	}
	return mustAffect(res, "prop", propID)
}

// SetBetResult grava o resultado final da aposta (won/lost/push)
func (p *Postgres) SetBetResult(ctx context.Context, betID string, result betting.BetResult) error {
	if !result.Terminal() {
		return &betting.InvalidStateError{Entity: "bet", ID: betID, Reason: "result must be won, lost or push"}
	}
	res, err := p.db.ExecContext(ctx, `UPDATE bets SET result=$2 WHERE id=$1`, betID, string(result))
	if err != nil {
		return err
	}
	return mustAffect(res, "bet", betID)
}

func mustAffect(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &betting.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}

// ListRecentBets lista as apostas mais recentes com suas props.
// Empates em bet_date ficam com a inserção mais recente primeiro.
func (p *Postgres) ListRecentBets(ctx context.Context, limit int) ([]betting.Bet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id,bet_date,game_date,bet_type,odds,stake,potential_win,result,created_at
		FROM bets ORDER BY bet_date DESC, seq DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bets := []betting.Bet{}
	index := map[string]int{}
	var ids []string
	for rows.Next() {
		var b betting.Bet
		var result string
		if err := rows.Scan(&b.ID, &b.BetDate, &b.GameDate, &b.BetType, &b.Odds, &b.Stake, &b.PotentialWin, &result, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.Result = betting.BetResult(result)
		b.Props = []betting.Prop{}
		index[b.ID] = len(bets)
		ids = append(ids, b.ID)
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return bets, nil
	}

	prows, err := p.db.QueryContext(ctx, `
		SELECT p.id,p.bet_id,p.player_id,p.player_name,p.prop_type,p.line,p.over_under,p.result,p.actual_value,b.game_date,p.created_at
		FROM props p JOIN bets b ON b.id = p.bet_id
		WHERE p.bet_id = ANY($1) ORDER BY p.seq`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer prows.Close()
	for prows.Next() {
		pr, err := scanProp(prows)
		if err != nil {
			return nil, err
		}
		i := index[pr.BetID]
		bets[i].Props = append(bets[i].Props, pr)
	}
	return bets, prows.Err()
}

type scanner interface{ Scan(dest ...any) error }

func scanProp(s scanner) (betting.Prop, error) {
	var pr betting.Prop
	var ou, result string
	var actual sql.NullFloat64
	if err := s.Scan(&pr.ID, &pr.BetID, &pr.PlayerID, &pr.PlayerName, &pr.PropType, &pr.Line, &ou, &result, &actual, &pr.GameDate, &pr.CreatedAt); err != nil {
		return pr, err
	}
	pr.OverUnder = betting.OverUnder(ou)
	pr.Result = betting.PropResult(result)
	if actual.Valid {
		v := actual.Float64
		pr.ActualValue = &v
	}
	return pr, nil
}

// GetProp retorna a prop com a data do jogo herdada da aposta
func (p *Postgres) GetProp(ctx context.Context, propID string) (betting.Prop, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT p.id,p.bet_id,p.player_id,p.player_name,p.prop_type,p.line,p.over_under,p.result,p.actual_value,b.game_date,p.created_at
		FROM props p JOIN bets b ON b.id = p.bet_id
		WHERE p.id=$1`, propID)
	pr, err := scanProp(row)
	if errors.Is(err, sql.ErrNoRows) {
		return pr, &betting.NotFoundError{Entity: "prop", ID: propID}
	}
	return pr, err
}

const missStatColumns = `id,prop_id,player_id,player_name,game_date,season,opponent_team,opponent_team_id,prop_type,line,actual_value,
	shooting_pct,fg_pct,fg3_pct,ft_pct,opponent_def_rating,opponent_opp_pts,missed_by,created_at`

// GetMissStat busca a estatística capturada da prop; found=false se ainda não existe
func (p *Postgres) GetMissStat(ctx context.Context, propID string) (betting.PropMissStat, bool, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+missStatColumns+` FROM prop_miss_stats WHERE prop_id=$1`, propID)
	var s betting.PropMissStat
	var teamID sql.NullInt64
	var defRating, oppPts sql.NullFloat64
	err := row.Scan(&s.ID, &s.PropID, &s.PlayerID, &s.PlayerName, &s.GameDate, &s.Season, &s.OpponentTeam, &teamID,
		&s.PropType, &s.Line, &s.ActualValue, &s.ShootingPct, &s.FGPct, &s.FG3Pct, &s.FTPct, &defRating, &oppPts,
		&s.MissedBy, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return s, false, nil
	}
	if err != nil {
		return s, false, err
	}
	s.OpponentTeamID = nullInt(teamID)
	s.OpponentDefRating = nullFloat(defRating)
	s.OpponentOppPts = nullFloat(oppPts)
	return s, true, nil
}

// InsertMissStat grava a estatística uma única vez por prop. inserted=false indica
// que outra captura já gravou a linha (unique em prop_id).
func (p *Postgres) InsertMissStat(ctx context.Context, s betting.PropMissStat) (bool, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO prop_miss_stats (id,prop_id,player_id,player_name,game_date,season,opponent_team,opponent_team_id,
			prop_type,line,actual_value,shooting_pct,fg_pct,fg3_pct,ft_pct,opponent_def_rating,opponent_opp_pts,missed_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		ON CONFLICT (prop_id) DO NOTHING`,
		s.ID, s.PropID, s.PlayerID, s.PlayerName, s.GameDate, s.Season, s.OpponentTeam, s.OpponentTeamID,
		s.PropType, s.Line, s.ActualValue, s.ShootingPct, s.FGPct, s.FG3Pct, s.FTPct, s.OpponentDefRating, s.OpponentOppPts,
		s.MissedBy,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// History devolve todas as props liquidadas (hit/miss) com a estatística capturada,
// quando houver. playerID == 0 traz todos os jogadores.
func (p *Postgres) History(ctx context.Context, playerID int) ([]betting.PropOutcome, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT p.id,p.bet_id,p.player_id,p.player_name,p.prop_type,p.line,p.over_under,p.result,p.actual_value,b.game_date,p.created_at,
			s.id,s.season,s.opponent_team,s.opponent_team_id,s.actual_value,s.shooting_pct,s.fg_pct,s.fg3_pct,s.ft_pct,
			s.opponent_def_rating,s.opponent_opp_pts,s.missed_by,s.created_at
		FROM props p
		JOIN bets b ON b.id = p.bet_id
		LEFT JOIN prop_miss_stats s ON s.prop_id = p.id
		WHERE p.result <> 'pending' AND ($1 = 0 OR p.player_id = $1)
		ORDER BY p.seq`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []betting.PropOutcome{}
	for rows.Next() {
		var pr betting.Prop
		var ou, result string
		var actual sql.NullFloat64
		var (
			sID, sSeason, sOpp                           sql.NullString
			sTeamID                                      sql.NullInt64
			sActual, sShoot, sFG, sFG3, sFT, sDef, sOpps sql.NullFloat64
			sMissed                                      sql.NullFloat64
			sCreated                                     sql.NullTime
		)
		if err := rows.Scan(&pr.ID, &pr.BetID, &pr.PlayerID, &pr.PlayerName, &pr.PropType, &pr.Line, &ou, &result, &actual, &pr.GameDate, &pr.CreatedAt,
			&sID, &sSeason, &sOpp, &sTeamID, &sActual, &sShoot, &sFG, &sFG3, &sFT, &sDef, &sOpps, &sMissed, &sCreated); err != nil {
			return nil, err
		}
		pr.OverUnder = betting.OverUnder(ou)
		pr.Result = betting.PropResult(result)
		pr.ActualValue = nullFloat(actual)

		o := betting.PropOutcome{Prop: pr}
		if sID.Valid {
			o.Miss = &betting.PropMissStat{
				ID:                sID.String,
				PropID:            pr.ID,
				PlayerID:          pr.PlayerID,
				PlayerName:        pr.PlayerName,
				GameDate:          pr.GameDate,
				Season:            sSeason.String,
				OpponentTeam:      sOpp.String,
				OpponentTeamID:    nullInt(sTeamID),
				PropType:          pr.PropType,
				Line:              pr.Line,
				ActualValue:       sActual.Float64,
				ShootingPct:       sShoot.Float64,
				FGPct:             sFG.Float64,
				FG3Pct:            sFG3.Float64,
				FTPct:             sFT.Float64,
				OpponentDefRating: nullFloat(sDef),
				OpponentOppPts:    nullFloat(sOpps),
				MissedBy:          sMissed.Float64,
				CreatedAt:         sCreated.Time,
			}
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
