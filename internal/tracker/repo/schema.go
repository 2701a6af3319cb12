package repo

import (
	"context"
	"database/sql"
	"fmt"
)

// seq preserva a ordem de inserção para desempate nas listagens
const schemaSQL = `
CREATE TABLE IF NOT EXISTS bets (
	id            TEXT PRIMARY KEY,
	seq           BIGSERIAL NOT NULL,
	bet_date      DATE NOT NULL,
	game_date     DATE NOT NULL,
	bet_type      TEXT NOT NULL DEFAULT 'parlay',
	odds          INTEGER NOT NULL,
	stake         NUMERIC(12,2) NOT NULL CHECK (stake > 0),
	potential_win NUMERIC(12,2) NOT NULL,
	result        TEXT NOT NULL DEFAULT 'pending' CHECK (result IN ('pending','won','lost','push')),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_bets_recent ON bets (bet_date DESC, seq DESC);

CREATE TABLE IF NOT EXISTS props (
	id           TEXT PRIMARY KEY,
	seq          BIGSERIAL NOT NULL,
	bet_id       TEXT NOT NULL REFERENCES bets(id) ON DELETE CASCADE,
	player_id    INTEGER NOT NULL,
	player_name  TEXT NOT NULL,
	prop_type    TEXT NOT NULL,
	line         DOUBLE PRECISION NOT NULL,
	over_under   TEXT NOT NULL CHECK (over_under IN ('over','under')),
	result       TEXT NOT NULL DEFAULT 'pending' CHECK (result IN ('pending','hit','miss')),
	actual_value DOUBLE PRECISION,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	CHECK ((result = 'pending') = (actual_value IS NULL))
);
CREATE INDEX IF NOT EXISTS idx_props_bet ON props (bet_id);
CREATE INDEX IF NOT EXISTS idx_props_player ON props (player_id);

CREATE TABLE IF NOT EXISTS prop_miss_stats (
	id                  TEXT PRIMARY KEY,
	prop_id             TEXT NOT NULL UNIQUE REFERENCES props(id) ON DELETE CASCADE,
	player_id           INTEGER NOT NULL,
	player_name         TEXT NOT NULL,
	game_date           DATE NOT NULL,
	season              TEXT NOT NULL,
	opponent_team       TEXT NOT NULL,
	opponent_team_id    INTEGER,
	prop_type           TEXT NOT NULL,
	line                DOUBLE PRECISION NOT NULL,
	actual_value        DOUBLE PRECISION NOT NULL,
	shooting_pct        DOUBLE PRECISION NOT NULL,
	fg_pct              DOUBLE PRECISION NOT NULL,
	fg3_pct             DOUBLE PRECISION NOT NULL,
	ft_pct              DOUBLE PRECISION NOT NULL,
	opponent_def_rating DOUBLE PRECISION,
	opponent_opp_pts    DOUBLE PRECISION,
	missed_by           DOUBLE PRECISION NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_miss_stats_opponent ON prop_miss_stats (opponent_team);
`

// Migrate cria as tabelas se ainda não existirem. Pode ser chamado várias vezes.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
