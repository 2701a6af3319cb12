package statsapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/radieske/prop-miss-tracker/internal/betting"
	"github.com/radieske/prop-miss-tracker/internal/season"
)

// SeasonType separa temporada regular e playoffs no provedor
type SeasonType string

const (
	RegularSeason SeasonType = "Regular Season"
	Playoffs      SeasonType = "Playoffs"
)

// GameLine é a linha do box score de um jogador em um jogo
type GameLine struct {
	GameID   string    `json:"game_id"`
	GameDate time.Time `json:"game_date"`
	Matchup  string    `json:"matchup"` // "DET @ BOS" | "DET vs. BOS"
	WL       string    `json:"wl"`
	Minutes  float64   `json:"min"`
	PTS      int       `json:"pts"`
	REB      int       `json:"reb"`
	AST      int       `json:"ast"`
	STL      int       `json:"stl"`
	BLK      int       `json:"blk"`
	TOV      int       `json:"tov"`
	FGM      int       `json:"fgm"`
	FGA      int       `json:"fga"`
	FG3M     int       `json:"fg3m"`
	FG3A     int       `json:"fg3a"`
	FTM      int       `json:"ftm"`
	FTA      int       `json:"fta"`
}

// TeamDefense são as médias defensivas de um time na temporada
type TeamDefense struct {
	TeamID    int      `json:"team_id"`
	TeamName  string   `json:"team_name"`
	DefRating *float64 `json:"def_rating,omitempty"`
	OppPts    *float64 `json:"opp_pts,omitempty"`
}

// AllPlayers carrega todos os jogadores já registrados; Active vem do ROSTERSTATUS
func (c *Client) AllPlayers(ctx context.Context) ([]betting.Player, error) {
	params := url.Values{}
	params.Set("LeagueID", "00")
	params.Set("Season", season.Resolve(c.now()))
	params.Set("IsOnlyCurrentSeason", "0")

	resp, err := c.get(ctx, "commonallplayers", params)
	if err != nil {
		return nil, err
	}
	t, err := resp.set("CommonAllPlayers")
	if err != nil {
		return nil, err
	}

	out := make([]betting.Player, 0, len(t.rows))
	for _, row := range t.rows {
		id := t.intCol(row, "PERSON_ID")
		name := strings.TrimSpace(t.strCol(row, "DISPLAY_FIRST_LAST"))
		if id == 0 || name == "" {
			continue
		}
		active := !t.has("ROSTERSTATUS") || t.intCol(row, "ROSTERSTATUS") != 0
		out = append(out, betting.Player{ID: id, FullName: name, Active: active})
	}
	return out, nil
}

// PlayerGameLog devolve todos os jogos do jogador na temporada
func (c *Client) PlayerGameLog(ctx context.Context, playerID int, seasonLabel string, st SeasonType) ([]GameLine, error) {
	params := url.Values{}
	params.Set("PlayerID", strconv.Itoa(playerID))
	params.Set("Season", seasonLabel)
	params.Set("SeasonType", string(st))

	resp, err := c.get(ctx, "playergamelog", params)
	if err != nil {
		return nil, err
	}
	t, err := resp.set("PlayerGameLog")
	if err != nil {
		return nil, err
	}

	out := make([]GameLine, 0, len(t.rows))
	for _, row := range t.rows {
		d, err := parseGameDate(t.strCol(row, "GAME_DATE"))
		if err != nil {
			return nil, err
		}
		minutes, _ := t.floatCol(row, "MIN")
		out = append(out, GameLine{
			GameID:   t.strCol(row, "GAME_ID"),
			GameDate: d,
			Matchup:  t.strCol(row, "MATCHUP"),
			WL:       t.strCol(row, "WL"),
			Minutes:  minutes,
			PTS:      t.intCol(row, "PTS"),
			REB:      t.intCol(row, "REB"),
			AST:      t.intCol(row, "AST"),
			STL:      t.intCol(row, "STL"),
			BLK:      t.intCol(row, "BLK"),
			TOV:      t.intCol(row, "TOV"),
			FGM:      t.intCol(row, "FGM"),
			FGA:      t.intCol(row, "FGA"),
			FG3M:     t.intCol(row, "FG3M"),
			FG3A:     t.intCol(row, "FG3A"),
			FTM:      t.intCol(row, "FTM"),
			FTA:      t.intCol(row, "FTA"),
		})
	}
	return out, nil
}

// TeamDefense junta o rating defensivo (MeasureType=Defense) e os pontos
// sofridos por jogo (MeasureType=Opponent) de todos os times na temporada
func (c *Client) TeamDefense(ctx context.Context, seasonLabel string) ([]TeamDefense, error) {
	byTeam := map[int]*TeamDefense{}
	var order []int

	merge := func(measure, col string, set func(*TeamDefense, float64)) error {
		resp, err := c.get(ctx, "leaguedashteamstats", teamStatsParams(seasonLabel, measure))
		if err != nil {
			return err
		}
		t, err := resp.set("LeagueDashTeamStats")
		if err != nil {
			return err
		}
		for _, row := range t.rows {
			id := t.intCol(row, "TEAM_ID")
			td, ok := byTeam[id]
			if !ok {
				td = &TeamDefense{TeamID: id, TeamName: t.strCol(row, "TEAM_NAME")}
				byTeam[id] = td
				order = append(order, id)
			}
			if v, ok := t.floatCol(row, col); ok {
				set(td, v)
			}
		}
		return nil
	}

	if err := merge("Defense", "DEF_RATING", func(td *TeamDefense, v float64) { td.DefRating = &v }); err != nil {
		return nil, err
	}
	if err := merge("Opponent", "OPP_PTS", func(td *TeamDefense, v float64) { td.OppPts = &v }); err != nil {
		return nil, err
	}

	out := make([]TeamDefense, 0, len(order))
	for _, id := range order {
		out = append(out, *byTeam[id])
	}
	return out, nil
}

func teamStatsParams(seasonLabel, measure string) url.Values {
	p := url.Values{}
	for k, v := range map[string]string{
		"LeagueID": "00", "Season": seasonLabel, "SeasonType": string(RegularSeason),
		"MeasureType": measure, "PerMode": "PerGame", "PaceAdjust": "N", "PlusMinus": "N", "Rank": "N",
		"LastNGames": "0", "Month": "0", "OpponentTeamID": "0", "PORound": "0", "Period": "0", "TeamID": "0", "TwoWay": "0",
		"Conference": "", "DateFrom": "", "DateTo": "", "Division": "", "GameScope": "", "GameSegment": "",
		"Location": "", "Outcome": "", "PlayerExperience": "", "PlayerPosition": "", "SeasonSegment": "",
		"ShotClockRange": "", "StarterBench": "", "VsConference": "", "VsDivision": "",
	} {
		p.Set(k, v)
	}
	return p
}

var gameDateLayouts = []string{"Jan 02, 2006", "2006-01-02T15:04:05", betting.DateLayout}

// parseGameDate aceita "NOV 15, 2024" (playergamelog) e os formatos ISO
func parseGameDate(s string) (time.Time, error) {
	for _, layout := range gameDateLayouts {
		if d, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unexpected GAME_DATE %q: %w", s, ErrRejected)
}

// FindGame procura a linha do jogo disputado na data (comparação por dia)
func FindGame(lines []GameLine, date time.Time) (GameLine, bool) {
	y, m, d := date.Date()
	for _, l := range lines {
		ly, lm, ld := l.GameDate.Date()
		if ly == y && lm == m && ld == d {
			return l, true
		}
	}
	return GameLine{}, false
}
