package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/prop-miss-tracker/internal/analytics"
	"github.com/radieske/prop-miss-tracker/internal/betting"
	"github.com/radieske/prop-miss-tracker/pkg/contracts/events"
)

type fakeStore struct {
	bets       map[string]betting.NewBet
	props      map[string]betting.Prop
	stats      map[string]betting.PropMissStat
	recent     []betting.Bet
	lastLimit  int
	betResults map[string]betting.BetResult
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bets:       map[string]betting.NewBet{},
		props:      map[string]betting.Prop{},
		stats:      map[string]betting.PropMissStat{},
		betResults: map[string]betting.BetResult{},
	}
}

func (f *fakeStore) CreateBet(_ context.Context, b betting.NewBet) (string, error) {
	f.bets["bet-1"] = b
	return "bet-1", nil
}

func (f *fakeStore) AddProp(_ context.Context, betID string, np betting.NewProp) (string, error) {
	b, ok := f.bets[betID]
	if !ok {
		return "", &betting.NotFoundError{Entity: "bet", ID: betID}
	}
	f.props["prop-1"] = betting.Prop{
		ID: "prop-1", BetID: betID, PlayerID: np.PlayerID, PlayerName: np.PlayerName,
		PropType: np.PropType, Line: np.Line, OverUnder: np.OverUnder, Result: betting.PropPending, GameDate: b.GameDate,
	}
	return "prop-1", nil
}

func (f *fakeStore) SetBetResult(_ context.Context, betID string, r betting.BetResult) error {
	if !r.Terminal() {
		return &betting.InvalidStateError{Entity: "bet", ID: betID, Reason: "result must be won, lost or push"}
	}
	if _, ok := f.bets[betID]; !ok {
		return &betting.NotFoundError{Entity: "bet", ID: betID}
	}
	f.betResults[betID] = r
	return nil
}

func (f *fakeStore) SetPropResult(_ context.Context, propID string, r betting.PropResult, actual *float64) error {
	if r == betting.PropPending || actual == nil {
		return &betting.InvalidStateError{Entity: "prop", ID: propID, Reason: "actual_value is required"}
	}
	p, ok := f.props[propID]
	if !ok {
		return &betting.NotFoundError{Entity: "prop", ID: propID}
	}
	p.Result, p.ActualValue = r, actual
	f.props[propID] = p
	return nil
}

func (f *fakeStore) ListRecentBets(_ context.Context, limit int) ([]betting.Bet, error) {
	f.lastLimit = limit
	return f.recent, nil
}

func (f *fakeStore) GetProp(_ context.Context, propID string) (betting.Prop, error) {
	p, ok := f.props[propID]
	if !ok {
		return betting.Prop{}, &betting.NotFoundError{Entity: "prop", ID: propID}
	}
	return p, nil
}

func (f *fakeStore) GetMissStat(_ context.Context, propID string) (betting.PropMissStat, bool, error) {
	s, ok := f.stats[propID]
	return s, ok, nil
}

type fakePlayers struct{}

func (fakePlayers) Search(_ context.Context, q string, limit int) ([]betting.Player, error) {
	if q == "boom" {
		return nil, &betting.ProviderUnavailableError{Endpoint: "commonallplayers", Attempts: 3, Err: errors.New("429")}
	}
	return []betting.Player{{ID: 1631093, FullName: "Jaden Ivey", Active: true}}, nil
}

func (fakePlayers) GetByID(_ context.Context, id int) (betting.Player, error) {
	if id == 1631093 {
		return betting.Player{ID: id, FullName: "Jaden Ivey", Active: true}, nil
	}
	return betting.Player{}, &betting.NotFoundError{Entity: "player", ID: "x"}
}

type fakeCapture struct {
	store *fakeStore
	err   error
	calls int
}

func (c *fakeCapture) CaptureStats(_ context.Context, propID string) (betting.PropMissStat, error) {
	c.calls++
	if c.err != nil {
		return betting.PropMissStat{}, c.err
	}
	p := c.store.props[propID]
	s := betting.PropMissStat{
		ID: "stat-1", PropID: propID, PlayerID: p.PlayerID, PlayerName: p.PlayerName, GameDate: p.GameDate,
		Season: "2024-25", OpponentTeam: "BOS", PropType: p.PropType, Line: p.Line, ActualValue: *p.ActualValue, MissedBy: p.Line - *p.ActualValue,
	}
	c.store.stats[propID] = s
	return s, nil
}

type fakeAnalytics struct{ lastMinProps, lastMinGames int }

func (a *fakeAnalytics) BustPlayers(_ context.Context, minProps int) ([]analytics.BustPlayer, error) {
	a.lastMinProps = minProps
	return []analytics.BustPlayer{{PlayerID: 1, PlayerName: "A", TotalProps: 5, Misses: 4, MissRate: 80}}, nil
}

func (a *fakeAnalytics) ToughMatchups(_ context.Context, minGames int) ([]analytics.ToughMatchup, error) {
	a.lastMinGames = minGames
	return []analytics.ToughMatchup{}, nil
}

func (a *fakeAnalytics) PlayerVsOpponent(_ context.Context, playerID int, opp string) (analytics.PlayerVsOpponent, error) {
	return analytics.PlayerVsOpponent{PlayerID: playerID, OpponentTeam: strings.ToUpper(opp), ByPropType: []analytics.Split{}}, nil
}

func (a *fakeAnalytics) PlayerOpponents(_ context.Context, playerID int) ([]analytics.Split, error) {
	return []analytics.Split{{Category: "BOS", Total: 2, Misses: 2, MissRate: 100}}, nil
}

type fakeRetry struct {
	events  []events.PropCaptureRequested
	ctxErrs []error
}

func (r *fakeRetry) PublishCaptureRequested(ctx context.Context, e events.PropCaptureRequested) error {
	r.events = append(r.events, e)
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	return nil
}

type harness struct {
	store   *fakeStore
	capture *fakeCapture
	an      *fakeAnalytics
	retry   *fakeRetry
	srv     *Server
	h       http.Handler
}

func newHarness() *harness {
	st := newFakeStore()
	h := &harness{store: st, capture: &fakeCapture{store: st}, an: &fakeAnalytics{}, retry: &fakeRetry{}}
	h.srv = NewServer(zap.NewNop(), st, fakePlayers{}, h.capture, h.an, h.retry)
	h.h = h.srv.Router()
	return h
}

func (h *harness) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestEndToEnd_MissCaptured(t *testing.T) {
	h := newHarness()

	rec, out := h.do(t, http.MethodPost, "/bets", `{"bet_date":"2024-12-01","game_date":"2024-12-01","odds":250,"stake":"10"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "bet-1", out["bet_id"])
	assert.Equal(t, "25.00", h.store.bets["bet-1"].PotentialWin.StringFixed(2))

	rec, out = h.do(t, http.MethodPost, "/bets/bet-1/props", `{"player_id":1631093,"player_name":"Jaden Ivey","prop_type":"points","line":15.5,"over_under":"over"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "prop-1", out["prop_id"])

	rec, out = h.do(t, http.MethodPut, "/props/prop-1/result", `{"result":"miss","actual_value":13.0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, true, out["stats_captured"])
	stats := out["stats"].(map[string]any)
	assert.Equal(t, 2.5, stats["missed_by"])
	assert.Equal(t, "BOS", stats["opponent_team"])
	assert.Equal(t, "2024-12-01", stats["game_date"])

	rec, out = h.do(t, http.MethodGet, "/props/prop-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "miss", out["prop"].(map[string]any)["result"])
	assert.NotNil(t, out["stats"])
}

func TestMarkPropResult_SkipsCaptureWhenDisabledOrHit(t *testing.T) {
	h := newHarness()
	h.do(t, http.MethodPost, "/bets", `{"bet_date":"2024-12-01","game_date":"2024-12-01"}`)
	h.do(t, http.MethodPost, "/bets/bet-1/props", `{"player_id":1631093,"player_name":"Jaden Ivey","prop_type":"points","line":15.5}`)

	_, out := h.do(t, http.MethodPut, "/props/prop-1/result", `{"result":"miss","actual_value":13,"capture_stats":false}`)
	assert.Equal(t, false, out["stats_captured"])
	_, out = h.do(t, http.MethodPut, "/props/prop-1/result", `{"result":"hit","actual_value":20}`)
	assert.Equal(t, false, out["stats_captured"])
	assert.Equal(t, 0, h.capture.calls)
}

func TestMarkPropResult_CaptureErrorKeepsResult(t *testing.T) {
	h := newHarness()
	h.do(t, http.MethodPost, "/bets", `{"bet_date":"2024-12-01","game_date":"2024-12-01"}`)
	h.do(t, http.MethodPost, "/bets/bet-1/props", `{"player_id":1631093,"player_name":"Jaden Ivey","prop_type":"points","line":15.5}`)
	h.capture.err = &betting.NoGameFoundError{PlayerID: 1631093, GameDate: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)}

	rec, out := h.do(t, http.MethodPut, "/props/prop-1/result", `{"result":"miss","actual_value":13}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	ce := out["capture_error"].(map[string]any)
	assert.Equal(t, "no_game_found", ce["kind"])
	assert.Nil(t, out["capture_queued"])
	assert.Empty(t, h.retry.events)
	assert.Equal(t, betting.PropMiss, h.store.props["prop-1"].Result)
}

func TestMarkPropResult_ProviderDownQueuesRetry(t *testing.T) {
	h := newHarness()
	queued := 0
	h.srv.OnRetryQueued = func() { queued++ }
	h.do(t, http.MethodPost, "/bets", `{"bet_date":"2024-12-01","game_date":"2024-12-01"}`)
	h.do(t, http.MethodPost, "/bets/bet-1/props", `{"player_id":1631093,"player_name":"Jaden Ivey","prop_type":"points","line":15.5}`)
	h.capture.err = &betting.ProviderUnavailableError{Endpoint: "playergamelog", Attempts: 3, Err: errors.New("http 429")}

	_, out := h.do(t, http.MethodPut, "/props/prop-1/result", `{"result":"miss","actual_value":13}`)
	assert.Equal(t, "provider_unavailable", out["capture_error"].(map[string]any)["kind"])
	assert.Equal(t, true, out["capture_queued"])
	require.Len(t, h.retry.events, 1)
	assert.Equal(t, events.PropCaptureRequested{
		PropID: "prop-1", PlayerID: 1631093, GameDate: "2024-12-01", Attempt: 1, LastError: h.capture.err.Error(),
	}, h.retry.events[0])
	assert.Equal(t, 1, queued)
}

func TestMarkPropResult_DeadlineQueuesRetry(t *testing.T) {
	h := newHarness()
	h.do(t, http.MethodPost, "/bets", `{"bet_date":"2024-12-01","game_date":"2024-12-01"}`)
	h.do(t, http.MethodPost, "/bets/bet-1/props", `{"player_id":1631093,"player_name":"Jaden Ivey","prop_type":"points","line":15.5}`)
	h.capture.err = fmt.Errorf("capture: %w", context.DeadlineExceeded)

	// o prazo da requisição já venceu quando a captura devolve o erro
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	req := httptest.NewRequest(http.MethodPut, "/props/prop-1/result", strings.NewReader(`{"result":"miss","actual_value":13}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	assert.Equal(t, true, out["capture_queued"])
	require.Len(t, h.retry.events, 1)
	assert.Equal(t, "prop-1", h.retry.events[0].PropID)
	assert.NoError(t, h.retry.ctxErrs[0], "publish must not inherit the expired request context")
	assert.Equal(t, betting.PropMiss, h.store.props["prop-1"].Result)
}

func TestErrorMapping(t *testing.T) {
	h := newHarness()
	h.do(t, http.MethodPost, "/bets", `{"bet_date":"2024-12-01","game_date":"2024-12-01"}`)

	cases := []struct {
		method, path, body string
		status             int
		kind               string
	}{
		{http.MethodPost, "/bets", `{"bet_date":"2024-13-45","game_date":"2024-12-01"}`, http.StatusBadRequest, "invalid_date"},
		{http.MethodPost, "/bets", `{"bet_date":"2024-12-01","game_date":"2024-12-01","odds":50}`, http.StatusBadRequest, "validation"},
		{http.MethodPost, "/bets", `not json`, http.StatusBadRequest, "validation"},
		{http.MethodPost, "/bets/nope/props", `{"player_id":1,"player_name":"X","prop_type":"points","line":1}`, http.StatusNotFound, "not_found"},
		{http.MethodPut, "/bets/bet-1/result", `{"result":"pending"}`, http.StatusBadRequest, "invalid_state"},
		{http.MethodPut, "/bets/bet-1/result", `{"result":"maybe"}`, http.StatusBadRequest, "validation"},
		{http.MethodPut, "/props/missing/result", `{"result":"miss","actual_value":3}`, http.StatusNotFound, "not_found"},
		{http.MethodPut, "/props/missing/result", `{"result":"miss"}`, http.StatusBadRequest, "invalid_state"},
		{http.MethodGet, "/props/missing", "", http.StatusNotFound, "not_found"},
		{http.MethodGet, "/players/999", "", http.StatusNotFound, "not_found"},
		{http.MethodGet, "/players/abc", "", http.StatusBadRequest, "validation"},
		{http.MethodGet, "/players/search?q=boom", "", http.StatusServiceUnavailable, "provider_unavailable"},
		{http.MethodGet, "/analytics/player-vs-opponent", "", http.StatusBadRequest, "validation"},
		{http.MethodGet, "/analytics/bust-players?min_props=x", "", http.StatusBadRequest, "validation"},
	}
	for _, c := range cases {
		t.Run(c.method+" "+c.path, func(t *testing.T) {
			rec, out := h.do(t, c.method, c.path, c.body)
			assert.Equal(t, c.status, rec.Code)
			assert.Equal(t, false, out["success"])
			assert.Equal(t, c.kind, out["kind"])
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestMarkBetResult(t *testing.T) {
	h := newHarness()
	h.do(t, http.MethodPost, "/bets", `{"bet_date":"2024-12-01","game_date":"2024-12-01"}`)
	rec, _ := h.do(t, http.MethodPut, "/bets/bet-1/result", `{"result":"WON"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, betting.BetWon, h.store.betResults["bet-1"])
}

func TestRecentBets_LimitDefaults(t *testing.T) {
	h := newHarness()
	h.store.recent = []betting.Bet{{ID: "b1", Props: []betting.Prop{{ID: "p1", Result: betting.PropMiss}}}}

	_, out := h.do(t, http.MethodGet, "/bets/recent", "")
	assert.Equal(t, 50, h.store.lastLimit)
	assert.Equal(t, float64(1), out["count"])
	bet := out["bets"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(1), bet["props_miss"])

	h.do(t, http.MethodGet, "/bets/recent?limit=1000", "")
	assert.Equal(t, maxRecentLimit, h.store.lastLimit)
}

func TestPlayersAndAnalytics(t *testing.T) {
	h := newHarness()

	_, out := h.do(t, http.MethodGet, "/players/search?q=ivey", "")
	assert.Equal(t, float64(1), out["count"])
	_, out = h.do(t, http.MethodGet, "/players/1631093", "")
	assert.Equal(t, "Jaden Ivey", out["player"].(map[string]any)["full_name"])

	h.do(t, http.MethodGet, "/analytics/bust-players", "")
	assert.Equal(t, defaultMinProps, h.an.lastMinProps)
	_, out = h.do(t, http.MethodGet, "/analytics/tough-matchups?min_games=1", "")
	assert.Equal(t, 1, h.an.lastMinGames)
	assert.Equal(t, []any{}, out["teams"])

	_, out = h.do(t, http.MethodGet, "/analytics/player-vs-opponent?player_id=1631093&opponent=bos", "")
	assert.Equal(t, "BOS", out["opponent_team"])
	assert.Equal(t, true, out["success"])

	_, out = h.do(t, http.MethodGet, "/analytics/player-vs-opponent?player_id=1631093", "")
	assert.Equal(t, float64(1), out["count"])

	_, out = h.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, "healthy", out["status"])
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness()
	req := httptest.NewRequest(http.MethodOptions, "/bets", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
