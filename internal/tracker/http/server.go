package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/radieske/prop-miss-tracker/internal/analytics"
	"github.com/radieske/prop-miss-tracker/internal/betting"
	"github.com/radieske/prop-miss-tracker/internal/tracker/dto"
	"github.com/radieske/prop-miss-tracker/pkg/contracts/events"
)

// Store é o repositório de apostas e props
type Store interface {
	CreateBet(ctx context.Context, b betting.NewBet) (string, error)
	AddProp(ctx context.Context, betID string, np betting.NewProp) (string, error)
	SetBetResult(ctx context.Context, betID string, result betting.BetResult) error
	SetPropResult(ctx context.Context, propID string, result betting.PropResult, actual *float64) error
	ListRecentBets(ctx context.Context, limit int) ([]betting.Bet, error)
	GetProp(ctx context.Context, propID string) (betting.Prop, error)
	GetMissStat(ctx context.Context, propID string) (betting.PropMissStat, bool, error)
}

type Players interface {
	Search(ctx context.Context, query string, limit int) ([]betting.Player, error)
	GetByID(ctx context.Context, playerID int) (betting.Player, error)
}

type Capturer interface {
	CaptureStats(ctx context.Context, propID string) (betting.PropMissStat, error)
}

type Analytics interface {
	BustPlayers(ctx context.Context, minProps int) ([]analytics.BustPlayer, error)
	ToughMatchups(ctx context.Context, minGames int) ([]analytics.ToughMatchup, error)
	PlayerVsOpponent(ctx context.Context, playerID int, opponent string) (analytics.PlayerVsOpponent, error)
	PlayerOpponents(ctx context.Context, playerID int) ([]analytics.Split, error)
}

// RetryPublisher enfileira capturas que falharam por indisponibilidade do provedor
type RetryPublisher interface {
	PublishCaptureRequested(ctx context.Context, e events.PropCaptureRequested) error
}

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 200
	defaultMinProps    = 5
	defaultMinGames    = 3
)

type Server struct {
	log       *zap.Logger
	store     Store
	players   Players
	capture   Capturer
	analytics Analytics
	retry     RetryPublisher // opcional

	Service        string
	AllowedOrigins []string
	OnRetryQueued  func() // métricas
}

func NewServer(log *zap.Logger, store Store, players Players, capture Capturer, an Analytics, retry RetryPublisher) *Server {
	return &Server{
		log:            log,
		store:          store,
		players:        players,
		capture:        capture,
		analytics:      an,
		retry:          retry,
		Service:        "prop-tracker-service",
		AllowedOrigins: []string{"*"},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second)) // captura pode esperar o throttling do provedor
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.health)

	r.Get("/players/search", s.searchPlayers)
	r.Get("/players/{id}", s.getPlayer)

	r.Post("/bets", s.createBet)
	r.Get("/bets/recent", s.recentBets)
	r.Post("/bets/{id}/props", s.addProp)
	r.Put("/bets/{id}/result", s.markBetResult)

	r.Get("/props/{id}", s.getProp)
	r.Put("/props/{id}/result", s.markPropResult)

	r.Get("/analytics/bust-players", s.bustPlayers)
	r.Get("/analytics/tough-matchups", s.toughMatchups)
	r.Get("/analytics/player-vs-opponent", s.playerVsOpponent)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorStatus classifica o erro pelo tipo e devolve o status HTTP e o kind exposto
func errorStatus(err error) (int, string) {
	var (
		nf  *betting.NotFoundError
		is  *betting.InvalidStateError
		id  *betting.InvalidDateError
		ve  *betting.ValidationError
		ng  *betting.NoGameFoundError
		nts *betting.NoTeamStatsError
		pu  *betting.ProviderUnavailableError
	)
	switch {
	case errors.As(err, &nf):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &is):
		return http.StatusBadRequest, "invalid_state"
	case errors.As(err, &id):
		return http.StatusBadRequest, "invalid_date"
	case errors.As(err, &ve):
		return http.StatusBadRequest, "validation"
	case errors.As(err, &ng):
		return http.StatusUnprocessableEntity, "no_game_found"
	case errors.As(err, &nts):
		return http.StatusUnprocessableEntity, "no_team_stats"
	case errors.As(err, &pu):
		return http.StatusServiceUnavailable, "provider_unavailable"
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		msg = "internal error"
	}
	writeJSON(w, status, dto.ErrorResponse{Success: false, Error: msg, Kind: kind})
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &betting.ValidationError{Field: "body", Reason: "invalid json: " + err.Error()}
	}
	return nil
}

// intQuery lê um inteiro da query string; ausente devolve def
func intQuery(r *http.Request, key string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &betting.ValidationError{Field: key, Value: v, Reason: "expected an integer"}
	}
	return n, nil
}

func intParam(r *http.Request, key string) (int, error) {
	v := chi.URLParam(r, key)
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, &betting.ValidationError{Field: key, Value: v, Reason: "expected a positive integer"}
	}
	return n, nil
}
