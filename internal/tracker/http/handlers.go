package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/prop-miss-tracker/internal/betting"
	"github.com/radieske/prop-miss-tracker/internal/tracker/dto"
	"github.com/radieske/prop-miss-tracker/pkg/contracts/events"
)

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, dto.HealthResponse{Success: true, Status: "healthy", Service: s.Service})
}

func (s *Server) searchPlayers(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	players, err := s.players.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PlayersResponse{Success: true, Count: len(players), Players: players})
}

func (s *Server) getPlayer(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.players.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PlayerResponse{Success: true, Player: p})
}

func (s *Server) createBet(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBetRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	nb, err := req.ToNewBet()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.store.CreateBet(r.Context(), nb)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("bet created", zap.String("bet_id", id), zap.Int("odds", nb.Odds), zap.String("stake", nb.Stake.String()))
	writeJSON(w, http.StatusCreated, dto.CreateBetResponse{Success: true, BetID: id, Message: "bet created"})
}

func (s *Server) recentBets(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", defaultRecentLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	bets, err := s.store.ListRecentBets(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]dto.Bet, 0, len(bets))
	for _, b := range bets {
		out = append(out, dto.FromBet(b))
	}
	writeJSON(w, http.StatusOK, dto.RecentBetsResponse{Success: true, Count: len(out), Bets: out})
}

func (s *Server) addProp(w http.ResponseWriter, r *http.Request) {
	betID := chi.URLParam(r, "id")
	var req dto.AddPropRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	np, err := req.ToNewProp()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.store.AddProp(r.Context(), betID, np)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.AddPropResponse{Success: true, PropID: id, Message: "prop added"})
}

func (s *Server) markBetResult(w http.ResponseWriter, r *http.Request) {
	betID := chi.URLParam(r, "id")
	var req dto.BetResultRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := betting.ParseBetResult(req.Result)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.SetBetResult(r.Context(), betID, result); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Success: true, Message: fmt.Sprintf("bet %s marked as %s", betID, result)})
}

const enqueueTimeout = 5 * time.Second

// markPropResult grava o resultado e, para miss, dispara a captura. Uma falha
// na captura não desfaz o resultado: volta como capture_error e, se o provedor
// estiver indisponível, a prop vai para a fila de recaptura.
func (s *Server) markPropResult(w http.ResponseWriter, r *http.Request) {
	propID := chi.URLParam(r, "id")
	var req dto.PropResultRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := betting.ParsePropResult(req.Result)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.SetPropResult(r.Context(), propID, result, req.ActualValue); err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := dto.PropResultResponse{Success: true, Message: fmt.Sprintf("prop %s marked as %s", propID, result)}
	if req.WantsCapture(result) {
		stat, err := s.capture.CaptureStats(r.Context(), propID)
		if err != nil {
			_, kind := errorStatus(err)
			resp.CaptureError = &dto.CaptureError{Kind: kind, Message: err.Error()}
			if requeueable(err) {
				resp.CaptureQueued = s.enqueueCapture(r.Context(), propID, err)
			}
		} else {
			resp.StatsCaptured = true
			resp.Stats = dto.FromMissStat(stat)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// requeueable: provedor indisponível ou prazo da requisição estourado no meio da captura
func requeueable(err error) bool {
	var pu *betting.ProviderUnavailableError
	return errors.As(err, &pu) || errors.Is(err, context.DeadlineExceeded)
}

// enqueueCapture publica com um contexto próprio: o da requisição pode já ter expirado
func (s *Server) enqueueCapture(reqCtx context.Context, propID string, cause error) bool {
	if s.retry == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(reqCtx), enqueueTimeout)
	defer cancel()
	ev := events.PropCaptureRequested{PropID: propID, Attempt: 1, LastError: cause.Error()}
	if p, err := s.store.GetProp(ctx, propID); err == nil {
		ev.PlayerID = p.PlayerID
		ev.GameDate = p.GameDate.Format(betting.DateLayout)
	}
	if err := s.retry.PublishCaptureRequested(ctx, ev); err != nil {
		s.log.Error("enqueue capture retry", zap.String("prop_id", propID), zap.Error(err))
		return false
	}
	if s.OnRetryQueued != nil {
		s.OnRetryQueued()
	}
	s.log.Info("capture queued for retry", zap.String("prop_id", propID))
	return true
}

func (s *Server) getProp(w http.ResponseWriter, r *http.Request) {
	propID := chi.URLParam(r, "id")
	p, err := s.store.GetProp(r.Context(), propID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := dto.PropResponse{Success: true, Prop: dto.FromProp(p)}
	stat, found, err := s.store.GetMissStat(r.Context(), propID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if found {
		resp.Stats = dto.FromMissStat(stat)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) bustPlayers(w http.ResponseWriter, r *http.Request) {
	minProps, err := intQuery(r, "min_props", defaultMinProps)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	players, err := s.analytics.BustPlayers(r.Context(), minProps)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.BustPlayersResponse{Success: true, Count: len(players), Players: players})
}

func (s *Server) toughMatchups(w http.ResponseWriter, r *http.Request) {
	minGames, err := intQuery(r, "min_games", defaultMinGames)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	teams, err := s.analytics.ToughMatchups(r.Context(), minGames)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToughMatchupsResponse{Success: true, Count: len(teams), Teams: teams})
}

// playerVsOpponent sem opponent devolve o recorte por adversário do jogador
func (s *Server) playerVsOpponent(w http.ResponseWriter, r *http.Request) {
	playerID, err := intQuery(r, "player_id", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if playerID <= 0 {
		s.writeError(w, r, &betting.ValidationError{Field: "player_id", Value: r.URL.Query().Get("player_id"), Reason: "required"})
		return
	}

	opponent := strings.TrimSpace(r.URL.Query().Get("opponent"))
	if opponent == "" {
		splits, err := s.analytics.PlayerOpponents(r.Context(), playerID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, dto.PlayerOpponentsResponse{Success: true, PlayerID: playerID, Count: len(splits), Opponents: splits})
		return
	}

	res, err := s.analytics.PlayerVsOpponent(r.Context(), playerID, opponent)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PlayerVsOpponentResponse{Success: true, PlayerVsOpponent: res})
}
