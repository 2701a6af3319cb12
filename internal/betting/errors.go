package betting

import (
	"fmt"
	"time"
)

// NotFoundError indica id desconhecido de aposta, prop ou jogador
type NotFoundError struct {
	Entity string // "bet" | "prop" | "player"
	ID     string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Entity, e.ID) }

// InvalidStateError indica transição de resultado sem os campos exigidos
type InvalidStateError struct {
	Entity string
	ID     string
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %s: invalid state: %s", e.Entity, e.ID, e.Reason)
}

// InvalidDateError é devolvido na borda quando a data não segue YYYY-MM-DD
type InvalidDateError struct {
	Value string
	Err   error
}

func (e *InvalidDateError) Error() string { return fmt.Sprintf("invalid date %q", e.Value) }
func (e *InvalidDateError) Unwrap() error { return e.Err }

// ValidationError cobre payloads com enum ou valor fora do domínio
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// NoGameFoundError: o jogador não atuou ou não há box score na data
type NoGameFoundError struct {
	PlayerID int
	GameDate time.Time
}

func (e *NoGameFoundError) Error() string {
	return fmt.Sprintf("no game found for player %d on %s", e.PlayerID, e.GameDate.Format(DateLayout))
}

// NoTeamStatsError: rating defensivo indisponível para a temporada (não fatal)
type NoTeamStatsError struct {
	Team   string
	Season string
}

func (e *NoTeamStatsError) Error() string {
	return fmt.Sprintf("no defensive stats for team %s in season %s", e.Team, e.Season)
}

// ProviderUnavailableError: throttling/queda do provedor após esgotar as tentativas
type ProviderUnavailableError struct {
	Endpoint string
	Attempts int
	Err      error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("stats provider unavailable (%s, %d attempts): %v", e.Endpoint, e.Attempts, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error { return e.Err }

// DateLayout é o formato de data aceito e devolvido pela API
const DateLayout = "2006-01-02"
