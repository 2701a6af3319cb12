package events

import "time"

// Evento publicado em "prop_capture_requested" quando a captura de uma prop
// falha porque o provedor de estatísticas está indisponível
type PropCaptureRequested struct {
	PropID      string    `json:"prop_id"`
	PlayerID    int       `json:"player_id"`
	GameDate    string    `json:"game_date"` // YYYY-MM-DD
	Attempt     int       `json:"attempt"`   // incrementado a cada nova tentativa do worker
	LastError   string    `json:"last_error,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}
