package producer

import (
	"context"
	"time"

	"github.com/radieske/prop-miss-tracker/internal/shared/kafka"
	"github.com/radieske/prop-miss-tracker/pkg/contracts/events"
)

// KafkaPublisher enfileira capturas para o capture-retry-worker
type KafkaPublisher struct {
	Writer kafka.MessageWriter
	now    func() time.Time
}

func NewKafkaPublisher(w kafka.MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, now: time.Now}
}

// PublishCaptureRequested usa o prop_id como chave: tentativas da mesma prop ficam ordenadas
func (p *KafkaPublisher) PublishCaptureRequested(ctx context.Context, e events.PropCaptureRequested) error {
	if e.RequestedAt.IsZero() {
		e.RequestedAt = p.now().UTC()
	}
	if e.Attempt == 0 {
		e.Attempt = 1
	}
	return kafka.WriteJSON(ctx, p.Writer, e.PropID, e)
}
