package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/prop-miss-tracker/internal/betting"
	"github.com/radieske/prop-miss-tracker/internal/shared/kafka"
	"github.com/radieske/prop-miss-tracker/pkg/contracts/events"
)

// Resultados reportados em OnResult
const (
	ResultCaptured     = "captured"
	ResultRequeued     = "requeued"
	ResultDeadLettered = "dead_lettered"
	ResultDropped      = "dropped"
)

const maxBackoff = 5 * time.Minute

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Capturer interface {
	CaptureStats(ctx context.Context, propID string) (betting.PropMissStat, error)
}

// Processor reprocessa capturas que falharam por indisponibilidade do provedor.
// Cada mensagem é uma tentativa: sucesso confirma o offset, nova falha
// retryable republica com Attempt+1 e, esgotadas as tentativas ou diante de
// erro de domínio, a mensagem vai para a DLQ.
type Processor struct {
	Log     *zap.Logger
	Reader  MessageReader
	Capture Capturer
	Retry   kafka.MessageWriter // mesmo tópico de entrada
	DLQ     kafka.MessageWriter

	MaxAttempts int
	Backoff     time.Duration // base da espera entre tentativas, dobra a cada uma

	OnConsumed func()       // métricas
	OnResult   func(string) // métricas por resultado
	OnError    func(string) // métricas por fase

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Run consome até o contexto ser cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka fetch failed", zap.Error(err))
			p.onError("read")
			if err := p.wait(ctx, 500*time.Millisecond); err != nil {
				return err
			}
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		// a captura é idempotente, então repetir Handle até publicar é seguro
		result, err := p.Handle(ctx, m)
		for err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Error("capture retry not handled", zap.Int64("offset", m.Offset), zap.Error(err))
			if err := p.wait(ctx, time.Second); err != nil {
				return err
			}
			result, err = p.Handle(ctx, m)
		}
		if p.OnResult != nil {
			p.OnResult(result)
		}
		if err := p.Reader.CommitMessages(ctx, m); err != nil {
			p.Log.Warn("kafka commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
			p.onError("commit")
		}
	}
}

// Handle processa uma mensagem e devolve o resultado. Erro significa que nada
// foi concluído e o offset não deve ser confirmado.
func (p *Processor) Handle(ctx context.Context, m kafka.Message) (string, error) {
	var ev events.PropCaptureRequested
	if err := json.Unmarshal(m.Value, &ev); err != nil || ev.PropID == "" {
		p.Log.Warn("invalid prop_capture_requested", zap.ByteString("value", m.Value), zap.Error(err))
		p.onError("decode")
		return ResultDropped, nil
	}
	if ev.Attempt < 1 {
		ev.Attempt = 1
	}

	if d := p.delay(ev); d > 0 {
		if err := p.wait(ctx, d); err != nil {
			return "", err
		}
	}

	log := p.Log.With(zap.String("prop_id", ev.PropID), zap.Int("attempt", ev.Attempt))
	_, err := p.Capture.CaptureStats(ctx, ev.PropID)
	if err == nil {
		log.Info("capture retry succeeded")
		return ResultCaptured, nil
	}

	ev.LastError = err.Error()
	if !retryable(err) || ev.Attempt >= p.maxAttempts() {
		log.Warn("capture retry dead-lettered", zap.Error(err))
		if err := kafka.WriteJSON(ctx, p.DLQ, ev.PropID, ev); err != nil {
			p.onError("dlq")
			return "", err
		}
		return ResultDeadLettered, nil
	}

	ev.Attempt++
	ev.RequestedAt = p.clock().UTC()
	log.Info("capture retry requeued", zap.Error(err))
	if err := kafka.WriteJSON(ctx, p.Retry, ev.PropID, ev); err != nil {
		p.onError("requeue")
		return "", err
	}
	return ResultRequeued, nil
}

// retryable: falhas de domínio não mudam com o tempo, o resto (provedor, banco) pode mudar
func retryable(err error) bool {
	var (
		nf *betting.NotFoundError
		is *betting.InvalidStateError
		ng *betting.NoGameFoundError
		ve *betting.ValidationError
	)
	return !errors.As(err, &nf) && !errors.As(err, &is) && !errors.As(err, &ng) && !errors.As(err, &ve)
}

// delay é quanto falta para a tentativa ficar elegível: Backoff * 2^(attempt-1)
// contado a partir de RequestedAt
func (p *Processor) delay(ev events.PropCaptureRequested) time.Duration {
	if p.Backoff <= 0 || ev.RequestedAt.IsZero() {
		return 0
	}
	d := p.Backoff
	for i := 1; i < ev.Attempt && d < maxBackoff; i++ {
		d *= 2
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	return ev.RequestedAt.Add(d).Sub(p.clock())
}

func (p *Processor) maxAttempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

func (p *Processor) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

func (p *Processor) wait(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (p *Processor) onError(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
