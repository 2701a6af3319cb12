package statsapi

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultPacerKey é a chave compartilhada pela API e pelo worker de recaptura
const DefaultPacerKey = "stats:pacer"

// RedisPacer aplica o intervalo mínimo entre todos os processos ligados ao mesmo
// Redis: quem consegue o SETNX da chave segue, os demais esperam o PTTL restante.
// Redis fora do ar não bloqueia a chamada; sobra o limiter local do Client.
type RedisPacer struct {
	rdb      *redis.Client
	key      string
	interval time.Duration
	log      *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewRedisPacer(rdb *redis.Client, key string, interval time.Duration, log *zap.Logger) *RedisPacer {
	if key == "" {
		key = DefaultPacerKey
	}
	return &RedisPacer{rdb: rdb, key: key, interval: interval, log: log, sleep: sleepCtx}
}

func (p *RedisPacer) Wait(ctx context.Context) error {
	if p.interval <= 0 {
		return nil
	}
	for {
		ok, err := p.rdb.SetNX(ctx, p.key, 1, p.interval).Result()
		if err != nil {
			return p.failOpen(ctx, err)
		}
		if ok {
			return nil
		}
		ttl, err := p.rdb.PTTL(ctx, p.key).Result()
		if err != nil {
			return p.failOpen(ctx, err)
		}
		// -1/-2: chave sem expiração ou que sumiu entre os dois comandos
		if ttl <= 0 {
			ttl = 10 * time.Millisecond
		}
		if err := p.sleep(ctx, ttl); err != nil {
			return err
		}
	}
}

func (p *RedisPacer) failOpen(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	p.log.Warn("stats pacer unavailable, using local limiter only", zap.String("key", p.key), zap.Error(err))
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
