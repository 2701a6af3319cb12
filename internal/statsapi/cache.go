package statsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Source é o subconjunto do provedor usado pela captura de estatísticas
type Source interface {
	PlayerGameLog(ctx context.Context, playerID int, seasonLabel string, st SeasonType) ([]GameLine, error)
	TeamDefense(ctx context.Context, seasonLabel string) ([]TeamDefense, error)
}

// Refresher descarta a cópia em cache de um game log e consulta o provedor de novo.
// refreshed=false quando não havia cópia: a lista anterior já veio do provedor.
type Refresher interface {
	RefreshGameLog(ctx context.Context, playerID int, seasonLabel string, st SeasonType) (lines []GameLine, refreshed bool, err error)
}

// TTLs padrão do cache de respostas
const (
	GameLogTTL     = 30 * time.Minute
	TeamDefenseTTL = 6 * time.Hour
)

// CachedSource guarda respostas do provedor no Redis para economizar chamadas
// limitadas. Falhas do Redis não interrompem a captura: caem direto no provedor.
type CachedSource struct {
	next       Source
	rdb        *redis.Client
	log        *zap.Logger
	gameLogTTL time.Duration
	teamTTL    time.Duration
}

func NewCachedSource(next Source, rdb *redis.Client, log *zap.Logger, gameLogTTL, teamTTL time.Duration) *CachedSource {
	if gameLogTTL <= 0 {
		gameLogTTL = GameLogTTL
	}
	if teamTTL <= 0 {
		teamTTL = TeamDefenseTTL
	}
	return &CachedSource{next: next, rdb: rdb, log: log, gameLogTTL: gameLogTTL, teamTTL: teamTTL}
}

func keyGameLog(playerID int, seasonLabel string, st SeasonType) string {
	return fmt.Sprintf("stats:gamelog:%d:%s:%s", playerID, seasonLabel, st)
}

func keyTeamDefense(seasonLabel string) string { return "stats:teamdef:" + seasonLabel }

func (c *CachedSource) PlayerGameLog(ctx context.Context, playerID int, seasonLabel string, st SeasonType) ([]GameLine, error) {
	key := keyGameLog(playerID, seasonLabel, st)
	var lines []GameLine
	if c.load(ctx, key, &lines) {
		return lines, nil
	}
	lines, err := c.next.PlayerGameLog(ctx, playerID, seasonLabel, st)
	if err != nil {
		return nil, err
	}
	if len(lines) > 0 {
		c.store(ctx, key, lines, c.gameLogTTL)
	}
	return lines, nil
}

// RefreshGameLog evita que um log guardado antes do jogo esconda a partida até o TTL vencer
func (c *CachedSource) RefreshGameLog(ctx context.Context, playerID int, seasonLabel string, st SeasonType) ([]GameLine, bool, error) {
	key := keyGameLog(playerID, seasonLabel, st)
	n, err := c.rdb.Del(ctx, key).Result()
	if err != nil {
		c.log.Warn("stats cache del failed", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}
	if n == 0 {
		return nil, false, nil
	}
	c.log.Debug("stats cache evicted", zap.String("key", key))
	lines, err := c.PlayerGameLog(ctx, playerID, seasonLabel, st)
	if err != nil {
		return nil, false, err
	}
	return lines, true, nil
}

func (c *CachedSource) TeamDefense(ctx context.Context, seasonLabel string) ([]TeamDefense, error) {
	key := keyTeamDefense(seasonLabel)
	var stats []TeamDefense
	if c.load(ctx, key, &stats) {
		return stats, nil
	}
	stats, err := c.next.TeamDefense(ctx, seasonLabel)
	if err != nil {
		return nil, err
	}
	if len(stats) > 0 {
		c.store(ctx, key, stats, c.teamTTL)
	}
	return stats, nil
}

func (c *CachedSource) load(ctx context.Context, key string, dst any) bool {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		c.log.Warn("stats cache get failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		c.log.Warn("stats cache entry corrupted", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *CachedSource) store(ctx context.Context, key string, v any, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
		c.log.Warn("stats cache set failed", zap.String("key", key), zap.Error(err))
	}
}
