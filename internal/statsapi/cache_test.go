package statsapi

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingSource struct {
	gameLogs int
	teamDefs int
	lines    []GameLine
	defense  []TeamDefense
}

func (s *countingSource) PlayerGameLog(context.Context, int, string, SeasonType) ([]GameLine, error) {
	s.gameLogs++
	return s.lines, nil
}

func (s *countingSource) TeamDefense(context.Context, string) ([]TeamDefense, error) {
	s.teamDefs++
	return s.defense, nil
}

func newCached(t *testing.T, src Source) (*CachedSource, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCachedSource(src, rdb, zap.NewNop(), time.Minute, time.Hour), mr
}

func TestCachedSource_GameLogHitsProviderOnce(t *testing.T) {
	src := &countingSource{lines: []GameLine{{GameID: "1", GameDate: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), PTS: 13}}}
	c, mr := newCached(t, src)
	ctx := context.Background()

	first, err := c.PlayerGameLog(ctx, 1630596, "2024-25", RegularSeason)
	require.NoError(t, err)
	second, err := c.PlayerGameLog(ctx, 1630596, "2024-25", RegularSeason)
	require.NoError(t, err)

	assert.Equal(t, 1, src.gameLogs)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists(keyGameLog(1630596, "2024-25", RegularSeason)))

	mr.FastForward(2 * time.Minute)
	_, err = c.PlayerGameLog(ctx, 1630596, "2024-25", RegularSeason)
	require.NoError(t, err)
	assert.Equal(t, 2, src.gameLogs)
}

func TestCachedSource_DoesNotCacheEmptyResults(t *testing.T) {
	src := &countingSource{}
	c, _ := newCached(t, src)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.TeamDefense(ctx, "2025-26")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, src.teamDefs)
}

func TestCachedSource_FallsBackWhenRedisDown(t *testing.T) {
	rating := 110.2
	src := &countingSource{defense: []TeamDefense{{TeamID: 1610612738, DefRating: &rating}}}
	c, mr := newCached(t, src)
	mr.Close()

	stats, err := c.TeamDefense(context.Background(), "2024-25")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, src.teamDefs)
}

func TestCachedSource_RefreshGameLogEvictsStaleEntry(t *testing.T) {
	before := []GameLine{{GameID: "0022400290", GameDate: time.Date(2024, 11, 29, 0, 0, 0, 0, time.UTC)}}
	src := &countingSource{lines: before}
	c, mr := newCached(t, src)
	ctx := context.Background()

	// nada em cache: a lista anterior já veio do provedor
	_, refreshed, err := c.RefreshGameLog(ctx, 1630596, "2024-25", RegularSeason)
	require.NoError(t, err)
	assert.False(t, refreshed)
	assert.Equal(t, 0, src.gameLogs)

	_, err = c.PlayerGameLog(ctx, 1630596, "2024-25", RegularSeason)
	require.NoError(t, err)

	tonight := GameLine{GameID: "0022400301", GameDate: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)}
	src.lines = append([]GameLine{tonight}, before...)

	lines, refreshed, err := c.RefreshGameLog(ctx, 1630596, "2024-25", RegularSeason)
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Len(t, lines, 2)
	assert.Equal(t, 2, src.gameLogs)

	// a lista nova volta para o cache
	assert.True(t, mr.Exists(keyGameLog(1630596, "2024-25", RegularSeason)))
	cached, err := c.PlayerGameLog(ctx, 1630596, "2024-25", RegularSeason)
	require.NoError(t, err)
	assert.Len(t, cached, 2)
	assert.Equal(t, 2, src.gameLogs)
}

func TestCachedSource_RefreshGameLogWithRedisDown(t *testing.T) {
	src := &countingSource{}
	c, mr := newCached(t, src)
	mr.Close()

	_, refreshed, err := c.RefreshGameLog(context.Background(), 1630596, "2024-25", RegularSeason)
	require.NoError(t, err)
	assert.False(t, refreshed)
	assert.Equal(t, 0, src.gameLogs)
}
