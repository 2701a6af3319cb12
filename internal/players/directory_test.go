package players

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/prop-miss-tracker/internal/betting"
)

type fakeRoster struct {
	calls   int32
	players []betting.Player
	err     error
	delay   time.Duration
}

func (f *fakeRoster) AllPlayers(ctx context.Context) ([]betting.Player, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.players, nil
}

var roster = []betting.Player{
	{ID: 1630596, FullName: "Jaden Ivey", Active: true},
	{ID: 1628983, FullName: "Shai Gilgeous-Alexander", Active: true},
	{ID: 1630162, FullName: "Tyrese Maxey", Active: true},
	{ID: 1629029, FullName: "Luka Doncic", Active: true},
	{ID: 1630178, FullName: "Tyrese Haliburton", Active: true},
	{ID: 203999, FullName: "Nikola Jokic", Active: true},
	{ID: 1641705, FullName: "Victor Wembanyama", Active: true},
	{ID: 1628378, FullName: "Donovan Mitchell", Active: true},
}

func names(ps []betting.Player) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.FullName
	}
	return out
}

func TestSearch_RanksPrefixMatchesFirst(t *testing.T) {
	d := NewDirectory(&fakeRoster{players: roster}, zap.NewNop(), 2)

	got, err := d.Search(context.Background(), "don", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Donovan Mitchell", "Luka Doncic"}, names(got))

	got, err = d.Search(context.Background(), "ic", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Luka Doncic", "Nikola Jokic", "Victor Wembanyama"}, names(got))

	got, err = d.Search(context.Background(), "TYRESE", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tyrese Haliburton", "Tyrese Maxey"}, names(got))
}

func TestSearch_PrefixGroupBeforeSubstringGroup(t *testing.T) {
	d := NewDirectory(&fakeRoster{players: roster}, zap.NewNop(), 2)

	// "Haliburton" começa com a consulta; em "Shai" ela aparece só no meio
	got, err := d.Search(context.Background(), "ha", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tyrese Haliburton", "Shai Gilgeous-Alexander"}, names(got))

	// hífen não separa palavras
	got, err = d.Search(context.Background(), "al", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Shai Gilgeous-Alexander", "Tyrese Haliburton"}, names(got))
}

func TestSearch_ShortQueryAndLimit(t *testing.T) {
	f := &fakeRoster{players: roster}
	d := NewDirectory(f, zap.NewNop(), 2)

	got, err := d.Search(context.Background(), " j ", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
	assert.EqualValues(t, 0, atomic.LoadInt32(&f.calls), "short query must not load the roster")

	got, err = d.Search(context.Background(), "an", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = d.Search(context.Background(), "zz", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDirectory_LoadsOnceUnderConcurrency(t *testing.T) {
	f := &fakeRoster{players: roster, delay: 20 * time.Millisecond}
	d := NewDirectory(f, zap.NewNop(), 2)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := d.Search(context.Background(), "jaden", 5)
			assert.NoError(t, err)
			assert.Len(t, got, 1)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(&f.calls))
}

func TestDirectory_FailedLoadIsRetried(t *testing.T) {
	f := &fakeRoster{err: errors.New("provider down")}
	d := NewDirectory(f, zap.NewNop(), 2)

	_, err := d.Search(context.Background(), "jaden", 5)
	require.Error(t, err)

	f.err = nil
	f.players = roster
	got, err := d.Search(context.Background(), "jaden", 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.EqualValues(t, 2, atomic.LoadInt32(&f.calls))
}

func TestGetByID(t *testing.T) {
	d := NewDirectory(&fakeRoster{players: roster}, zap.NewNop(), 0)
	require.NoError(t, d.Warm(context.Background()))

	p, err := d.GetByID(context.Background(), 1630596)
	require.NoError(t, err)
	assert.Equal(t, "Jaden Ivey", p.FullName)

	_, err = d.GetByID(context.Background(), 42)
	var nf *betting.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "player", nf.Entity)
	assert.Equal(t, "42", nf.ID)
}

func TestClose(t *testing.T) {
	d := NewDirectory(&fakeRoster{players: roster}, zap.NewNop(), 2)
	require.NoError(t, d.Warm(context.Background()))
	d.Close()

	_, err := d.Search(context.Background(), "jaden", 5)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDirectory_InactivePlayersResolveByIDOnly(t *testing.T) {
	retired := betting.Player{ID: 2544, FullName: "Jaden Oldtimer"}
	d := NewDirectory(&fakeRoster{players: append([]betting.Player{retired}, roster...)}, zap.NewNop(), 2)

	got, err := d.Search(context.Background(), "jaden", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Jaden Ivey"}, names(got))

	p, err := d.GetByID(context.Background(), 2544)
	require.NoError(t, err)
	assert.Equal(t, "Jaden Oldtimer", p.FullName)
	assert.False(t, p.Active)
}
