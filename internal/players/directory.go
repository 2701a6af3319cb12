package players

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/radieske/prop-miss-tracker/internal/betting"
)

const (
	DefaultMinChars = 2
	DefaultLimit    = 10
	MaxLimit        = 50
)

// ErrClosed é devolvido por buscas depois de Close
var ErrClosed = errors.New("player directory closed")

// Roster fornece o elenco completo, ativos e inativos (statsapi.Client implementa)
type Roster interface {
	AllPlayers(ctx context.Context) ([]betting.Player, error)
}

type entry struct {
	player betting.Player
	lower  string
	tokens []string
}

// Directory é o índice de jogadores em memória. A carga acontece uma única vez,
// na primeira busca (ou em Warm); leitores concorrentes esperam a carga terminar
// e nunca enxergam um índice pela metade. Falha na carga não fica em cache.
type Directory struct {
	roster   Roster
	log      *zap.Logger
	minChars int

	mu      sync.RWMutex
	loaded  bool
	closed  bool
	entries []entry                // só ativos, ordenado por nome
	byID    map[int]betting.Player // elenco completo
}

func NewDirectory(roster Roster, log *zap.Logger, minChars int) *Directory {
	if minChars <= 0 {
		minChars = DefaultMinChars
	}
	return &Directory{roster: roster, log: log, minChars: minChars}
}

// Warm força a carga do elenco (usado no startup do serviço)
func (d *Directory) Warm(ctx context.Context) error {
	return d.ensure(ctx)
}

// Close descarta o índice; buscas seguintes falham com ErrClosed
func (d *Directory) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.entries = nil
	d.byID = nil
}

func (d *Directory) ensure(ctx context.Context) error {
	d.mu.RLock()
	loaded, closed := d.loaded, d.closed
	d.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if loaded {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.loaded {
		return nil
	}

	list, err := d.roster.AllPlayers(ctx)
	if err != nil {
		return err
	}
	entries := make([]entry, 0, len(list))
	byID := make(map[int]betting.Player, len(list))
	for _, p := range list {
		if _, dup := byID[p.ID]; dup {
			continue
		}
		byID[p.ID] = p
		if !p.Active {
			continue
		}
		lower := strings.ToLower(p.FullName)
		entries = append(entries, entry{player: p, lower: lower, tokens: strings.Fields(lower)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].lower != entries[j].lower {
			return entries[i].lower < entries[j].lower
		}
		return entries[i].player.ID < entries[j].player.ID
	})

	d.entries = entries
	d.byID = byID
	d.loaded = true
	d.log.Info("player directory loaded", zap.Int("players", len(byID)), zap.Int("active", len(entries)))
	return nil
}

// Search faz busca case-insensitive por substring: primeiro os nomes em que a
// consulta é prefixo de alguma palavra, depois o restante, ambos em ordem alfabética.
func (d *Directory) Search(ctx context.Context, query string, limit int) ([]betting.Player, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if len([]rune(q)) < d.minChars {
		return []betting.Player{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if err := d.ensure(ctx); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var prefix, anywhere []betting.Player
	for _, e := range d.entries {
		if !strings.Contains(e.lower, q) {
			continue
		}
		if e.prefixMatch(q) {
			prefix = append(prefix, e.player)
		} else {
			anywhere = append(anywhere, e.player)
		}
	}

	out := append(prefix, anywhere...)
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []betting.Player{}
	}
	return out, nil
}

// prefixMatch: a consulta começa o nome completo ou alguma das palavras
func (e entry) prefixMatch(q string) bool {
	if strings.HasPrefix(e.lower, q) {
		return true
	}
	for _, t := range e.tokens {
		if strings.HasPrefix(t, q) {
			return true
		}
	}
	return false
}

// GetByID valida o id contra o elenco completo: props antigas de jogadores
// hoje inativos continuam capturáveis
func (d *Directory) GetByID(ctx context.Context, playerID int) (betting.Player, error) {
	if err := d.ensure(ctx); err != nil {
		return betting.Player{}, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.byID[playerID]
	if !ok {
		return betting.Player{}, &betting.NotFoundError{Entity: "player", ID: strconv.Itoa(playerID)}
	}
	return p, nil
}
