package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/whiskylabs/whisky-protocol-core/game"
)

// Memory is an in-process Store used in tests and local development.
// Records are deep-copied through JSON so callers never share pointers
// with the store.
type Memory struct {
	mu      sync.RWMutex
	config  *game.ProtocolConfig
	pools   map[string]*game.Pool
	players map[string]*game.Player
	games   map[string]*game.Game
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		pools:   make(map[string]*game.Pool),
		players: make(map[string]*game.Player),
		games:   make(map[string]*game.Game),
	}
}

func clone[T any](v *T) *T {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		panic(err)
	}
	return out
}

func (m *Memory) GetProtocolConfig(ctx context.Context) (*game.ProtocolConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.config), nil
}

func (m *Memory) SaveProtocolConfig(ctx context.Context, cfg *game.ProtocolConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = clone(cfg)
	return nil
}

func (m *Memory) GetPool(ctx context.Context, id string) (*game.Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.pools[id]), nil
}

func (m *Memory) SavePool(ctx context.Context, pool *game.Pool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pools[pool.ID] = clone(pool)
	return nil
}

func (m *Memory) GetPlayer(ctx context.Context, user string) (*game.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.players[user]), nil
}

func (m *Memory) SavePlayer(ctx context.Context, player *game.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[player.User] = clone(player)
	return nil
}

func (m *Memory) DeletePlayer(ctx context.Context, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.players, user)
	return nil
}

func (m *Memory) GetGame(ctx context.Context, id string) (*game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.games[id]), nil
}

func (m *Memory) SaveGame(ctx context.Context, g *game.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[g.ID] = clone(g)
	return nil
}

func (m *Memory) DeleteGame(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, id)
	return nil
}

var _ Store = (*Memory)(nil)
