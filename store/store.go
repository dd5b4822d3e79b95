// Package store persists the settlement records: the protocol config
// singleton, pools, players, and games keyed by (user, nonce).
package store

import (
	"context"

	"github.com/whiskylabs/whisky-protocol-core/game"
)

// Store is the record persistence boundary. Lookups for absent records
// return (nil, nil); errors are reserved for storage failures.
type Store interface {
	GetProtocolConfig(ctx context.Context) (*game.ProtocolConfig, error)
	SaveProtocolConfig(ctx context.Context, cfg *game.ProtocolConfig) error

	GetPool(ctx context.Context, id string) (*game.Pool, error)
	SavePool(ctx context.Context, pool *game.Pool) error

	GetPlayer(ctx context.Context, user string) (*game.Player, error)
	SavePlayer(ctx context.Context, player *game.Player) error
	DeletePlayer(ctx context.Context, user string) error

	GetGame(ctx context.Context, id string) (*game.Game, error)
	SaveGame(ctx context.Context, g *game.Game) error
	DeleteGame(ctx context.Context, id string) error
}
