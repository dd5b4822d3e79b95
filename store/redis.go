package store

import (
	"context"
	stderrors "errors"

	"github.com/whiskylabs/whisky-protocol-core/db/redis"
	"github.com/whiskylabs/whisky-protocol-core/errors"
	"github.com/whiskylabs/whisky-protocol-core/game"
)

// Key layout. Records never expire; settlement history is pruned explicitly
// through the close operation.
const (
	configKey    = "settlement:config"
	poolPrefix   = "settlement:pool:"
	playerPrefix = "settlement:player:"
	gamePrefix   = "settlement:game:"
)

// Redis is the production Store backed by the shared Redis client.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed store.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func getJSON[T any](ctx context.Context, client *redis.Client, key string) (*T, error) {
	out := new(T)
	err := client.GetJSON(ctx, key, out)
	if stderrors.Is(err, redis.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreError, "redis read failed")
	}
	return out, nil
}

func (r *Redis) GetProtocolConfig(ctx context.Context) (*game.ProtocolConfig, error) {
	return getJSON[game.ProtocolConfig](ctx, r.client, configKey)
}

func (r *Redis) SaveProtocolConfig(ctx context.Context, cfg *game.ProtocolConfig) error {
	if err := r.client.SetJSON(ctx, configKey, cfg, 0); err != nil {
		return errors.Wrap(err, errors.ErrStoreError, "redis write failed")
	}
	return nil
}

func (r *Redis) GetPool(ctx context.Context, id string) (*game.Pool, error) {
	return getJSON[game.Pool](ctx, r.client, poolPrefix+id)
}

func (r *Redis) SavePool(ctx context.Context, pool *game.Pool) error {
	if err := r.client.SetJSON(ctx, poolPrefix+pool.ID, pool, 0); err != nil {
		return errors.Wrap(err, errors.ErrStoreError, "redis write failed")
	}
	return nil
}

func (r *Redis) GetPlayer(ctx context.Context, user string) (*game.Player, error) {
	return getJSON[game.Player](ctx, r.client, playerPrefix+user)
}

func (r *Redis) SavePlayer(ctx context.Context, player *game.Player) error {
	if err := r.client.SetJSON(ctx, playerPrefix+player.User, player, 0); err != nil {
		return errors.Wrap(err, errors.ErrStoreError, "redis write failed")
	}
	return nil
}

func (r *Redis) DeletePlayer(ctx context.Context, user string) error {
	if err := r.client.Delete(ctx, playerPrefix+user); err != nil {
		return errors.Wrap(err, errors.ErrStoreError, "redis delete failed")
	}
	return nil
}

func (r *Redis) GetGame(ctx context.Context, id string) (*game.Game, error) {
	return getJSON[game.Game](ctx, r.client, gamePrefix+id)
}

func (r *Redis) SaveGame(ctx context.Context, g *game.Game) error {
	if err := r.client.SetJSON(ctx, gamePrefix+g.ID, g, 0); err != nil {
		return errors.Wrap(err, errors.ErrStoreError, "redis write failed")
	}
	return nil
}

func (r *Redis) DeleteGame(ctx context.Context, id string) error {
	if err := r.client.Delete(ctx, gamePrefix+id); err != nil {
		return errors.Wrap(err, errors.ErrStoreError, "redis delete failed")
	}
	return nil
}

var _ Store = (*Redis)(nil)
