package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/whiskylabs/whisky-protocol-core/config"
	"github.com/whiskylabs/whisky-protocol-core/engine"
	"github.com/whiskylabs/whisky-protocol-core/pkg/jackpot"
)

// JackpotProvider serves authoritative jackpot snapshots straight from the
// settlement engine's vault balances. The jackpot stream service uses it to
// seed newly registered pools and to self-correct after missed events.
type JackpotProvider struct {
	engine   *engine.Engine
	decimals map[string]int32
}

// NewJackpotProvider creates a provider over the settlement engine. Asset
// decimals come from configuration; unknown assets are treated as integral.
func NewJackpotProvider(eng *engine.Engine, cfg *config.Config) *JackpotProvider {
	return &JackpotProvider{engine: eng, decimals: cfg.Protocol.AssetDecimals}
}

// JackpotSnapshot returns the pool's live jackpot vault balance in display
// units.
func (p *JackpotProvider) JackpotSnapshot(ctx context.Context, poolID string) (jackpot.Update, error) {
	snapshot, err := p.engine.GetPool(ctx, poolID)
	if err != nil {
		return jackpot.Update{}, err
	}

	amount := decimal.New(int64(snapshot.JackpotBalance), -p.decimals[snapshot.Pool.Asset]) //nolint:gosec
	return jackpot.Update{
		PoolID:    poolID,
		Asset:     snapshot.Pool.Asset,
		Amount:    amount,
		Timestamp: time.Now(),
	}, nil
}

var _ jackpot.Provider = (*JackpotProvider)(nil)
