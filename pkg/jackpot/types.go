package jackpot

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Update represents a jackpot vault value update, in display units.
type Update struct {
	PoolID    string          `json:"pool_id"`
	Asset     string          `json:"asset"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// Provider supplies the authoritative jackpot value for a pool. The
// settlement engine backs this in production; the service uses it to seed
// and periodically correct the streamed values.
type Provider interface {
	JackpotSnapshot(ctx context.Context, poolID string) (Update, error)
}

// ServiceConfig configures the jackpot service.
type ServiceConfig struct {
	// BroadcastInterval controls how often buffered updates are flushed to listeners.
	BroadcastInterval time.Duration

	// Logger is optional; if zero value, a no-op logger is used.
	Logger zerolog.Logger

	// Provider is optional; if set, registered pools are seeded and
	// periodically refreshed from it.
	Provider Provider
}
