package jackpot

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const (
	// DefaultBroadcastInterval is the default interval for broadcasting buffered updates
	DefaultBroadcastInterval = 2 * time.Second

	// RefreshInterval is the interval for correcting streamed values against the provider
	RefreshInterval = 60 * time.Second
)

// Service buffers jackpot updates and broadcasts them to stream listeners.
// Updates arrive from two directions: the event consumer pushes deltas as
// they happen, and a slow refresh loop re-reads the authoritative value from
// the provider so a missed event cannot leave the stream stale forever.
// It is transport-agnostic: the HTTP layer wires SSE and WebSocket routes
// and subscribes via Listen().
type Service struct {
	mu       sync.RWMutex
	pools    map[string]struct{}
	buffer   map[string]Update
	broad    *Broadcaster
	logger   zerolog.Logger
	interval time.Duration
	ticker   *time.Ticker
	refresh  *time.Ticker
	stopChan chan struct{}
	provider Provider
	stopOnce sync.Once
}

// NewService creates a new jackpot service and starts its flush loops.
func NewService(cfg ServiceConfig) *Service {
	interval := cfg.BroadcastInterval
	if interval <= 0 {
		interval = DefaultBroadcastInterval
	}
	s := &Service{
		pools:    make(map[string]struct{}),
		buffer:   make(map[string]Update),
		broad:    NewBroadcaster(128),
		logger:   cfg.Logger,
		interval: interval,
		stopChan: make(chan struct{}),
		provider: cfg.Provider,
	}
	s.start()
	return s
}

// RegisterPool adds a pool to the refresh set and seeds its current value
// from the provider when one is configured.
func (s *Service) RegisterPool(ctx context.Context, poolID string) {
	s.mu.Lock()
	s.pools[poolID] = struct{}{}
	provider := s.provider
	s.mu.Unlock()

	if provider == nil {
		return
	}
	update, err := provider.JackpotSnapshot(ctx, poolID)
	if err != nil {
		s.logger.Debug().Err(err).Str("pool_id", poolID).Msg("failed to seed jackpot value")
		return
	}
	s.HandleUpdate(update)
}

// HandleUpdate buffers an external update (e.g. from the event consumer).
// Stale updates, older than what the buffer already holds, are dropped.
func (s *Service) HandleUpdate(update Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now()
	}
	if existing, exists := s.buffer[update.PoolID]; exists && update.Timestamp.Before(existing.Timestamp) {
		s.logger.Debug().
			Str("pool_id", update.PoolID).
			Time("existing", existing.Timestamp).
			Time("incoming", update.Timestamp).
			Msg("ignoring stale jackpot update")
		return
	}
	s.buffer[update.PoolID] = update
}

// Current returns the freshest known value for each requested pool. The
// provider wins over the buffer unless the buffered update is clearly newer.
func (s *Service) Current(ctx context.Context, poolIDs []string) []Update {
	s.mu.RLock()
	buffer := lo.Assign(s.buffer)
	provider := s.provider
	s.mu.RUnlock()

	updates := make([]Update, 0, len(poolIDs))
	for _, poolID := range poolIDs {
		buffered, hasBuffer := buffer[poolID]

		if provider != nil {
			fromProvider, err := provider.JackpotSnapshot(ctx, poolID)
			if err == nil {
				if hasBuffer && buffered.Timestamp.Sub(fromProvider.Timestamp) > time.Second {
					updates = append(updates, buffered)
				} else {
					updates = append(updates, fromProvider)
				}
				continue
			}
			s.logger.Debug().Err(err).Str("pool_id", poolID).Msg("failed to read jackpot from provider")
		}
		if hasBuffer {
			updates = append(updates, buffered)
		}
	}
	return updates
}

// Listen returns a channel to receive flushed updates plus a cancel function.
func (s *Service) Listen(ctx context.Context) (<-chan Update, context.CancelFunc) {
	return s.broad.Listen(ctx)
}

// Stop stops the service tickers.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		if s.ticker != nil {
			s.ticker.Stop()
		}
		if s.refresh != nil {
			s.refresh.Stop()
		}
		close(s.stopChan)
	})
}

func (s *Service) start() {
	s.ticker = time.NewTicker(s.interval)
	s.refresh = time.NewTicker(RefreshInterval)
	go s.loop()
	go s.refreshLoop()
}

func (s *Service) loop() {
	for {
		select {
		case <-s.stopChan:
			return
		case <-s.ticker.C:
			s.flush()
		}
	}
}

func (s *Service) refreshLoop() {
	for {
		select {
		case <-s.stopChan:
			return
		case <-s.refresh.C:
			s.refreshFromProvider(context.Background())
		}
	}
}

// flush broadcasts buffered updates and clears the buffer.
func (s *Service) flush() {
	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return
	}
	updates := lo.Values(s.buffer)
	s.buffer = make(map[string]Update)
	s.mu.Unlock()

	for _, u := range updates {
		s.broad.Send(u)
	}
	if s.logger.GetLevel() <= zerolog.DebugLevel {
		s.logger.Debug().Int("count", len(updates)).Msg("flushed jackpot updates")
	}
}

// refreshFromProvider re-reads registered pools from the provider so the
// stream self-corrects after missed events.
func (s *Service) refreshFromProvider(ctx context.Context) {
	s.mu.RLock()
	poolIDs := lo.Keys(s.pools)
	provider := s.provider
	s.mu.RUnlock()

	if provider == nil || len(poolIDs) == 0 {
		return
	}

	for _, poolID := range poolIDs {
		update, err := provider.JackpotSnapshot(ctx, poolID)
		if err != nil {
			s.logger.Debug().Err(err).Str("pool_id", poolID).Msg("failed to refresh jackpot value")
			continue
		}
		s.HandleUpdate(update)
		s.broad.Send(update)
	}
}
