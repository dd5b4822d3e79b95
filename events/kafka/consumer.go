package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// JackpotCache is an in-memory cache of the latest jackpot amount per pool
type JackpotCache struct {
	mu     sync.RWMutex
	pools  map[string]decimal.Decimal
	logger zerolog.Logger
}

const allPoolsKey = "*"

// NewJackpotCache creates a new jackpot cache
func NewJackpotCache(logger zerolog.Logger) *JackpotCache {
	return &JackpotCache{
		pools:  make(map[string]decimal.Decimal),
		logger: logger,
	}
}

// Get retrieves a jackpot amount from cache
func (jc *JackpotCache) Get(poolID string) (decimal.Decimal, bool) {
	jc.mu.RLock()
	defer jc.mu.RUnlock()
	amount, exists := jc.pools[poolID]
	return amount, exists
}

// Set updates a jackpot amount in cache
func (jc *JackpotCache) Set(poolID string, amount decimal.Decimal) {
	jc.mu.Lock()
	defer jc.mu.Unlock()
	jc.pools[poolID] = amount
	jc.logger.Debug().
		Str("pool_id", poolID).
		Str("amount", amount.String()).
		Msg("Jackpot cache updated")
}

// Subscription represents a client subscription for jackpot updates
type Subscription struct {
	ID      string
	PoolID  string
	Channel chan JackpotUpdateEvent
}

// Consumer consumes jackpot update events and fans them out to stream
// subscribers
type Consumer struct {
	reader *kafka.Reader
	cache  *JackpotCache
	logger zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.RWMutex
	subscribers map[string][]*Subscription
}

// ConsumerConfig holds Kafka consumer configuration
type ConsumerConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	Logger        zerolog.Logger
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(config ConsumerConfig, cache *JackpotCache) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        config.Brokers,
		Topic:          config.Topic,
		GroupID:        config.ConsumerGroup,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})

	return &Consumer{
		reader:      reader,
		cache:       cache,
		logger:      config.Logger.With().Str("component", "kafka-consumer").Logger(),
		ctx:         ctx,
		cancel:      cancel,
		subscribers: make(map[string][]*Subscription),
	}
}

// Start begins consuming messages
func (c *Consumer) Start() error {
	c.wg.Add(1)
	go c.consume()
	c.logger.Info().Msg("Kafka consumer started")
	return nil
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	c.logger.Info().Msg("Stopping Kafka consumer...")
	c.cancel()
	c.wg.Wait()

	if err := c.reader.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Error closing Kafka reader")
		return err
	}

	c.logger.Info().Msg("Kafka consumer stopped")
	return nil
}

// consume is the main consumer loop
func (c *Consumer) consume() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			msg, err := c.reader.FetchMessage(c.ctx)
			if err != nil {
				if err == context.Canceled {
					return
				}
				c.logger.Error().Err(err).Msg("Error fetching message from Kafka")
				time.Sleep(time.Second)
				continue
			}

			if err := c.handleMessage(msg); err != nil {
				c.logger.Error().
					Err(err).
					Str("topic", msg.Topic).
					Int("partition", msg.Partition).
					Int64("offset", msg.Offset).
					Msg("Error handling message")
			}

			if err := c.reader.CommitMessages(c.ctx, msg); err != nil {
				c.logger.Error().Err(err).Msg("Error committing message")
			}
		}
	}
}

// handleMessage processes a single jackpot update message
func (c *Consumer) handleMessage(msg kafka.Message) error {
	var event JackpotUpdateEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return err
	}

	c.cache.Set(event.PoolID, event.NewAmount)

	c.mu.RLock()
	defer c.mu.RUnlock()
	c.deliver(c.subscribers[event.PoolID], event)
	c.deliver(c.subscribers[allPoolsKey], event)
	return nil
}

func (c *Consumer) deliver(subs []*Subscription, event JackpotUpdateEvent) {
	for _, sub := range subs {
		select {
		case sub.Channel <- event:
		default:
			c.logger.Warn().
				Str("sub_id", sub.ID).
				Str("pool_id", event.PoolID).
				Msg("Subscriber channel full, dropping event")
		}
	}
}

// GetCache returns the jackpot cache
func (c *Consumer) GetCache() *JackpotCache {
	return c.cache
}

// Subscribe subscribes to jackpot updates for a specific pool ID
func (c *Consumer) Subscribe(poolID string) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub := &Subscription{
		ID:      uuid.New().String(),
		PoolID:  poolID,
		Channel: make(chan JackpotUpdateEvent, 10),
	}
	c.subscribers[poolID] = append(c.subscribers[poolID], sub)

	c.logger.Debug().
		Str("pool_id", poolID).
		Str("sub_id", sub.ID).
		Msg("New subscription added")

	return sub
}

// SubscribeAll subscribes to jackpot updates for every pool.
func (c *Consumer) SubscribeAll() *Subscription {
	return c.Subscribe(allPoolsKey)
}

// Unsubscribe removes a subscription
func (c *Consumer) Unsubscribe(sub *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	subs, exists := c.subscribers[sub.PoolID]
	if !exists {
		return
	}

	newSubs := make([]*Subscription, 0, len(subs))
	for _, s := range subs {
		if s.ID == sub.ID {
			close(s.Channel)
			continue
		}
		newSubs = append(newSubs, s)
	}

	if len(newSubs) == 0 {
		delete(c.subscribers, sub.PoolID)
	} else {
		c.subscribers[sub.PoolID] = newSubs
	}

	c.logger.Debug().
		Str("pool_id", sub.PoolID).
		Str("sub_id", sub.ID).
		Msg("Subscription removed")
}
