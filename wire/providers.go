package wire

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/whiskylabs/whisky-protocol-core/config"
	"github.com/whiskylabs/whisky-protocol-core/db/redis"
	"github.com/whiskylabs/whisky-protocol-core/engine"
	"github.com/whiskylabs/whisky-protocol-core/events/kafka"
	"github.com/whiskylabs/whisky-protocol-core/logging"
	"github.com/whiskylabs/whisky-protocol-core/pkg/custody"
	"github.com/whiskylabs/whisky-protocol-core/pkg/jackpot"
	"github.com/whiskylabs/whisky-protocol-core/provider"
	"github.com/whiskylabs/whisky-protocol-core/server"
	"github.com/whiskylabs/whisky-protocol-core/store"
)

// ProvideLogger provides a zerolog.Logger
func ProvideLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(cfg.Logging)
}

// ProvideRedisClient provides a Redis client
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	return redis.New(cfg.Redis)
}

// ProvideStore provides the Redis-backed record store
func ProvideStore(client *redis.Client) store.Store {
	return store.NewRedis(client)
}

// ProvideCustodyService provides the custody service client
func ProvideCustodyService(cfg *config.Config, logger zerolog.Logger) custody.Service {
	return provider.NewCustodyProvider(cfg, logger)
}

// ProvideKafkaProducer provides the Kafka producer
func ProvideKafkaProducer(cfg *config.Config) (*kafka.Producer, error) {
	return kafka.NewProducer(cfg.Kafka.Brokers)
}

// ProvideEventSink provides the settlement event sink
func ProvideEventSink(producer *kafka.Producer, cfg *config.Config, logger zerolog.Logger) engine.EventSink {
	return kafka.NewSink(producer, logger, kafka.SinkConfig{
		SettledTopic:  cfg.Kafka.Topics["settled"],
		PoolTopic:     cfg.Kafka.Topics["pools"],
		JackpotTopic:  cfg.Kafka.Topics["jackpots"],
		AssetDecimals: cfg.Protocol.AssetDecimals,
	})
}

// ProvideEngineOptions provides settlement engine options from configuration
func ProvideEngineOptions(cfg *config.Config) engine.Options {
	opts := engine.DefaultOptions()
	if cfg.Protocol.PendingTimeout > 0 {
		opts.PendingTimeout = cfg.Protocol.PendingTimeout
	}
	opts.VerifySeedChain = cfg.Protocol.SeedChainEnabled()
	return opts
}

// ProvideEngine provides the settlement engine
func ProvideEngine(st store.Store, bank custody.Service, sink engine.EventSink, logger zerolog.Logger, opts engine.Options) *engine.Engine {
	return engine.New(st, bank, sink, logger, opts)
}

// ProvideJackpotProvider provides the engine-backed jackpot snapshot source
func ProvideJackpotProvider(eng *engine.Engine, cfg *config.Config) jackpot.Provider {
	return provider.NewJackpotProvider(eng, cfg)
}

// ProvideJackpotService provides the jackpot stream service
func ProvideJackpotService(p jackpot.Provider, logger zerolog.Logger) *jackpot.Service {
	return jackpot.NewService(jackpot.ServiceConfig{
		Logger:   logger,
		Provider: p,
	})
}

// ProvideServerOptions provides server options
func ProvideServerOptions(cfg *config.Config, logger zerolog.Logger, eng *engine.Engine, svc *jackpot.Service) server.Options {
	return server.Options{
		Config:         cfg,
		Logger:         logger,
		Settlement:     eng,
		JackpotService: svc,
	}
}

// ProvideApp provides the main application
func ProvideApp(opts server.Options) *server.App {
	return server.New(opts)
}

// ConfigSet is the wire provider set for configuration
var ConfigSet = wire.NewSet(
	config.Load,
)

// LoggingSet is the wire provider set for logging
var LoggingSet = wire.NewSet(
	ProvideLogger,
)

// StorageSet is the wire provider set for Redis and the record store
var StorageSet = wire.NewSet(
	ProvideRedisClient,
	ProvideStore,
)

// EventsSet is the wire provider set for the Kafka producer and event sink
var EventsSet = wire.NewSet(
	ProvideKafkaProducer,
	ProvideEventSink,
)

// EngineSet is the wire provider set for the settlement engine
var EngineSet = wire.NewSet(
	ProvideCustodyService,
	ProvideEngineOptions,
	ProvideEngine,
)

// JackpotSet is the wire provider set for the jackpot stream service
var JackpotSet = wire.NewSet(
	ProvideJackpotProvider,
	ProvideJackpotService,
)

// ServerSet is the wire provider set for server
var ServerSet = wire.NewSet(
	ProvideServerOptions,
	ProvideApp,
)

// DefaultSet is the default wire provider set including all common providers
var DefaultSet = wire.NewSet(
	LoggingSet,
	EngineSet,
	JackpotSet,
	ServerSet,
)

// FullSet includes all providers including Redis and Kafka
var FullSet = wire.NewSet(
	DefaultSet,
	StorageSet,
	EventsSet,
)
