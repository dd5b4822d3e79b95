package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/whiskylabs/whisky-protocol-core/config"
	"github.com/whiskylabs/whisky-protocol-core/events/kafka"
	"github.com/whiskylabs/whisky-protocol-core/pkg/jackpot"
	"github.com/whiskylabs/whisky-protocol-core/server"
	"github.com/whiskylabs/whisky-protocol-core/wire"
)

var (
	version = "dev"

	configFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "settlementd",
		Short: "Provably fair wagering settlement service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "Path to configuration file")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := wire.ProvideLogger(cfg)
	logger.Info().Str("version", version).Str("environment", cfg.Environment).Msg("starting settlement service")

	redisClient, err := wire.ProvideRedisClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	producer, err := wire.ProvideKafkaProducer(cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("kafka unavailable, events will be log-only")
		producer = nil
	}

	st := wire.ProvideStore(redisClient)
	bank := wire.ProvideCustodyService(cfg, logger)
	sink := wire.ProvideEventSink(producer, cfg, logger)
	eng := wire.ProvideEngine(st, bank, sink, logger, wire.ProvideEngineOptions(cfg))

	jackpotProvider := wire.ProvideJackpotProvider(eng, cfg)
	jackpotService := wire.ProvideJackpotService(jackpotProvider, logger)

	app := wire.ProvideApp(wire.ProvideServerOptions(cfg, logger, eng, jackpotService))

	// Feed the jackpot stream from the broker so replicas that did not
	// serve the settling request still push updates to their subscribers.
	consumer := startJackpotConsumer(cfg, logger, app)

	app.UseCommonMiddlewares()
	app.RegisterHealthCheck()
	app.RegisterSettlementRoutes()

	app.OnShutdown(func() {
		if consumer != nil {
			if err := consumer.Stop(); err != nil {
				logger.Error().Err(err).Msg("failed to stop kafka consumer")
			}
		}
		if producer != nil {
			if err := producer.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close kafka producer")
			}
		}
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close redis client")
		}
	})

	return app.Run()
}

// startJackpotConsumer wires broker jackpot updates into the app's stream
// service. Returns nil when no brokers are configured.
func startJackpotConsumer(cfg *config.Config, logger zerolog.Logger, app *server.App) *kafka.Consumer {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil
	}

	topic := cfg.Kafka.Topics["jackpots"]
	if topic == "" {
		topic = kafka.DefaultJackpotTopic
	}

	consumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:       cfg.Kafka.Brokers,
		Topic:         topic,
		ConsumerGroup: cfg.Kafka.ConsumerGroup,
		Logger:        logger,
	}, kafka.NewJackpotCache(logger))
	if err := consumer.Start(); err != nil {
		logger.Warn().Err(err).Msg("failed to start jackpot consumer")
		return nil
	}

	sub := consumer.SubscribeAll()
	feed := make(chan jackpot.Update, cap(sub.Channel))
	go func() {
		defer close(feed)
		for event := range sub.Channel {
			feed <- jackpot.Update{
				PoolID:    event.PoolID,
				Asset:     event.Asset,
				Amount:    event.NewAmount,
				Timestamp: event.UpdatedAt,
			}
		}
	}()
	app.AttachJackpotUpdateFeed(feed)
	return consumer
}
