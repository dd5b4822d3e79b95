package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/whiskylabs/whisky-protocol-core/auth"
	"github.com/whiskylabs/whisky-protocol-core/config"
	"github.com/whiskylabs/whisky-protocol-core/engine"
	"github.com/whiskylabs/whisky-protocol-core/middleware"
	"github.com/whiskylabs/whisky-protocol-core/pkg/jackpot"
)

// App represents the settlement service application. It wires the settlement
// engine behind the HTTP API and owns the server lifecycle.
type App struct {
	ginEngine  *gin.Engine
	config     *config.Config
	logger     zerolog.Logger
	settlement *engine.Engine
	httpServer *http.Server
	onShutdown []func()

	protocolHandler *ProtocolHandler
	poolHandler     *PoolHandler
	gameHandler     *GameHandler
	jackpotHandler  *JackpotHandler

	jackpotService    *jackpot.Service
	jackpotFeedCancel context.CancelFunc
}

// Options holds server configuration options
type Options struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Settlement *engine.Engine

	// JackpotService is optional; when nil the jackpot stream routes are
	// still registered but only serve provider snapshots.
	JackpotService *jackpot.Service
}

// Router is an alias for gin.Engine for convenience
type Router = gin.Engine

// New creates a new settlement service application
func New(opts Options) *App {
	if opts.Config.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	app := &App{
		ginEngine:      gin.New(),
		config:         opts.Config,
		logger:         opts.Logger,
		settlement:     opts.Settlement,
		jackpotService: opts.JackpotService,
	}

	if app.jackpotService == nil {
		app.jackpotService = jackpot.NewService(jackpot.ServiceConfig{
			BroadcastInterval: 2 * time.Second,
			Logger:            opts.Logger,
		})
	}

	app.protocolHandler = NewProtocolHandler(app)
	app.poolHandler = NewPoolHandler(app)
	app.gameHandler = NewGameHandler(app)
	app.jackpotHandler = NewJackpotHandler(app, app.jackpotService)

	return app
}

// AttachJackpotUpdateFeed attaches a source of jackpot updates (e.g. the
// Kafka consumer channel). It copies updates into the shared jackpot service
// buffer. Pass nil to detach.
func (a *App) AttachJackpotUpdateFeed(feed <-chan jackpot.Update) {
	if a.jackpotFeedCancel != nil {
		a.jackpotFeedCancel()
		a.jackpotFeedCancel = nil
	}
	if feed == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.jackpotFeedCancel = cancel
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-feed:
				if !ok {
					return
				}
				a.jackpotService.HandleUpdate(upd)
			}
		}
	}()
}

// UseCommonMiddlewares adds common middlewares to the application
func (a *App) UseCommonMiddlewares() {
	// Recovery middleware (must be first)
	a.ginEngine.Use(middleware.Recovery(a.logger))

	// Trace ID middleware
	a.ginEngine.Use(middleware.TraceID())

	// Logging middleware
	a.ginEngine.Use(middleware.Logging(a.logger))

	// CORS middleware if enabled
	if a.config.Server.EnableCORS {
		a.ginEngine.Use(middleware.CORS())
	}
}

// UseMiddleware adds a custom middleware
func (a *App) UseMiddleware(m gin.HandlerFunc) {
	a.ginEngine.Use(m)
}

// RegisterHealthCheck adds health check endpoints
func (a *App) RegisterHealthCheck() {
	a.ginEngine.GET("/health", a.healthCheck)
	a.ginEngine.GET("/api/health", a.healthCheck)
}

func (a *App) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"service":   a.config.Environment,
	})
}

// RegisterSettlementRoutes registers the settlement API.
//
// Routes registered under /api/v1 (JWT-protected; the authenticated address
// is the acting account on every mutating route):
//   - POST /protocol/init                 -> ProtocolHandler.Init
//   - GET  /protocol/config               -> ProtocolHandler.GetConfig
//   - PUT  /protocol/config               -> ProtocolHandler.SetConfig
//   - POST /protocol/distribute-fees      -> ProtocolHandler.DistributeFees
//   - POST /pools                         -> PoolHandler.Create
//   - GET  /pools/:pool_id                -> PoolHandler.Get
//   - PUT  /pools/:pool_id/params         -> PoolHandler.SetParams
//   - POST /pools/:pool_id/deposit        -> PoolHandler.Deposit
//   - POST /pools/:pool_id/withdraw       -> PoolHandler.Withdraw
//   - POST /games/play                    -> GameHandler.Play
//   - POST /games/:nonce/claim            -> GameHandler.Claim
//   - POST /games/:nonce/expire           -> GameHandler.Expire
//   - POST /games/:nonce/close            -> GameHandler.Close
//   - GET  /games/active                  -> GameHandler.GetActive
//   - GET  /games/:nonce                  -> GameHandler.Get
//   - GET  /players/me                    -> GameHandler.GetPlayer
//   - POST /oracle/settle                 -> GameHandler.Settle
//   - POST /oracle/seed-hash              -> GameHandler.ProvideSeedHash
//
// Jackpot stream routes are public (read-only):
//   - GET /api/v1/pools/:pool_id/jackpot/updates    (SSE)
//   - GET /api/v1/pools/:pool_id/jackpot/updates/ws (WebSocket)
//   - GET /api/v1/pools/:pool_id/jackpot            (current value)
func (a *App) RegisterSettlementRoutes() {
	public := a.ginEngine.Group("/api/v1")
	{
		public.GET("/pools/:pool_id/jackpot", a.jackpotHandler.Current)
		public.GET("/pools/:pool_id/jackpot/updates", a.jackpotHandler.StreamUpdates)
		public.GET("/pools/:pool_id/jackpot/updates/ws", a.jackpotHandler.StreamUpdatesWebSocket)
	}

	api := a.ginEngine.Group("/api/v1")
	api.Use(auth.JWTMiddleware(a.config.JWT.Secret, a.logger))
	// Stream routes stay outside the timeout; settlement calls do not.
	api.Use(middleware.Timeout(a.config.Server.WriteTimeout))
	{
		protocol := api.Group("/protocol")
		{
			protocol.POST("/init", a.protocolHandler.Init)
			protocol.GET("/config", a.protocolHandler.GetConfig)
			protocol.PUT("/config", a.protocolHandler.SetConfig)
			protocol.POST("/distribute-fees", a.protocolHandler.DistributeFees)
		}

		pools := api.Group("/pools")
		{
			pools.POST("", a.poolHandler.Create)
			pools.GET("/:pool_id", a.poolHandler.Get)
			pools.PUT("/:pool_id/params", a.poolHandler.SetParams)
			pools.POST("/:pool_id/deposit", a.poolHandler.Deposit)
			pools.POST("/:pool_id/withdraw", a.poolHandler.Withdraw)
		}

		games := api.Group("/games")
		{
			games.POST("/play", a.gameHandler.Play)
			games.GET("/active", a.gameHandler.GetActive)
			games.GET("/:nonce", a.gameHandler.Get)
			games.POST("/:nonce/claim", a.gameHandler.Claim)
			games.POST("/:nonce/expire", a.gameHandler.Expire)
			games.POST("/:nonce/close", a.gameHandler.Close)
		}

		api.GET("/players/me", a.gameHandler.GetPlayer)

		oracle := api.Group("/oracle")
		{
			oracle.POST("/settle", a.gameHandler.Settle)
			oracle.POST("/seed-hash", a.gameHandler.ProvideSeedHash)
		}
	}

	a.logger.Info().Msg("Settlement routes registered: /api/v1")
}

// Router returns the Gin engine for custom route registration
func (a *App) Router() *gin.Engine {
	return a.ginEngine
}

// Group creates a route group
func (a *App) Group(path string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return a.ginEngine.Group(path, handlers...)
}

// AuthGroup creates a route group with JWT authentication
func (a *App) AuthGroup(path string) *gin.RouterGroup {
	return a.ginEngine.Group(path, auth.JWTMiddleware(a.config.JWT.Secret, a.logger))
}

// Settlement returns the settlement engine
func (a *App) Settlement() *engine.Engine {
	return a.settlement
}

// JackpotService returns the jackpot stream service
func (a *App) JackpotService() *jackpot.Service {
	return a.jackpotService
}

// Config returns the application configuration
func (a *App) Config() *config.Config {
	return a.config
}

// Logger returns the application logger
func (a *App) Logger() zerolog.Logger {
	return a.logger
}

// OnShutdown registers a function to be called on shutdown
func (a *App) OnShutdown(fn func()) {
	a.onShutdown = append(a.onShutdown, fn)
}

// Run starts the HTTP server and blocks until an interrupt signal arrives
func (a *App) Run() error {
	a.startHTTPServer(nil)
	return a.waitForShutdown()
}

// RunWithContext starts the HTTP server and blocks until the context is
// cancelled or the server fails
func (a *App) RunWithContext(ctx context.Context) error {
	errChan := make(chan error, 1)
	a.startHTTPServer(errChan)

	select {
	case <-ctx.Done():
		return a.shutdown()
	case err := <-errChan:
		return err
	}
}

func (a *App) startHTTPServer(errChan chan error) {
	addr := fmt.Sprintf(":%d", a.config.Server.Port)

	a.httpServer = &http.Server{
		Addr:         addr,
		Handler:      a.ginEngine,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
		IdleTimeout:  a.config.Server.IdleTimeout,
	}

	go func() {
		a.logger.Info().
			Int("port", a.config.Server.Port).
			Str("environment", a.config.Environment).
			Msg("Starting HTTP server")

		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if errChan != nil {
				errChan <- err
				return
			}
			a.logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
}

func (a *App) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return a.shutdown()
}

func (a *App) shutdown() error {
	a.logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.jackpotFeedCancel != nil {
		a.jackpotFeedCancel()
	}
	a.jackpotService.Stop()

	for _, fn := range a.onShutdown {
		fn()
	}

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Error during server shutdown")
		return err
	}

	a.logger.Info().Msg("Server shutdown complete")
	return nil
}
