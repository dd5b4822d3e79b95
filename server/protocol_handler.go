package server

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/whiskylabs/whisky-protocol-core/auth"
	"github.com/whiskylabs/whisky-protocol-core/errors"
	"github.com/whiskylabs/whisky-protocol-core/game"
)

// ProtocolHandler handles protocol policy routes. Authority checks live in
// the engine; the handler only extracts the caller from the JWT and binds
// request bodies.
type ProtocolHandler struct {
	app    *App
	logger zerolog.Logger
}

// NewProtocolHandler creates a protocol handler.
func NewProtocolHandler(app *App) *ProtocolHandler {
	return &ProtocolHandler{
		app:    app,
		logger: app.logger.With().Str("handler", "protocol").Logger(),
	}
}

// callerAddress extracts the authenticated account address from context.
func callerAddress(c *gin.Context) (string, error) {
	address, ok := auth.GetAddress(c)
	if !ok {
		return "", errors.New(errors.ErrUnauthorized, "address not found in context")
	}
	return address, nil
}

// Init creates the protocol policy record owned by the caller.
// Route: POST /api/v1/protocol/init
func (h *ProtocolHandler) Init(c *gin.Context) {
	caller, err := callerAddress(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	cfg, err := h.app.settlement.InitProtocol(c.Request.Context(), caller)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	h.logger.Info().Str("authority", caller).Msg("protocol initialized")
	Created(c, cfg)
}

// GetConfig returns the protocol policy record.
// Route: GET /api/v1/protocol/config
func (h *ProtocolHandler) GetConfig(c *gin.Context) {
	cfg, err := h.app.settlement.GetProtocolConfig(c.Request.Context())
	if err != nil {
		HandleAppError(c, err)
		return
	}
	OK(c, cfg)
}

// SetConfig replaces the protocol policy record. Authority only.
// Route: PUT /api/v1/protocol/config
func (h *ProtocolHandler) SetConfig(c *gin.Context) {
	caller, err := callerAddress(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	var cfg game.ProtocolConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		BadRequest(c, errors.Wrap(err, errors.ErrInvalidRequest, "invalid request body"))
		return
	}

	if err := h.app.settlement.SetProtocolConfig(c.Request.Context(), caller, &cfg); err != nil {
		HandleAppError(c, err)
		return
	}
	OK(c, cfg)
}

type distributeFeesRequest struct {
	Asset string `json:"asset" binding:"required"`
}

type distributeFeesResponse struct {
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount,string"`
}

// DistributeFees sweeps the accrued protocol fees to the distribution
// recipient. Authority only.
// Route: POST /api/v1/protocol/distribute-fees
func (h *ProtocolHandler) DistributeFees(c *gin.Context) {
	caller, err := callerAddress(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	var req distributeFeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.Wrap(err, errors.ErrInvalidRequest, "invalid request body"))
		return
	}

	amount, err := h.app.settlement.DistributeFees(c.Request.Context(), caller, req.Asset)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	h.logger.Info().Str("asset", req.Asset).Uint64("amount", amount).Msg("protocol fees distributed")
	OK(c, distributeFeesResponse{Asset: req.Asset, Amount: amount})
}
