package server

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/whiskylabs/whisky-protocol-core/engine"
	"github.com/whiskylabs/whisky-protocol-core/errors"
)

// PoolHandler handles liquidity pool routes.
type PoolHandler struct {
	app    *App
	logger zerolog.Logger
}

// NewPoolHandler creates a pool handler.
func NewPoolHandler(app *App) *PoolHandler {
	return &PoolHandler{
		app:    app,
		logger: app.logger.With().Str("handler", "pool").Logger(),
	}
}

type createPoolRequest struct {
	Asset string `json:"asset" binding:"required"`
}

// Create opens a liquidity pool for an asset owned by the caller.
// Route: POST /api/v1/pools
func (h *PoolHandler) Create(c *gin.Context) {
	caller, err := callerAddress(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	var req createPoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.Wrap(err, errors.ErrInvalidRequest, "invalid request body"))
		return
	}

	pool, err := h.app.settlement.CreatePool(c.Request.Context(), caller, req.Asset)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	h.logger.Info().Str("pool", pool.ID).Str("asset", pool.Asset).Msg("pool created")
	Created(c, pool)
}

// Get returns a pool joined with its live vault balances.
// Route: GET /api/v1/pools/:pool_id
func (h *PoolHandler) Get(c *gin.Context) {
	snapshot, err := h.app.settlement.GetPool(c.Request.Context(), c.Param("pool_id"))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	OK(c, snapshot)
}

// SetParams replaces the owner-adjustable pool settings. Pool authority only.
// Route: PUT /api/v1/pools/:pool_id/params
func (h *PoolHandler) SetParams(c *gin.Context) {
	caller, err := callerAddress(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	var params engine.PoolParams
	if err := c.ShouldBindJSON(&params); err != nil {
		BadRequest(c, errors.Wrap(err, errors.ErrInvalidRequest, "invalid request body"))
		return
	}

	pool, err := h.app.settlement.SetPoolParams(c.Request.Context(), caller, c.Param("pool_id"), params)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	OK(c, pool)
}

type liquidityRequest struct {
	Amount uint64 `json:"amount,string" binding:"required"`
}

type depositResponse struct {
	Pool   string `json:"pool"`
	Amount uint64 `json:"amount,string"`
	Shares uint64 `json:"shares,string"`
}

// Deposit adds liquidity and mints pool shares to the caller.
// Route: POST /api/v1/pools/:pool_id/deposit
func (h *PoolHandler) Deposit(c *gin.Context) {
	caller, err := callerAddress(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	var req liquidityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.Wrap(err, errors.ErrInvalidRequest, "invalid request body"))
		return
	}

	poolID := c.Param("pool_id")
	shares, err := h.app.settlement.Deposit(c.Request.Context(), caller, poolID, req.Amount)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	OK(c, depositResponse{Pool: poolID, Amount: req.Amount, Shares: shares})
}

type withdrawRequest struct {
	Shares uint64 `json:"shares,string" binding:"required"`
}

type withdrawResponse struct {
	Pool   string `json:"pool"`
	Shares uint64 `json:"shares,string"`
	Amount uint64 `json:"amount,string"`
}

// Withdraw burns pool shares and pays out the caller's stake, net of the
// withdraw fee that stays in the pool.
// Route: POST /api/v1/pools/:pool_id/withdraw
func (h *PoolHandler) Withdraw(c *gin.Context) {
	caller, err := callerAddress(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.Wrap(err, errors.ErrInvalidRequest, "invalid request body"))
		return
	}

	poolID := c.Param("pool_id")
	amount, err := h.app.settlement.Withdraw(c.Request.Context(), caller, poolID, req.Shares)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	OK(c, withdrawResponse{Pool: poolID, Shares: req.Shares, Amount: amount})
}
