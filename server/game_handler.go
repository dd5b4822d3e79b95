package server

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/whiskylabs/whisky-protocol-core/engine"
	"github.com/whiskylabs/whisky-protocol-core/errors"
)

// GameHandler handles the wager lifecycle routes. The authenticated address
// is always the acting account: players operate on their own games, and the
// oracle routes verify the caller against the configured oracle address
// inside the engine.
type GameHandler struct {
	app    *App
	logger zerolog.Logger
}

// NewGameHandler creates a game handler.
func NewGameHandler(app *App) *GameHandler {
	return &GameHandler{
		app:    app,
		logger: app.logger.With().Str("handler", "game").Logger(),
	}
}

func nonceParam(c *gin.Context) (uint64, error) {
	nonce, err := strconv.ParseUint(c.Param("nonce"), 10, 64)
	if err != nil {
		return 0, errors.New(errors.ErrInvalidRequest, "invalid nonce")
	}
	return nonce, nil
}

type playRequest struct {
	Pool          string   `json:"pool" binding:"required"`
	Creator       string   `json:"creator" binding:"required"`
	Bet           []uint32 `json:"bet" binding:"required"`
	Wager         uint64   `json:"wager,string" binding:"required"`
	ClientSeed    string   `json:"client_seed"`
	CreatorFeeBps uint64   `json:"creator_fee_bps"`
	JackpotFeeBps uint64   `json:"jackpot_fee_bps"`
	Metadata      string   `json:"metadata"`
}

// Play escrows a wager and opens a round awaiting the oracle's reveal.
// Route: POST /api/v1/games/play
func (h *GameHandler) Play(c *gin.Context) {
	caller, err := callerAddress(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	var req playRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.Wrap(err, errors.ErrInvalidRequest, "invalid request body"))
		return
	}

	g, err := h.app.settlement.PlayGame(c.Request.Context(), engine.PlayRequest{
		User:          caller,
		Pool:          req.Pool,
		Creator:       req.Creator,
		Bet:           req.Bet,
		Wager:         req.Wager,
		ClientSeed:    req.ClientSeed,
		CreatorFeeBps: req.CreatorFeeBps,
		JackpotFeeBps: req.JackpotFeeBps,
		Metadata:      req.Metadata,
	})
	if err != nil {
		HandleAppError(c, err)
		return
	}

	h.logger.Info().
		Str("user", caller).
		Uint64("nonce", g.Nonce).
		Uint64("wager", g.Wager).
		Msg("round opened")
	Created(c, g)
}

// Get returns one of the caller's game records by nonce.
// Route: GET /api/v1/games/:nonce
func (h *GameHandler) Get(c *gin.Context) {
	caller, err := callerAddress(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}
	nonce, err := nonceParam(c)
	if err != nil {
		BadRequest(c, err)
		return
	}

	g, err := h.app.settlement.GetGame(c.Request.Context(), caller, nonce)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	if g == nil {
		NotFound(c, errors.New(errors.ErrGameNotFound, "game not found"))
		return
	}
	OK(c, g)
}

// GetActive returns the game occupying the caller's current slot.
// Route: GET /api/v1/games/active
func (h *GameHandler) GetActive(c *gin.Context) {
	caller, err := callerAddress(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	g, err := h.app.settlement.GetActiveGame(c.Request.Context(), caller)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	if g == nil {
		NotFound(c, errors.New(errors.ErrGameNotFound, "no active game"))
		return
	}
	OK(c, g)
}

// GetPlayer returns the caller's sequencing record.
// Route: GET /api/v1/players/me
func (h *GameHandler) GetPlayer(c *gin.Context) {
	caller, err := callerAddress(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	player, err := h.app.settlement.GetPlayer(c.Request.Context(), caller)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	if player == nil {
		NotFound(c, errors.New(errors.ErrPlayerNotFound, "player not found"))
		return
	}
	OK(c, player)
}

type claimResponse struct {
	Nonce  uint64 `json:"nonce"`
	Amount uint64 `json:"amount,string"`
}

// Claim sweeps the settled escrow of a round to the caller.
// Route: POST /api/v1/games/:nonce/claim
func (h *GameHandler) Claim(c *gin.Context) {
	caller, err := callerAddress(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}
	nonce, err := nonceParam(c)
	if err != nil {
		BadRequest(c, err)
		return
	}

	amount, err := h.app.settlement.Claim(c.Request.Context(), caller, nonce)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	OK(c, claimResponse{Nonce: nonce, Amount: amount})
}

// Expire voids a round whose oracle reveal never arrived, making the wager
// claimable again.
// Route: POST /api/v1/games/:nonce/expire
func (h *GameHandler) Expire(c *gin.Context) {
	caller, err := callerAddress(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}
	nonce, err := nonceParam(c)
	if err != nil {
		BadRequest(c, err)
		return
	}

	g, err := h.app.settlement.Expire(c.Request.Context(), caller, nonce)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	h.logger.Warn().Str("user", caller).Uint64("nonce", nonce).Msg("round expired")
	OK(c, g)
}

// Close deletes a finished game record. The escrow must be claimed first.
// Route: POST /api/v1/games/:nonce/close
func (h *GameHandler) Close(c *gin.Context) {
	caller, err := callerAddress(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}
	nonce, err := nonceParam(c)
	if err != nil {
		BadRequest(c, err)
		return
	}

	if err := h.app.settlement.Close(c.Request.Context(), caller, nonce); err != nil {
		HandleAppError(c, err)
		return
	}
	NoContent(c)
}

// Settle resolves a round from the oracle's revealed seed. Oracle only.
// Route: POST /api/v1/oracle/settle
func (h *GameHandler) Settle(c *gin.Context) {
	caller, err := callerAddress(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	var req engine.SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.Wrap(err, errors.ErrInvalidRequest, "invalid request body"))
		return
	}

	g, err := h.app.settlement.Settle(c.Request.Context(), caller, req)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	h.logger.Info().
		Str("user", g.User).
		Uint64("nonce", g.Nonce).
		Uint64("payout", g.Payout).
		Bool("jackpot_won", g.JackpotWon).
		Msg("round settled")
	OK(c, g)
}

type seedHashRequest struct {
	User     string `json:"user" binding:"required"`
	SeedHash string `json:"seed_hash" binding:"required"`
}

// ProvideSeedHash records the oracle's commitment for a player's next round.
// Oracle only.
// Route: POST /api/v1/oracle/seed-hash
func (h *GameHandler) ProvideSeedHash(c *gin.Context) {
	caller, err := callerAddress(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	var req seedHashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.Wrap(err, errors.ErrInvalidRequest, "invalid request body"))
		return
	}

	if err := h.app.settlement.ProvideNextSeedHash(c.Request.Context(), caller, req.User, req.SeedHash); err != nil {
		HandleAppError(c, err)
		return
	}
	NoContent(c)
}
