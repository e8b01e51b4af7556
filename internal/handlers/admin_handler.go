package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"racebook/internal/repository"
	"racebook/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AdminHandler struct {
	settlementService *services.SettlementService
	payoutService     *services.PayoutService
	repo              *repository.Repository
}

func NewAdminHandler(settlementService *services.SettlementService, payoutService *services.PayoutService, repo *repository.Repository) *AdminHandler {
	return &AdminHandler{
		settlementService: settlementService,
		payoutService:     payoutService,
		repo:              repo,
	}
}

// SettleRaceRequest declares a race winner
type SettleRaceRequest struct {
	WinningHorse int `json:"winning_horse" binding:"required,gt=0"`
}

// SettleRace settles a closed race: computes pari-mutuel payouts and
// queues them for dispatch
func (h *AdminHandler) SettleRace(c *gin.Context) {
	raceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid race ID"})
		return
	}

	var req SettleRaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.settlementService.Settle(c.Request.Context(), raceID, req.WinningHorse)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRaceNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Race not found"})
		case errors.Is(err, services.ErrAlreadySettled),
			errors.Is(err, services.ErrRaceNotClosed),
			errors.Is(err, services.ErrWinnerOutOfRange):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Settlement failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_pool":    result.TotalPool,
		"winning_pool":  result.WinningPool,
		"losing_pool":   result.LosingPool,
		"distributable": result.Distributable,
		"winning_bets":  len(result.Winners),
	})
}

// ProcessPayouts dispatches all pending winnings payouts
func (h *AdminHandler) ProcessPayouts(c *gin.Context) {
	h.dispatch(c, h.payoutService.ProcessPayouts)
}

// ProcessRefunds dispatches all pending refunds
func (h *AdminHandler) ProcessRefunds(c *gin.Context) {
	h.dispatch(c, h.payoutService.ProcessRefunds)
}

// CollectDeposits sweeps confirmed deposit addresses into the treasury
func (h *AdminHandler) CollectDeposits(c *gin.Context) {
	h.dispatch(c, h.payoutService.CollectDeposits)
}

// ListPayouts returns payout/refund/collection records
func (h *AdminHandler) ListPayouts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	payouts, err := h.repo.ListPayouts(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payouts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payouts": payouts})
}

func (h *AdminHandler) dispatch(c *gin.Context, fn func(ctx context.Context) (*services.DispatchSummary, error)) {
	summary, err := fn(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDispatchInFlight):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrTreasuryUnderfunded):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, summary)
}
