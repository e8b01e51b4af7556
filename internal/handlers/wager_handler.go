package handlers

import (
	"errors"
	"net/http"

	"racebook/internal/models"
	"racebook/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type WagerHandler struct {
	depositService *services.DepositService
}

func NewWagerHandler(depositService *services.DepositService) *WagerHandler {
	return &WagerHandler{depositService: depositService}
}

// PlaceWager allocates a single-use deposit address for a wager
func (h *WagerHandler) PlaceWager(c *gin.Context) {
	var req models.PlaceWagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	raceID, err := uuid.Parse(req.RaceID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid race ID"})
		return
	}

	addr, err := h.depositService.Allocate(c.Request.Context(), raceID, req.HorseNumber, req.OwnerWallet)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRaceNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Race not found"})
		case errors.Is(err, services.ErrInvalidOwnerWallet):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrRaceNotOpen),
			errors.Is(err, services.ErrRaceStarted),
			errors.Is(err, services.ErrHorseOutOfRange):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to allocate deposit address"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":           addr.ID,
		"address":      addr.Address,
		"horse_number": addr.HorseNumber,
		"expires_at":   addr.ExpiresAt,
	})
}

// GetWagerStatus returns the reconciliation status of a wager
func (h *WagerHandler) GetWagerStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wager ID"})
		return
	}

	status, err := h.depositService.GetDepositStatus(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrDepositNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Wager not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch wager status"})
		return
	}

	c.JSON(http.StatusOK, status)
}
