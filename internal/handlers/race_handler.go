package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"racebook/internal/models"
	"racebook/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RaceHandler struct {
	raceService *services.RaceService
}

func NewRaceHandler(raceService *services.RaceService) *RaceHandler {
	return &RaceHandler{raceService: raceService}
}

// GetRaces returns races with live pool and odds data
func (h *RaceHandler) GetRaces(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	races, err := h.raceService.ListRaces(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch races"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"races": races})
}

// GetRace returns a single race with live pool and odds data
func (h *RaceHandler) GetRace(c *gin.Context) {
	raceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid race ID"})
		return
	}

	race, err := h.raceService.GetRace(c.Request.Context(), raceID)
	if err != nil {
		if errors.Is(err, services.ErrRaceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Race not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch race"})
		return
	}

	c.JSON(http.StatusOK, race)
}

// CreateRace creates a new race (admin)
func (h *RaceHandler) CreateRace(c *gin.Context) {
	var req models.CreateRaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	race, err := h.raceService.CreateRace(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, race)
}

// OpenRace opens a race for betting (admin)
func (h *RaceHandler) OpenRace(c *gin.Context) {
	h.transition(c, h.raceService.OpenRace, "opened")
}

// CloseRace closes betting on a race (admin)
func (h *RaceHandler) CloseRace(c *gin.Context) {
	h.transition(c, h.raceService.CloseRace, "closed")
}

func (h *RaceHandler) transition(c *gin.Context, fn func(ctx context.Context, raceID uuid.UUID) error, action string) {
	raceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid race ID"})
		return
	}

	if err := fn(c.Request.Context(), raceID); err != nil {
		if errors.Is(err, services.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": action})
}
