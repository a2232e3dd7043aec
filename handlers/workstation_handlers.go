package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"yieldboard/models"
	"yieldboard/store"
	"yieldboard/utils"
)

type WorkstationHandlers struct {
	WorkstationStore *store.WorkstationStore
}

func NewWorkstationHandlers(s *store.WorkstationStore) *WorkstationHandlers {
	return &WorkstationHandlers{WorkstationStore: s}
}

func (h *WorkstationHandlers) StationTimes(c *gin.Context) {
	var req models.StationTimesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	sns := utils.CleanList(req.SNs)
	if len(sns) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sns must contain at least one serial number"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	rows, err := h.WorkstationStore.StationTimes(ctx, sns)
	if err != nil {
		log.Errorf("Error fetching station times for %d serials: %v", len(sns), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve station times"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *WorkstationHandlers) FilteredYields(c *gin.Context) {
	var req models.FilteredYieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	days, err := utils.NormalizeDays(req.Dates)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	rows, err := h.WorkstationStore.FilteredYields(ctx, days, utils.CleanList(req.SNs))
	if err != nil {
		log.Errorf("Error fetching filtered yields: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve filtered yields"})
		return
	}
	c.JSON(http.StatusOK, rows)
}
