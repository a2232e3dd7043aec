package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"yieldboard/models"
	"yieldboard/store"
	"yieldboard/utils"
)

// queryTimeout bounds every reporting query.
const queryTimeout = 30 * time.Second

type TPYHandlers struct {
	TPYStore *store.TPYStore
}

func NewTPYHandlers(s *store.TPYStore) *TPYHandlers {
	return &TPYHandlers{TPYStore: s}
}

func (h *TPYHandlers) Daily(c *gin.Context) {
	start, end, err := utils.ParseDateRange(c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	rows, err := h.TPYStore.DailyTPY(ctx, start, end, c.Query("model"))
	if err != nil {
		log.Errorf("Error fetching daily TPY: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve daily TPY"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *TPYHandlers) Weekly(c *gin.Context) {
	startWeek, err := utils.ParseWeek(c.Query("startWeek"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "startWeek: " + err.Error()})
		return
	}
	endWeek, err := utils.ParseWeek(c.Query("endWeek"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endWeek: " + err.Error()})
		return
	}
	if endWeek < startWeek {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endWeek is before startWeek"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	resp, err := h.TPYStore.WeeklyTPY(ctx, startWeek, endWeek)
	if err != nil {
		log.Errorf("Error fetching weekly TPY: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve weekly TPY"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TPYHandlers) TestYields(c *gin.Context) {
	var req models.TestYieldsRequest
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

	rows, err := h.TPYStore.TestYields(ctx, days)
	if err != nil {
		log.Errorf("Error fetching test yields: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve test yields"})
		return
	}
	c.JSON(http.StatusOK, rows)
}
