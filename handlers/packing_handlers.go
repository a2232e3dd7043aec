package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"yieldboard/store"
	"yieldboard/utils"
)

type PackingHandlers struct {
	PackingStore *store.PackingStore
}

func NewPackingHandlers(s *store.PackingStore) *PackingHandlers {
	return &PackingHandlers{PackingStore: s}
}

func (h *PackingHandlers) Records(c *gin.Context) {
	start, end, err := utils.ParseDateRange(c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	rows, err := h.PackingStore.Records(ctx, start, end)
	if err != nil {
		log.Errorf("Error fetching packing records: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve packing records"})
		return
	}
	c.JSON(http.StatusOK, rows)
}
