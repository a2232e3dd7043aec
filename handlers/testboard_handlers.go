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

type TestboardHandlers struct {
	TestboardStore *store.TestboardStore
}

func NewTestboardHandlers(s *store.TestboardStore) *TestboardHandlers {
	return &TestboardHandlers{TestboardStore: s}
}

type snQuery func(ctx context.Context, sns []string, start, end *time.Time) ([]models.TestboardRow, error)

func (h *TestboardHandlers) SNCheck(c *gin.Context) {
	h.serialCheck(c, "sn check", h.TestboardStore.SNCheck)
}

func (h *TestboardHandlers) PassCheck(c *gin.Context) {
	h.serialCheck(c, "pass check", h.TestboardStore.PassCheck)
}

func (h *TestboardHandlers) FailCheck(c *gin.Context) {
	h.serialCheck(c, "fail check", h.TestboardStore.FailCheck)
}

func (h *TestboardHandlers) MostRecentFail(c *gin.Context) {
	h.serialCheck(c, "most recent fail", h.TestboardStore.MostRecentFail)
}

// serialCheck binds an SNCheckRequest and runs query over it.
func (h *TestboardHandlers) serialCheck(c *gin.Context, name string, query snQuery) {
	var req models.SNCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	sns := utils.CleanList(req.SNs)
	if len(sns) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sns must contain at least one serial number"})
		return
	}
	start, end, err := utils.OptionalRange(req.StartDate, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	rows, err := query(ctx, sns, start, end)
	if err != nil {
		log.Errorf("Error running %s for %d serials: %v", name, len(sns), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run " + name})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *TestboardHandlers) ByError(c *gin.Context) {
	var req models.ByErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	codes := utils.CleanList(req.CheckArray)
	if len(codes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "checkArray must contain at least one error code"})
		return
	}
	start, end, err := utils.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	rows, err := h.TestboardStore.ByError(ctx, codes, start, end)
	if err != nil {
		log.Errorf("Error fetching records by error code: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve records by error code"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *TestboardHandlers) XBarR(c *gin.Context) {
	var req models.XBarRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	start, end, err := utils.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	rows, err := h.TestboardStore.XBarR(ctx, start, end, req.Model, req.Workstation)
	if err != nil {
		log.Errorf("Error fetching x-bar-r samples: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve x-bar-r samples"})
		return
	}
	c.JSON(http.StatusOK, rows)
}
