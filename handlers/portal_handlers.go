package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"yieldboard/models"
	"yieldboard/store"
	"yieldboard/utils"
)

const (
	codeQueryFailed  = "QUERY_FAILED"
	codeQueryTimeout = "QUERY_TIMEOUT"
)

// AuditLog records portal executions. *store.AuditStore satisfies it.
type AuditLog interface {
	InsertPortalAudits(ctx context.Context, entries []models.PortalAuditEntry) error
	SlowestQueries(ctx context.Context, start, end time.Time, limit uint64) ([]models.PortalAuditEntry, error)
}

type PortalHandlers struct {
	PortalStore *store.PortalStore
	// Audit is nil when ClickHouse is not configured.
	Audit AuditLog
}

func NewPortalHandlers(s *store.PortalStore, audit AuditLog) *PortalHandlers {
	return &PortalHandlers{PortalStore: s, Audit: audit}
}

func portalError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"success": false, "error": code, "message": message})
}

func (h *PortalHandlers) Query(c *gin.Context) {
	var req models.PortalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		portalError(c, http.StatusBadRequest, utils.CodeMissingSQL, "Request body must be a JSON object with a sql field")
		return
	}

	entry := models.PortalAuditEntry{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		UserEmail: c.GetString("user_email"),
		ClientIP:  c.ClientIP(),
		Statement: req.SQL,
	}

	stmt, err := utils.ValidateSelect(req.SQL)
	if err != nil {
		var verr *utils.SQLValidationError
		if errors.As(err, &verr) {
			entry.ErrorCode = verr.Code
			h.audit(c.Request.Context(), entry)
			portalError(c, verr.Status, verr.Code, verr.Message)
			return
		}
		portalError(c, http.StatusBadRequest, codeQueryFailed, err.Error())
		return
	}

	res, err := h.PortalStore.Execute(c.Request.Context(), stmt)
	entry.DurationMs = time.Since(entry.Timestamp).Milliseconds()
	if err != nil {
		code, status := codeQueryFailed, http.StatusBadRequest
		if errors.Is(err, context.DeadlineExceeded) {
			code, status = codeQueryTimeout, http.StatusGatewayTimeout
		}
		entry.ErrorCode = code
		h.audit(c.Request.Context(), entry)
		log.WithFields(log.Fields{"user": entry.UserEmail, "code": code}).Warnf("Portal query failed: %v", err)
		portalError(c, status, code, err.Error())
		return
	}

	entry.Success = true
	entry.RowCount = uint64(len(res.Rows))
	entry.DurationMs = res.Elapsed.Milliseconds()
	h.audit(c.Request.Context(), entry)

	c.JSON(http.StatusOK, models.PortalResponse{
		Success:       true,
		RowCount:      len(res.Rows),
		Rows:          res.Rows,
		Fields:        res.Fields,
		ExecutionTime: fmt.Sprintf("%dms", res.Elapsed.Milliseconds()),
		Truncated:     res.Truncated,
	})
}

// audit never fails the request.
func (h *PortalHandlers) audit(ctx context.Context, entry models.PortalAuditEntry) {
	if h.Audit == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := h.Audit.InsertPortalAudits(ctx, []models.PortalAuditEntry{entry}); err != nil {
		log.Errorf("Error writing portal audit entry %s: %v", entry.ID, err)
	}
}

func (h *PortalHandlers) Slowest(c *gin.Context) {
	if h.Audit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Audit log is not configured"})
		return
	}
	start, end, err := utils.ParseDateRange(c.Query("start"), c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var limit uint64 = 10
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.ParseUint(raw, 10, 64)
		if err != nil || limit == 0 || limit > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	rows, err := h.Audit.SlowestQueries(ctx, start, end, limit)
	if err != nil {
		log.Errorf("Error fetching slowest portal queries: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve portal audit"})
		return
	}
	c.JSON(http.StatusOK, rows)
}
