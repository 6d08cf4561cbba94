package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mhrk404/m88-dev-tracker-sub000/internal/apierr"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/repos"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/services"
)

type AuditHandler struct {
	auditService services.AuditService
}

func NewAuditHandler(auditService services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (ah *AuditHandler) SampleHistory(c *gin.Context) {
	sampleID, err := uuid.Parse(c.Param("sampleId"))
	if err != nil {
		respondError(c, apierr.Validation("invalid sample id"))
		return
	}
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)
	history, err := ah.auditService.GetSampleHistory(c.Request.Context(), sampleID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (ah *AuditHandler) ListActivity(c *gin.Context) {
	filter := repos.ActivityLogFilter{
		Action:   c.Query("action"),
		Resource: c.Query("resource"),
		Limit:    intQuery(c, "limit", 100),
		Offset:   intQuery(c, "offset", 0),
	}
	if v := c.Query("user_id"); v != "" {
		if _, err := uuid.Parse(v); err != nil {
			respondError(c, apierr.Validation("invalid user_id"))
			return
		}
		filter.UserID = v
	}
	if v := c.Query("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(c, apierr.Validation("invalid start timestamp"))
			return
		}
		filter.Start = &t
	}
	if v := c.Query("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(c, apierr.Validation("invalid end timestamp"))
			return
		}
		filter.End = &t
	}
	logs, total, err := ah.auditService.ListActivity(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "total": total})
}

func intQuery(c *gin.Context, key string, fallback int) int {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
