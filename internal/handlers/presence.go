package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mhrk404/m88-dev-tracker-sub000/internal/apierr"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/services"
)

type PresenceHandler struct {
	presenceService services.PresenceService
}

func NewPresenceHandler(presenceService services.PresenceService) *PresenceHandler {
	return &PresenceHandler{presenceService: presenceService}
}

func (ph *PresenceHandler) Heartbeat(c *gin.Context) {
	sampleID, err := uuid.Parse(c.Param("sampleId"))
	if err != nil {
		respondError(c, apierr.Validation("invalid sample id"))
		return
	}
	var req struct {
		Context  string `json:"context"`
		LockType string `json:"lock_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierr.Validation("invalid request body"))
		return
	}
	result, conflict, err := ph.presenceService.Heartbeat(c.Request.Context(), sampleID, req.Context, req.LockType)
	if err != nil {
		respondError(c, err)
		return
	}
	if conflict != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error": gin.H{
				"message": "sample is locked by another user",
				"code":    apierr.CodeConflict,
			},
			"conflict": conflict,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"expires_at": result.ExpiresAt})
}

func (ph *PresenceHandler) Release(c *gin.Context) {
	sampleID, err := uuid.Parse(c.Param("sampleId"))
	if err != nil {
		respondError(c, apierr.Validation("invalid sample id"))
		return
	}
	var req struct {
		Context string `json:"context"`
	}
	// A bare release with no body drops every context the caller holds.
	_ = c.ShouldBindJSON(&req)
	if err := ph.presenceService.Release(c.Request.Context(), sampleID, req.Context); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"released": true})
}

func (ph *PresenceHandler) ListActive(c *gin.Context) {
	raw := c.Query("sample_ids")
	if raw == "" {
		respondError(c, apierr.Validation("sample_ids is required"))
		return
	}
	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			respondError(c, apierr.Validation("invalid sample id %q", part))
			return
		}
		ids = append(ids, id)
	}
	result, err := ph.presenceService.ListActive(c.Request.Context(), ids)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"presence": result})
}
