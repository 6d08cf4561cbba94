package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mhrk404/m88-dev-tracker-sub000/internal/apierr"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/services"
)

type StageHandler struct {
	stageService services.StageService
	auditService services.AuditService
}

func NewStageHandler(stageService services.StageService, auditService services.AuditService) *StageHandler {
	return &StageHandler{stageService: stageService, auditService: auditService}
}

func (sh *StageHandler) GetStages(c *gin.Context) {
	sampleID, err := uuid.Parse(c.Param("sampleId"))
	if err != nil {
		respondError(c, apierr.Validation("invalid sample id"))
		return
	}
	result, err := sh.stageService.GetStages(c.Request.Context(), sampleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (sh *StageHandler) UpdateStage(c *gin.Context) {
	sampleID, err := uuid.Parse(c.Param("sampleId"))
	if err != nil {
		respondError(c, apierr.Validation("invalid sample id"))
		return
	}
	var req services.StageUpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierr.Validation("invalid request body"))
		return
	}
	result, conflict, err := sh.stageService.UpdateStage(c.Request.Context(), sampleID, req)
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

	ip := c.ClientIP()
	ua := c.Request.UserAgent()
	resourceID := sampleID.String()
	sh.auditService.LogActivity(c.Request.Context(), "UPDATE_STAGE", "sample_stage", &resourceID,
		map[string]interface{}{"stage": result.Stage, "advanced": result.Advanced}, &ip, &ua)

	c.JSON(http.StatusOK, result)
}
