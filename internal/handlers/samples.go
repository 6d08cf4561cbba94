package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mhrk404/m88-dev-tracker-sub000/internal/apierr"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/services"
)

type SampleHandler struct {
	sampleService services.SampleService
	auditService  services.AuditService
}

func NewSampleHandler(sampleService services.SampleService, auditService services.AuditService) *SampleHandler {
	return &SampleHandler{sampleService: sampleService, auditService: auditService}
}

func (sh *SampleHandler) Create(c *gin.Context) {
	var req services.SampleCreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierr.Validation("invalid request body"))
		return
	}
	sample, err := sh.sampleService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	sh.logActivity(c, "CREATE", "sample", sample.SampleID.String())
	c.JSON(http.StatusCreated, sample)
}

func (sh *SampleHandler) List(c *gin.Context) {
	filter := services.SampleListFilter{
		SampleType:   c.Query("sample_type"),
		SampleStatus: c.Query("sample_status"),
	}
	filter.Style.Division = c.Query("division")
	filter.Style.ProductCategory = c.Query("product_category")
	if v := c.Query("season_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondError(c, apierr.Validation("invalid season_id"))
			return
		}
		filter.Style.SeasonID = id
	}
	if v := c.Query("brand_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondError(c, apierr.Validation("invalid brand_id"))
			return
		}
		filter.Style.BrandID = id
	}
	samples, err := sh.sampleService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"samples": samples, "total": len(samples)})
}

func (sh *SampleHandler) Get(c *gin.Context) {
	sampleID, err := uuid.Parse(c.Param("sampleId"))
	if err != nil {
		respondError(c, apierr.Validation("invalid sample id"))
		return
	}
	sample, err := sh.sampleService.Get(c.Request.Context(), sampleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sample)
}

func (sh *SampleHandler) GetFull(c *gin.Context) {
	sampleID, err := uuid.Parse(c.Param("sampleId"))
	if err != nil {
		respondError(c, apierr.Validation("invalid sample id"))
		return
	}
	full, err := sh.sampleService.GetFull(c.Request.Context(), sampleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, full)
}

func (sh *SampleHandler) Update(c *gin.Context) {
	sampleID, err := uuid.Parse(c.Param("sampleId"))
	if err != nil {
		respondError(c, apierr.Validation("invalid sample id"))
		return
	}
	var req services.SampleUpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierr.Validation("invalid request body"))
		return
	}
	sample, err := sh.sampleService.Update(c.Request.Context(), sampleID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	sh.logActivity(c, "UPDATE", "sample", sampleID.String())
	c.JSON(http.StatusOK, sample)
}

func (sh *SampleHandler) Delete(c *gin.Context) {
	sampleID, err := uuid.Parse(c.Param("sampleId"))
	if err != nil {
		respondError(c, apierr.Validation("invalid sample id"))
		return
	}
	if err := sh.sampleService.Delete(c.Request.Context(), sampleID); err != nil {
		respondError(c, err)
		return
	}
	sh.logActivity(c, "DELETE", "sample", sampleID.String())
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (sh *SampleHandler) logActivity(c *gin.Context, action, resource, resourceID string) {
	ip := c.ClientIP()
	ua := c.Request.UserAgent()
	sh.auditService.LogActivity(c.Request.Context(), action, resource, &resourceID, nil, &ip, &ua)
}
