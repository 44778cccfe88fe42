package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/service"
	appErrors "github.com/JuanCruzRobledo/correccion-automatica-api/pkg/errors"
	"github.com/JuanCruzRobledo/correccion-automatica-api/pkg/response"
)

// ConsolidatorHandler handles project consolidation endpoints.
type ConsolidatorHandler struct {
	service *service.ConsolidatorService
}

// NewConsolidatorHandler constructs a consolidator handler.
func NewConsolidatorHandler(svc *service.ConsolidatorService) *ConsolidatorHandler {
	return &ConsolidatorHandler{service: svc}
}

func consolidateRequestFromForm(c *gin.Context) service.ConsolidateRequest {
	var req service.ConsolidateRequest
	req.Mode = c.PostForm("mode")
	req.IncludeTests = c.PostForm("include_tests") == "true"
	if raw := strings.TrimSpace(c.PostForm("extensions")); raw != "" {
		for _, ext := range strings.Split(raw, ",") {
			if ext = strings.TrimSpace(ext); ext != "" {
				req.Extensions = append(req.Extensions, ext)
			}
		}
	}
	return req
}

// Single godoc
// @Summary Consolidate one project archive synchronously
// @Tags Consolidator
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Project ZIP"
// @Param mode formData string false "Consolidation mode"
// @Param extensions formData string false "Comma-separated extensions for custom mode"
// @Param include_tests formData bool false "Include test files"
// @Success 200 {object} response.Envelope
// @Router /consolidator/single [post]
func (h *ConsolidatorHandler) Single(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file field is required"))
		return
	}
	if err := h.service.CheckSingleSize(fileHeader.Size); err != nil {
		response.Error(c, err)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read uploaded file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read uploaded file"))
		return
	}

	projectName := strings.TrimSuffix(fileHeader.Filename, ".zip")
	project, err := h.service.ConsolidateSingle(c.Request.Context(), projectName, data, consolidateRequestFromForm(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// Batch godoc
// @Summary Start an asynchronous batch consolidation job
// @Tags Consolidator
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Batch ZIP with entregas/{student}/*.zip layout"
// @Param mode formData string false "Consolidation mode"
// @Param extensions formData string false "Comma-separated extensions for custom mode"
// @Param include_tests formData bool false "Include test files"
// @Success 202 {object} response.Envelope
// @Router /consolidator/batch [post]
func (h *ConsolidatorHandler) Batch(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file field is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read uploaded file"))
		return
	}
	defer file.Close()

	job, err := h.service.StartBatch(c.Request.Context(), claimsFromContext(c),
		fileHeader.Filename, fileHeader.Size, file, consolidateRequestFromForm(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// GetJob godoc
// @Summary Get a batch consolidation job
// @Tags Consolidator
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /consolidator/jobs/{id} [get]
func (h *ConsolidatorHandler) GetJob(c *gin.Context) {
	job, err := h.service.GetJob(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// ListJobs godoc
// @Summary List recent batch consolidation jobs
// @Tags Consolidator
// @Produce json
// @Param limit query int false "Maximum jobs returned"
// @Success 200 {object} response.Envelope
// @Router /consolidator/jobs [get]
func (h *ConsolidatorHandler) ListJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	jobs, err := h.service.ListJobs(c.Request.Context(), claimsFromContext(c), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, nil)
}

// SignOutput godoc
// @Summary Issue a signed download URL for a job's output ZIP
// @Tags Consolidator
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /consolidator/jobs/{id}/download-url [post]
func (h *ConsolidatorHandler) SignOutput(c *gin.Context) {
	grant, err := h.service.SignOutput(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grant, nil)
}

// DownloadOutput godoc
// @Summary Download a job's output ZIP with a signed token
// @Tags Consolidator
// @Produce application/zip
// @Param token query string true "Signed download token"
// @Success 200
// @Router /consolidator/download [get]
func (h *ConsolidatorHandler) DownloadOutput(c *gin.Context) {
	job, file, err := h.service.OpenOutputByToken(c.Request.Context(), c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "consolidado-"+job.ID+".zip"))
	c.Header("Content-Type", "application/zip")
	if _, err := io.Copy(c.Writer, file); err != nil {
		c.Abort()
	}
}
