package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/service"
	appErrors "github.com/JuanCruzRobledo/correccion-automatica-api/pkg/errors"
	"github.com/JuanCruzRobledo/correccion-automatica-api/pkg/response"
)

// SubmissionHandler handles the submission workflow endpoints.
type SubmissionHandler struct {
	service *service.SubmissionService
}

// NewSubmissionHandler constructs a submission handler.
func NewSubmissionHandler(svc *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{service: svc}
}

// List godoc
// @Summary List submissions
// @Tags Submissions
// @Produce json
// @Param rubric_id query string false "Filter by rubric"
// @Param commission_id query string false "Filter by commission"
// @Param status query string false "Filter by status"
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /submissions [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	var filter models.SubmissionFilter
	filter.RubricCode = c.Query("rubric_id")
	filter.CommissionCode = c.Query("commission_id")
	filter.Status = models.SubmissionStatus(c.Query("status"))
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	submissions, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submissions, pagination)
}

// Get godoc
// @Summary Get submission by id
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	submission, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Upload godoc
// @Summary Upload a submission file
// @Tags Submissions
// @Accept multipart/form-data
// @Produce json
// @Param student_name formData string true "Student name"
// @Param university_id formData string true "University identifier"
// @Param commission_id formData string true "Commission identifier"
// @Param rubric_id formData string true "Rubric identifier"
// @Param file formData file true "Project archive"
// @Success 201 {object} response.Envelope
// @Router /submissions [post]
func (h *SubmissionHandler) Upload(c *gin.Context) {
	var req service.UploadSubmissionRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission form"))
		return
	}

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

	submission, err := h.service.Upload(c.Request.Context(), claimsFromContext(c), req,
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"), fileHeader.Size, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}

// QueueForCorrection godoc
// @Summary Queue a submission for correction
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/queue [post]
func (h *SubmissionHandler) QueueForCorrection(c *gin.Context) {
	submission, err := h.service.QueueForCorrection(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// RecordCorrection godoc
// @Summary Record the correction result for a submission
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body service.RecordCorrectionRequest true "Correction payload"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/correction [post]
func (h *SubmissionHandler) RecordCorrection(c *gin.Context) {
	var req service.RecordCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	submission, err := h.service.RecordCorrection(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// MarkFailed godoc
// @Summary Mark a pending correction as failed
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/fail [post]
func (h *SubmissionHandler) MarkFailed(c *gin.Context) {
	submission, err := h.service.MarkFailed(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// SignDownload godoc
// @Summary Issue a signed download URL for a submission file
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/download-url [post]
func (h *SubmissionHandler) SignDownload(c *gin.Context) {
	grant, err := h.service.SignDownload(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grant, nil)
}

// Download godoc
// @Summary Download a submission file with a signed token
// @Tags Submissions
// @Produce application/octet-stream
// @Param token query string true "Signed download token"
// @Success 200
// @Router /submissions/download [get]
func (h *SubmissionHandler) Download(c *gin.Context) {
	submission, file, err := h.service.OpenByToken(c.Request.Context(), c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", submission.FileName))
	c.Header("Content-Type", submission.MimeType)
	if _, err := io.Copy(c.Writer, file); err != nil {
		c.Abort()
	}
}

// Delete godoc
// @Summary Delete a submission and its stored file
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 204
// @Router /submissions/{id} [delete]
func (h *SubmissionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportCSV godoc
// @Summary Export a rubric's submissions as CSV
// @Tags Submissions
// @Produce text/csv
// @Param rubric_id query string true "Rubric identifier"
// @Param commission_id query string true "Commission identifier"
// @Success 200
// @Router /submissions/export [get]
func (h *SubmissionHandler) ExportCSV(c *gin.Context) {
	rubricCode := c.Query("rubric_id")
	commissionCode := c.Query("commission_id")
	if rubricCode == "" || commissionCode == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "rubric_id and commission_id query parameters are required"))
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rubricCode+"-submissions.csv"))
	if err := h.service.ExportCSV(c.Request.Context(), rubricCode, commissionCode, c.Writer); err != nil {
		response.Error(c, err)
	}
}
