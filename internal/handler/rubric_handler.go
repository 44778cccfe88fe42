package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/service"
	appErrors "github.com/JuanCruzRobledo/correccion-automatica-api/pkg/errors"
	"github.com/JuanCruzRobledo/correccion-automatica-api/pkg/response"
)

// RubricHandler handles rubric endpoints nested under a commission.
type RubricHandler struct {
	service *service.RubricService
}

// NewRubricHandler constructs a rubric handler.
func NewRubricHandler(svc *service.RubricService) *RubricHandler {
	return &RubricHandler{service: svc}
}

// List godoc
// @Summary List rubrics of a commission
// @Tags Rubrics
// @Produce json
// @Param university_id path string true "University identifier"
// @Param course_id path string true "Course identifier"
// @Param commission_id path string true "Commission identifier"
// @Param rubric_type query string false "Filter by rubric type"
// @Param year query int false "Filter by year"
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /universities/{university_id}/courses/{course_id}/commissions/{commission_id}/rubrics [get]
func (h *RubricHandler) List(c *gin.Context) {
	var filter models.RubricFilter
	filter.UniversityCode = c.Param("university_id")
	filter.CourseCode = c.Param("course_id")
	filter.CommissionCode = c.Param("commission_id")
	filter.Type = models.RubricType(c.Query("rubric_type"))
	filter.Search = strings.TrimSpace(c.Query("search"))
	if year, err := strconv.Atoi(c.Query("year")); err == nil {
		filter.Year = year
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	rubrics, pagination, err := h.service.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rubrics, pagination)
}

// Get godoc
// @Summary Get rubric by identifier
// @Tags Rubrics
// @Produce json
// @Param university_id path string true "University identifier"
// @Param course_id path string true "Course identifier"
// @Param commission_id path string true "Commission identifier"
// @Param rubric_id path string true "Rubric identifier"
// @Success 200 {object} response.Envelope
// @Router /universities/{university_id}/courses/{course_id}/commissions/{commission_id}/rubrics/{rubric_id} [get]
func (h *RubricHandler) Get(c *gin.Context) {
	rubric, err := h.service.Get(c.Request.Context(), c.Param("university_id"), c.Param("commission_id"), c.Param("rubric_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rubric, nil)
}

// SuggestID godoc
// @Summary Suggest a rubric identifier from type, number and year
// @Tags Rubrics
// @Produce json
// @Param university_id path string true "University identifier"
// @Param course_id path string true "Course identifier"
// @Param commission_id path string true "Commission identifier"
// @Param rubric_type query string true "Rubric type"
// @Param rubric_number query int false "Rubric number"
// @Param year query int true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /universities/{university_id}/courses/{course_id}/commissions/{commission_id}/rubrics/suggest-id [get]
func (h *RubricHandler) SuggestID(c *gin.Context) {
	rubricType := strings.TrimSpace(c.Query("rubric_type"))
	if rubricType == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "rubric_type query parameter is required"))
		return
	}
	number, _ := strconv.Atoi(c.Query("rubric_number"))
	year, _ := strconv.Atoi(c.Query("year"))
	response.JSON(c, http.StatusOK, gin.H{"rubric_id": h.service.SuggestCode(rubricType, number, year)}, nil)
}

// CheckID godoc
// @Summary Check whether a rubric identifier is available
// @Tags Rubrics
// @Produce json
// @Param university_id path string true "University identifier"
// @Param course_id path string true "Course identifier"
// @Param commission_id path string true "Commission identifier"
// @Param rubric_id query string true "Candidate identifier"
// @Success 200 {object} response.Envelope
// @Router /universities/{university_id}/courses/{course_id}/commissions/{commission_id}/rubrics/check-id [get]
func (h *RubricHandler) CheckID(c *gin.Context) {
	available, err := h.service.CheckCode(c.Request.Context(), c.Param("university_id"), c.Param("commission_id"), c.Query("rubric_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"available": available}, nil)
}

// Create godoc
// @Summary Create rubric
// @Tags Rubrics
// @Accept json
// @Produce json
// @Param university_id path string true "University identifier"
// @Param course_id path string true "Course identifier"
// @Param commission_id path string true "Commission identifier"
// @Param payload body service.CreateRubricRequest true "Rubric payload"
// @Success 201 {object} response.Envelope
// @Router /universities/{university_id}/courses/{course_id}/commissions/{commission_id}/rubrics [post]
func (h *RubricHandler) Create(c *gin.Context) {
	var req service.CreateRubricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.UniversityCode = c.Param("university_id")
	req.CourseCode = c.Param("course_id")
	req.CommissionCode = c.Param("commission_id")

	rubric, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rubric)
}

// Update godoc
// @Summary Update rubric
// @Tags Rubrics
// @Accept json
// @Produce json
// @Param university_id path string true "University identifier"
// @Param course_id path string true "Course identifier"
// @Param commission_id path string true "Commission identifier"
// @Param rubric_id path string true "Rubric identifier"
// @Param payload body service.UpdateRubricRequest true "Rubric payload"
// @Success 200 {object} response.Envelope
// @Router /universities/{university_id}/courses/{course_id}/commissions/{commission_id}/rubrics/{rubric_id} [put]
func (h *RubricHandler) Update(c *gin.Context) {
	var req service.UpdateRubricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rubric, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("university_id"), c.Param("commission_id"), c.Param("rubric_id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rubric, nil)
}

// Delete godoc
// @Summary Delete rubric
// @Tags Rubrics
// @Produce json
// @Param university_id path string true "University identifier"
// @Param course_id path string true "Course identifier"
// @Param commission_id path string true "Commission identifier"
// @Param rubric_id path string true "Rubric identifier"
// @Success 204
// @Router /universities/{university_id}/courses/{course_id}/commissions/{commission_id}/rubrics/{rubric_id} [delete]
func (h *RubricHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("university_id"), c.Param("commission_id"), c.Param("rubric_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
