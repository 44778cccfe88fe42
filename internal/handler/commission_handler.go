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

// CommissionHandler handles commission endpoints nested under a course.
type CommissionHandler struct {
	service *service.CommissionService
}

// NewCommissionHandler constructs a commission handler.
func NewCommissionHandler(svc *service.CommissionService) *CommissionHandler {
	return &CommissionHandler{service: svc}
}

// List godoc
// @Summary List commissions of a course
// @Tags Commissions
// @Produce json
// @Param university_id path string true "University identifier"
// @Param course_id path string true "Course identifier"
// @Param year query int false "Filter by year"
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /universities/{university_id}/courses/{course_id}/commissions [get]
func (h *CommissionHandler) List(c *gin.Context) {
	var filter models.CommissionFilter
	filter.UniversityCode = c.Param("university_id")
	filter.CourseCode = c.Param("course_id")
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

	commissions, pagination, err := h.service.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, commissions, pagination)
}

// Get godoc
// @Summary Get commission by identifier
// @Tags Commissions
// @Produce json
// @Param university_id path string true "University identifier"
// @Param course_id path string true "Course identifier"
// @Param commission_id path string true "Commission identifier"
// @Success 200 {object} response.Envelope
// @Router /universities/{university_id}/courses/{course_id}/commissions/{commission_id} [get]
func (h *CommissionHandler) Get(c *gin.Context) {
	commission, err := h.service.Get(c.Request.Context(), c.Param("university_id"), c.Param("course_id"), c.Param("commission_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, commission, nil)
}

// CheckID godoc
// @Summary Check whether a commission identifier is available
// @Tags Commissions
// @Produce json
// @Param university_id path string true "University identifier"
// @Param course_id path string true "Course identifier"
// @Param commission_id query string true "Candidate identifier"
// @Success 200 {object} response.Envelope
// @Router /universities/{university_id}/courses/{course_id}/commissions/check-id [get]
func (h *CommissionHandler) CheckID(c *gin.Context) {
	available, err := h.service.CheckCode(c.Request.Context(), c.Param("university_id"), c.Param("course_id"), c.Query("commission_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"available": available}, nil)
}

// Create godoc
// @Summary Create commission
// @Tags Commissions
// @Accept json
// @Produce json
// @Param university_id path string true "University identifier"
// @Param course_id path string true "Course identifier"
// @Param payload body service.CreateCommissionRequest true "Commission payload"
// @Success 201 {object} response.Envelope
// @Router /universities/{university_id}/courses/{course_id}/commissions [post]
func (h *CommissionHandler) Create(c *gin.Context) {
	var req service.CreateCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.UniversityCode = c.Param("university_id")
	req.CourseCode = c.Param("course_id")

	commission, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, commission)
}

// Update godoc
// @Summary Update commission
// @Tags Commissions
// @Accept json
// @Produce json
// @Param university_id path string true "University identifier"
// @Param course_id path string true "Course identifier"
// @Param commission_id path string true "Commission identifier"
// @Param payload body service.UpdateCommissionRequest true "Commission payload"
// @Success 200 {object} response.Envelope
// @Router /universities/{university_id}/courses/{course_id}/commissions/{commission_id} [put]
func (h *CommissionHandler) Update(c *gin.Context) {
	var req service.UpdateCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	commission, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("university_id"), c.Param("course_id"), c.Param("commission_id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, commission, nil)
}

// Delete godoc
// @Summary Delete commission
// @Tags Commissions
// @Produce json
// @Param university_id path string true "University identifier"
// @Param course_id path string true "Course identifier"
// @Param commission_id path string true "Commission identifier"
// @Success 204
// @Router /universities/{university_id}/courses/{course_id}/commissions/{commission_id} [delete]
func (h *CommissionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("university_id"), c.Param("course_id"), c.Param("commission_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
