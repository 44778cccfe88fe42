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

// CourseHandler handles course endpoints nested under a university. Courses
// hang off the university directly; the career association lives on the
// commission.
type CourseHandler struct {
	service *service.CourseService
}

// NewCourseHandler constructs a course handler.
func NewCourseHandler(svc *service.CourseService) *CourseHandler {
	return &CourseHandler{service: svc}
}

// List godoc
// @Summary List courses of a university
// @Tags Courses
// @Produce json
// @Param university_id path string true "University identifier"
// @Param year query int false "Filter by year"
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /universities/{university_id}/courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	var filter models.CourseFilter
	filter.UniversityCode = c.Param("university_id")
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

	courses, pagination, err := h.service.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// Get godoc
// @Summary Get course by identifier
// @Tags Courses
// @Produce json
// @Param university_id path string true "University identifier"
// @Param course_id path string true "Course identifier"
// @Success 200 {object} response.Envelope
// @Router /universities/{university_id}/courses/{course_id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.service.Get(c.Request.Context(), c.Param("university_id"), c.Param("course_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// SuggestID godoc
// @Summary Suggest a course identifier from year and name
// @Tags Courses
// @Produce json
// @Param university_id path string true "University identifier"
// @Param name query string true "Display name"
// @Param year query int false "Academic year"
// @Success 200 {object} response.Envelope
// @Router /universities/{university_id}/courses/suggest-id [get]
func (h *CourseHandler) SuggestID(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "name query parameter is required"))
		return
	}
	year, _ := strconv.Atoi(c.Query("year"))
	response.JSON(c, http.StatusOK, gin.H{"course_id": h.service.SuggestCode(year, name)}, nil)
}

// CheckID godoc
// @Summary Check whether a course identifier is available
// @Tags Courses
// @Produce json
// @Param university_id path string true "University identifier"
// @Param course_id query string true "Candidate identifier"
// @Success 200 {object} response.Envelope
// @Router /universities/{university_id}/courses/check-id [get]
func (h *CourseHandler) CheckID(c *gin.Context) {
	available, err := h.service.CheckCode(c.Request.Context(), c.Param("university_id"), c.Query("course_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"available": available}, nil)
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept json
// @Produce json
// @Param university_id path string true "University identifier"
// @Param payload body service.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Router /universities/{university_id}/courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req service.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.UniversityCode = c.Param("university_id")

	course, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update course
// @Tags Courses
// @Accept json
// @Produce json
// @Param university_id path string true "University identifier"
// @Param course_id path string true "Course identifier"
// @Param payload body service.UpdateCourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Router /universities/{university_id}/courses/{course_id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	var req service.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("university_id"), c.Param("course_id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Delete godoc
// @Summary Delete course
// @Tags Courses
// @Produce json
// @Param university_id path string true "University identifier"
// @Param course_id path string true "Course identifier"
// @Success 204
// @Router /universities/{university_id}/courses/{course_id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("university_id"), c.Param("course_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
