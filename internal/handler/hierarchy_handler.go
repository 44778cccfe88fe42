package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/service"
	"github.com/JuanCruzRobledo/correccion-automatica-api/pkg/response"
)

// HierarchyHandler serves the cached option lists behind the frontend's
// cascading selects.
type HierarchyHandler struct {
	service *service.HierarchyService
}

// NewHierarchyHandler constructs a hierarchy handler.
func NewHierarchyHandler(svc *service.HierarchyService) *HierarchyHandler {
	return &HierarchyHandler{service: svc}
}

func selectionFromQuery(c *gin.Context) models.HierarchySelection {
	return models.HierarchySelection{
		UniversityCode: c.Query("university_id"),
		FacultyCode:    c.Query("faculty_id"),
		CareerCode:     c.Query("career_id"),
		CourseCode:     c.Query("course_id"),
	}
}

// Universities godoc
// @Summary List university options
// @Tags Hierarchy
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /hierarchy/universities [get]
func (h *HierarchyHandler) Universities(c *gin.Context) {
	options, err := h.service.Universities(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

// Faculties godoc
// @Summary List faculty options for a university
// @Tags Hierarchy
// @Produce json
// @Param university_id query string true "University identifier"
// @Success 200 {object} response.Envelope
// @Router /hierarchy/faculties [get]
func (h *HierarchyHandler) Faculties(c *gin.Context) {
	options, err := h.service.Faculties(c.Request.Context(), selectionFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

// Careers godoc
// @Summary List career options for a faculty
// @Tags Hierarchy
// @Produce json
// @Param university_id query string true "University identifier"
// @Param faculty_id query string true "Faculty identifier"
// @Success 200 {object} response.Envelope
// @Router /hierarchy/careers [get]
func (h *HierarchyHandler) Careers(c *gin.Context) {
	options, err := h.service.Careers(c.Request.Context(), selectionFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

// Courses godoc
// @Summary List course options for a university
// @Tags Hierarchy
// @Produce json
// @Param university_id query string true "University identifier"
// @Success 200 {object} response.Envelope
// @Router /hierarchy/courses [get]
func (h *HierarchyHandler) Courses(c *gin.Context) {
	options, err := h.service.Courses(c.Request.Context(), selectionFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

// Commissions godoc
// @Summary List commission options for a course
// @Tags Hierarchy
// @Produce json
// @Param university_id query string true "University identifier"
// @Param course_id query string true "Course identifier"
// @Success 200 {object} response.Envelope
// @Router /hierarchy/commissions [get]
func (h *HierarchyHandler) Commissions(c *gin.Context) {
	options, err := h.service.Commissions(c.Request.Context(), selectionFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}
