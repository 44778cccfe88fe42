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

// FacultyHandler handles faculty endpoints nested under a university.
type FacultyHandler struct {
	service *service.FacultyService
}

// NewFacultyHandler constructs a faculty handler.
func NewFacultyHandler(svc *service.FacultyService) *FacultyHandler {
	return &FacultyHandler{service: svc}
}

// List godoc
// @Summary List faculties of a university
// @Tags Faculties
// @Produce json
// @Param university_id path string true "University identifier"
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /universities/{university_id}/faculties [get]
func (h *FacultyHandler) List(c *gin.Context) {
	var filter models.FacultyFilter
	filter.UniversityCode = c.Param("university_id")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	faculties, pagination, err := h.service.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, faculties, pagination)
}

// Get godoc
// @Summary Get faculty by identifier
// @Tags Faculties
// @Produce json
// @Param university_id path string true "University identifier"
// @Param faculty_id path string true "Faculty identifier"
// @Success 200 {object} response.Envelope
// @Router /universities/{university_id}/faculties/{faculty_id} [get]
func (h *FacultyHandler) Get(c *gin.Context) {
	faculty, err := h.service.Get(c.Request.Context(), c.Param("university_id"), c.Param("faculty_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, faculty, nil)
}

// CheckID godoc
// @Summary Check whether a faculty identifier is available
// @Tags Faculties
// @Produce json
// @Param university_id path string true "University identifier"
// @Param faculty_id query string true "Candidate identifier"
// @Success 200 {object} response.Envelope
// @Router /universities/{university_id}/faculties/check-id [get]
func (h *FacultyHandler) CheckID(c *gin.Context) {
	available, err := h.service.CheckCode(c.Request.Context(), c.Param("university_id"), c.Query("faculty_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"available": available}, nil)
}

// Create godoc
// @Summary Create faculty
// @Tags Faculties
// @Accept json
// @Produce json
// @Param university_id path string true "University identifier"
// @Param payload body service.CreateFacultyRequest true "Faculty payload"
// @Success 201 {object} response.Envelope
// @Router /universities/{university_id}/faculties [post]
func (h *FacultyHandler) Create(c *gin.Context) {
	var req service.CreateFacultyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.UniversityCode = c.Param("university_id")

	faculty, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, faculty)
}

// Update godoc
// @Summary Update faculty
// @Tags Faculties
// @Accept json
// @Produce json
// @Param university_id path string true "University identifier"
// @Param faculty_id path string true "Faculty identifier"
// @Param payload body service.UpdateFacultyRequest true "Faculty payload"
// @Success 200 {object} response.Envelope
// @Router /universities/{university_id}/faculties/{faculty_id} [put]
func (h *FacultyHandler) Update(c *gin.Context) {
	var req service.UpdateFacultyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	faculty, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("university_id"), c.Param("faculty_id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, faculty, nil)
}

// Delete godoc
// @Summary Delete faculty
// @Tags Faculties
// @Produce json
// @Param university_id path string true "University identifier"
// @Param faculty_id path string true "Faculty identifier"
// @Success 204
// @Router /universities/{university_id}/faculties/{faculty_id} [delete]
func (h *FacultyHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("university_id"), c.Param("faculty_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
