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

// CareerHandler handles career endpoints nested under a faculty.
type CareerHandler struct {
	service *service.CareerService
}

// NewCareerHandler constructs a career handler.
func NewCareerHandler(svc *service.CareerService) *CareerHandler {
	return &CareerHandler{service: svc}
}

// List godoc
// @Summary List careers of a faculty
// @Tags Careers
// @Produce json
// @Param university_id path string true "University identifier"
// @Param faculty_id path string true "Faculty identifier"
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /universities/{university_id}/faculties/{faculty_id}/careers [get]
func (h *CareerHandler) List(c *gin.Context) {
	var filter models.CareerFilter
	filter.UniversityCode = c.Param("university_id")
	filter.FacultyCode = c.Param("faculty_id")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	careers, pagination, err := h.service.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, careers, pagination)
}

// Get godoc
// @Summary Get career by identifier
// @Tags Careers
// @Produce json
// @Param university_id path string true "University identifier"
// @Param faculty_id path string true "Faculty identifier"
// @Param career_id path string true "Career identifier"
// @Success 200 {object} response.Envelope
// @Router /universities/{university_id}/faculties/{faculty_id}/careers/{career_id} [get]
func (h *CareerHandler) Get(c *gin.Context) {
	career, err := h.service.Get(c.Request.Context(), c.Param("university_id"), c.Param("faculty_id"), c.Param("career_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, career, nil)
}

// CheckID godoc
// @Summary Check whether a career identifier is available
// @Tags Careers
// @Produce json
// @Param university_id path string true "University identifier"
// @Param faculty_id path string true "Faculty identifier"
// @Param career_id query string true "Candidate identifier"
// @Success 200 {object} response.Envelope
// @Router /universities/{university_id}/faculties/{faculty_id}/careers/check-id [get]
func (h *CareerHandler) CheckID(c *gin.Context) {
	available, err := h.service.CheckCode(c.Request.Context(), c.Param("university_id"), c.Param("faculty_id"), c.Query("career_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"available": available}, nil)
}

// Create godoc
// @Summary Create career
// @Tags Careers
// @Accept json
// @Produce json
// @Param university_id path string true "University identifier"
// @Param faculty_id path string true "Faculty identifier"
// @Param payload body service.CreateCareerRequest true "Career payload"
// @Success 201 {object} response.Envelope
// @Router /universities/{university_id}/faculties/{faculty_id}/careers [post]
func (h *CareerHandler) Create(c *gin.Context) {
	var req service.CreateCareerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.UniversityCode = c.Param("university_id")
	req.FacultyCode = c.Param("faculty_id")

	career, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, career)
}

// Update godoc
// @Summary Update career
// @Tags Careers
// @Accept json
// @Produce json
// @Param university_id path string true "University identifier"
// @Param faculty_id path string true "Faculty identifier"
// @Param career_id path string true "Career identifier"
// @Param payload body service.UpdateCareerRequest true "Career payload"
// @Success 200 {object} response.Envelope
// @Router /universities/{university_id}/faculties/{faculty_id}/careers/{career_id} [put]
func (h *CareerHandler) Update(c *gin.Context) {
	var req service.UpdateCareerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	career, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("university_id"), c.Param("faculty_id"), c.Param("career_id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, career, nil)
}

// Delete godoc
// @Summary Delete career
// @Tags Careers
// @Produce json
// @Param university_id path string true "University identifier"
// @Param faculty_id path string true "Faculty identifier"
// @Param career_id path string true "Career identifier"
// @Success 204
// @Router /universities/{university_id}/faculties/{faculty_id}/careers/{career_id} [delete]
func (h *CareerHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("university_id"), c.Param("faculty_id"), c.Param("career_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
