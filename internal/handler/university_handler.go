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

// UniversityHandler handles university endpoints.
type UniversityHandler struct {
	service *service.UniversityService
}

// NewUniversityHandler constructs a university handler.
func NewUniversityHandler(svc *service.UniversityService) *UniversityHandler {
	return &UniversityHandler{service: svc}
}

// List godoc
// @Summary List universities
// @Tags Universities
// @Produce json
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /universities [get]
func (h *UniversityHandler) List(c *gin.Context) {
	var filter models.UniversityFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	universities, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, universities, pagination)
}

// Get godoc
// @Summary Get university by identifier
// @Tags Universities
// @Produce json
// @Param university_id path string true "University identifier"
// @Success 200 {object} response.Envelope
// @Router /universities/{university_id} [get]
func (h *UniversityHandler) Get(c *gin.Context) {
	university, err := h.service.Get(c.Request.Context(), c.Param("university_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, university, nil)
}

// SuggestID godoc
// @Summary Suggest a university identifier from a name
// @Tags Universities
// @Produce json
// @Param name query string true "Display name"
// @Success 200 {object} response.Envelope
// @Router /universities/suggest-id [get]
func (h *UniversityHandler) SuggestID(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "name query parameter is required"))
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"university_id": h.service.SuggestCode(name)}, nil)
}

// CheckID godoc
// @Summary Check whether a university identifier is available
// @Tags Universities
// @Produce json
// @Param university_id query string true "Candidate identifier"
// @Success 200 {object} response.Envelope
// @Router /universities/check-id [get]
func (h *UniversityHandler) CheckID(c *gin.Context) {
	available, err := h.service.CheckCode(c.Request.Context(), c.Query("university_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"available": available}, nil)
}

// Create godoc
// @Summary Create university
// @Tags Universities
// @Accept json
// @Produce json
// @Param payload body service.CreateUniversityRequest true "University payload"
// @Success 201 {object} response.Envelope
// @Router /universities [post]
func (h *UniversityHandler) Create(c *gin.Context) {
	var req service.CreateUniversityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	university, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, university)
}

// Update godoc
// @Summary Update university
// @Tags Universities
// @Accept json
// @Produce json
// @Param university_id path string true "University identifier"
// @Param payload body service.UpdateUniversityRequest true "University payload"
// @Success 200 {object} response.Envelope
// @Router /universities/{university_id} [put]
func (h *UniversityHandler) Update(c *gin.Context) {
	var req service.UpdateUniversityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	university, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("university_id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, university, nil)
}

// Delete godoc
// @Summary Delete university
// @Tags Universities
// @Produce json
// @Param university_id path string true "University identifier"
// @Success 204
// @Router /universities/{university_id} [delete]
func (h *UniversityHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("university_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
