package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyhub-api/internal/dto"
	"github.com/noah-isme/studyhub-api/internal/service"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
	"github.com/noah-isme/studyhub-api/pkg/response"
)

// CollegeHandler exposes the college directory.
type CollegeHandler struct {
	service *service.CollegeService
}

// NewCollegeHandler constructs a college handler.
func NewCollegeHandler(svc *service.CollegeService) *CollegeHandler {
	return &CollegeHandler{service: svc}
}

// List godoc
// @Summary List colleges
// @Tags Colleges
// @Produce json
// @Param search query string false "Name or location"
// @Param affiliation query string false "Affiliating university"
// @Param type query string false "public, private or community"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /colleges [get]
func (h *CollegeHandler) List(c *gin.Context) {
	var query dto.CollegeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	colleges, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, colleges, pagination)
}

// Get godoc
// @Summary Get college detail
// @Tags Colleges
// @Produce json
// @Param id path string true "College ID"
// @Success 200 {object} response.Envelope
// @Router /colleges/{id} [get]
func (h *CollegeHandler) Get(c *gin.Context) {
	college, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, college, nil)
}

// Create godoc
// @Summary Create college
// @Tags Colleges
// @Accept json
// @Produce json
// @Param payload body dto.CollegeRequest true "College payload"
// @Success 201 {object} response.Envelope
// @Router /colleges [post]
func (h *CollegeHandler) Create(c *gin.Context) {
	var req dto.CollegeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	college, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, college)
}

// Update godoc
// @Summary Update college
// @Tags Colleges
// @Accept json
// @Produce json
// @Param id path string true "College ID"
// @Param payload body dto.CollegeRequest true "College payload"
// @Success 200 {object} response.Envelope
// @Router /colleges/{id} [put]
func (h *CollegeHandler) Update(c *gin.Context) {
	var req dto.CollegeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	college, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, college, nil)
}

// Delete godoc
// @Summary Delete college
// @Tags Colleges
// @Param id path string true "College ID"
// @Success 204
// @Router /colleges/{id} [delete]
func (h *CollegeHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
