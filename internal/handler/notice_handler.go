package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyhub-api/internal/dto"
	"github.com/noah-isme/studyhub-api/internal/middleware"
	"github.com/noah-isme/studyhub-api/internal/service"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
	"github.com/noah-isme/studyhub-api/pkg/response"
)

// NoticeHandler exposes the notice board.
type NoticeHandler struct {
	service *service.NoticeService
}

// NewNoticeHandler constructs a notice handler.
func NewNoticeHandler(svc *service.NoticeService) *NoticeHandler {
	return &NoticeHandler{service: svc}
}

// List godoc
// @Summary List notices
// @Tags Notices
// @Produce json
// @Param category query string false "Exam, Admission, Result or General"
// @Param search query string false "Title search"
// @Success 200 {object} response.Envelope
// @Router /notices [get]
func (h *NoticeHandler) List(c *gin.Context) {
	var query dto.NoticeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}

	notices, hit, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, notices, nil, middleware.ExtractMeta(c))
}

// Upload godoc
// @Summary Publish a notice
// @Tags Notices
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param category formData string true "Category"
// @Param file formData file true "PDF"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Router /notices [post]
func (h *NoticeHandler) Upload(c *gin.Context) {
	var req dto.UploadNoticeRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid notice form"))
		return
	}
	upload, closeFile, err := formUpload(c, "file")
	defer closeFile()
	if err != nil {
		response.Error(c, err)
		return
	}

	notice, err := h.service.Upload(c.Request.Context(), claimsFromContext(c), req, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, notice)
}

// Download godoc
// @Summary Get a signed notice download link
// @Tags Notices
// @Produce json
// @Param id path string true "Notice ID"
// @Success 200 {object} response.Envelope
// @Router /notices/{id}/download [post]
func (h *NoticeHandler) Download(c *gin.Context) {
	link, err := h.service.Download(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Delete godoc
// @Summary Delete a notice
// @Tags Notices
// @Param id path string true "Notice ID"
// @Success 204
// @Router /notices/{id} [delete]
func (h *NoticeHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
