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

// PaperHandler exposes the question paper catalogue.
type PaperHandler struct {
	service *service.PaperService
}

// NewPaperHandler constructs a paper handler.
func NewPaperHandler(svc *service.PaperService) *PaperHandler {
	return &PaperHandler{service: svc}
}

// List godoc
// @Summary List question papers
// @Description Anonymous callers see approved papers only; admins see everything; students also see their own pending uploads.
// @Tags Papers
// @Produce json
// @Param semester query int false "Semester 1-8"
// @Param examType query string false "midterm, pre-board or final"
// @Param college query string false "College name"
// @Param subject query string false "Subject"
// @Param search query string false "Title search"
// @Param mine query bool false "Only my uploads"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /papers [get]
func (h *PaperHandler) List(c *gin.Context) {
	var query dto.PaperQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}

	papers, pagination, hit, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, papers, pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get a paper
// @Tags Papers
// @Produce json
// @Param id path string true "Paper ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /papers/{id} [get]
func (h *PaperHandler) Get(c *gin.Context) {
	paper, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, paper, nil)
}

// Submit godoc
// @Summary Submit a question paper
// @Description Uploads a PDF or image; the paper stays pending until an admin approves it.
// @Tags Papers
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param subject formData string true "Subject"
// @Param semester formData int true "Semester"
// @Param examType formData string true "Exam type"
// @Param college formData string true "College"
// @Param file formData file true "Paper file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Router /papers [post]
func (h *PaperHandler) Submit(c *gin.Context) {
	var req dto.SubmitPaperRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid paper form"))
		return
	}
	upload, closeFile, err := formUpload(c, "file")
	defer closeFile()
	if err != nil {
		response.Error(c, err)
		return
	}

	paper, err := h.service.Submit(c.Request.Context(), claimsFromContext(c), req, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, paper)
}

// Pending godoc
// @Summary List papers awaiting moderation
// @Tags Papers
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /papers/pending [get]
func (h *PaperHandler) Pending(c *gin.Context) {
	papers, err := h.service.Pending(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, papers, nil)
}

// Approve godoc
// @Summary Approve a paper
// @Tags Papers
// @Produce json
// @Param id path string true "Paper ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /papers/{id}/approve [post]
func (h *PaperHandler) Approve(c *gin.Context) {
	paper, err := h.service.Approve(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, paper, nil)
}

// Reject godoc
// @Summary Reject a paper
// @Description Removes the paper record and schedules its file for deletion.
// @Tags Papers
// @Param id path string true "Paper ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /papers/{id} [delete]
func (h *PaperHandler) Reject(c *gin.Context) {
	if err := h.service.Reject(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Download godoc
// @Summary Get a signed download link
// @Tags Papers
// @Produce json
// @Param id path string true "Paper ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /papers/{id}/download [post]
func (h *PaperHandler) Download(c *gin.Context) {
	link, err := h.service.Download(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Stats godoc
// @Summary Catalogue statistics
// @Tags Papers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /papers/stats [get]
func (h *PaperHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Export godoc
// @Summary Export approved papers
// @Tags Papers
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /papers/export [get]
func (h *PaperHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	_ = c.ShouldBindQuery(&query)

	file, err := h.service.Export(c.Request.Context(), claimsFromContext(c), query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendAttachment(c, file)
}
