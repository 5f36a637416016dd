package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyhub-api/internal/middleware"
	"github.com/noah-isme/studyhub-api/internal/service"
	"github.com/noah-isme/studyhub-api/pkg/response"
)

// NoteHandler browses the static chapter tree.
type NoteHandler struct {
	service *service.NoteService
}

// NewNoteHandler constructs a note handler.
func NewNoteHandler(svc *service.NoteService) *NoteHandler {
	return &NoteHandler{service: svc}
}

// Subjects godoc
// @Summary List subjects with notes for a semester
// @Tags Notes
// @Produce json
// @Param semester path int true "Semester 1-8"
// @Success 200 {object} response.Envelope
// @Router /notes/{semester}/subjects [get]
func (h *NoteHandler) Subjects(c *gin.Context) {
	semester, err := intParam(c, "semester")
	if err != nil {
		response.Error(c, err)
		return
	}
	subjects, hit, err := h.service.ListSubjects(c.Request.Context(), semester)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, subjects, nil, middleware.ExtractMeta(c))
}

// Chapters godoc
// @Summary List chapters of a subject
// @Tags Notes
// @Produce json
// @Param semester path int true "Semester 1-8"
// @Param subject path string true "Subject"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notes/{semester}/subjects/{subject} [get]
func (h *NoteHandler) Chapters(c *gin.Context) {
	semester, err := intParam(c, "semester")
	if err != nil {
		response.Error(c, err)
		return
	}
	subject, hit, err := h.service.ListChapters(c.Request.Context(), semester, c.Param("subject"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, subject, nil, middleware.ExtractMeta(c))
}

// Resolve godoc
// @Summary Resolve a chapter's path and public URL
// @Tags Notes
// @Produce json
// @Param semester path int true "Semester 1-8"
// @Param subject path string true "Subject"
// @Param chapter path string true "Chapter id"
// @Success 200 {object} response.Envelope
// @Router /notes/{semester}/subjects/{subject}/chapters/{chapter}/resolve [get]
func (h *NoteHandler) Resolve(c *gin.Context) {
	semester, err := intParam(c, "semester")
	if err != nil {
		response.Error(c, err)
		return
	}
	ref, err := h.service.Resolve(semester, c.Param("subject"), c.Param("chapter"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ref, nil)
}

// Chapter godoc
// @Summary Fetch a chapter HTML fragment
// @Tags Notes
// @Produce html
// @Param semester path int true "Semester 1-8"
// @Param subject path string true "Subject"
// @Param chapter path string true "Chapter id"
// @Success 200 {string} string
// @Failure 404 {object} response.Envelope
// @Router /notes/{semester}/subjects/{subject}/chapters/{chapter} [get]
func (h *NoteHandler) Chapter(c *gin.Context) {
	semester, err := intParam(c, "semester")
	if err != nil {
		response.Error(c, err)
		return
	}
	content, ref, err := h.service.Get(semester, c.Param("subject"), c.Param("chapter"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Location", ref.URL)
	c.Data(http.StatusOK, "text/html; charset=utf-8", content)
}

// Exists godoc
// @Summary Probe whether a chapter exists
// @Tags Notes
// @Param semester path int true "Semester 1-8"
// @Param subject path string true "Subject"
// @Param chapter path string true "Chapter id"
// @Success 200
// @Failure 404
// @Router /notes/{semester}/subjects/{subject}/chapters/{chapter} [head]
func (h *NoteHandler) Exists(c *gin.Context) {
	semester, err := intParam(c, "semester")
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	ref, err := h.service.Resolve(semester, c.Param("subject"), c.Param("chapter"))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	exists, err := h.service.Exists(ref)
	switch {
	case err != nil:
		c.Status(http.StatusInternalServerError)
	case !exists:
		c.Status(http.StatusNotFound)
	default:
		c.Status(http.StatusOK)
	}
}
