package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyhub-api/internal/service"
	"github.com/noah-isme/studyhub-api/pkg/response"
)

// FileHandler streams files behind signed download links.
type FileHandler struct {
	service *service.FileService
}

// NewFileHandler constructs a file handler.
func NewFileHandler(svc *service.FileService) *FileHandler {
	return &FileHandler{service: svc}
}

// Download godoc
// @Summary Stream a file from a signed link
// @Tags Files
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/download [get]
func (h *FileHandler) Download(c *gin.Context) {
	file, err := h.service.Open(c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.File.Close() //nolint:errcheck

	c.Header("Content-Type", file.ContentType)
	response.SetAttachment(c, file.Name)
	http.ServeContent(c.Writer, c.Request, file.Name, file.ModTime, file.File)
}
