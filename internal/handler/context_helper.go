package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyhub-api/internal/middleware"
	"github.com/noah-isme/studyhub-api/internal/models"
	"github.com/noah-isme/studyhub-api/internal/service"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
	"github.com/noah-isme/studyhub-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.CurrentUser(c)
}

// formUpload opens the named multipart file. The caller must invoke the
// returned close func once the upload has been consumed.
func formUpload(c *gin.Context, field string) (service.FileUpload, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		return service.FileUpload{}, func() {}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, fmt.Sprintf("%s file is required", field))
	}
	file, err := header.Open()
	if err != nil {
		return service.FileUpload{}, func() {}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read uploaded file")
	}
	upload := service.FileUpload{Filename: header.Filename, Size: header.Size, Content: file}
	return upload, func() { _ = file.Close() }, nil
}

func intParam(c *gin.Context, name string) (int, error) {
	value, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be a number", name))
	}
	return value, nil
}

func sendAttachment(c *gin.Context, file *service.ExportFile) {
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
