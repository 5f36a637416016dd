package response

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyhub-api/internal/models"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
	"github.com/noah-isme/studyhub-api/pkg/middleware/requestid"
)

// Envelope is the body shape of every JSON response.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// JSON sends a success envelope with optional pagination and meta.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	noStore(c)
	c.JSON(status, Envelope{Data: data, Pagination: pagination, Meta: buildMeta(c, meta)})
}

// OK responds with HTTP 200 and no pagination.
func OK(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, data, nil)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Error normalises err, writes it with its mapped status and aborts the
// remaining handlers.
func Error(c *gin.Context, err error, meta ...map[string]interface{}) {
	appErr := appErrors.FromError(err)
	noStore(c)
	c.AbortWithStatusJSON(appErr.Status, Envelope{Error: appErr, Meta: buildMeta(c, meta)})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Attachment writes data as a download named filename.
func Attachment(c *gin.Context, filename, contentType string, data []byte) {
	SetAttachment(c, filename)
	c.Data(http.StatusOK, contentType, data)
}

// SetAttachment sets the download headers without writing a body, for
// callers that stream the content themselves.
func SetAttachment(c *gin.Context, filename string) {
	c.Header("Content-Disposition", ContentDisposition(filename))
	c.Header("Cache-Control", "private, no-store")
}

// ContentDisposition renders an attachment header. Names outside printable
// ASCII get an underscored fallback plus an RFC 5987 filename* parameter.
func ContentDisposition(filename string) string {
	fallback := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, filename)
	value := fmt.Sprintf("attachment; filename=%q", fallback)
	if fallback != filename {
		value += "; filename*=UTF-8''" + url.PathEscape(filename)
	}
	return value
}

func buildMeta(c *gin.Context, meta []map[string]interface{}) map[string]interface{} {
	var out map[string]interface{}
	if len(meta) > 0 && meta[0] != nil {
		out = meta[0]
	}
	if c.Request == nil {
		return out
	}
	if id := requestid.FromContext(c.Request.Context()); id != "" {
		if out == nil {
			out = map[string]interface{}{}
		}
		out["request_id"] = id
	}
	return out
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
