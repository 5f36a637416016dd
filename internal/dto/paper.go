package dto

import (
	"time"

	"github.com/noah-isme/studyhub-api/internal/models"
)

// SubmitPaperRequest contains metadata submitted alongside a paper upload.
type SubmitPaperRequest struct {
	Title    string          `form:"title" json:"title" validate:"required,max=200"`
	Subject  string          `form:"subject" json:"subject" validate:"required,max=120"`
	Semester int             `form:"semester" json:"semester" validate:"required,min=1,max=8"`
	ExamType models.ExamType `form:"examType" json:"examType" validate:"required,oneof=midterm pre-board final"`
	College  string          `form:"college" json:"college" validate:"required,max=200"`
}

// PaperQuery captures list query parameters.
type PaperQuery struct {
	Semester int    `form:"semester"`
	ExamType string `form:"examType"`
	College  string `form:"college"`
	Subject  string `form:"subject"`
	Search   string `form:"search"`
	Mine     bool   `form:"mine"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// DownloadResponse carries a signed link to a stored file.
type DownloadResponse struct {
	ID          string    `json:"id"`
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Downloads   int       `json:"downloads,omitempty"`
}

// ExportQuery selects the catalogue export format.
type ExportQuery struct {
	Format string `form:"format"`
}
