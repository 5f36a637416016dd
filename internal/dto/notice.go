package dto

import "github.com/noah-isme/studyhub-api/internal/models"

// UploadNoticeRequest is the form part of a notice upload.
type UploadNoticeRequest struct {
	Title    string                `form:"title" json:"title" validate:"required,max=200"`
	Category models.NoticeCategory `form:"category" json:"category" validate:"required,oneof=Exam Admission Result General"`
}

// NoticeQuery captures list query parameters.
type NoticeQuery struct {
	Category string `form:"category"`
	Search   string `form:"search"`
}
