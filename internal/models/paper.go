package models

import "time"

// ExamType enumerates the exam a paper was set for.
type ExamType string

const (
	ExamTypeMidterm  ExamType = "midterm"
	ExamTypePreBoard ExamType = "pre-board"
	ExamTypeFinal    ExamType = "final"
)

// Valid reports whether the exam type is known.
func (e ExamType) Valid() bool {
	switch e {
	case ExamTypeMidterm, ExamTypePreBoard, ExamTypeFinal:
		return true
	}
	return false
}

// Paper is a past exam paper submitted by a user. Unapproved papers are
// visible only to their uploader and admins.
type Paper struct {
	ID           string    `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	Subject      string    `db:"subject" json:"subject"`
	Semester     int       `db:"semester" json:"semester"`
	ExamType     ExamType  `db:"exam_type" json:"examType"`
	College      string    `db:"college" json:"college"`
	UploadedBy   string    `db:"uploaded_by" json:"uploadedBy"`
	UploaderName string    `db:"uploader_name" json:"uploaderName"`
	Downloads    int       `db:"downloads" json:"downloads"`
	Approved     bool      `db:"approved" json:"approved"`
	FileURL      string    `db:"file_url" json:"-"`
	FilePath     string    `db:"file_path" json:"-"`
	MimeType     string    `db:"mime_type" json:"mimeType"`
	SizeBytes    int64     `db:"size_bytes" json:"sizeBytes"`
	UploadedAt   time.Time `db:"uploaded_at" json:"uploadedAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// VisibleTo reports whether the paper may be shown to the given viewer.
// An empty viewerID denotes an anonymous caller.
func (p *Paper) VisibleTo(viewerID string, admin bool) bool {
	if p.Approved || admin {
		return true
	}
	return viewerID != "" && p.UploadedBy == viewerID
}

// PaperFilter narrows paper listing queries. Every value is bound as a
// query parameter.
type PaperFilter struct {
	Semester   int
	ExamType   ExamType
	College    string
	Subject    string
	Search     string
	UploadedBy string
	// ViewerID sees their own pending papers alongside approved ones.
	ViewerID     string
	IncludeAll   bool
	ApprovedOnly bool
	PendingOnly  bool
	Limit        int
}

// PaperStats summarises the moderation queue.
type PaperStats struct {
	Total          int `db:"total" json:"total"`
	Approved       int `db:"approved" json:"approved"`
	Pending        int `db:"pending" json:"pending"`
	TotalDownloads int `db:"total_downloads" json:"totalDownloads"`
}
