package models

import "time"

// NoticeCategory groups notices on the board.
type NoticeCategory string

const (
	NoticeCategoryExam      NoticeCategory = "Exam"
	NoticeCategoryAdmission NoticeCategory = "Admission"
	NoticeCategoryResult    NoticeCategory = "Result"
	NoticeCategoryGeneral   NoticeCategory = "General"
)

// Valid reports whether the category is known.
func (c NoticeCategory) Valid() bool {
	switch c {
	case NoticeCategoryExam, NoticeCategoryAdmission, NoticeCategoryResult, NoticeCategoryGeneral:
		return true
	}
	return false
}

// Notice is an admin-published PDF.
type Notice struct {
	ID        string         `db:"id" json:"id"`
	Title     string         `db:"title" json:"title"`
	Category  NoticeCategory `db:"category" json:"category"`
	FileName  string         `db:"file_name" json:"fileName"`
	FileSize  string         `db:"file_size" json:"fileSize"`
	SizeBytes int64          `db:"size_bytes" json:"sizeBytes"`
	FileURL   string         `db:"file_url" json:"-"`
	FilePath  string         `db:"file_path" json:"-"`
	CreatedBy string         `db:"created_by" json:"createdBy"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}

// NoticeFilter narrows notice listing.
type NoticeFilter struct {
	Category NoticeCategory
	Search   string
	Limit    int
}
