package models

// NoteRef identifies one static chapter fragment.
type NoteRef struct {
	Semester  int    `json:"semester"`
	Subject   string `json:"subject"`
	ChapterID string `json:"chapterId"`
	Path      string `json:"path"`
	URL       string `json:"url"`
}

// NoteSubject lists a subject and its chapters for a semester.
type NoteSubject struct {
	Semester int      `json:"semester"`
	Name     string   `json:"name"`
	Chapters []string `json:"chapters,omitempty"`
}
