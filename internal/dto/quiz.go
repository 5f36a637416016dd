package dto

// GenerateQuizRequest asks for a fresh set of questions.
type GenerateQuizRequest struct {
	Category   string `json:"category" validate:"max=60"`
	Difficulty string `json:"difficulty" validate:"omitempty,oneof=easy medium hard Easy Medium Hard"`
	Count      int    `json:"count" validate:"required,min=1,max=50"`
}

// SubmitQuizRequest carries one selected option index per question, -1 for unanswered.
type SubmitQuizRequest struct {
	Answers []int `json:"answers" validate:"required,dive,min=-1"`
}
