package dto

import "github.com/noah-isme/studyhub-api/pkg/pomodoro"

// SwitchPhaseRequest jumps the timer to an explicit phase.
type SwitchPhaseRequest struct {
	Phase pomodoro.Phase `json:"phase" validate:"required,oneof=work shortBreak longBreak"`
}

// PomodoroHistoryQuery bounds history reads.
type PomodoroHistoryQuery struct {
	Limit int `form:"limit"`
}
