package quizapi

import (
	"html"
	"strings"
)

// Slots lists the provider's answer keys in display order.
var Slots = []string{"answer_a", "answer_b", "answer_c", "answer_d", "answer_e", "answer_f"}

// Question is a displayable multiple-choice item.
type Question struct {
	SourceID     int
	Text         string
	Options      []string
	CorrectIndex int
	Explanation  string
	Category     string
	Difficulty   string
}

// Normalize converts a raw provider question. It reports false when the
// question has fewer than two non-empty options or not exactly one correct one.
func Normalize(raw RawQuestion) (Question, bool) {
	text := strings.TrimSpace(html.UnescapeString(raw.Question))
	if text == "" {
		return Question{}, false
	}
	out := Question{
		SourceID:     raw.ID,
		Text:         text,
		CorrectIndex: -1,
		Category:     raw.Category,
		Difficulty:   strings.ToLower(raw.Difficulty),
	}
	if raw.Explanation != nil {
		out.Explanation = strings.TrimSpace(*raw.Explanation)
	}
	correctCount := 0
	for _, slot := range Slots {
		value, ok := raw.Answers[slot]
		if !ok || value == nil || strings.TrimSpace(*value) == "" {
			continue
		}
		if strings.EqualFold(raw.CorrectAnswers[slot+"_correct"], "true") {
			correctCount++
			out.CorrectIndex = len(out.Options)
		}
		out.Options = append(out.Options, strings.TrimSpace(html.UnescapeString(*value)))
	}
	if len(out.Options) < 2 || correctCount != 1 {
		return Question{}, false
	}
	return out, true
}

// NormalizeAll keeps the usable questions, preserving order.
func NormalizeAll(raw []RawQuestion) []Question {
	out := make([]Question, 0, len(raw))
	for _, r := range raw {
		if q, ok := Normalize(r); ok {
			out = append(out, q)
		}
	}
	return out
}
