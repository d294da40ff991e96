package models

// QuizQuestion is a multiple-choice question attached to a lesson.
// Options are in display order (A, B, C, D); CorrectAnswerIndex is zero-based.
type QuizQuestion struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
}
