package quiz

import (
	"fmt"
	"strings"

	"github.com/techmigo/backend/internal/models"
)

// ExpectedOptions is the option count lesson players render.
const ExpectedOptions = 4

// Warning describes a parsed question that downstream players may not render as intended.
type Warning struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// Lint reports questions with empty text, an unexpected option count or an
// answer index that points past the options. It does not modify questions.
func Lint(questions []models.QuizQuestion) []Warning {
	warnings := make([]Warning, 0)
	for i, q := range questions {
		if strings.TrimSpace(q.Question) == "" {
			warnings = append(warnings, Warning{
				Index:   i,
				Message: fmt.Sprintf("question %d has no text", i+1),
			})
		}
		if n := len(q.Options); n != ExpectedOptions {
			warnings = append(warnings, Warning{
				Index:   i,
				Message: fmt.Sprintf("question %d has %d options, expected %d", i+1, n, ExpectedOptions),
			})
		}
		if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(q.Options) {
			warnings = append(warnings, Warning{
				Index:   i,
				Message: fmt.Sprintf("question %d answer index %d has no matching option", i+1, q.CorrectAnswerIndex),
			})
		}
	}
	return warnings
}
