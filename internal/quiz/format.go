package quiz

import (
	"fmt"
	"strings"

	"github.com/techmigo/backend/internal/models"
)

// Format renders questions in the marker grammar accepted by Parse,
// numbering them from 1.
//
// The grammar cannot carry everything a stored question may hold: options
// beyond D have no label and are skipped, a question with empty text or no
// options does not parse back, and an out-of-range answer index is left out.
// Lint reports each of these cases.
func Format(questions []models.QuizQuestion) string {
	var b strings.Builder
	for i, q := range questions {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "Q%d: %s\n", i+1, q.Question)
		for j, opt := range q.Options {
			if j >= len(Letters) {
				break
			}
			fmt.Fprintf(&b, "%c) %s\n", Letters[j], opt)
		}
		if q.CorrectAnswerIndex >= 0 && q.CorrectAnswerIndex < len(Letters) {
			fmt.Fprintf(&b, "Answer: %c\n", Letters[q.CorrectAnswerIndex])
		}
	}
	return b.String()
}
