package lessonform

import (
	"fmt"

	"github.com/techmigo/backend/internal/quiz"
)

// ParseFailedMessage is shown when pasted text contains no complete question.
const ParseFailedMessage = "Could not parse quiz text. Please check the format."

// ImportResult reports the outcome of ImportQuiz for the operator.
type ImportResult struct {
	OK      bool   `json:"ok"`
	Count   int    `json:"count"`
	Message string `json:"message"`
}

// ImportQuiz parses pasted quiz text. When at least one question is found
// the returned state's quiz list is replaced with the parsed questions;
// otherwise state is returned as is.
func ImportQuiz(state State, text string) (State, ImportResult) {
	questions := quiz.Parse(text)
	if len(questions) == 0 {
		return state, ImportResult{Message: ParseFailedMessage}
	}
	next := Reduce(state, ReplaceQuiz{Questions: questions})
	return next, ImportResult{
		OK:      true,
		Count:   len(questions),
		Message: importedMessage(len(questions)),
	}
}

func importedMessage(n int) string {
	if n == 1 {
		return "Successfully imported 1 question"
	}
	return fmt.Sprintf("Successfully imported %d questions", n)
}
