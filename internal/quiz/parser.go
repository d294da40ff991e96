// Package quiz converts pasted quiz text into structured questions and back.
//
// The accepted text is a sequence of marker lines:
//
//	Q1: What is 2+2?
//	A) 3
//	B) 4
//	C) 5
//	D) 6
//	Answer: B
//
// Lines are trimmed and classified one at a time; anything that is not a
// question, option or answer marker is ignored.
package quiz

import (
	"regexp"
	"strings"

	"github.com/techmigo/backend/internal/models"
)

var (
	questionLine = regexp.MustCompile(`^Q\d+:\s*(.*)$`)
	optionLine   = regexp.MustCompile(`^([A-D])\)\s*(.*)$`)
	answerLine   = regexp.MustCompile(`^Answer:\s*([A-Da-d])`)
)

// Letters are the option labels in display order.
const Letters = "ABCD"

// AnswerIndex returns the zero-based option index for an answer letter (A-D, any case).
func AnswerIndex(letter string) (int, bool) {
	if len(letter) != 1 {
		return 0, false
	}
	i := strings.IndexByte(Letters, strings.ToUpper(letter)[0])
	return i, i >= 0
}

// accumulator holds the question currently being collected.
type accumulator struct {
	question string
	options  []string
	correct  int
}

func (a *accumulator) ready() bool {
	return a.question != "" && len(a.options) > 0
}

func (a *accumulator) emit() models.QuizQuestion {
	return models.QuizQuestion{
		Question:           a.question,
		Options:            a.options,
		CorrectAnswerIndex: a.correct,
	}
}

// Parse returns the questions found in text, in source order.
//
// A question is emitted when its Answer line is read, or when the next
// question marker starts without one (index 0 in that case). A question
// with no options is never emitted, and a trailing question that has no
// Answer line is dropped. Parse never fails; no recognized questions
// yields an empty slice.
func Parse(text string) []models.QuizQuestion {
	results := make([]models.QuizQuestion, 0)
	var cur accumulator

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if m := questionLine.FindStringSubmatch(line); m != nil {
			if cur.ready() {
				results = append(results, cur.emit())
			}
			cur = accumulator{question: strings.TrimSpace(m[1])}
			continue
		}

		if m := optionLine.FindStringSubmatch(line); m != nil {
			cur.options = append(cur.options, strings.TrimSpace(m[2]))
			continue
		}

		if m := answerLine.FindStringSubmatch(line); m != nil {
			cur.correct, _ = AnswerIndex(m[1])
			if cur.ready() {
				results = append(results, cur.emit())
				cur.question = ""
				cur.options = nil
			}
		}
	}
	// TODO: confirm with product whether a trailing question without an Answer line should be kept.
	return results
}
