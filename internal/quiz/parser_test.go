package quiz

import (
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techmigo/backend/internal/models"
)

const twoQuestions = `Q1: What is 2+2?
A) 3
B) 4
C) 5
D) 6
Answer: B
Q2: What color is the sky?
A) Red
B) Green
C) Blue
D) Yellow
Answer: C`

func TestParse_TwoWellFormedQuestions(t *testing.T) {
	got := Parse(twoQuestions)

	want := []models.QuizQuestion{
		{Question: "What is 2+2?", Options: []string{"3", "4", "5", "6"}, CorrectAnswerIndex: 1},
		{Question: "What color is the sky?", Options: []string{"Red", "Green", "Blue", "Yellow"}, CorrectAnswerIndex: 2},
	}
	assert.Equal(t, want, got)
}

func TestParse_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n\t \n", "\r\n"} {
		got := Parse(in)
		require.NotNil(t, got, "input %q", in)
		assert.Empty(t, got, "input %q", in)
	}
}

func TestParse_NoRecognizedMarkers(t *testing.T) {
	got := Parse("hello there\nthis is not a quiz\n1. Question?\na) lower case option")
	assert.Empty(t, got)
}

func TestParse_ManyGroupsKeepSourceOrder(t *testing.T) {
	var b strings.Builder
	const n = 25
	for i := 0; i < n; i++ {
		b.WriteString("Q1: question ")
		b.WriteString(string(rune('a' + i)))
		b.WriteString("\nA) w\nB) x\nC) y\nD) z\nAnswer: ")
		b.WriteByte(Letters[i%4])
		b.WriteByte('\n')
	}

	got := Parse(b.String())
	require.Len(t, got, n)
	for i, q := range got {
		assert.Equal(t, "question "+string(rune('a'+i)), q.Question)
		assert.Len(t, q.Options, 4)
		assert.Equal(t, i%4, q.CorrectAnswerIndex)
	}
}

func TestParse_MissingAnswerFlushedByNextQuestion(t *testing.T) {
	in := `Q1: First
A) x
B) y
Q2: Second
A) p
B) q
Answer: B`

	got := Parse(in)
	require.Len(t, got, 2)
	assert.Equal(t, models.QuizQuestion{Question: "First", Options: []string{"x", "y"}, CorrectAnswerIndex: 0}, got[0])
	assert.Equal(t, models.QuizQuestion{Question: "Second", Options: []string{"p", "q"}, CorrectAnswerIndex: 1}, got[1])
}

func TestParse_TrailingQuestionWithoutAnswerIsDropped(t *testing.T) {
	in := `Q1: Kept
A) x
B) y
Answer: B
Q2: Dropped
A) p
B) q
C) r
D) s`

	got := Parse(in)
	require.Len(t, got, 1)
	assert.Equal(t, "Kept", got[0].Question)
	assert.Equal(t, 1, got[0].CorrectAnswerIndex)
}

func TestParse_UnrecognizedLinesAreIgnored(t *testing.T) {
	gofakeit.Seed(42)

	var noisy strings.Builder
	for _, line := range strings.Split(twoQuestions, "\n") {
		noisy.WriteString(gofakeit.Sentence(6))
		noisy.WriteString("\n\n")
		noisy.WriteString(line)
		noisy.WriteByte('\n')
	}
	noisy.WriteString(gofakeit.Sentence(4))

	assert.Equal(t, Parse(twoQuestions), Parse(noisy.String()))
}

func TestParse_AnswerLetterMapping(t *testing.T) {
	tests := []struct {
		letter string
		want   int
	}{
		{"A", 0}, {"B", 1}, {"C", 2}, {"D", 3},
		{"a", 0}, {"b", 1}, {"c", 2}, {"d", 3},
	}
	for _, tt := range tests {
		t.Run(tt.letter, func(t *testing.T) {
			got := Parse("Q1: q\nA) 1\nB) 2\nC) 3\nD) 4\nAnswer: " + tt.letter)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].CorrectAnswerIndex)
		})
	}
}

func TestParse_QuestionWithoutOptionsIsDiscarded(t *testing.T) {
	in := `Q1: No options here
Answer: A
Q2: Has one
A) only
Answer: A`

	got := Parse(in)
	require.Len(t, got, 1)
	assert.Equal(t, "Has one", got[0].Question)
	assert.Equal(t, []string{"only"}, got[0].Options)
}

func TestParse_SecondAnswerLineHasNoEffect(t *testing.T) {
	got := Parse("Q1: q\nA) x\nB) y\nAnswer: B\nAnswer: A")
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].CorrectAnswerIndex)
}

func TestParse_AnswerBeforeOptionsCarriesIntoFlush(t *testing.T) {
	in := `Q1: Early answer
Answer: C
A) x
B) y
C) z
Q2: Next
A) p
Answer: A`

	got := Parse(in)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].CorrectAnswerIndex)
	assert.Equal(t, []string{"x", "y", "z"}, got[0].Options)
}

func TestParse_OptionCountIsNotEnforced(t *testing.T) {
	got := Parse("Q1: two\nA) x\nB) y\nAnswer: A\nQ2: five\nA) 1\nB) 2\nC) 3\nD) 4\nA) 5\nAnswer: D")
	require.Len(t, got, 2)
	assert.Len(t, got[0].Options, 2)
	assert.Len(t, got[1].Options, 5)
}

func TestParse_LabelsAreNotValidated(t *testing.T) {
	got := Parse("Q9: nine\nA) x\nAnswer: A\nQ1: one\nA) y\nAnswer: A\nQ1: one again\nA) z\nAnswer: A")
	require.Len(t, got, 3)
	assert.Equal(t, "nine", got[0].Question)
	assert.Equal(t, "one", got[1].Question)
	assert.Equal(t, "one again", got[2].Question)
}

func TestParse_WhitespaceAndLineEndings(t *testing.T) {
	in := "   Q12:    Padded question   \r\n\tA)   left  \r\n B) right\r\n  Answer:   b  \r\n"

	got := Parse(in)
	require.Len(t, got, 1)
	assert.Equal(t, models.QuizQuestion{Question: "Padded question", Options: []string{"left", "right"}, CorrectAnswerIndex: 1}, got[0])
}

func TestParse_MarkerPrefixesAreCaseSensitive(t *testing.T) {
	in := "q1: lower marker\nQ1: Real\nA) x\nb) lower option\nB) y\nanswer: A\nANSWER: A\nAnswer: B"

	got := Parse(in)
	require.Len(t, got, 1)
	assert.Equal(t, "Real", got[0].Question)
	assert.Equal(t, []string{"x", "y"}, got[0].Options)
	assert.Equal(t, 1, got[0].CorrectAnswerIndex)
}

func TestAnswerIndex(t *testing.T) {
	for i, l := range []string{"A", "B", "C", "D"} {
		got, ok := AnswerIndex(l)
		assert.True(t, ok)
		assert.Equal(t, i, got)
	}
	for _, bad := range []string{"", "E", "AB", "1"} {
		_, ok := AnswerIndex(bad)
		assert.False(t, ok, "letter %q", bad)
	}
}
