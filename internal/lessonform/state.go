// Package lessonform holds the editable, not-yet-persisted state of a lesson
// being authored, and the pure reducer that updates it.
package lessonform

import (
	"github.com/techmigo/backend/internal/models"
)

// VideoKind tells where a lesson's video comes from.
type VideoKind string

const (
	VideoNone   VideoKind = "none"
	VideoUpload VideoKind = "upload"
	VideoURL    VideoKind = "url"
)

// VideoSource is the lesson video and its upload progress (0..100).
type VideoSource struct {
	Kind           VideoKind `json:"kind"`
	URL            string    `json:"url"`
	UploadProgress int       `json:"upload_progress"`
}

// State is the lesson form. Values are never mutated in place; Reduce
// returns a new State whose slices do not share storage with the old one.
type State struct {
	Title        string                `json:"title"`
	Video        VideoSource           `json:"video"`
	Content      string                `json:"content"`
	CodeSnippets []models.CodeSnippet  `json:"code_snippets"`
	Attachments  []models.Attachment   `json:"attachments"`
	Quiz         []models.QuizQuestion `json:"quiz"`
}

// FromLesson builds form state from a stored lesson.
func FromLesson(l *models.Lesson) State {
	video := VideoSource{Kind: VideoNone}
	if l.VideoURL != "" {
		video = VideoSource{Kind: VideoURL, URL: l.VideoURL, UploadProgress: 100}
	}
	return State{
		Title:        l.Title,
		Video:        video,
		Content:      l.Content,
		CodeSnippets: cloneSlice(l.CodeSnippets),
		Attachments:  cloneSlice(l.Attachments),
		Quiz:         cloneQuiz(l.Quiz),
	}
}

// Apply copies the form state onto l, leaving identity and ordering fields alone.
func (s State) Apply(l *models.Lesson) {
	l.Title = s.Title
	l.VideoURL = ""
	if s.Video.Kind != VideoNone {
		l.VideoURL = s.Video.URL
	}
	l.Content = s.Content
	l.CodeSnippets = cloneSlice(s.CodeSnippets)
	l.Attachments = cloneSlice(s.Attachments)
	l.Quiz = cloneQuiz(s.Quiz)
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneQuiz(in []models.QuizQuestion) []models.QuizQuestion {
	if in == nil {
		return nil
	}
	out := make([]models.QuizQuestion, len(in))
	for i, q := range in {
		q.Options = cloneSlice(q.Options)
		out[i] = q
	}
	return out
}
