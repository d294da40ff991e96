package lessonform

import (
	"github.com/techmigo/backend/internal/models"
)

// Action is an edit applied to the form by Reduce.
type Action interface {
	apply(State) State
}

// SetTitle sets the lesson title.
type SetTitle struct{ Title string }

// SetContent sets the lesson body text.
type SetContent struct{ Content string }

// SetVideoURL points the lesson at an external video. An empty URL clears the video.
type SetVideoURL struct{ URL string }

// StartVideoUpload switches the video source to an upload in progress.
type StartVideoUpload struct{}

// SetUploadProgress reports upload progress; URL is set once the upload completes.
type SetUploadProgress struct {
	Percent int
	URL     string
}

type AddCodeSnippet struct{ Snippet models.CodeSnippet }

type UpdateCodeSnippet struct {
	Index   int
	Snippet models.CodeSnippet
}

type RemoveCodeSnippet struct{ Index int }

type AddAttachment struct{ Attachment models.Attachment }

type RemoveAttachment struct{ Index int }

// ReplaceQuiz replaces the whole quiz list.
type ReplaceQuiz struct{ Questions []models.QuizQuestion }

type UpdateQuizQuestion struct {
	Index    int
	Question models.QuizQuestion
}

type RemoveQuizQuestion struct{ Index int }

// Reduce applies action to state and returns the resulting state.
// Actions that address an index outside the current list return state unchanged.
func Reduce(state State, action Action) State {
	if action == nil {
		return state
	}
	return action.apply(state)
}

func (a SetTitle) apply(s State) State {
	s.Title = a.Title
	return s
}

func (a SetContent) apply(s State) State {
	s.Content = a.Content
	return s
}

func (a SetVideoURL) apply(s State) State {
	if a.URL == "" {
		s.Video = VideoSource{Kind: VideoNone}
		return s
	}
	s.Video = VideoSource{Kind: VideoURL, URL: a.URL, UploadProgress: 100}
	return s
}

func (StartVideoUpload) apply(s State) State {
	s.Video = VideoSource{Kind: VideoUpload}
	return s
}

func (a SetUploadProgress) apply(s State) State {
	if s.Video.Kind != VideoUpload {
		return s
	}
	p := a.Percent
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	s.Video.UploadProgress = p
	if a.URL != "" {
		s.Video.URL = a.URL
	}
	return s
}

func (a AddCodeSnippet) apply(s State) State {
	s.CodeSnippets = append(cloneSlice(s.CodeSnippets), a.Snippet)
	return s
}

func (a UpdateCodeSnippet) apply(s State) State {
	if !inRange(a.Index, len(s.CodeSnippets)) {
		return s
	}
	s.CodeSnippets = cloneSlice(s.CodeSnippets)
	s.CodeSnippets[a.Index] = a.Snippet
	return s
}

func (a RemoveCodeSnippet) apply(s State) State {
	if !inRange(a.Index, len(s.CodeSnippets)) {
		return s
	}
	s.CodeSnippets = removeAt(s.CodeSnippets, a.Index)
	return s
}

func (a AddAttachment) apply(s State) State {
	s.Attachments = append(cloneSlice(s.Attachments), a.Attachment)
	return s
}

func (a RemoveAttachment) apply(s State) State {
	if !inRange(a.Index, len(s.Attachments)) {
		return s
	}
	s.Attachments = removeAt(s.Attachments, a.Index)
	return s
}

func (a ReplaceQuiz) apply(s State) State {
	s.Quiz = cloneQuiz(a.Questions)
	return s
}

func (a UpdateQuizQuestion) apply(s State) State {
	if !inRange(a.Index, len(s.Quiz)) {
		return s
	}
	s.Quiz = cloneQuiz(s.Quiz)
	q := a.Question
	q.Options = cloneSlice(q.Options)
	s.Quiz[a.Index] = q
	return s
}

func (a RemoveQuizQuestion) apply(s State) State {
	if !inRange(a.Index, len(s.Quiz)) {
		return s
	}
	s.Quiz = removeAt(s.Quiz, a.Index)
	return s
}

func inRange(i, n int) bool { return i >= 0 && i < n }

// removeAt returns a new slice without element i.
func removeAt[T any](in []T, i int) []T {
	out := make([]T, 0, len(in)-1)
	out = append(out, in[:i]...)
	return append(out, in[i+1:]...)
}
