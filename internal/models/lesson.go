package models

import (
	"time"

	"github.com/google/uuid"
)

// CodeSnippet is a code block shown inside a lesson.
type CodeSnippet struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// Attachment is a downloadable file linked to a lesson (stored in S3).
type Attachment struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	SizeBytes int64  `json:"size_bytes"`
}

// Lesson represents one lesson of a course with its authored content.
// CodeSnippets, Attachments and Quiz are stored as JSONB columns.
type Lesson struct {
	ID           uuid.UUID      `json:"id"`
	CourseID     uuid.UUID      `json:"course_id"`
	Title        string         `json:"title"`
	Position     int            `json:"position"`
	VideoURL     string         `json:"video_url"`
	Content      string         `json:"content"`
	CodeSnippets []CodeSnippet  `json:"code_snippets"`
	Attachments  []Attachment   `json:"attachments"`
	Quiz         []QuizQuestion `json:"quiz"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
