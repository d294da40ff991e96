package lessons

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/techmigo/backend/internal/models"
)

// ErrNotFound is returned when a lesson does not exist.
var ErrNotFound = errors.New("lesson not found")

const lessonColumns = `id, course_id, title, position, video_url, content, code_snippets, attachments, quiz, created_at, updated_at`

// Repository handles lesson persistence. Snippets, attachments and quiz live in JSONB columns.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a lesson repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanLesson(row pgx.Row) (*models.Lesson, error) {
	var l models.Lesson
	var snippets, attachments, quiz []byte
	err := row.Scan(&l.ID, &l.CourseID, &l.Title, &l.Position, &l.VideoURL, &l.Content,
		&snippets, &attachments, &quiz, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(snippets, &l.CodeSnippets); err != nil {
		return nil, fmt.Errorf("decode code_snippets: %w", err)
	}
	if err := json.Unmarshal(attachments, &l.Attachments); err != nil {
		return nil, fmt.Errorf("decode attachments: %w", err)
	}
	if err := json.Unmarshal(quiz, &l.Quiz); err != nil {
		return nil, fmt.Errorf("decode quiz: %w", err)
	}
	return &l, nil
}

// jsonArray encodes v as JSON, writing [] for nil slices.
func jsonArray[T any](v []T) ([]byte, error) {
	if v == nil {
		v = []T{}
	}
	return json.Marshal(v)
}

// Create inserts a lesson at the end of its course.
func (r *Repository) Create(ctx context.Context, l *models.Lesson) error {
	snippets, err := jsonArray(l.CodeSnippets)
	if err != nil {
		return err
	}
	attachments, err := jsonArray(l.Attachments)
	if err != nil {
		return err
	}
	quiz, err := jsonArray(l.Quiz)
	if err != nil {
		return err
	}
	const q = `INSERT INTO lessons (course_id, title, position, video_url, content, code_snippets, attachments, quiz)
		VALUES ($1, $2, (SELECT COALESCE(MAX(position), 0) + 1 FROM lessons WHERE course_id = $1), $3, $4, $5, $6, $7)
		RETURNING id, position, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, l.CourseID, l.Title, l.VideoURL, l.Content, snippets, attachments, quiz).
		Scan(&l.ID, &l.Position, &l.CreatedAt, &l.UpdatedAt)
}

// GetByID returns a lesson by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Lesson, error) {
	return scanLesson(r.pool.QueryRow(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = $1`, id))
}

// ListByCourse returns a course's lessons in position order.
func (r *Repository) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]models.Lesson, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE course_id = $1 ORDER BY position, created_at`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]models.Lesson, 0)
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *l)
	}
	return list, rows.Err()
}

// Update writes every editable field of the lesson.
func (r *Repository) Update(ctx context.Context, l *models.Lesson) error {
	snippets, err := jsonArray(l.CodeSnippets)
	if err != nil {
		return err
	}
	attachments, err := jsonArray(l.Attachments)
	if err != nil {
		return err
	}
	quiz, err := jsonArray(l.Quiz)
	if err != nil {
		return err
	}
	const q = `UPDATE lessons SET title = $1, video_url = $2, content = $3, code_snippets = $4,
		attachments = $5, quiz = $6, updated_at = NOW()
		WHERE id = $7 RETURNING updated_at`
	err = r.pool.QueryRow(ctx, q, l.Title, l.VideoURL, l.Content, snippets, attachments, quiz, l.ID).Scan(&l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// ReplaceQuiz overwrites the lesson's quiz list.
func (r *Repository) ReplaceQuiz(ctx context.Context, id uuid.UUID, questions []models.QuizQuestion) error {
	quiz, err := jsonArray(questions)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `UPDATE lessons SET quiz = $1, updated_at = NOW() WHERE id = $2`, quiz, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a lesson.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
