package courses

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/techmigo/backend/internal/models"
)

// ErrNotFound is returned when a course does not exist.
var ErrNotFound = errors.New("course not found")

const courseColumns = `id, title, description, created_by, published, created_at, updated_at`

// Repository handles course persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a course repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanCourse(row pgx.Row) (*models.Course, error) {
	var c models.Course
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.CreatedBy, &c.Published, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a new course and records its creator as instructor.
func (r *Repository) Create(ctx context.Context, c *models.Course) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const q = `INSERT INTO courses (title, description, created_by, published)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, updated_at`
		if err := tx.QueryRow(ctx, q, c.Title, c.Description, c.CreatedBy, c.Published).
			Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO course_instructors (course_id, user_id) VALUES ($1, $2)`, c.ID, c.CreatedBy)
		return err
	})
}

// GetByID returns a course by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	return scanCourse(r.pool.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id))
}

// List returns courses, newest first. publishedOnly hides drafts.
func (r *Repository) List(ctx context.Context, publishedOnly bool) ([]models.Course, error) {
	q := `SELECT ` + courseColumns + ` FROM courses`
	if publishedOnly {
		q += ` WHERE published`
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]models.Course, 0)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

// Update sets title, description and published.
func (r *Repository) Update(ctx context.Context, c *models.Course) error {
	const q = `UPDATE courses SET title = $1, description = $2, published = $3, updated_at = NOW()
		WHERE id = $4 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, c.Title, c.Description, c.Published, c.ID).Scan(&c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Delete removes a course and, by cascade, its lessons.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddInstructor lets another user edit the course.
func (r *Repository) AddInstructor(ctx context.Context, courseID, userID uuid.UUID) error {
	const q = `INSERT INTO course_instructors (course_id, user_id) VALUES ($1, $2)
		ON CONFLICT (course_id, user_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, q, courseID, userID)
	return err
}

// CanEdit reports whether the user may edit the course: admins always,
// otherwise the creator or an assigned instructor.
func (r *Repository) CanEdit(ctx context.Context, courseID, userID uuid.UUID, role models.Role) (bool, error) {
	if role == models.RoleAdmin {
		return true, nil
	}
	const q = `SELECT EXISTS (
		SELECT 1 FROM courses WHERE id = $1 AND created_by = $2
		UNION ALL
		SELECT 1 FROM course_instructors WHERE course_id = $1 AND user_id = $2)`
	var ok bool
	if err := r.pool.QueryRow(ctx, q, courseID, userID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
