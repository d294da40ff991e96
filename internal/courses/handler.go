package courses

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/techmigo/backend/internal/middleware"
	"github.com/techmigo/backend/internal/models"
	"github.com/techmigo/backend/pkg/response"
)

// Store is the course persistence used by Handler.
type Store interface {
	Create(ctx context.Context, c *models.Course) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
	List(ctx context.Context, publishedOnly bool) ([]models.Course, error)
	Update(ctx context.Context, c *models.Course) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddInstructor(ctx context.Context, courseID, userID uuid.UUID) error
	CanEdit(ctx context.Context, courseID, userID uuid.UUID, role models.Role) (bool, error)
}

// CreateRequest is the body for POST /courses.
type CreateRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description"`
	Published   bool   `json:"published"`
}

// UpdateRequest is the body for PATCH /courses/:id. Nil fields are left unchanged.
type UpdateRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
	Published   *bool   `json:"published"`
}

// AddInstructorRequest is the body for POST /courses/:id/instructors.
type AddInstructorRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

// Handler handles course HTTP endpoints.
type Handler struct {
	repo   Store
	logger *zap.Logger
}

// NewHandler creates a course handler.
func NewHandler(repo Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// Create handles POST /courses (admin, instructor).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	course := &models.Course{
		Title:       req.Title,
		Description: req.Description,
		Published:   req.Published,
		CreatedBy:   middleware.UserID(c),
	}
	if err := h.repo.Create(c.Request.Context(), course); err != nil {
		h.logger.Error("create course failed", zap.Error(err))
		response.Internal(c, "failed to create course")
		return
	}
	response.Created(c, course)
}

// List handles GET /courses. Students only see published courses.
func (h *Handler) List(c *gin.Context) {
	publishedOnly := middleware.Role(c) == models.RoleStudent
	list, err := h.repo.List(c.Request.Context(), publishedOnly)
	if err != nil {
		h.logger.Error("list courses failed", zap.Error(err))
		response.Internal(c, "failed to list courses")
		return
	}
	response.OK(c, gin.H{"courses": list})
}

// GetByID handles GET /courses/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	course, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil || (!course.Published && middleware.Role(c) == models.RoleStudent) {
		response.NotFound(c, "course not found")
		return
	}
	response.OK(c, course)
}

// Update handles PATCH /courses/:id.
func (h *Handler) Update(c *gin.Context) {
	course, ok := h.editableCourse(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Title != nil {
		course.Title = *req.Title
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Published != nil {
		course.Published = *req.Published
	}
	if err := h.repo.Update(c.Request.Context(), course); err != nil {
		h.logger.Error("update course failed", zap.Error(err), zap.String("course_id", course.ID.String()))
		response.Internal(c, "failed to update course")
		return
	}
	response.OK(c, course)
}

// Delete handles DELETE /courses/:id.
func (h *Handler) Delete(c *gin.Context) {
	course, ok := h.editableCourse(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), course.ID); err != nil && !errors.Is(err, ErrNotFound) {
		h.logger.Error("delete course failed", zap.Error(err), zap.String("course_id", course.ID.String()))
		response.Internal(c, "failed to delete course")
		return
	}
	response.NoContent(c)
}

// AddInstructor handles POST /courses/:id/instructors.
func (h *Handler) AddInstructor(c *gin.Context) {
	course, ok := h.editableCourse(c)
	if !ok {
		return
	}
	var req AddInstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := uuid.MustParse(req.UserID)
	if err := h.repo.AddInstructor(c.Request.Context(), course.ID, userID); err != nil {
		h.logger.Error("add instructor failed", zap.Error(err))
		response.Internal(c, "failed to add instructor")
		return
	}
	response.Created(c, gin.H{"course_id": course.ID, "user_id": userID})
}

// editableCourse loads the :id course and checks the caller may edit it,
// writing the error response when not.
func (h *Handler) editableCourse(c *gin.Context) (*models.Course, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return nil, false
	}
	course, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "course not found")
			return nil, false
		}
		response.Internal(c, "failed to load course")
		return nil, false
	}
	ok, err := h.repo.CanEdit(c.Request.Context(), id, middleware.UserID(c), middleware.Role(c))
	if err != nil || !ok {
		response.Forbidden(c, "only admins or course instructors can edit this course")
		return nil, false
	}
	return course, true
}
