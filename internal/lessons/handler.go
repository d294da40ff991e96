package lessons

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/techmigo/backend/internal/events"
	"github.com/techmigo/backend/internal/lessonform"
	"github.com/techmigo/backend/internal/middleware"
	"github.com/techmigo/backend/internal/models"
	"github.com/techmigo/backend/internal/quiz"
	"github.com/techmigo/backend/pkg/queue"
	"github.com/techmigo/backend/pkg/response"
	"github.com/techmigo/backend/pkg/storage"
)

// Store is the lesson persistence used by Handler.
type Store interface {
	Create(ctx context.Context, l *models.Lesson) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Lesson, error)
	ListByCourse(ctx context.Context, courseID uuid.UUID) ([]models.Lesson, error)
	Update(ctx context.Context, l *models.Lesson) error
	ReplaceQuiz(ctx context.Context, id uuid.UUID, questions []models.QuizQuestion) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CourseAccess answers whether a user may edit a course.
type CourseAccess interface {
	CanEdit(ctx context.Context, courseID, userID uuid.UUID, role models.Role) (bool, error)
}

// Publisher broadcasts authoring events.
type Publisher interface {
	Publish(ctx context.Context, courseID uuid.UUID, event string, payload interface{})
}

// ObjectStore is the S3 surface needed for lesson assets and quiz files.
type ObjectStore interface {
	LessonAssetsBucket() string
	QuizImportsBucket() string
	PresignExpire() time.Duration
	PublicObjectURL(bucket, key string) string
	GeneratePresignedUploadURL(ctx context.Context, bucket, key, contentType string, expires time.Duration) (string, error)
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader, contentLength int64) error
}

// ImportQueue enqueues background quiz file imports.
type ImportQueue interface {
	EnqueueQuizImport(ctx context.Context, payload queue.QuizImportPayload) (string, error)
}

// QuizTextRequest is the body for quiz parse and import endpoints.
type QuizTextRequest struct {
	Text string `json:"text"`
}

// CreateRequest is the body for POST /courses/:id/lessons.
type CreateRequest struct {
	Title string `json:"title" binding:"required,max=200"`
}

// QuizQuestionInput is one quiz question in an update body.
type QuizQuestionInput struct {
	Question           string   `json:"question" binding:"required"`
	Options            []string `json:"options" binding:"required,min=1"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex" binding:"min=0"`
}

// UpdateRequest is the body for PUT /lessons/:id; it replaces the editable lesson state.
type UpdateRequest struct {
	Title        string               `json:"title" binding:"required,max=200"`
	VideoURL     string               `json:"video_url" binding:"omitempty,url"`
	Content      string               `json:"content"`
	CodeSnippets []models.CodeSnippet `json:"code_snippets"`
	Attachments  []models.Attachment  `json:"attachments"`
	Quiz         []QuizQuestionInput  `json:"quiz" binding:"dive"`
}

// UploadURLRequest is the body for POST /lessons/:id/attachments/upload-url.
type UploadURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size" binding:"required,min=1"`
}

// ImportResponse is returned by quiz import endpoints.
type ImportResponse struct {
	lessonform.ImportResult
	Questions []models.QuizQuestion `json:"questions"`
	Warnings  []quiz.Warning        `json:"warnings"`
}

// Handler handles lesson authoring endpoints.
type Handler struct {
	repo         Store
	courses      CourseAccess
	events       Publisher
	storage      ObjectStore
	imports      ImportQueue
	maxTextBytes int
	logger       *zap.Logger
	now          func() time.Time
}

// NewHandler creates a lessons handler. Pasted quiz text longer than maxTextBytes is rejected.
func NewHandler(repo Store, courses CourseAccess, pub Publisher, maxTextBytes int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		repo:         repo,
		courses:      courses,
		events:       pub,
		maxTextBytes: maxTextBytes,
		logger:       logger,
		now:          time.Now,
	}
}

// SetStorage enables upload URLs and quiz file imports.
func (h *Handler) SetStorage(store ObjectStore, q ImportQueue) {
	h.storage = store
	h.imports = q
}

// ParseQuiz handles POST /quiz/parse. It previews pasted quiz text without saving.
func (h *Handler) ParseQuiz(c *gin.Context) {
	text, ok := h.bindQuizText(c)
	if !ok {
		return
	}
	questions := quiz.Parse(text)
	if len(questions) == 0 {
		response.Unprocessable(c, lessonform.ParseFailedMessage, nil)
		return
	}
	response.OK(c, gin.H{
		"count":     len(questions),
		"questions": questions,
		"warnings":  quiz.Lint(questions),
	})
}

// ImportQuiz handles POST /lessons/:id/quiz/import. The lesson's quiz is
// replaced only when the text yields at least one question.
func (h *Handler) ImportQuiz(c *gin.Context) {
	lesson, ok := h.editableLesson(c)
	if !ok {
		return
	}
	text, ok := h.bindQuizText(c)
	if !ok {
		return
	}

	state, result := lessonform.ImportQuiz(lessonform.FromLesson(lesson), text)
	if !result.OK {
		response.Unprocessable(c, result.Message, result)
		return
	}
	if err := h.repo.ReplaceQuiz(c.Request.Context(), lesson.ID, state.Quiz); err != nil {
		h.logger.Error("replace quiz failed", zap.Error(err), zap.String("lesson_id", lesson.ID.String()))
		response.Internal(c, "failed to save quiz")
		return
	}
	h.logger.Info("quiz imported", zap.String("lesson_id", lesson.ID.String()), zap.Int("count", result.Count))
	h.events.Publish(c.Request.Context(), lesson.CourseID, events.QuizImported, gin.H{
		"lesson_id": lesson.ID, "count": result.Count, "source": "paste",
	})
	response.OK(c, ImportResponse{ImportResult: result, Questions: state.Quiz, Warnings: quiz.Lint(state.Quiz)})
}

// HeaderQuizWarnings carries the number of lint warnings for an exported quiz.
const HeaderQuizWarnings = "X-Quiz-Warnings"

// ExportQuiz handles GET /lessons/:id/quiz/export, returning the quiz as marker text.
// Questions the text form cannot represent exactly are counted in X-Quiz-Warnings.
func (h *Handler) ExportQuiz(c *gin.Context) {
	lesson, ok := h.editableLesson(c)
	if !ok {
		return
	}
	if warnings := quiz.Lint(lesson.Quiz); len(warnings) > 0 {
		c.Header(HeaderQuizWarnings, strconv.Itoa(len(warnings)))
		h.logger.Info("quiz export is lossy",
			zap.String("lesson_id", lesson.ID.String()), zap.Int("warnings", len(warnings)))
	}
	response.Text(c, quiz.Format(lesson.Quiz))
}

// ImportQuizFile handles POST /lessons/:id/quiz/import-file (multipart "file").
// The file is stored in S3 and imported by the worker.
func (h *Handler) ImportQuizFile(c *gin.Context) {
	if h.storage == nil || h.imports == nil {
		response.ServiceUnavailable(c, "file import is not configured")
		return
	}
	lesson, ok := h.editableLesson(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	if fh.Size > storage.MaxQuizFileSize {
		response.TooLarge(c, "quiz file exceeds 1MB limit")
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, "unreadable file")
		return
	}
	defer f.Close()

	key := storage.QuizImportKey(lesson.ID.String(), fh.Filename, h.now())
	bucket := h.storage.QuizImportsBucket()
	if err := h.storage.Upload(c.Request.Context(), bucket, key, "text/plain", f, fh.Size); err != nil {
		h.logger.Error("quiz file upload failed", zap.Error(err), zap.String("lesson_id", lesson.ID.String()))
		response.Internal(c, "failed to store quiz file")
		return
	}
	jobID, err := h.imports.EnqueueQuizImport(c.Request.Context(), queue.QuizImportPayload{
		LessonID:    lesson.ID,
		CourseID:    lesson.CourseID,
		Bucket:      bucket,
		Key:         key,
		RequestedBy: middleware.UserID(c),
	})
	if err != nil {
		h.logger.Error("enqueue quiz import failed", zap.Error(err), zap.String("lesson_id", lesson.ID.String()))
		response.Internal(c, "failed to queue import")
		return
	}
	response.Accepted(c, gin.H{"job_id": jobID, "s3_key": key, "status": "queued"})
}

// AttachmentUploadURL handles POST /lessons/:id/attachments/upload-url.
func (h *Handler) AttachmentUploadURL(c *gin.Context) {
	if h.storage == nil {
		response.ServiceUnavailable(c, "S3 not configured")
		return
	}
	lesson, ok := h.editableLesson(c)
	if !ok {
		return
	}
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.FileSize > storage.MaxAssetFileSize {
		response.TooLarge(c, "file size exceeds 500MB limit")
		return
	}
	contentType, ok := storage.AssetContentType(req.Filename)
	if !ok {
		response.BadRequest(c, "unsupported file type")
		return
	}

	bucket := h.storage.LessonAssetsBucket()
	key := storage.LessonAssetKey(lesson.CourseID.String(), lesson.ID.String(), req.Filename)
	expire := h.storage.PresignExpire()
	url, err := h.storage.GeneratePresignedUploadURL(c.Request.Context(), bucket, key, contentType, expire)
	if err != nil {
		h.logger.Error("generate presigned upload URL failed", zap.Error(err), zap.String("lesson_id", lesson.ID.String()))
		response.Internal(c, "upload unavailable")
		return
	}
	response.OK(c, gin.H{
		"upload_url":   url,
		"s3_key":       key,
		"public_url":   h.storage.PublicObjectURL(bucket, key),
		"content_type": contentType,
		"expires_in":   int(expire.Seconds()),
	})
}

// Create handles POST /courses/:id/lessons.
func (h *Handler) Create(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	if !h.canEdit(c, courseID) {
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	lesson := &models.Lesson{CourseID: courseID, Title: req.Title}
	if err := h.repo.Create(c.Request.Context(), lesson); err != nil {
		h.logger.Error("create lesson failed", zap.Error(err), zap.String("course_id", courseID.String()))
		response.Internal(c, "failed to create lesson")
		return
	}
	h.events.Publish(c.Request.Context(), courseID, events.LessonCreated, gin.H{"lesson_id": lesson.ID})
	response.Created(c, lesson)
}

// ListByCourse handles GET /courses/:id/lessons.
func (h *Handler) ListByCourse(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	list, err := h.repo.ListByCourse(c.Request.Context(), courseID)
	if err != nil {
		h.logger.Error("list lessons failed", zap.Error(err))
		response.Internal(c, "failed to list lessons")
		return
	}
	response.OK(c, gin.H{"lessons": list})
}

// GetByID handles GET /lessons/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid lesson id")
		return
	}
	lesson, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.notFoundOrInternal(c, err)
		return
	}
	response.OK(c, lesson)
}

// Update handles PUT /lessons/:id.
func (h *Handler) Update(c *gin.Context) {
	lesson, ok := h.editableLesson(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	questions := make([]models.QuizQuestion, len(req.Quiz))
	for i, q := range req.Quiz {
		if q.CorrectAnswerIndex >= len(q.Options) {
			response.BadRequest(c, fmt.Sprintf("quiz[%d]: correctAnswerIndex out of range", i))
			return
		}
		questions[i] = models.QuizQuestion{Question: q.Question, Options: q.Options, CorrectAnswerIndex: q.CorrectAnswerIndex}
	}

	state := lessonform.State{
		Title:        req.Title,
		Content:      req.Content,
		CodeSnippets: req.CodeSnippets,
		Attachments:  req.Attachments,
	}
	state = lessonform.Reduce(state, lessonform.SetVideoURL{URL: req.VideoURL})
	state = lessonform.Reduce(state, lessonform.ReplaceQuiz{Questions: questions})
	state.Apply(lesson)

	if err := h.repo.Update(c.Request.Context(), lesson); err != nil {
		h.notFoundOrInternal(c, err)
		return
	}
	h.events.Publish(c.Request.Context(), lesson.CourseID, events.LessonUpdated, gin.H{"lesson_id": lesson.ID})
	response.OK(c, lesson)
}

// Delete handles DELETE /lessons/:id.
func (h *Handler) Delete(c *gin.Context) {
	lesson, ok := h.editableLesson(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), lesson.ID); err != nil && !errors.Is(err, ErrNotFound) {
		h.logger.Error("delete lesson failed", zap.Error(err), zap.String("lesson_id", lesson.ID.String()))
		response.Internal(c, "failed to delete lesson")
		return
	}
	h.events.Publish(c.Request.Context(), lesson.CourseID, events.LessonDeleted, gin.H{"lesson_id": lesson.ID})
	response.NoContent(c)
}

func (h *Handler) bindQuizText(c *gin.Context) (string, bool) {
	var req QuizTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return "", false
	}
	if h.maxTextBytes > 0 && len(req.Text) > h.maxTextBytes {
		response.TooLarge(c, fmt.Sprintf("quiz text exceeds %d bytes", h.maxTextBytes))
		return "", false
	}
	return req.Text, true
}

// editableLesson loads the :id lesson and checks the caller may edit its course.
func (h *Handler) editableLesson(c *gin.Context) (*models.Lesson, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid lesson id")
		return nil, false
	}
	lesson, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.notFoundOrInternal(c, err)
		return nil, false
	}
	if !h.canEdit(c, lesson.CourseID) {
		return nil, false
	}
	return lesson, true
}

func (h *Handler) canEdit(c *gin.Context, courseID uuid.UUID) bool {
	ok, err := h.courses.CanEdit(c.Request.Context(), courseID, middleware.UserID(c), middleware.Role(c))
	if err != nil {
		h.logger.Error("course access check failed", zap.Error(err), zap.String("course_id", courseID.String()))
		response.Internal(c, "failed to check course access")
		return false
	}
	if !ok {
		response.Forbidden(c, "only admins or course instructors can edit lessons")
		return false
	}
	return true
}

func (h *Handler) notFoundOrInternal(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "lesson not found")
		return
	}
	h.logger.Error("lesson lookup failed", zap.Error(err))
	response.Internal(c, "failed to load lesson")
}
