package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/techmigo/backend/internal/events"
	"github.com/techmigo/backend/internal/lessonform"
	"github.com/techmigo/backend/internal/lessons"
	"github.com/techmigo/backend/internal/models"
	"github.com/techmigo/backend/pkg/queue"
	"github.com/techmigo/backend/pkg/storage"
)

const retryTimeout = 5 * time.Second

// ObjectReader streams stored quiz files.
type ObjectReader interface {
	GetObjectStream(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error)
}

// LessonQuizStore loads lessons and replaces their quiz.
type LessonQuizStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Lesson, error)
	ReplaceQuiz(ctx context.Context, id uuid.UUID, questions []models.QuizQuestion) error
}

// Publisher broadcasts authoring events.
type Publisher interface {
	Publish(ctx context.Context, courseID uuid.UUID, event string, payload interface{})
}

// JobQueue is the queue the worker consumes.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// QuizImportProcessor imports quiz text files uploaded to S3 into lessons.
type QuizImportProcessor struct {
	lessons LessonQuizStore
	objects ObjectReader
	events  Publisher
	queue   JobQueue
	logger  *zap.Logger
	backoff time.Duration
}

// NewQuizImportProcessor creates a quiz import processor.
func NewQuizImportProcessor(store LessonQuizStore, objects ObjectReader, pub Publisher, q JobQueue, logger *zap.Logger) *QuizImportProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizImportProcessor{
		lessons: store,
		objects: objects,
		events:  pub,
		queue:   q,
		logger:  logger,
		backoff: queue.RetryBackoff,
	}
}

// Process executes one quiz import job. Errors are returned only for
// failures worth retrying; a missing lesson or unparseable file is logged
// and dropped.
func (p *QuizImportProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeQuizImport {
		p.logger.Warn("unknown job type dropped", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		return nil
	}
	var payload queue.QuizImportPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		p.logger.Warn("invalid quiz import payload dropped", zap.String("job_id", job.ID), zap.Error(err))
		return nil
	}
	log := p.logger.With(zap.String("job_id", job.ID), zap.String("lesson_id", payload.LessonID.String()))

	lesson, err := p.lessons.GetByID(ctx, payload.LessonID)
	if errors.Is(err, lessons.ErrNotFound) {
		log.Warn("lesson gone, quiz import dropped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load lesson: %w", err)
	}

	body, _, err := p.objects.GetObjectStream(ctx, payload.Bucket, payload.Key)
	if err != nil {
		return fmt.Errorf("get quiz file: %w", err)
	}
	defer body.Close()
	raw, err := io.ReadAll(io.LimitReader(body, storage.MaxQuizFileSize+1))
	if err != nil {
		return fmt.Errorf("read quiz file: %w", err)
	}
	if len(raw) > storage.MaxQuizFileSize {
		log.Warn("quiz file too large, import dropped", zap.String("s3_key", payload.Key))
		return nil
	}

	state, result := lessonform.ImportQuiz(lessonform.FromLesson(lesson), string(raw))
	if !result.OK {
		log.Warn("quiz file had no complete questions", zap.String("s3_key", payload.Key))
		return nil
	}
	if err := p.lessons.ReplaceQuiz(ctx, lesson.ID, state.Quiz); err != nil {
		return fmt.Errorf("replace quiz: %w", err)
	}

	p.events.Publish(ctx, lesson.CourseID, events.QuizImported, map[string]interface{}{
		"lesson_id": lesson.ID, "count": result.Count, "source": "file",
	})
	log.Info("quiz file imported", zap.Int("count", result.Count), zap.String("s3_key", payload.Key))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *QuizImportProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("quiz import worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.String("job_id", job.ID), zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

// retry requeues job even when ctx is already cancelled, so a job dequeued
// before shutdown is not lost.
func (p *QuizImportProcessor) retry(ctx context.Context, job *queue.Job) error {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), retryTimeout)
	defer cancel()
	return p.queue.Retry(rctx, job)
}

func (p *QuizImportProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
