// Package events publishes course authoring events over Redis pub/sub so
// open admin dashboards can refresh lesson data.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix  = "course:"
	publishTimeout = 5 * time.Second

	LessonCreated = "lesson_created"
	LessonUpdated = "lesson_updated"
	LessonDeleted = "lesson_deleted"
	QuizImported  = "quiz_imported"
)

// Envelope is the message published on a course channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	At    int64           `json:"at"`
}

// Channel returns the pub/sub channel for a course.
func Channel(courseID uuid.UUID) string {
	return channelPrefix + courseID.String()
}

// Encode builds the wire form of an event.
func Encode(event string, payload interface{}, at time.Time) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data, At: at.Unix()})
}

// Publisher sends events to Redis. A nil *Publisher drops events.
type Publisher struct {
	client *redis.Client
	logger *zap.Logger
}

// NewPublisher creates a Redis-backed event publisher.
func NewPublisher(client *redis.Client, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{client: client, logger: logger}
}

// Publish sends event to the course channel. Failures are logged, not returned.
func (p *Publisher) Publish(ctx context.Context, courseID uuid.UUID, event string, payload interface{}) {
	if p == nil || p.client == nil {
		return
	}
	body, err := Encode(event, payload, time.Now())
	if err != nil {
		p.logger.Warn("encode event", zap.String("event", event), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.client.Publish(ctx, Channel(courseID), body).Err(); err != nil {
		p.logger.Warn("publish event", zap.String("event", event), zap.String("course_id", courseID.String()), zap.Error(err))
	}
}
