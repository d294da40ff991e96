package realtime

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60

	sendBuffer = 64
)

// Subscriber streams raw event envelopes published for a course.
type Subscriber interface {
	SubscribeCourse(courseID uuid.UUID, handler func(envelope []byte)) (cancel func(), err error)
}

// Hub maintains course_id -> set of connections and fans out course events.
// One Redis subscription is held per course while it has at least one client.
type Hub struct {
	// courseID -> map[clientID]*Client
	courses map[uuid.UUID]map[string]*Client
	subs    map[uuid.UUID]func()
	mu      sync.RWMutex
	sub     Subscriber
	logger  *zap.Logger
}

// NewHub creates a hub. sub may be nil, in which case only Broadcast delivers.
func NewHub(sub Subscriber, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		courses: make(map[uuid.UUID]map[string]*Client),
		subs:    make(map[uuid.UUID]func()),
		sub:     sub,
		logger:  logger,
	}
}

// Register adds a client to a course room, subscribing to the course if it is
// the first client. The subscription is opened without holding the hub lock;
// if another client created the room meanwhile, the extra subscription is dropped.
func (h *Hub) Register(c *Client) error {
	h.mu.Lock()
	if h.courses[c.CourseID] != nil || h.sub == nil {
		h.join(c)
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	courseID := c.CourseID
	cancel, err := h.sub.SubscribeCourse(courseID, func(envelope []byte) {
		h.Broadcast(courseID, envelope)
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.courses[courseID] != nil {
		cancel()
	} else {
		h.subs[courseID] = cancel
	}
	h.join(c)
	return nil
}

// join adds c to its room, creating the room if needed. h.mu must be held.
func (h *Hub) join(c *Client) {
	if h.courses[c.CourseID] == nil {
		h.courses[c.CourseID] = make(map[string]*Client)
	}
	h.courses[c.CourseID][c.ID] = c
	h.logger.Debug("client joined course feed", zap.String("client_id", c.ID), zap.String("course_id", c.CourseID.String()))
}

// Unregister removes a client and drops the course subscription when the room empties.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.courses[c.CourseID]
	if !ok {
		return
	}
	if _, ok := m[c.ID]; !ok {
		return
	}
	delete(m, c.ID)
	close(c.send)
	if len(m) == 0 {
		delete(h.courses, c.CourseID)
		if cancel, ok := h.subs[c.CourseID]; ok {
			cancel()
			delete(h.subs, c.CourseID)
		}
	}
	h.logger.Debug("client left course feed", zap.String("client_id", c.ID), zap.String("course_id", c.CourseID.String()))
}

// Broadcast queues envelope for every local client watching courseID.
// Slow clients whose buffer is full miss the message.
func (h *Hub) Broadcast(courseID uuid.UUID, envelope []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.courses[courseID] {
		select {
		case c.send <- envelope:
		default:
		}
	}
}

// Watchers returns the number of connected clients for a course.
func (h *Hub) Watchers(courseID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.courses[courseID])
}
