package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techmigo/backend/internal/auth"
	"github.com/techmigo/backend/internal/events"
	"github.com/techmigo/backend/internal/models"
)

type fakeSubscriber struct {
	mu       sync.Mutex
	handlers map[uuid.UUID]func([]byte)
	cancels  int
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handlers: map[uuid.UUID]func([]byte){}}
}

func (s *fakeSubscriber) SubscribeCourse(courseID uuid.UUID, handler func([]byte)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[courseID] = handler
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers, courseID)
		s.cancels++
	}, nil
}

func (s *fakeSubscriber) emit(courseID uuid.UUID, msg []byte) bool {
	s.mu.Lock()
	h, ok := s.handlers[courseID]
	s.mu.Unlock()
	if ok {
		h(msg)
	}
	return ok
}

type instructorsOnly map[uuid.UUID]bool

func (a instructorsOnly) CanEdit(_ context.Context, _ uuid.UUID, userID uuid.UUID, _ models.Role) (bool, error) {
	return a[userID], nil
}

func TestHubSubscribesPerCourse(t *testing.T) {
	sub := newFakeSubscriber()
	hub := NewHub(sub, nil)
	courseID := uuid.New()

	a := NewClient(courseID, uuid.New(), nil)
	b := NewClient(courseID, uuid.New(), nil)
	require.NoError(t, hub.Register(a))
	require.NoError(t, hub.Register(b))
	assert.Equal(t, 2, hub.Watchers(courseID))

	require.True(t, sub.emit(courseID, []byte(`{"event":"quiz_imported"}`)))
	assert.Equal(t, `{"event":"quiz_imported"}`, string(<-a.send))
	assert.Equal(t, `{"event":"quiz_imported"}`, string(<-b.send))

	hub.Unregister(a)
	assert.Zero(t, sub.cancels)
	hub.Unregister(b)
	assert.Equal(t, 1, sub.cancels)
	assert.Zero(t, hub.Watchers(courseID))

	_, open := <-a.send
	assert.False(t, open)
	hub.Unregister(a)
}

func TestHubBroadcastSkipsOtherCourses(t *testing.T) {
	hub := NewHub(nil, nil)
	mine := NewClient(uuid.New(), uuid.New(), nil)
	require.NoError(t, hub.Register(mine))

	hub.Broadcast(uuid.New(), []byte("x"))
	assert.Len(t, mine.send, 0)
	hub.Broadcast(mine.CourseID, []byte("y"))
	assert.Len(t, mine.send, 1)
}

// gatedSubscriber blocks SubscribeCourse for gated courses until release is closed.
type gatedSubscriber struct {
	gated   uuid.UUID
	entered chan struct{}
	release chan struct{}

	mu     sync.Mutex
	active int
}

func newGatedSubscriber(gated uuid.UUID) *gatedSubscriber {
	return &gatedSubscriber{gated: gated, entered: make(chan struct{}, 8), release: make(chan struct{})}
}

func (s *gatedSubscriber) SubscribeCourse(courseID uuid.UUID, _ func([]byte)) (func(), error) {
	if courseID == s.gated {
		s.entered <- struct{}{}
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active++
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.active--
		})
	}, nil
}

func (s *gatedSubscriber) activeSubs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func TestHubSlowSubscribeDoesNotBlockOtherCourses(t *testing.T) {
	slow := uuid.New()
	sub := newGatedSubscriber(slow)
	hub := NewHub(sub, nil)

	fast := NewClient(uuid.New(), uuid.New(), nil)
	require.NoError(t, hub.Register(fast))

	registered := make(chan error, 1)
	go func() { registered <- hub.Register(NewClient(slow, uuid.New(), nil)) }()
	<-sub.entered

	done := make(chan struct{})
	go func() {
		hub.Broadcast(fast.CourseID, []byte("update"))
		hub.Unregister(fast)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub blocked while another course was subscribing")
	}
	assert.Equal(t, "update", string(<-fast.send))

	close(sub.release)
	require.NoError(t, <-registered)
	assert.Equal(t, 1, hub.Watchers(slow))
}

func TestHubConcurrentFirstRegisterKeepsOneSubscription(t *testing.T) {
	courseID := uuid.New()
	sub := newGatedSubscriber(courseID)
	hub := NewHub(sub, nil)

	a := NewClient(courseID, uuid.New(), nil)
	b := NewClient(courseID, uuid.New(), nil)
	errs := make(chan error, 2)
	go func() { errs <- hub.Register(a) }()
	go func() { errs <- hub.Register(b) }()
	<-sub.entered
	<-sub.entered
	close(sub.release)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	assert.Equal(t, 2, hub.Watchers(courseID))
	assert.Equal(t, 1, sub.activeSubs())

	hub.Unregister(a)
	hub.Unregister(b)
	assert.Zero(t, sub.activeSubs())
}

func TestServeWsStreamsCourseEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := auth.NewJWTService("test-secret", 1)
	editor := uuid.New()
	courseID := uuid.New()
	sub := newFakeSubscriber()
	hub := NewHub(sub, nil)

	r := gin.New()
	r.GET("/ws", ServeWs(hub, jwtSvc, instructorsOnly{editor: true}, "*", nil))
	srv := httptest.NewServer(r)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?course_id=" + courseID.String() + "&token="

	outsider, err := jwtSvc.Generate(uuid.New(), "s@example.com", string(models.RoleInstructor))
	require.NoError(t, err)
	_, resp, err := websocket.DefaultDialer.Dial(wsURL+outsider, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	token, err := jwtSvc.Generate(editor, "e@example.com", string(models.RoleInstructor))
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Watchers(courseID) == 1 }, time.Second, 5*time.Millisecond)
	envelope, err := events.Encode(events.QuizImported, map[string]int{"count": 2}, time.Unix(0, 0))
	require.NoError(t, err)
	require.True(t, sub.emit(courseID, envelope))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, string(envelope), string(msg))
}
