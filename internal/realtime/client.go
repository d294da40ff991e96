package realtime

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/techmigo/backend/internal/auth"
	"github.com/techmigo/backend/internal/models"
	"github.com/techmigo/backend/pkg/response"
)

const writeWait = 10 * time.Second

// TokenValidator validates the token passed in the query string.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// CourseAccess answers whether a user may watch a course's authoring feed.
type CourseAccess interface {
	CanEdit(ctx context.Context, courseID, userID uuid.UUID, role models.Role) (bool, error)
}

// Client is one websocket connection watching a course.
type Client struct {
	ID       string
	CourseID uuid.UUID
	UserID   uuid.UUID
	conn     *websocket.Conn
	send     chan []byte
}

// NewClient creates a client with a buffered outbound queue.
func NewClient(courseID, userID uuid.UUID, conn *websocket.Conn) *Client {
	return &Client{
		ID:       uuid.New().String(),
		CourseID: courseID,
		UserID:   userID,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
	}
}

// ServeWs upgrades GET /ws?course_id=&token= and streams the course's authoring events.
// Only users who can edit the course may connect.
func ServeWs(hub *Hub, validator TokenValidator, access CourseAccess, allowedOrigins string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return func(c *gin.Context) {
		courseID, err := uuid.Parse(c.Query("course_id"))
		if err != nil {
			response.BadRequest(c, "invalid course_id")
			return
		}
		claims, err := validator.Validate(c.Query("token"))
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			return
		}
		ok, err := access.CanEdit(c.Request.Context(), courseID, claims.UserID, models.Role(claims.Role))
		if err != nil {
			logger.Error("course access check failed", zap.Error(err))
			response.Internal(c, "failed to check course access")
			return
		}
		if !ok {
			response.Forbidden(c, "only course editors can watch this course")
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		client := NewClient(courseID, claims.UserID, conn)
		if err := hub.Register(client); err != nil {
			logger.Error("course feed subscribe failed", zap.Error(err), zap.String("course_id", courseID.String()))
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"),
				time.Now().Add(writeWait))
			_ = conn.Close()
			return
		}
		go client.writePump()
		client.readPump(hub)
	}
}

// readPump only services control frames; the feed is server to client.
func (c *Client) readPump(hub *Hub) {
	defer func() {
		hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func originChecker(allowedOrigins string) func(r *http.Request) bool {
	if allowedOrigins == "" || allowedOrigins == "*" {
		return func(*http.Request) bool { return true }
	}
	allowed := make(map[string]bool)
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = true
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}
