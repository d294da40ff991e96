package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techmigo/backend/internal/models"
)

type memStore struct {
	users map[string]*models.User
}

func newMemStore() *memStore { return &memStore{users: map[string]*models.User{}} }

func (m *memStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := m.users[email]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (m *memStore) List(context.Context) ([]models.UserPublic, error) {
	out := make([]models.UserPublic, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u.ToPublic())
	}
	return out, nil
}

func (m *memStore) Create(_ context.Context, email, hash, name string, role models.Role) (*models.User, error) {
	if _, ok := m.users[email]; ok {
		return nil, ErrEmailTaken
	}
	u := &models.User{ID: uuid.New(), Email: email, Password: hash, FullName: name, Role: role}
	m.users[email] = u
	return u, nil
}

func setupRouter(store UserStore) (*gin.Engine, *JWTService) {
	gin.SetMode(gin.TestMode)
	jwtSvc := NewJWTService("test-secret", 1)
	h := NewHandler(store, jwtSvc, nil)
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	return r, jwtSvc
}

func postJSON(r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type tokenEnvelope struct {
	Success bool          `json:"success"`
	Data    TokenResponse `json:"data"`
	Error   string        `json:"error"`
}

func TestRegisterThenLogin(t *testing.T) {
	r, jwtSvc := setupRouter(newMemStore())

	rec := postJSON(r, "/auth/register", RegisterRequest{Email: "ops@techmigo.io", Password: "longenough", FullName: "Ops", Role: "instructor"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var reg tokenEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	assert.Equal(t, models.RoleInstructor, reg.Data.User.Role)

	rec = postJSON(r, "/auth/login", LoginRequest{Email: "ops@techmigo.io", Password: "longenough"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var login tokenEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	claims, err := jwtSvc.Validate(login.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, "instructor", claims.Role)
	assert.Equal(t, reg.Data.User.ID, claims.UserID)
}

func TestRegister_DefaultsToStudent(t *testing.T) {
	r, _ := setupRouter(newMemStore())

	rec := postJSON(r, "/auth/register", RegisterRequest{Email: "learner@techmigo.io", Password: "longenough", FullName: "L"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var reg tokenEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	assert.Equal(t, models.RoleStudent, reg.Data.User.Role)
}

func TestRegister_Rejects(t *testing.T) {
	store := newMemStore()
	r, _ := setupRouter(store)
	require.Equal(t, http.StatusCreated, postJSON(r, "/auth/register", RegisterRequest{Email: "a@b.io", Password: "longenough", FullName: "A"}).Code)

	tests := []struct {
		name string
		body RegisterRequest
		code int
	}{
		{"duplicate email", RegisterRequest{Email: "a@b.io", Password: "longenough", FullName: "A"}, http.StatusConflict},
		{"bad role", RegisterRequest{Email: "c@b.io", Password: "longenough", FullName: "C", Role: "owner"}, http.StatusBadRequest},
		{"short password", RegisterRequest{Email: "d@b.io", Password: "short", FullName: "D"}, http.StatusBadRequest},
		{"bad email", RegisterRequest{Email: "nope", Password: "longenough", FullName: "E"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, postJSON(r, "/auth/register", tt.body).Code)
		})
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	r, _ := setupRouter(newMemStore())
	require.Equal(t, http.StatusCreated, postJSON(r, "/auth/register", RegisterRequest{Email: "a@b.io", Password: "longenough", FullName: "A"}).Code)

	assert.Equal(t, http.StatusUnauthorized, postJSON(r, "/auth/login", LoginRequest{Email: "a@b.io", Password: "wrongpass"}).Code)
	assert.Equal(t, http.StatusUnauthorized, postJSON(r, "/auth/login", LoginRequest{Email: "missing@b.io", Password: "whatever"}).Code)
}
