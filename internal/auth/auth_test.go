package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bizquest/backend/internal/models"
)

func newTestRouter(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, NewJWTService("test-secret", 1), zap.NewNop())
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	return r
}

func postJSON(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func registerBody(email, code string) gin.H {
	return gin.H{
		"email":       email,
		"password":    "hunter22",
		"full_name":   "Amy Lee",
		"access_code": code,
	}
}

func TestRegisterConsumesAccessCode(t *testing.T) {
	store := NewMemoryStore()
	store.AddCode("ABCDE1234")
	r := newTestRouter(store)

	w := postJSON(t, r, "/auth/register", registerBody("amy@example.com", "abcde1234"))
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		Data TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Data.Token)
	assert.Equal(t, models.RoleMember, body.Data.User.Role)

	usedBy, used := store.CodeUsedBy("ABCDE1234")
	require.True(t, used)
	assert.Equal(t, body.Data.User.ID, usedBy)
}

func TestRegisterRejectsReusedCode(t *testing.T) {
	store := NewMemoryStore()
	store.AddCode("ABCDE1234")
	r := newTestRouter(store)

	w := postJSON(t, r, "/auth/register", registerBody("first@example.com", "ABCDE1234"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, r, "/auth/register", registerBody("second@example.com", "ABCDE1234"))
	assert.Equal(t, http.StatusConflict, w.Code)

	// The second registration left no user behind.
	_, err := store.GetByEmail(nil, "second@example.com")
	assert.Error(t, err)
}

func TestRegisterUnknownCode(t *testing.T) {
	r := newTestRouter(NewMemoryStore())
	w := postJSON(t, r, "/auth/register", registerBody("amy@example.com", "ZZZZZ9999"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterRequiresAccessCode(t *testing.T) {
	r := newTestRouter(NewMemoryStore())
	w := postJSON(t, r, "/auth/register", gin.H{
		"email":     "amy@example.com",
		"password":  "hunter22",
		"full_name": "Amy Lee",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := NewMemoryStore()
	store.AddCode("AAAAA1111")
	store.AddCode("BBBBB2222")
	r := newTestRouter(store)

	w := postJSON(t, r, "/auth/register", registerBody("amy@example.com", "AAAAA1111"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, r, "/auth/register", registerBody("amy@example.com", "BBBBB2222"))
	assert.Equal(t, http.StatusConflict, w.Code)

	// The failed registration did not burn the second code.
	_, used := store.CodeUsedBy("BBBBB2222")
	assert.False(t, used)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	store := NewMemoryStore()
	store.AddCode("AAAAA1111")
	r := newTestRouter(store)

	body := registerBody("amy@example.com", "AAAAA1111")
	body["role"] = "superuser"
	w := postJSON(t, r, "/auth/register", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	store := NewMemoryStore()
	store.AddCode("AAAAA1111")
	r := newTestRouter(store)

	w := postJSON(t, r, "/auth/register", registerBody("amy@example.com", "AAAAA1111"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, r, "/auth/login", gin.H{"email": "amy@example.com", "password": "hunter22"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, r, "/auth/login", gin.H{"email": "amy@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(t, r, "/auth/login", gin.H{"email": "ghost@example.com", "password": "hunter22"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", 1)
	store := NewMemoryStore()
	store.AddCode("AAAAA1111")
	u, err := store.CreateWithAccessCode(nil, "amy@example.com", "hash", "Amy", models.RoleAdmin, "AAAAA1111")
	require.NoError(t, err)

	token, err := svc.Generate(u.ID, u.Email, string(u.Role))
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, "admin", claims.Role)

	_, err = svc.Validate(token + "x")
	assert.Error(t, err)
}
