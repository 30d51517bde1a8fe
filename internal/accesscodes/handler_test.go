package accesscodes

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
	"go.uber.org/zap"
)

const testPassword = "letmein"

func newUUID(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}

func newTestRouter(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, NewGenerator(store), testPassword, zap.NewNop())
	r := gin.New()
	r.POST("/access-codes/generate", h.Generate)
	r.POST("/access-codes/validate", h.Validate)
	r.POST("/access-codes/history", h.History)
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

func TestGenerateRequiresPassword(t *testing.T) {
	r := newTestRouter(NewMemoryStore())

	w := postJSON(t, r, "/access-codes/generate", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, r, "/access-codes/generate", gin.H{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGenerateReturnsCode(t *testing.T) {
	r := newTestRouter(NewMemoryStore())

	w := postJSON(t, r, "/access-codes/generate", gin.H{"password": testPassword})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Code string `json:"code"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Regexp(t, codeFormat, body.Data.Code)
}

func TestValidate(t *testing.T) {
	store := NewMemoryStore()
	r := newTestRouter(store)

	used, err := store.Create(context.Background(), "USEDX1234")
	require.NoError(t, err)
	require.NoError(t, store.MarkUsed(context.Background(), used.Code, newUUID(t)))
	_, err = store.Create(context.Background(), "FRESH5678")
	require.NoError(t, err)

	cases := []struct {
		name string
		body gin.H
		want int
	}{
		{"missing code", gin.H{}, http.StatusBadRequest},
		{"unknown code", gin.H{"code": "NOPEX0000"}, http.StatusNotFound},
		{"used code", gin.H{"code": "USEDX1234"}, http.StatusConflict},
		{"valid code", gin.H{"code": "FRESH5678"}, http.StatusOK},
		{"valid lowercase", gin.H{"code": "fresh5678"}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(t, r, "/access-codes/validate", tc.body)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestValidateHasNoSideEffect(t *testing.T) {
	store := NewMemoryStore()
	r := newTestRouter(store)
	_, err := store.Create(context.Background(), "FRESH5678")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		w := postJSON(t, r, "/access-codes/validate", gin.H{"code": "FRESH5678"})
		assert.Equal(t, http.StatusOK, w.Code)
	}
	got, err := store.GetByCode(context.Background(), "FRESH5678")
	require.NoError(t, err)
	assert.False(t, got.IsUsed)
}

func TestHistorySummary(t *testing.T) {
	store := NewMemoryStore()
	r := newTestRouter(store)

	userID := newUUID(t)
	store.AddUser(userID, "amy@example.com", "Amy Lee")
	_, err := store.Create(context.Background(), "AAAAA1111")
	require.NoError(t, err)
	_, err = store.Create(context.Background(), "BBBBB2222")
	require.NoError(t, err)
	require.NoError(t, store.MarkUsed(context.Background(), "AAAAA1111", userID))

	w := postJSON(t, r, "/access-codes/history", gin.H{"password": testPassword})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Codes   []HistoryRow `json:"codes"`
			Summary Summary      `json:"summary"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, Summary{Total: 2, Used: 1, Available: 1}, body.Data.Summary)

	var usedRow *HistoryRow
	for i := range body.Data.Codes {
		if body.Data.Codes[i].IsUsed {
			usedRow = &body.Data.Codes[i]
		}
	}
	require.NotNil(t, usedRow)
	assert.Equal(t, "AAAAA1111", usedRow.Code)
	assert.Equal(t, "amy@example.com", usedRow.UsedByEmail)
	assert.Equal(t, "Amy Lee", usedRow.UsedByName)
}

func TestHistoryRequiresPassword(t *testing.T) {
	r := newTestRouter(NewMemoryStore())
	w := postJSON(t, r, "/access-codes/history", gin.H{"password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
