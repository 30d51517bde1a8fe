package badges

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

	"github.com/bizquest/backend/internal/middleware"
	"github.com/bizquest/backend/internal/models"
)

func seedBadge(t *testing.T, store *MemoryStore, orgID uuid.UUID, name string, active bool) models.Badge {
	t.Helper()
	b := &models.Badge{OrganizationID: orgID, Name: name, IsActive: active}
	require.NoError(t, store.Create(context.Background(), b))
	return *b
}

func newTestRouter(store Store, orgID, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, zap.NewNop())
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextOrgID, orgID)
		c.Next()
	})
	r.GET("/badges", h.ListForUser)
	r.POST("/badges/claim", h.Claim)
	r.GET("/admin/badges", h.ListAdmin)
	r.POST("/admin/badges", h.Create)
	r.PUT("/admin/badges/:id", h.Update)
	r.DELETE("/admin/badges/:id", h.Delete)
	r.GET("/admin/badges-history", h.History)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestClaimIsAtMostOnce(t *testing.T) {
	store := NewMemoryStore()
	orgID := uuid.New()
	userID := uuid.New()
	b := seedBadge(t, store, orgID, "First Sale", true)
	r := newTestRouter(store, orgID, userID)

	body := gin.H{"userId": userID.String(), "badgeId": b.ID.String()}
	w := doJSON(t, r, http.MethodPost, "/badges/claim", body)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/badges/claim", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestClaimIsTenantScoped(t *testing.T) {
	store := NewMemoryStore()
	theirs := seedBadge(t, store, uuid.New(), "Theirs", true)
	userID := uuid.New()
	r := newTestRouter(store, uuid.New(), userID)

	body := gin.H{"userId": userID.String(), "badgeId": theirs.ID.String()}
	w := doJSON(t, r, http.MethodPost, "/badges/claim", body)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// No unlock row leaked into the other tenant's history.
	rows, err := store.History(context.Background(), theirs.OrganizationID, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestClaimValidation(t *testing.T) {
	store := NewMemoryStore()
	r := newTestRouter(store, uuid.New(), uuid.New())

	w := doJSON(t, r, http.MethodPost, "/badges/claim", gin.H{"userId": "", "badgeId": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/badges/claim", gin.H{"userId": "not-a-uuid", "badgeId": uuid.New().String()})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListForUserDerivesUnlockedFlag(t *testing.T) {
	store := NewMemoryStore()
	orgID := uuid.New()
	userID := uuid.New()
	unlocked := seedBadge(t, store, orgID, "Closer", true)
	locked := seedBadge(t, store, orgID, "Veteran", true)
	seedBadge(t, store, orgID, "Hidden", false)

	_, err := store.Claim(context.Background(), orgID, userID, unlocked.ID)
	require.NoError(t, err)

	r := newTestRouter(store, orgID, userID)
	w := doJSON(t, r, http.MethodGet, "/badges", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []models.BadgeWithStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)

	flags := map[uuid.UUID]bool{}
	for _, bs := range body.Data {
		flags[bs.ID] = bs.Unlocked
	}
	assert.True(t, flags[unlocked.ID])
	assert.False(t, flags[locked.ID])
}

func TestMergeUnlockStatus(t *testing.T) {
	a := models.Badge{ID: uuid.New()}
	b := models.Badge{ID: uuid.New()}
	out := MergeUnlockStatus([]models.Badge{a, b}, map[uuid.UUID]bool{a.ID: true})
	require.Len(t, out, 2)
	assert.True(t, out[0].Unlocked)
	assert.False(t, out[1].Unlocked)
}

func TestAdminCatalogIsTenantScoped(t *testing.T) {
	store := NewMemoryStore()
	orgA := uuid.New()
	orgB := uuid.New()
	mine := seedBadge(t, store, orgA, "Mine", true)
	other := seedBadge(t, store, orgB, "Theirs", true)

	r := newTestRouter(store, orgA, uuid.New())
	w := doJSON(t, r, http.MethodGet, "/admin/badges", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []models.Badge `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, mine.ID, body.Data[0].ID)

	// Updating another org's badge through this org context is a 404.
	w = doJSON(t, r, http.MethodPut, "/admin/badges/"+other.ID.String(), gin.H{"name": "Hijacked"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/admin/badges/"+other.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateDefaultsToActive(t *testing.T) {
	store := NewMemoryStore()
	orgID := uuid.New()
	r := newTestRouter(store, orgID, uuid.New())

	w := doJSON(t, r, http.MethodPost, "/admin/badges", gin.H{"name": "Rookie"})
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		Data models.Badge `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.IsActive)
	assert.Equal(t, orgID, body.Data.OrganizationID)
}

func TestHistoryFilters(t *testing.T) {
	store := NewMemoryStore()
	orgID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()
	store.AddUser(alice, "alice@example.com", "Alice")
	store.AddUser(bob, "bob@example.com", "Bob")

	b1 := seedBadge(t, store, orgID, "One", true)
	b2 := seedBadge(t, store, orgID, "Two", true)
	for _, pair := range []struct {
		user  uuid.UUID
		badge uuid.UUID
	}{{alice, b1.ID}, {alice, b2.ID}, {bob, b1.ID}} {
		_, err := store.Claim(context.Background(), orgID, pair.user, pair.badge)
		require.NoError(t, err)
	}

	r := newTestRouter(store, orgID, alice)

	w := doJSON(t, r, http.MethodGet, "/admin/badges-history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all struct {
		Data []UnlockRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Len(t, all.Data, 3)

	w = doJSON(t, r, http.MethodGet, "/admin/badges-history?badgeId="+b1.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var byBadge struct {
		Data []UnlockRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &byBadge))
	assert.Len(t, byBadge.Data, 2)

	w = doJSON(t, r, http.MethodGet, "/admin/badges-history?badgeId="+b1.ID.String()+"&userId="+bob.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var both struct {
		Data []UnlockRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &both))
	require.Len(t, both.Data, 1)
	assert.Equal(t, "bob@example.com", both.Data[0].UserEmail)
}
