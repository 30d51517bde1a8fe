package achievements

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

func newTestRouter(store Store, orgID, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, zap.NewNop())
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextOrgID, orgID)
		c.Next()
	})
	r.GET("/admin/achievements", h.List)
	r.POST("/admin/achievements", h.Create)
	r.PUT("/admin/achievements/:id", h.Update)
	r.DELETE("/admin/achievements/:id", h.Delete)
	r.GET("/admin/achievements-history", h.History)
	r.POST("/achievements/claim", h.Claim)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedAchievement(t *testing.T, store *MemoryStore, orgID uuid.UUID, name string, points int) models.Achievement {
	t.Helper()
	a := &models.Achievement{
		OrganizationID: orgID,
		Name:           name,
		Points:         points,
		Rarity:         "common",
		MaxProgress:    1,
		Active:         true,
		TriggerType:    models.TriggerManual,
	}
	require.NoError(t, store.Create(context.Background(), a))
	return *a
}

func TestCreateAppliesTriggerDefaults(t *testing.T) {
	store := NewMemoryStore()
	r := newTestRouter(store, uuid.New(), uuid.New())

	w := doJSON(t, r, http.MethodPost, "/admin/achievements", gin.H{"name": "Deal Maker", "points": 50})
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		Data models.Achievement `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.TriggerManual, body.Data.TriggerType)
	assert.Equal(t, 0, body.Data.TriggerValue)
	assert.False(t, body.Data.AutoUnlock)
	assert.True(t, body.Data.Active)
	assert.Equal(t, "common", body.Data.Rarity)
}

func TestCreateRejectsUnknownTriggerType(t *testing.T) {
	r := newTestRouter(NewMemoryStore(), uuid.New(), uuid.New())
	w := doJSON(t, r, http.MethodPost, "/admin/achievements", gin.H{"name": "X", "trigger_type": "cron"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClaimAwardsPointsOnce(t *testing.T) {
	store := NewMemoryStore()
	orgID := uuid.New()
	userID := uuid.New()
	a := seedAchievement(t, store, orgID, "Deal Maker", 50)
	r := newTestRouter(store, orgID, userID)

	body := gin.H{"userId": userID.String(), "achievementId": a.ID.String()}
	w := doJSON(t, r, http.MethodPost, "/achievements/claim", body)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, store.GemLedger, 1)
	tx := store.GemLedger[0]
	assert.Equal(t, userID, tx.UserID)
	assert.Equal(t, 50, tx.Amount)
	assert.Equal(t, models.GemReasonAchievementUnlock, tx.Reason)

	w = doJSON(t, r, http.MethodPost, "/achievements/claim", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Len(t, store.GemLedger, 1)
}

func TestClaimZeroPointAchievementAddsNoTransaction(t *testing.T) {
	store := NewMemoryStore()
	orgID := uuid.New()
	userID := uuid.New()
	a := seedAchievement(t, store, orgID, "Participation", 0)

	_, err := store.Claim(context.Background(), orgID, userID, a.ID)
	require.NoError(t, err)
	assert.Empty(t, store.GemLedger)
}

func TestClaimIsTenantScoped(t *testing.T) {
	store := NewMemoryStore()
	theirs := seedAchievement(t, store, uuid.New(), "Theirs", 500)
	userID := uuid.New()
	r := newTestRouter(store, uuid.New(), userID)

	body := gin.H{"userId": userID.String(), "achievementId": theirs.ID.String()}
	w := doJSON(t, r, http.MethodPost, "/achievements/claim", body)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, store.GemLedger)

	rows, err := store.History(context.Background(), theirs.OrganizationID, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestClaimUnknownAchievement(t *testing.T) {
	r := newTestRouter(NewMemoryStore(), uuid.New(), uuid.New())
	body := gin.H{"userId": uuid.New().String(), "achievementId": uuid.New().String()}
	w := doJSON(t, r, http.MethodPost, "/achievements/claim", body)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteRemovesUnlocks(t *testing.T) {
	store := NewMemoryStore()
	orgID := uuid.New()
	userID := uuid.New()
	a := seedAchievement(t, store, orgID, "Gone", 10)
	_, err := store.Claim(context.Background(), orgID, userID, a.ID)
	require.NoError(t, err)

	r := newTestRouter(store, orgID, userID)
	w := doJSON(t, r, http.MethodDelete, "/admin/achievements/"+a.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	rows, err := store.History(context.Background(), orgID, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDeleteIsTenantScoped(t *testing.T) {
	store := NewMemoryStore()
	a := seedAchievement(t, store, uuid.New(), "Theirs", 10)
	r := newTestRouter(store, uuid.New(), uuid.New())
	w := doJSON(t, r, http.MethodDelete, "/admin/achievements/"+a.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnlockAutoTriggered(t *testing.T) {
	store := NewMemoryStore()
	orgID := uuid.New()
	userID := uuid.New()

	auto := func(name string, threshold, points int) models.Achievement {
		a := &models.Achievement{
			OrganizationID: orgID,
			Name:           name,
			Points:         points,
			Active:         true,
			TriggerType:    models.TriggerAuto,
			TriggerValue:   threshold,
			AutoUnlock:     true,
		}
		require.NoError(t, store.Create(context.Background(), a))
		return *a
	}
	first := auto("First Task", 1, 10)
	fifth := auto("Five Tasks", 5, 50)
	seedAchievement(t, store, orgID, "Manual Only", 100)

	unlocked, err := store.UnlockAutoTriggered(context.Background(), orgID, userID, 1)
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	assert.Equal(t, first.ID, unlocked[0].ID)

	// Reaching the next threshold unlocks only the new one.
	unlocked, err = store.UnlockAutoTriggered(context.Background(), orgID, userID, 5)
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	assert.Equal(t, fifth.ID, unlocked[0].ID)

	// Idempotent once everything is unlocked.
	unlocked, err = store.UnlockAutoTriggered(context.Background(), orgID, userID, 9)
	require.NoError(t, err)
	assert.Empty(t, unlocked)

	// Both unlocks credited gems.
	total := 0
	for _, tx := range store.GemLedger {
		total += tx.Amount
	}
	assert.Equal(t, 60, total)
}

func TestHistoryFilters(t *testing.T) {
	store := NewMemoryStore()
	orgID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()
	store.AddUser(alice, "alice@example.com", "Alice")
	store.AddUser(bob, "bob@example.com", "Bob")
	a1 := seedAchievement(t, store, orgID, "One", 10)
	a2 := seedAchievement(t, store, orgID, "Two", 20)

	for _, pair := range []struct {
		user uuid.UUID
		ach  uuid.UUID
	}{{alice, a1.ID}, {alice, a2.ID}, {bob, a1.ID}} {
		_, err := store.Claim(context.Background(), orgID, pair.user, pair.ach)
		require.NoError(t, err)
	}

	r := newTestRouter(store, orgID, alice)

	w := doJSON(t, r, http.MethodGet, "/admin/achievements-history?userId="+alice.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var byUser struct {
		Data []UnlockRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &byUser))
	assert.Len(t, byUser.Data, 2)

	w = doJSON(t, r, http.MethodGet, "/admin/achievements-history?achievementId="+a1.ID.String()+"&userId="+bob.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var both struct {
		Data []UnlockRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &both))
	require.Len(t, both.Data, 1)
	assert.Equal(t, "Bob", both.Data[0].UserName)
	assert.Equal(t, 10, both.Data[0].Points)
}
