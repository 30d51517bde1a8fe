package rewards

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bizquest/backend/internal/middleware"
	"github.com/bizquest/backend/internal/models"
	"github.com/bizquest/backend/pkg/queue"
)

type fakeEnqueuer struct {
	payloads []queue.RewardFulfillmentPayload
}

func (f *fakeEnqueuer) EnqueueRewardFulfillment(_ context.Context, p queue.RewardFulfillmentPayload) error {
	f.payloads = append(f.payloads, p)
	return nil
}

func newTestRouter(store Store, q Enqueuer, orgID, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, q, zap.NewNop())
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextOrgID, orgID)
		c.Next()
	})
	r.GET("/rewards", h.List)
	r.POST("/rewards/redeem", h.Redeem)
	r.GET("/admin/rewards-history", h.History)
	r.GET("/admin/rewards", h.ListAdmin)
	r.POST("/admin/rewards", h.Create)
	r.PUT("/admin/rewards/:id", h.Update)
	r.DELETE("/admin/rewards/:id", h.Delete)
	r.PATCH("/admin/rewards/redemptions/:id/status", h.UpdateStatus)
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

func seedReward(t *testing.T, store *MemoryStore, orgID uuid.UUID, title string, cost int, active bool) models.Reward {
	t.Helper()
	rw := &models.Reward{OrganizationID: orgID, Title: title, CostInGems: cost, IsActive: active}
	require.NoError(t, store.Create(context.Background(), rw))
	return *rw
}

func TestRedeemSpendsGemsAndEnqueues(t *testing.T) {
	store := NewMemoryStore()
	orgID := uuid.New()
	userID := uuid.New()
	rw := seedReward(t, store, orgID, "Lunch Voucher", 100, true)
	store.AddGems(userID, 150, models.GemReasonTaskCompleted)

	q := &fakeEnqueuer{}
	r := newTestRouter(store, q, orgID, userID)

	w := doJSON(t, r, http.MethodPost, "/rewards/redeem", gin.H{"rewardId": rw.ID.String()})
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		Data models.UserReward `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.RedemptionPending, body.Data.Status)
	assert.Equal(t, 100, body.Data.GemsSpent)
	assert.Equal(t, 50, store.Balance(userID))

	require.Len(t, q.payloads, 1)
	assert.Equal(t, body.Data.ID, q.payloads[0].RedemptionID)
	assert.Equal(t, userID, q.payloads[0].UserID)
}

func TestRedeemInsufficientBalance(t *testing.T) {
	store := NewMemoryStore()
	orgID := uuid.New()
	userID := uuid.New()
	rw := seedReward(t, store, orgID, "Big Ticket", 1000, true)
	store.AddGems(userID, 999, models.GemReasonTaskCompleted)

	r := newTestRouter(store, &fakeEnqueuer{}, orgID, userID)
	w := doJSON(t, r, http.MethodPost, "/rewards/redeem", gin.H{"rewardId": rw.ID.String()})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 999, store.Balance(userID))
}

func TestConcurrentRedeemsCannotOverdraw(t *testing.T) {
	store := NewMemoryStore()
	orgID := uuid.New()
	userID := uuid.New()
	first := seedReward(t, store, orgID, "First", 60, true)
	second := seedReward(t, store, orgID, "Second", 60, true)
	store.AddGems(userID, 100, models.GemReasonTaskCompleted)

	// Balance checks and debits are serialized per user, so only one of two
	// concurrent 60-gem redemptions against a 100-gem balance can succeed.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []uuid.UUID{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, rewardID uuid.UUID) {
			defer wg.Done()
			_, errs[i] = store.Redeem(context.Background(), orgID, userID, rewardID)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientGems)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 40, store.Balance(userID))
}

func TestRedeemInactiveOrForeignReward(t *testing.T) {
	store := NewMemoryStore()
	orgID := uuid.New()
	userID := uuid.New()
	inactive := seedReward(t, store, orgID, "Retired", 10, false)
	foreign := seedReward(t, store, uuid.New(), "Elsewhere", 10, true)
	store.AddGems(userID, 100, models.GemReasonTaskCompleted)

	r := newTestRouter(store, &fakeEnqueuer{}, orgID, userID)
	for _, id := range []uuid.UUID{inactive.ID, foreign.ID} {
		w := doJSON(t, r, http.MethodPost, "/rewards/redeem", gin.H{"rewardId": id.String()})
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
}

func TestCancelRefundsGems(t *testing.T) {
	store := NewMemoryStore()
	orgID := uuid.New()
	userID := uuid.New()
	rw := seedReward(t, store, orgID, "Voucher", 100, true)
	store.AddGems(userID, 100, models.GemReasonTaskCompleted)

	ur, err := store.Redeem(context.Background(), orgID, userID, rw.ID)
	require.NoError(t, err)
	require.Equal(t, 0, store.Balance(userID))

	r := newTestRouter(store, &fakeEnqueuer{}, orgID, userID)
	w := doJSON(t, r, http.MethodPatch, "/admin/rewards/redemptions/"+ur.ID.String()+"/status",
		gin.H{"status": "cancelled"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100, store.Balance(userID))
}

func TestDeliverSetsTimestampAndIsFinal(t *testing.T) {
	store := NewMemoryStore()
	orgID := uuid.New()
	userID := uuid.New()
	rw := seedReward(t, store, orgID, "Voucher", 50, true)
	store.AddGems(userID, 50, models.GemReasonTaskCompleted)

	ur, err := store.Redeem(context.Background(), orgID, userID, rw.ID)
	require.NoError(t, err)

	r := newTestRouter(store, &fakeEnqueuer{}, orgID, userID)
	path := "/admin/rewards/redemptions/" + ur.ID.String() + "/status"

	w := doJSON(t, r, http.MethodPatch, path, gin.H{"status": "delivered"})
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data models.UserReward `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotNil(t, body.Data.DeliveredAt)

	// A resolved redemption cannot change again.
	w = doJSON(t, r, http.MethodPatch, path, gin.H{"status": "cancelled"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 0, store.Balance(userID))
}

func TestUpdateStatusValidation(t *testing.T) {
	store := NewMemoryStore()
	r := newTestRouter(store, &fakeEnqueuer{}, uuid.New(), uuid.New())

	w := doJSON(t, r, http.MethodPatch, "/admin/rewards/redemptions/"+uuid.New().String()+"/status",
		gin.H{"status": "pending"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPatch, "/admin/rewards/redemptions/"+uuid.New().String()+"/status",
		gin.H{"status": "delivered"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListShowsOnlyActiveRewards(t *testing.T) {
	store := NewMemoryStore()
	orgID := uuid.New()
	active := seedReward(t, store, orgID, "Active", 10, true)
	seedReward(t, store, orgID, "Inactive", 20, false)

	r := newTestRouter(store, &fakeEnqueuer{}, orgID, uuid.New())
	w := doJSON(t, r, http.MethodGet, "/rewards", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []models.Reward `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, active.ID, body.Data[0].ID)
}

func TestHistoryUsesSessionOrg(t *testing.T) {
	store := NewMemoryStore()
	orgA := uuid.New()
	orgB := uuid.New()
	userID := uuid.New()
	store.AddUser(userID, "amy@example.com", "Amy")

	rwA := seedReward(t, store, orgA, "A", 10, true)
	rwB := seedReward(t, store, orgB, "B", 10, true)
	store.AddGems(userID, 100, models.GemReasonTaskCompleted)
	_, err := store.Redeem(context.Background(), orgA, userID, rwA.ID)
	require.NoError(t, err)
	_, err = store.Redeem(context.Background(), orgB, userID, rwB.ID)
	require.NoError(t, err)

	r := newTestRouter(store, &fakeEnqueuer{}, orgA, userID)
	w := doJSON(t, r, http.MethodGet, "/admin/rewards-history", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []RedemptionRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "A", body.Data[0].RewardTitle)
	assert.Equal(t, "amy@example.com", body.Data[0].UserEmail)
}

func TestCreateRejectsNegativeCost(t *testing.T) {
	r := newTestRouter(NewMemoryStore(), &fakeEnqueuer{}, uuid.New(), uuid.New())
	w := doJSON(t, r, http.MethodPost, "/admin/rewards", gin.H{"title": "Bad", "cost_in_gems": -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
