package organizations

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

	"github.com/bizquest/backend/internal/middleware"
	"github.com/bizquest/backend/internal/models"
)

func newTestRouter(store Store, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Next()
	})
	r.GET("/organizations", h.ListMyOrganizations)
	r.POST("/organizations", h.CreateOrganization)
	r.POST("/organizations/join", h.JoinOrganization)
	r.GET("/organizations/:id/members", h.ListMembers)
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

func TestCreateOrganizationAddsOwner(t *testing.T) {
	store := NewMemoryStore()
	userID := uuid.New()
	r := newTestRouter(store, userID)

	w := doJSON(t, r, http.MethodPost, "/organizations", gin.H{"name": "Acme", "slug": "acme"})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data models.Organization `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "acme", body.Data.Slug)

	role, err := store.GetUserRole(context.Background(), body.Data.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, models.OrgRoleOwner, role)
}

func TestCreateOrganizationDuplicateSlug(t *testing.T) {
	store := NewMemoryStore()
	r := newTestRouter(store, uuid.New())

	w := doJSON(t, r, http.MethodPost, "/organizations", gin.H{"name": "Acme", "slug": "acme"})
	require.Equal(t, http.StatusOK, w.Code)

	// The unique violation from the store maps to a conflict, not a 500.
	w = doJSON(t, r, http.MethodPost, "/organizations", gin.H{"name": "Acme Two", "slug": "acme"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateOrganizationRejectsBadSlug(t *testing.T) {
	r := newTestRouter(NewMemoryStore(), uuid.New())
	for _, slug := range []string{"-leading", "has space", "UPPER!", "x"} {
		w := doJSON(t, r, http.MethodPost, "/organizations", gin.H{"name": "Acme", "slug": slug})
		assert.Equal(t, http.StatusBadRequest, w.Code, "slug %q", slug)
	}
}

func TestJoinOrganization(t *testing.T) {
	store := NewMemoryStore()
	owner := uuid.New()
	joiner := uuid.New()

	ownerRouter := newTestRouter(store, owner)
	w := doJSON(t, ownerRouter, http.MethodPost, "/organizations", gin.H{"name": "Acme", "slug": "acme"})
	require.Equal(t, http.StatusOK, w.Code)

	r := newTestRouter(store, joiner)
	w = doJSON(t, r, http.MethodPost, "/organizations/join", gin.H{"slug": "acme"})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data models.Organization `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	role, err := store.GetUserRole(context.Background(), body.Data.ID, joiner)
	require.NoError(t, err)
	assert.Equal(t, models.OrgRoleMember, role)

	w = doJSON(t, r, http.MethodPost, "/organizations/join", gin.H{"slug": "nowhere"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListMembersRequiresMembership(t *testing.T) {
	store := NewMemoryStore()
	owner := uuid.New()
	store.AddUserInfo(owner, "owner@example.com", "Owner")

	ownerRouter := newTestRouter(store, owner)
	w := doJSON(t, ownerRouter, http.MethodPost, "/organizations", gin.H{"name": "Acme", "slug": "acme"})
	require.Equal(t, http.StatusOK, w.Code)
	var created struct {
		Data models.Organization `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, ownerRouter, http.MethodGet, "/organizations/"+created.Data.ID.String()+"/members", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var members struct {
		Data []Member `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &members))
	require.Len(t, members.Data, 1)
	assert.Equal(t, "owner@example.com", members.Data[0].Email)

	outsider := newTestRouter(store, uuid.New())
	w = doJSON(t, outsider, http.MethodGet, "/organizations/"+created.Data.ID.String()+"/members", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
