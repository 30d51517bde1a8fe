package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizquest/backend/pkg/response"
)

type fakeMembership struct {
	roles map[uuid.UUID]map[uuid.UUID]string // org -> user -> role
	order []uuid.UUID                        // org list order per ListOrganizationsByUser
}

func (f *fakeMembership) GetUserRole(_ context.Context, orgID, userID uuid.UUID) (string, error) {
	return f.roles[orgID][userID], nil
}

func (f *fakeMembership) ListOrganizationsByUser(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, orgID := range f.order {
		if f.roles[orgID][userID] != "" {
			ids = append(ids, orgID)
		}
	}
	return ids, nil
}

func orgRouter(m Membership, userID uuid.UUID, adminOnly bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserID, userID)
		c.Next()
	})
	handlers := []gin.HandlerFunc{ResolveOrganization(m)}
	if adminOnly {
		handlers = append(handlers, RequireOrgAdmin())
	}
	handlers = append(handlers, func(c *gin.Context) {
		response.OK(c, gin.H{"org": c.MustGet(ContextOrgID).(uuid.UUID).String()})
	})
	r.GET("/probe", handlers...)
	return r
}

func probe(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if header != "" {
		req.Header.Set("X-Organization-ID", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestResolveOrganizationDefaultsToFirstMembership(t *testing.T) {
	userID := uuid.New()
	orgA := uuid.New()
	orgB := uuid.New()
	m := &fakeMembership{
		roles: map[uuid.UUID]map[uuid.UUID]string{
			orgA: {userID: "member"},
			orgB: {userID: "owner"},
		},
		order: []uuid.UUID{orgA, orgB},
	}

	w := probe(orgRouter(m, userID, false), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), orgA.String())
}

func TestResolveOrganizationHeaderSelectsMembership(t *testing.T) {
	userID := uuid.New()
	orgA := uuid.New()
	orgB := uuid.New()
	m := &fakeMembership{
		roles: map[uuid.UUID]map[uuid.UUID]string{
			orgA: {userID: "member"},
			orgB: {userID: "owner"},
		},
		order: []uuid.UUID{orgA, orgB},
	}
	r := orgRouter(m, userID, false)

	w := probe(r, orgB.String())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), orgB.String())

	// Header naming an org the caller does not belong to is rejected.
	w = probe(r, uuid.New().String())
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = probe(r, "not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResolveOrganizationNoMembership(t *testing.T) {
	m := &fakeMembership{roles: map[uuid.UUID]map[uuid.UUID]string{}}
	w := probe(orgRouter(m, uuid.New(), false), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireOrgAdmin(t *testing.T) {
	userID := uuid.New()
	org := uuid.New()

	for role, want := range map[string]int{
		"owner":  http.StatusOK,
		"admin":  http.StatusOK,
		"member": http.StatusForbidden,
	} {
		m := &fakeMembership{
			roles: map[uuid.UUID]map[uuid.UUID]string{org: {userID: role}},
			order: []uuid.UUID{org},
		}
		w := probe(orgRouter(m, userID, true), "")
		assert.Equal(t, want, w.Code, "role %s", role)
	}
}
