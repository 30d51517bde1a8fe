package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bizquest/backend/pkg/response"
)

const (
	// ContextOrgID is the key for the resolved organization ID in gin context.
	ContextOrgID = "organization_id"
	// ContextOrgRole is the key for the caller's role within that organization.
	ContextOrgRole = "organization_role"
)

// Membership is the narrow organization-resolution collaborator.
type Membership interface {
	GetUserRole(ctx context.Context, orgID, userID uuid.UUID) (string, error)
	ListOrganizationsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// ResolveOrganization resolves the caller's organization and stores it in
// context. Call after JWT. The org comes from the user's membership; an
// X-Organization-ID header may narrow the choice but only to an org the
// caller actually belongs to, never trusted on its own. Requests with no
// resolvable org are rejected with 401 before any handler runs.
func ResolveOrganization(orgs Membership) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet(ContextUserID).(uuid.UUID)

		if header := c.GetHeader("X-Organization-ID"); header != "" {
			orgID, err := uuid.Parse(header)
			if err != nil {
				response.BadRequest(c, "invalid X-Organization-ID")
				c.Abort()
				return
			}
			role, err := orgs.GetUserRole(c.Request.Context(), orgID, userID)
			if err != nil || role == "" {
				response.Unauthorized(c, "no organization context")
				c.Abort()
				return
			}
			c.Set(ContextOrgID, orgID)
			c.Set(ContextOrgRole, role)
			c.Next()
			return
		}

		ids, err := orgs.ListOrganizationsByUser(c.Request.Context(), userID)
		if err != nil || len(ids) == 0 {
			response.Unauthorized(c, "no organization context")
			c.Abort()
			return
		}
		orgID := ids[0]
		role, err := orgs.GetUserRole(c.Request.Context(), orgID, userID)
		if err != nil || role == "" {
			response.Unauthorized(c, "no organization context")
			c.Abort()
			return
		}
		c.Set(ContextOrgID, orgID)
		c.Set(ContextOrgRole, role)
		c.Next()
	}
}

// RequireOrgAdmin allows only organization owners and admins. Call after
// ResolveOrganization.
func RequireOrgAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, ok := c.Get(ContextOrgRole)
		if !ok {
			response.Unauthorized(c, "no organization context")
			c.Abort()
			return
		}
		role, _ := roleVal.(string)
		if role != "owner" && role != "admin" {
			response.Forbidden(c, "organization admin required")
			c.Abort()
			return
		}
		c.Next()
	}
}
