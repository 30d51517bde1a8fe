package organizations

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bizquest/backend/internal/models"
)

type memoryMembership struct {
	id      uuid.UUID
	userID  uuid.UUID
	role    string
	addedAt time.Time
}

// MemoryStore provides an in-memory implementation of Store for testing.
// A duplicate slug on Create returns a unique-violation pgconn error, the
// same class a real database produces.
type MemoryStore struct {
	mu      sync.RWMutex
	orgs    map[uuid.UUID]models.Organization
	members map[uuid.UUID][]memoryMembership
	users   map[uuid.UUID]struct{ Email, Name string }
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orgs:    make(map[uuid.UUID]models.Organization),
		members: make(map[uuid.UUID][]memoryMembership),
		users:   make(map[uuid.UUID]struct{ Email, Name string }),
	}
}

// AddUserInfo registers user info for member listings.
func (s *MemoryStore) AddUserInfo(id uuid.UUID, email, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = struct{ Email, Name string }{email, name}
}

func (s *MemoryStore) Create(ctx context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orgs {
		if o.Slug == org.Slug {
			return &pgconn.PgError{Code: "23505", ConstraintName: "organizations_slug_key"}
		}
	}
	org.ID = uuid.New()
	now := time.Now().UTC()
	org.CreatedAt = now
	org.UpdatedAt = now
	s.orgs[org.ID] = *org
	return nil
}

func (s *MemoryStore) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orgs {
		if o.Slug == slug {
			cp := o
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *MemoryStore) AddUser(ctx context.Context, orgID, userID uuid.UUID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.members[orgID] {
		if m.userID == userID {
			s.members[orgID][i].role = role
			return nil
		}
	}
	s.members[orgID] = append(s.members[orgID], memoryMembership{
		id:      uuid.New(),
		userID:  userID,
		role:    role,
		addedAt: time.Now().UTC(),
	})
	return nil
}

func (s *MemoryStore) GetUserRole(ctx context.Context, orgID, userID uuid.UUID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members[orgID] {
		if m.userID == userID {
			return m.role, nil
		}
	}
	return "", pgx.ErrNoRows
}

func (s *MemoryStore) ListOrganizationsForUser(ctx context.Context, userID uuid.UUID) ([]*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []*models.Organization
	for orgID, members := range s.members {
		for _, m := range members {
			if m.userID == userID {
				o := s.orgs[orgID]
				cp := o
				list = append(list, &cp)
			}
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (s *MemoryStore) ListMembers(ctx context.Context, orgID uuid.UUID) ([]Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []Member
	for _, m := range s.members[orgID] {
		row := Member{
			ID:      m.id,
			UserID:  m.userID,
			Role:    m.role,
			AddedAt: m.addedAt,
		}
		if u, ok := s.users[m.userID]; ok {
			row.Email = u.Email
			row.FullName = u.Name
		}
		list = append(list, row)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].AddedAt.Before(list[j].AddedAt) })
	return list, nil
}
