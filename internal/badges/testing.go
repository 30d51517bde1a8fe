package badges

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bizquest/backend/internal/models"
)

// MemoryStore provides an in-memory implementation of Store for testing.
type MemoryStore struct {
	mu      sync.RWMutex
	badges  map[uuid.UUID]models.Badge
	unlocks map[uuid.UUID]models.UserBadge
	users   map[uuid.UUID]struct{ Email, Name string }
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		badges:  make(map[uuid.UUID]models.Badge),
		unlocks: make(map[uuid.UUID]models.UserBadge),
		users:   make(map[uuid.UUID]struct{ Email, Name string }),
	}
}

// AddUser registers user info for history joins.
func (s *MemoryStore) AddUser(id uuid.UUID, email, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = struct{ Email, Name string }{email, name}
}

func (s *MemoryStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Badge, error) {
	return s.listOrg(orgID, false)
}

func (s *MemoryStore) ListActiveByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Badge, error) {
	return s.listOrg(orgID, true)
}

func (s *MemoryStore) listOrg(orgID uuid.UUID, activeOnly bool) ([]models.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []models.Badge
	for _, b := range s.badges {
		if b.OrganizationID != orgID {
			continue
		}
		if activeOnly && !b.IsActive {
			continue
		}
		list = append(list, b)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (s *MemoryStore) Create(ctx context.Context, b *models.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = uuid.New()
	b.CreatedAt = time.Now().UTC()
	s.badges[b.ID] = *b
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, id, orgID uuid.UUID, p UpdateParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.badges[id]
	if !ok || b.OrganizationID != orgID {
		return ErrBadgeNotFound
	}
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.Icon != nil {
		b.Icon = *p.Icon
	}
	if p.IsActive != nil {
		b.IsActive = *p.IsActive
	}
	s.badges[id] = b
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id, orgID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.badges[id]
	if !ok || b.OrganizationID != orgID {
		return ErrBadgeNotFound
	}
	delete(s.badges, id)
	for uid, ub := range s.unlocks {
		if ub.BadgeID == id {
			delete(s.unlocks, uid)
		}
	}
	return nil
}

func (s *MemoryStore) UnlockedBadgeIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make(map[uuid.UUID]bool)
	for _, ub := range s.unlocks {
		if ub.UserID == userID {
			ids[ub.BadgeID] = true
		}
	}
	return ids, nil
}

func (s *MemoryStore) Claim(ctx context.Context, orgID, userID, badgeID uuid.UUID) (*models.UserBadge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.badges[badgeID]
	if !ok || b.OrganizationID != orgID {
		return nil, ErrBadgeNotFound
	}
	for _, ub := range s.unlocks {
		if ub.UserID == userID && ub.BadgeID == badgeID {
			return nil, ErrAlreadyClaimed
		}
	}
	ub := models.UserBadge{
		ID:         uuid.New(),
		UserID:     userID,
		BadgeID:    badgeID,
		UnlockedAt: time.Now().UTC(),
	}
	s.unlocks[ub.ID] = ub
	cp := ub
	return &cp, nil
}

func (s *MemoryStore) History(ctx context.Context, orgID uuid.UUID, badgeID, userID *uuid.UUID) ([]UnlockRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []UnlockRow
	for _, ub := range s.unlocks {
		b, ok := s.badges[ub.BadgeID]
		if !ok || b.OrganizationID != orgID {
			continue
		}
		if badgeID != nil && ub.BadgeID != *badgeID {
			continue
		}
		if userID != nil && ub.UserID != *userID {
			continue
		}
		row := UnlockRow{
			ID:         ub.ID,
			UserID:     ub.UserID,
			BadgeID:    ub.BadgeID,
			BadgeName:  b.Name,
			UnlockedAt: ub.UnlockedAt,
		}
		if u, ok := s.users[ub.UserID]; ok {
			row.UserEmail = u.Email
			row.UserName = u.Name
		}
		list = append(list, row)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UnlockedAt.After(list[j].UnlockedAt) })
	return list, nil
}
