package achievements

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bizquest/backend/internal/models"
)

// MemoryStore provides an in-memory implementation of Store for testing.
// Gem transactions produced by claims are recorded in GemLedger.
type MemoryStore struct {
	mu           sync.RWMutex
	achievements map[uuid.UUID]models.Achievement
	unlocks      map[uuid.UUID]models.UserAchievement
	users        map[uuid.UUID]struct{ Email, Name string }

	// GemLedger accumulates the transactions a real store would insert.
	GemLedger []models.GemTransaction
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		achievements: make(map[uuid.UUID]models.Achievement),
		unlocks:      make(map[uuid.UUID]models.UserAchievement),
		users:        make(map[uuid.UUID]struct{ Email, Name string }),
	}
}

// AddUser registers user info for history joins.
func (s *MemoryStore) AddUser(id uuid.UUID, email, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = struct{ Email, Name string }{email, name}
}

func (s *MemoryStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []models.Achievement
	for _, a := range s.achievements {
		if a.OrganizationID == orgID {
			list = append(list, a)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (s *MemoryStore) Create(ctx context.Context, a *models.Achievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = uuid.New()
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	s.achievements[a.ID] = *a
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, id, orgID uuid.UUID, p UpdateParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.achievements[id]
	if !ok || a.OrganizationID != orgID {
		return ErrAchievementNotFound
	}
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.Category != nil {
		a.Category = *p.Category
	}
	if p.Points != nil {
		a.Points = *p.Points
	}
	if p.Rarity != nil {
		a.Rarity = *p.Rarity
	}
	if p.MaxProgress != nil {
		a.MaxProgress = *p.MaxProgress
	}
	if p.Icon != nil {
		a.Icon = *p.Icon
	}
	if p.Active != nil {
		a.Active = *p.Active
	}
	if p.TriggerType != nil {
		a.TriggerType = *p.TriggerType
	}
	if p.TriggerValue != nil {
		a.TriggerValue = *p.TriggerValue
	}
	if p.AutoUnlock != nil {
		a.AutoUnlock = *p.AutoUnlock
	}
	a.UpdatedAt = time.Now().UTC()
	s.achievements[id] = a
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id, orgID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.achievements[id]
	if !ok || a.OrganizationID != orgID {
		return ErrAchievementNotFound
	}
	delete(s.achievements, id)
	for uid, ua := range s.unlocks {
		if ua.AchievementID == id {
			delete(s.unlocks, uid)
		}
	}
	return nil
}

func (s *MemoryStore) Claim(ctx context.Context, orgID, userID, achievementID uuid.UUID) (*models.UserAchievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claimLocked(orgID, userID, achievementID)
}

func (s *MemoryStore) claimLocked(orgID, userID, achievementID uuid.UUID) (*models.UserAchievement, error) {
	a, ok := s.achievements[achievementID]
	if !ok || a.OrganizationID != orgID || !a.Active {
		return nil, ErrAchievementNotFound
	}
	for _, ua := range s.unlocks {
		if ua.UserID == userID && ua.AchievementID == achievementID {
			return nil, ErrAlreadyUnlocked
		}
	}
	ua := models.UserAchievement{
		ID:            uuid.New(),
		UserID:        userID,
		AchievementID: achievementID,
		UnlockedAt:    time.Now().UTC(),
	}
	s.unlocks[ua.ID] = ua
	if a.Points > 0 {
		ref := achievementID
		s.GemLedger = append(s.GemLedger, models.GemTransaction{
			ID:          uuid.New(),
			UserID:      userID,
			Amount:      a.Points,
			Reason:      models.GemReasonAchievementUnlock,
			ReferenceID: &ref,
			CreatedAt:   ua.UnlockedAt,
		})
	}
	cp := ua
	return &cp, nil
}

func (s *MemoryStore) History(ctx context.Context, orgID uuid.UUID, achievementID, userID *uuid.UUID) ([]UnlockRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []UnlockRow
	for _, ua := range s.unlocks {
		a, ok := s.achievements[ua.AchievementID]
		if !ok || a.OrganizationID != orgID {
			continue
		}
		if achievementID != nil && ua.AchievementID != *achievementID {
			continue
		}
		if userID != nil && ua.UserID != *userID {
			continue
		}
		row := UnlockRow{
			ID:              ua.ID,
			UserID:          ua.UserID,
			AchievementID:   ua.AchievementID,
			AchievementName: a.Name,
			Points:          a.Points,
			UnlockedAt:      ua.UnlockedAt,
		}
		if u, ok := s.users[ua.UserID]; ok {
			row.UserEmail = u.Email
			row.UserName = u.Name
		}
		list = append(list, row)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UnlockedAt.After(list[j].UnlockedAt) })
	return list, nil
}

func (s *MemoryStore) UnlockAutoTriggered(ctx context.Context, orgID, userID uuid.UUID, completedCount int) ([]models.Achievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var candidates []models.Achievement
	for _, a := range s.achievements {
		if a.OrganizationID != orgID || !a.Active {
			continue
		}
		if a.TriggerType != models.TriggerAuto || !a.AutoUnlock {
			continue
		}
		if a.TriggerValue > completedCount {
			continue
		}
		candidates = append(candidates, a)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].TriggerValue < candidates[j].TriggerValue })

	var unlocked []models.Achievement
	for _, a := range candidates {
		if _, err := s.claimLocked(orgID, userID, a.ID); err != nil {
			continue
		}
		unlocked = append(unlocked, a)
	}
	return unlocked, nil
}
