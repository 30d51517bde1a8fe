package tasks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bizquest/backend/internal/models"
)

// MemoryStore provides an in-memory implementation of Store for testing.
// Gem awards from completions land in GemLedger.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]models.Task

	GemLedger []models.GemTransaction
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[uuid.UUID]models.Task)}
}

func (s *MemoryStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []models.Task
	for _, t := range s.tasks {
		if t.OrganizationID == orgID {
			list = append(list, t)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (s *MemoryStore) Create(ctx context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = uuid.New()
	t.Status = models.TaskOpen
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.tasks[t.ID] = *t
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, id, orgID uuid.UUID, p UpdateParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.OrganizationID != orgID {
		return ErrTaskNotFound
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.GemsReward != nil {
		t.GemsReward = *p.GemsReward
	}
	if p.AssignedTo != nil {
		t.AssignedTo = p.AssignedTo
	}
	t.UpdatedAt = time.Now().UTC()
	s.tasks[id] = t
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id, orgID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.OrganizationID != orgID {
		return ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *MemoryStore) Complete(ctx context.Context, id, orgID, userID uuid.UUID) (*models.Task, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.OrganizationID != orgID {
		return nil, 0, ErrTaskNotFound
	}
	if t.Status != models.TaskOpen {
		return nil, 0, ErrTaskAlreadyCompleted
	}
	now := time.Now().UTC()
	t.Status = models.TaskCompleted
	t.CompletedAt = &now
	t.AssignedTo = &userID
	t.UpdatedAt = now
	s.tasks[id] = t

	if t.GemsReward > 0 {
		ref := t.ID
		s.GemLedger = append(s.GemLedger, models.GemTransaction{
			ID:          uuid.New(),
			UserID:      userID,
			Amount:      t.GemsReward,
			Reason:      models.GemReasonTaskCompleted,
			ReferenceID: &ref,
			CreatedAt:   now,
		})
	}

	count := 0
	for _, other := range s.tasks {
		if other.OrganizationID == orgID && other.Status == models.TaskCompleted &&
			other.AssignedTo != nil && *other.AssignedTo == userID {
			count++
		}
	}
	cp := t
	return &cp, count, nil
}
