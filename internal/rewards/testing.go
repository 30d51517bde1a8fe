package rewards

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bizquest/backend/internal/models"
)

// MemoryStore provides an in-memory implementation of Store for testing.
// Gem transactions produced by redemptions and refunds land in GemLedger;
// seed balances with AddGems.
type MemoryStore struct {
	mu          sync.RWMutex
	rewards     map[uuid.UUID]models.Reward
	redemptions map[uuid.UUID]models.UserReward
	users       map[uuid.UUID]struct{ Email, Name string }

	GemLedger []models.GemTransaction
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rewards:     make(map[uuid.UUID]models.Reward),
		redemptions: make(map[uuid.UUID]models.UserReward),
		users:       make(map[uuid.UUID]struct{ Email, Name string }),
	}
}

// AddUser registers user info for history joins.
func (s *MemoryStore) AddUser(id uuid.UUID, email, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = struct{ Email, Name string }{email, name}
}

// AddGems seeds a user's gem balance.
func (s *MemoryStore) AddGems(userID uuid.UUID, amount int, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GemLedger = append(s.GemLedger, models.GemTransaction{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	})
}

// Balance sums a user's gem transactions.
func (s *MemoryStore) Balance(userID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balanceLocked(userID)
}

func (s *MemoryStore) balanceLocked(userID uuid.UUID) int {
	total := 0
	for _, tx := range s.GemLedger {
		if tx.UserID == userID {
			total += tx.Amount
		}
	}
	return total
}

func (s *MemoryStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Reward, error) {
	return s.listOrg(orgID, false)
}

func (s *MemoryStore) ListActiveByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Reward, error) {
	return s.listOrg(orgID, true)
}

func (s *MemoryStore) listOrg(orgID uuid.UUID, activeOnly bool) ([]models.Reward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []models.Reward
	for _, r := range s.rewards {
		if r.OrganizationID != orgID {
			continue
		}
		if activeOnly && !r.IsActive {
			continue
		}
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CostInGems < list[j].CostInGems })
	return list, nil
}

func (s *MemoryStore) Create(ctx context.Context, r *models.Reward) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = uuid.New()
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	s.rewards[r.ID] = *r
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, id, orgID uuid.UUID, p UpdateParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rewards[id]
	if !ok || r.OrganizationID != orgID {
		return ErrRewardNotFound
	}
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.CostInGems != nil {
		r.CostInGems = *p.CostInGems
	}
	if p.Icon != nil {
		r.Icon = *p.Icon
	}
	if p.IsActive != nil {
		r.IsActive = *p.IsActive
	}
	r.UpdatedAt = time.Now().UTC()
	s.rewards[id] = r
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id, orgID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rewards[id]
	if !ok || r.OrganizationID != orgID {
		return ErrRewardNotFound
	}
	delete(s.rewards, id)
	return nil
}

func (s *MemoryStore) Redeem(ctx context.Context, orgID, userID, rewardID uuid.UUID) (*models.UserReward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rewards[rewardID]
	if !ok || r.OrganizationID != orgID || !r.IsActive {
		return nil, ErrRewardNotFound
	}
	if s.balanceLocked(userID) < r.CostInGems {
		return nil, ErrInsufficientGems
	}
	ur := models.UserReward{
		ID:        uuid.New(),
		UserID:    userID,
		RewardID:  rewardID,
		GemsSpent: r.CostInGems,
		Status:    models.RedemptionPending,
		ClaimedAt: time.Now().UTC(),
	}
	s.redemptions[ur.ID] = ur
	ref := ur.ID
	s.GemLedger = append(s.GemLedger, models.GemTransaction{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      -r.CostInGems,
		Reason:      models.GemReasonRewardRedemption,
		ReferenceID: &ref,
		CreatedAt:   ur.ClaimedAt,
	})
	cp := ur
	return &cp, nil
}

func (s *MemoryStore) History(ctx context.Context, orgID uuid.UUID, rewardID, userID *uuid.UUID) ([]RedemptionRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []RedemptionRow
	for _, ur := range s.redemptions {
		r, ok := s.rewards[ur.RewardID]
		if !ok || r.OrganizationID != orgID {
			continue
		}
		if rewardID != nil && ur.RewardID != *rewardID {
			continue
		}
		if userID != nil && ur.UserID != *userID {
			continue
		}
		row := RedemptionRow{
			ID:          ur.ID,
			UserID:      ur.UserID,
			RewardID:    ur.RewardID,
			RewardTitle: r.Title,
			GemsSpent:   ur.GemsSpent,
			Status:      ur.Status,
			ClaimedAt:   ur.ClaimedAt,
			DeliveredAt: ur.DeliveredAt,
		}
		if u, ok := s.users[ur.UserID]; ok {
			row.UserEmail = u.Email
			row.UserName = u.Name
		}
		list = append(list, row)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ClaimedAt.After(list[j].ClaimedAt) })
	return list, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, redemptionID uuid.UUID, status string) (*models.UserReward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ur, ok := s.redemptions[redemptionID]
	if !ok {
		return nil, ErrRedemptionNotFound
	}
	if ur.Status != models.RedemptionPending {
		return nil, ErrInvalidTransition
	}
	ur.Status = status
	if status == models.RedemptionDelivered {
		now := time.Now().UTC()
		ur.DeliveredAt = &now
	}
	if status == models.RedemptionCancelled {
		ref := ur.ID
		s.GemLedger = append(s.GemLedger, models.GemTransaction{
			ID:          uuid.New(),
			UserID:      ur.UserID,
			Amount:      ur.GemsSpent,
			Reason:      models.GemReasonRedemptionRefund,
			ReferenceID: &ref,
			CreatedAt:   time.Now().UTC(),
		})
	}
	s.redemptions[redemptionID] = ur
	cp := ur
	return &cp, nil
}
