package gems

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
	mu  sync.RWMutex
	txs []models.GemTransaction
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Add appends a transaction to the ledger.
func (s *MemoryStore) Add(userID uuid.UUID, amount int, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, models.GemTransaction{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *MemoryStore) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, tx := range s.txs {
		if tx.UserID == userID {
			total += tx.Amount
		}
	}
	return total, nil
}

func (s *MemoryStore) List(ctx context.Context, userID uuid.UUID, limit int) ([]models.GemTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var list []models.GemTransaction
	for _, tx := range s.txs {
		if tx.UserID == userID {
			list = append(list, tx)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}
