package accesscodes

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bizquest/backend/internal/models"
)

// MemoryStore provides an in-memory implementation of Store for testing.
type MemoryStore struct {
	mu    sync.RWMutex
	codes map[string]*models.AccessCode
	users map[uuid.UUID]struct{ Email, Name string }
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		codes: make(map[string]*models.AccessCode),
		users: make(map[uuid.UUID]struct{ Email, Name string }),
	}
}

// AddUser registers user info for history joins.
func (s *MemoryStore) AddUser(id uuid.UUID, email, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = struct{ Email, Name string }{email, name}
}

func (s *MemoryStore) Create(ctx context.Context, code string) (*models.AccessCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code = strings.ToUpper(code)
	if _, ok := s.codes[code]; ok {
		return nil, &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	}
	ac := &models.AccessCode{
		ID:        uuid.New(),
		Code:      code,
		CreatedAt: time.Now().UTC(),
	}
	s.codes[code] = ac
	cp := *ac
	return &cp, nil
}

func (s *MemoryStore) GetByCode(ctx context.Context, code string) (*models.AccessCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ac, ok := s.codes[strings.ToUpper(code)]
	if !ok {
		return nil, ErrCodeNotFound
	}
	cp := *ac
	return &cp, nil
}

func (s *MemoryStore) CodeExists(ctx context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.codes[strings.ToUpper(code)]
	return ok, nil
}

func (s *MemoryStore) MarkUsed(ctx context.Context, code string, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ac, ok := s.codes[strings.ToUpper(code)]
	if !ok {
		return ErrCodeNotFound
	}
	if ac.IsUsed {
		return ErrCodeUsed
	}
	now := time.Now().UTC()
	ac.IsUsed = true
	ac.UsedByUserID = &userID
	ac.UsedAt = &now
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]HistoryRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []HistoryRow
	for _, ac := range s.codes {
		row := HistoryRow{
			ID:           ac.ID,
			Code:         ac.Code,
			IsUsed:       ac.IsUsed,
			CreatedAt:    ac.CreatedAt,
			UsedAt:       ac.UsedAt,
			UsedByUserID: ac.UsedByUserID,
		}
		if ac.UsedByUserID != nil {
			if u, ok := s.users[*ac.UsedByUserID]; ok {
				row.UsedByEmail = u.Email
				row.UsedByName = u.Name
			}
		}
		list = append(list, row)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}
