package auth

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bizquest/backend/internal/accesscodes"
	"github.com/bizquest/backend/internal/models"
)

// MemoryStore provides an in-memory implementation of Store for testing.
// Access codes are tracked alongside users so registration consumption can
// be asserted without a database.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]models.User
	codes map[string]*memoryCode // keyed by uppercased code
}

type memoryCode struct {
	used         bool
	usedByUserID uuid.UUID
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[uuid.UUID]models.User),
		codes: make(map[string]*memoryCode),
	}
}

// AddCode seeds an unused access code.
func (s *MemoryStore) AddCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[strings.ToUpper(code)] = &memoryCode{}
}

// CodeUsedBy reports who consumed a code, if anyone.
func (s *MemoryStore) CodeUsedBy(code string) (uuid.UUID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.codes[strings.ToUpper(code)]
	if !ok || !c.used {
		return uuid.Nil, false
	}
	return c.usedByUserID, true
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := u
	return &cp, nil
}

func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *MemoryStore) List(ctx context.Context) ([]models.UserPublic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []models.UserPublic
	for _, u := range s.users {
		list = append(list, u.ToPublic())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].FullName < list[j].FullName })
	return list, nil
}

func (s *MemoryStore) CreateWithAccessCode(ctx context.Context, email, passwordHash, fullName string, role models.Role, code string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return nil, ErrEmailTaken
		}
	}
	c, ok := s.codes[strings.ToUpper(code)]
	if !ok {
		return nil, accesscodes.ErrCodeNotFound
	}
	if c.used {
		return nil, accesscodes.ErrCodeUsed
	}

	now := time.Now().UTC()
	u := models.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  passwordHash,
		FullName:  fullName,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[u.ID] = u
	c.used = true
	c.usedByUserID = u.ID
	cp := u
	return &cp, nil
}
