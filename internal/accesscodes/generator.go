package accesscodes

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/bizquest/backend/internal/models"
	"github.com/bizquest/backend/pkg/database"
)

// MaxGenerateAttempts bounds collision retries when minting a code.
const MaxGenerateAttempts = 10

// ErrGenerateExhausted means every attempt collided with an existing code.
var ErrGenerateExhausted = errors.New("exhausted code generation attempts")

const (
	codeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeDigits  = "0123456789"
)

// Generator mints unique access codes (5 letters followed by 4 digits).
type Generator struct {
	store  Store
	codeFn func() (string, error)
}

// NewGenerator creates a code generator backed by the given store.
func NewGenerator(store Store) *Generator {
	return &Generator{store: store, codeFn: randomCode}
}

// Generate mints a new unused code, retrying on collision up to
// MaxGenerateAttempts. The pre-check against the store is a fast path; the
// unique constraint at insert time is the source of truth, and a
// unique-violation insert also counts as a collision.
func (g *Generator) Generate(ctx context.Context) (*models.AccessCode, error) {
	for attempt := 0; attempt < MaxGenerateAttempts; attempt++ {
		code, err := g.codeFn()
		if err != nil {
			return nil, fmt.Errorf("random code: %w", err)
		}
		exists, err := g.store.CodeExists(ctx, code)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		ac, err := g.store.Create(ctx, code)
		if database.IsUniqueViolation(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return ac, nil
	}
	return nil, ErrGenerateExhausted
}

// randomCode returns 5 random uppercase letters followed by 4 random digits.
func randomCode() (string, error) {
	buf := make([]byte, 9)
	for i := 0; i < 5; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeLetters))))
		if err != nil {
			return "", err
		}
		buf[i] = codeLetters[n.Int64()]
	}
	for i := 5; i < 9; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeDigits))))
		if err != nil {
			return "", err
		}
		buf[i] = codeDigits[n.Int64()]
	}
	return string(buf), nil
}
