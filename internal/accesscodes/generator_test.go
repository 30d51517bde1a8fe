package accesscodes

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codeFormat = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}$`)

func TestRandomCodeFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := randomCode()
		require.NoError(t, err)
		assert.Regexp(t, codeFormat, code)
	}
}

func TestGenerateMintsUnusedCode(t *testing.T) {
	store := NewMemoryStore()
	gen := NewGenerator(store)

	ac, err := gen.Generate(context.Background())
	require.NoError(t, err)
	assert.Regexp(t, codeFormat, ac.Code)
	assert.False(t, ac.IsUsed)

	got, err := store.GetByCode(context.Background(), ac.Code)
	require.NoError(t, err)
	assert.Equal(t, ac.Code, got.Code)
}

func TestGenerateRetriesOnCollision(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Create(context.Background(), "AAAAA1111")
	require.NoError(t, err)

	codes := []string{"AAAAA1111", "AAAAA1111", "BBBBB2222"}
	i := 0
	gen := NewGenerator(store)
	gen.codeFn = func() (string, error) {
		code := codes[i]
		i++
		return code, nil
	}

	ac, err := gen.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BBBBB2222", ac.Code)
	assert.Equal(t, 3, i)
}

func TestGenerateExhaustsAfterMaxAttempts(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Create(context.Background(), "AAAAA1111")
	require.NoError(t, err)

	calls := 0
	gen := NewGenerator(store)
	gen.codeFn = func() (string, error) {
		calls++
		return "AAAAA1111", nil
	}

	_, err = gen.Generate(context.Background())
	assert.ErrorIs(t, err, ErrGenerateExhausted)
	assert.Equal(t, MaxGenerateAttempts, calls)
}

func TestMarkUsedFirstWins(t *testing.T) {
	store := NewMemoryStore()
	gen := NewGenerator(store)
	ac, err := gen.Generate(context.Background())
	require.NoError(t, err)

	userA := newUUID(t)
	userB := newUUID(t)

	require.NoError(t, store.MarkUsed(context.Background(), ac.Code, userA))
	err = store.MarkUsed(context.Background(), ac.Code, userB)
	assert.ErrorIs(t, err, ErrCodeUsed)

	got, err := store.GetByCode(context.Background(), ac.Code)
	require.NoError(t, err)
	require.NotNil(t, got.UsedByUserID)
	assert.Equal(t, userA, *got.UsedByUserID)
}

func TestMarkUsedUnknownCode(t *testing.T) {
	store := NewMemoryStore()
	err := store.MarkUsed(context.Background(), "ZZZZZ9999", newUUID(t))
	assert.ErrorIs(t, err, ErrCodeNotFound)
}
