package accesscodes

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bizquest/backend/internal/models"
)

// Repository is the PostgreSQL-backed access code store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an access codes repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new unused code. The unique constraint on access_codes.code
// is authoritative; a collision surfaces as a unique-violation error.
func (r *Repository) Create(ctx context.Context, code string) (*models.AccessCode, error) {
	const q = `INSERT INTO access_codes (id, code) VALUES (gen_random_uuid(), $1)
		RETURNING id, code, is_used, created_at`
	var ac models.AccessCode
	err := r.pool.QueryRow(ctx, q, strings.ToUpper(code)).
		Scan(&ac.ID, &ac.Code, &ac.IsUsed, &ac.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ac, nil
}

// GetByCode returns the code row, matching case-insensitively.
func (r *Repository) GetByCode(ctx context.Context, code string) (*models.AccessCode, error) {
	const q = `SELECT id, code, is_used, used_by_user_id, created_at, used_at
		FROM access_codes WHERE code = $1`
	var ac models.AccessCode
	err := r.pool.QueryRow(ctx, q, strings.ToUpper(code)).
		Scan(&ac.ID, &ac.Code, &ac.IsUsed, &ac.UsedByUserID, &ac.CreatedAt, &ac.UsedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ac, nil
}

// CodeExists reports whether a code already exists.
func (r *Repository) CodeExists(ctx context.Context, code string) (bool, error) {
	const q = `SELECT 1 FROM access_codes WHERE code = $1`
	var one int
	err := r.pool.QueryRow(ctx, q, strings.ToUpper(code)).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkUsed consumes a code for a user. The conditional update is first-wins:
// a concurrent consumer of the same code sees zero rows affected and gets
// ErrCodeUsed; used_at is never reset.
func (r *Repository) MarkUsed(ctx context.Context, code string, userID uuid.UUID) error {
	const q = `UPDATE access_codes SET is_used = TRUE, used_by_user_id = $1, used_at = NOW()
		WHERE code = $2 AND is_used = FALSE`
	tag, err := r.pool.Exec(ctx, q, userID, strings.ToUpper(code))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByCode(ctx, code); err != nil {
			return err
		}
		return ErrCodeUsed
	}
	return nil
}

// List returns all codes newest-first, joined with the consuming user.
func (r *Repository) List(ctx context.Context) ([]HistoryRow, error) {
	const q = `SELECT ac.id, ac.code, ac.is_used, ac.created_at, ac.used_at, ac.used_by_user_id,
		COALESCE(u.email, ''), COALESCE(u.full_name, '')
		FROM access_codes ac
		LEFT JOIN users u ON u.id = ac.used_by_user_id
		ORDER BY ac.created_at DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []HistoryRow
	for rows.Next() {
		var row HistoryRow
		if err := rows.Scan(&row.ID, &row.Code, &row.IsUsed, &row.CreatedAt, &row.UsedAt,
			&row.UsedByUserID, &row.UsedByEmail, &row.UsedByName); err != nil {
			return nil, err
		}
		list = append(list, row)
	}
	return list, rows.Err()
}
