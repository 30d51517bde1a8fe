package gems

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bizquest/backend/internal/models"
)

// DefaultListLimit caps transaction listings when no limit is given.
const DefaultListLimit = 100

// Repository is the Postgres-backed gem ledger reader.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	var balance int
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM gem_transactions WHERE user_id = $1`, userID,
	).Scan(&balance)
	return balance, err
}

func (r *Repository) List(ctx context.Context, userID uuid.UUID, limit int) ([]models.GemTransaction, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, amount, reason, reference_id, created_at
		FROM gem_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.GemTransaction
	for rows.Next() {
		var tx models.GemTransaction
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Amount, &tx.Reason, &tx.ReferenceID, &tx.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}
