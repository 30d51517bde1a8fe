package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bizquest/backend/internal/accesscodes"
	"github.com/bizquest/backend/internal/models"
	"github.com/bizquest/backend/pkg/database"
)

// ErrEmailTaken means the email already belongs to a registered user.
var ErrEmailTaken = errors.New("email already registered")

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, password_hash, full_name, role, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// List returns all users for admin views.
func (r *Repository) List(ctx context.Context) ([]models.UserPublic, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, full_name, role, created_at FROM users ORDER BY full_name, email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// CreateWithAccessCode inserts the user and consumes the access code in one
// transaction. If the code was consumed by a concurrent registration the
// whole transaction rolls back, so a code can never admit two users.
func (r *Repository) CreateWithAccessCode(ctx context.Context, email, passwordHash, fullName string, role models.Role, code string) (*models.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	u, err := scanUser(tx.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, full_name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		email, passwordHash, fullName, string(role)))
	if database.IsUniqueViolation(err) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE access_codes
		SET is_used = TRUE, used_by_user_id = $2, used_at = NOW()
		WHERE UPPER(code) = UPPER($1) AND is_used = FALSE`, code, u.ID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if lookupErr := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM access_codes WHERE UPPER(code) = UPPER($1))`, code,
		).Scan(&exists); lookupErr != nil {
			return nil, lookupErr
		}
		if !exists {
			return nil, accesscodes.ErrCodeNotFound
		}
		return nil, accesscodes.ErrCodeUsed
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return u, nil
}
