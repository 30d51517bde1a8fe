package badges

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bizquest/backend/internal/models"
	"github.com/bizquest/backend/pkg/database"
)

// Repository is the PostgreSQL-backed badge store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a badges repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const badgeColumns = `id, organization_id, name, description, icon, is_active, created_at`

func scanBadge(row pgx.Row) (*models.Badge, error) {
	var b models.Badge
	err := row.Scan(&b.ID, &b.OrganizationID, &b.Name, &b.Description, &b.Icon, &b.IsActive, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListByOrg returns all badges for the organization, newest first (admin view).
func (r *Repository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Badge, error) {
	return r.list(ctx, `SELECT `+badgeColumns+` FROM badges WHERE organization_id = $1 ORDER BY created_at DESC`, orgID)
}

// ListActiveByOrg returns only active badges for the organization — the only
// ones listed to end users.
func (r *Repository) ListActiveByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Badge, error) {
	return r.list(ctx, `SELECT `+badgeColumns+` FROM badges WHERE organization_id = $1 AND is_active = TRUE ORDER BY created_at DESC`, orgID)
}

func (r *Repository) list(ctx context.Context, q string, orgID uuid.UUID) ([]models.Badge, error) {
	rows, err := r.pool.Query(ctx, q, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Badge
	for rows.Next() {
		var b models.Badge
		if err := rows.Scan(&b.ID, &b.OrganizationID, &b.Name, &b.Description, &b.Icon, &b.IsActive, &b.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// Create inserts a new badge into the organization's catalog.
func (r *Repository) Create(ctx context.Context, b *models.Badge) error {
	const q = `INSERT INTO badges (id, organization_id, name, description, icon, is_active)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, b.OrganizationID, b.Name, b.Description, b.Icon, b.IsActive).
		Scan(&b.ID, &b.CreatedAt)
}

// Update mutates a badge scoped by both id and organization id, so an admin
// cannot touch another tenant's row even with a guessed id.
func (r *Repository) Update(ctx context.Context, id, orgID uuid.UUID, p UpdateParams) error {
	const q = `UPDATE badges SET
		name = COALESCE($1, name),
		description = COALESCE($2, description),
		icon = COALESCE($3, icon),
		is_active = COALESCE($4, is_active)
		WHERE id = $5 AND organization_id = $6`
	tag, err := r.pool.Exec(ctx, q, p.Name, p.Description, p.Icon, p.IsActive, id, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBadgeNotFound
	}
	return nil
}

// Delete removes a badge, scoped by id and organization id. Dependent unlock
// rows go with it via ON DELETE CASCADE.
func (r *Repository) Delete(ctx context.Context, id, orgID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM badges WHERE id = $1 AND organization_id = $2`, id, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBadgeNotFound
	}
	return nil
}

// UnlockedBadgeIDs returns the set of badge ids the user has unlocked.
func (r *Repository) UnlockedBadgeIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := r.pool.Query(ctx, `SELECT badge_id FROM user_badges WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// Claim records an unlock for (user, badge). The badge must exist in the
// caller's organization. The duplicate pre-check is a fast path only; the
// unique constraint on user_badges is authoritative, and a unique violation
// on insert maps to ErrAlreadyClaimed.
func (r *Repository) Claim(ctx context.Context, orgID, userID, badgeID uuid.UUID) (*models.UserBadge, error) {
	var one int
	err := r.pool.QueryRow(ctx,
		`SELECT 1 FROM badges WHERE id = $1 AND organization_id = $2`, badgeID, orgID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBadgeNotFound
	}
	if err != nil {
		return nil, err
	}

	err = r.pool.QueryRow(ctx, `SELECT 1 FROM user_badges WHERE user_id = $1 AND badge_id = $2`, userID, badgeID).Scan(&one)
	if err == nil {
		return nil, ErrAlreadyClaimed
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	const q = `INSERT INTO user_badges (id, user_id, badge_id)
		VALUES (gen_random_uuid(), $1, $2)
		RETURNING id, user_id, badge_id, unlocked_at`
	var ub models.UserBadge
	err = r.pool.QueryRow(ctx, q, userID, badgeID).Scan(&ub.ID, &ub.UserID, &ub.BadgeID, &ub.UnlockedAt)
	if database.IsUniqueViolation(err) {
		return nil, ErrAlreadyClaimed
	}
	if err != nil {
		return nil, err
	}
	return &ub, nil
}

// History returns unlock rows joined to users and badges, filtered
// mandatorily by the badge catalog's organization id, optionally narrowed by
// badge and/or user, newest first.
func (r *Repository) History(ctx context.Context, orgID uuid.UUID, badgeID, userID *uuid.UUID) ([]UnlockRow, error) {
	const q = `SELECT ub.id, ub.user_id, u.email, COALESCE(u.full_name, ''), ub.badge_id, b.name, ub.unlocked_at
		FROM user_badges ub
		INNER JOIN badges b ON b.id = ub.badge_id
		INNER JOIN users u ON u.id = ub.user_id
		WHERE b.organization_id = $1
		AND ($2::uuid IS NULL OR ub.badge_id = $2)
		AND ($3::uuid IS NULL OR ub.user_id = $3)
		ORDER BY ub.unlocked_at DESC`
	rows, err := r.pool.Query(ctx, q, orgID, badgeID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []UnlockRow
	for rows.Next() {
		var row UnlockRow
		if err := rows.Scan(&row.ID, &row.UserID, &row.UserEmail, &row.UserName, &row.BadgeID, &row.BadgeName, &row.UnlockedAt); err != nil {
			return nil, err
		}
		list = append(list, row)
	}
	return list, rows.Err()
}
