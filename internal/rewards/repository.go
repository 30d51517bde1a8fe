package rewards

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bizquest/backend/internal/models"
)

// Repository is the Postgres-backed reward store.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const rewardColumns = `id, organization_id, title, description, cost_in_gems, icon, is_active, created_at, updated_at`

func scanReward(row pgx.Row) (*models.Reward, error) {
	var r models.Reward
	err := row.Scan(&r.ID, &r.OrganizationID, &r.Title, &r.Description,
		&r.CostInGems, &r.Icon, &r.IsActive, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Repository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Reward, error) {
	return r.list(ctx, orgID, false)
}

func (r *Repository) ListActiveByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Reward, error) {
	return r.list(ctx, orgID, true)
}

func (r *Repository) list(ctx context.Context, orgID uuid.UUID, activeOnly bool) ([]models.Reward, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+rewardColumns+`
		FROM rewards
		WHERE organization_id = $1 AND ($2 = FALSE OR is_active = TRUE)
		ORDER BY cost_in_gems ASC, created_at DESC`, orgID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Reward
	for rows.Next() {
		rw, err := scanReward(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rw)
	}
	return out, rows.Err()
}

func (r *Repository) Create(ctx context.Context, rw *models.Reward) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO rewards (organization_id, title, description, cost_in_gems, icon, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		rw.OrganizationID, rw.Title, rw.Description, rw.CostInGems, rw.Icon, rw.IsActive,
	).Scan(&rw.ID, &rw.CreatedAt, &rw.UpdatedAt)
}

func (r *Repository) Update(ctx context.Context, id, orgID uuid.UUID, p UpdateParams) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE rewards SET
			title = COALESCE($3, title),
			description = COALESCE($4, description),
			cost_in_gems = COALESCE($5, cost_in_gems),
			icon = COALESCE($6, icon),
			is_active = COALESCE($7, is_active),
			updated_at = NOW()
		WHERE id = $1 AND organization_id = $2`,
		id, orgID, p.Title, p.Description, p.CostInGems, p.Icon, p.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRewardNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id, orgID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM rewards WHERE id = $1 AND organization_id = $2`, id, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRewardNotFound
	}
	return nil
}

func (r *Repository) Redeem(ctx context.Context, orgID, userID, rewardID uuid.UUID) (*models.UserReward, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var cost int
	err = tx.QueryRow(ctx, `
		SELECT cost_in_gems FROM rewards
		WHERE id = $1 AND organization_id = $2 AND is_active = TRUE
		FOR UPDATE`, rewardID, orgID,
	).Scan(&cost)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRewardNotFound
	}
	if err != nil {
		return nil, err
	}

	// Serialize redemptions per user: without this lock two concurrent
	// redemptions of different rewards both pass the balance check and
	// overdraw the derived balance.
	var lockedUser uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID,
	).Scan(&lockedUser)
	if err != nil {
		return nil, err
	}

	var balance int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM gem_transactions WHERE user_id = $1`, userID,
	).Scan(&balance)
	if err != nil {
		return nil, err
	}
	if balance < cost {
		return nil, ErrInsufficientGems
	}

	ur := &models.UserReward{
		UserID:    userID,
		RewardID:  rewardID,
		GemsSpent: cost,
		Status:    models.RedemptionPending,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO user_rewards (user_id, reward_id, gems_spent)
		VALUES ($1, $2, $3)
		RETURNING id, claimed_at`, userID, rewardID, cost,
	).Scan(&ur.ID, &ur.ClaimedAt)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO gem_transactions (user_id, amount, reason, reference_id)
		VALUES ($1, $2, $3, $4)`,
		userID, -cost, models.GemReasonRewardRedemption, ur.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ur, nil
}

func (r *Repository) History(ctx context.Context, orgID uuid.UUID, rewardID, userID *uuid.UUID) ([]RedemptionRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT ur.id, ur.user_id, u.email, u.full_name, ur.reward_id, rw.title,
			ur.gems_spent, ur.status, ur.claimed_at, ur.delivered_at
		FROM user_rewards ur
		JOIN rewards rw ON rw.id = ur.reward_id
		JOIN users u ON u.id = ur.user_id
		WHERE rw.organization_id = $1
		  AND ($2::uuid IS NULL OR ur.reward_id = $2)
		  AND ($3::uuid IS NULL OR ur.user_id = $3)
		ORDER BY ur.claimed_at DESC`, orgID, rewardID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RedemptionRow
	for rows.Next() {
		var row RedemptionRow
		if err := rows.Scan(&row.ID, &row.UserID, &row.UserEmail, &row.UserName,
			&row.RewardID, &row.RewardTitle, &row.GemsSpent, &row.Status,
			&row.ClaimedAt, &row.DeliveredAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateStatus(ctx context.Context, redemptionID uuid.UUID, status string) (*models.UserReward, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Only pending redemptions move; the conditional update is the gate
	// against concurrent status changes.
	ur := &models.UserReward{Status: status}
	err = tx.QueryRow(ctx, `
		UPDATE user_rewards
		SET status = $2,
			delivered_at = CASE WHEN $2 = 'delivered' THEN NOW() ELSE delivered_at END
		WHERE id = $1 AND status = 'pending'
		RETURNING id, user_id, reward_id, gems_spent, claimed_at, delivered_at`,
		redemptionID, status,
	).Scan(&ur.ID, &ur.UserID, &ur.RewardID, &ur.GemsSpent, &ur.ClaimedAt, &ur.DeliveredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if lookupErr := r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM user_rewards WHERE id = $1)`, redemptionID,
		).Scan(&exists); lookupErr != nil {
			return nil, lookupErr
		}
		if !exists {
			return nil, ErrRedemptionNotFound
		}
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}

	if status == models.RedemptionCancelled {
		_, err = tx.Exec(ctx, `
			INSERT INTO gem_transactions (user_id, amount, reason, reference_id)
			VALUES ($1, $2, $3, $4)`,
			ur.UserID, ur.GemsSpent, models.GemReasonRedemptionRefund, ur.ID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ur, nil
}
