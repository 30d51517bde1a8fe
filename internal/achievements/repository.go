package achievements

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bizquest/backend/internal/models"
	"github.com/bizquest/backend/pkg/database"
)

// Repository is the Postgres-backed achievement store.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const achievementColumns = `id, organization_id, name, description, category, points, rarity,
	max_progress, icon, active, trigger_type, trigger_value, auto_unlock, created_at, updated_at`

func scanAchievement(row pgx.Row) (*models.Achievement, error) {
	var a models.Achievement
	err := row.Scan(&a.ID, &a.OrganizationID, &a.Name, &a.Description, &a.Category,
		&a.Points, &a.Rarity, &a.MaxProgress, &a.Icon, &a.Active,
		&a.TriggerType, &a.TriggerValue, &a.AutoUnlock, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Achievement, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+achievementColumns+`
		FROM achievements
		WHERE organization_id = $1
		ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Achievement
	for rows.Next() {
		a, err := scanAchievement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *Repository) Create(ctx context.Context, a *models.Achievement) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO achievements (organization_id, name, description, category, points, rarity,
			max_progress, icon, active, trigger_type, trigger_value, auto_unlock)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`,
		a.OrganizationID, a.Name, a.Description, a.Category, a.Points, a.Rarity,
		a.MaxProgress, a.Icon, a.Active, a.TriggerType, a.TriggerValue, a.AutoUnlock,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *Repository) Update(ctx context.Context, id, orgID uuid.UUID, p UpdateParams) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE achievements SET
			name = COALESCE($3, name),
			description = COALESCE($4, description),
			category = COALESCE($5, category),
			points = COALESCE($6, points),
			rarity = COALESCE($7, rarity),
			max_progress = COALESCE($8, max_progress),
			icon = COALESCE($9, icon),
			active = COALESCE($10, active),
			trigger_type = COALESCE($11, trigger_type),
			trigger_value = COALESCE($12, trigger_value),
			auto_unlock = COALESCE($13, auto_unlock),
			updated_at = NOW()
		WHERE id = $1 AND organization_id = $2`,
		id, orgID, p.Name, p.Description, p.Category, p.Points, p.Rarity,
		p.MaxProgress, p.Icon, p.Active, p.TriggerType, p.TriggerValue, p.AutoUnlock)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAchievementNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id, orgID uuid.UUID) error {
	// Best effort: clear dependent unlock rows first so the catalog delete
	// cannot be blocked by them. Failures here (including a missing ledger
	// table on older schemas) are tolerated; the FK cascade covers the rest.
	_, _ = r.db.Exec(ctx, `
		DELETE FROM user_achievements
		WHERE achievement_id IN (
			SELECT id FROM achievements WHERE id = $1 AND organization_id = $2
		)`, id, orgID)

	tag, err := r.db.Exec(ctx,
		`DELETE FROM achievements WHERE id = $1 AND organization_id = $2`, id, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAchievementNotFound
	}
	return nil
}

func (r *Repository) Claim(ctx context.Context, orgID, userID, achievementID uuid.UUID) (*models.UserAchievement, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var points int
	err = tx.QueryRow(ctx, `
		SELECT points FROM achievements
		WHERE id = $1 AND organization_id = $2 AND active = TRUE`,
		achievementID, orgID,
	).Scan(&points)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAchievementNotFound
	}
	if err != nil {
		return nil, err
	}

	ua := &models.UserAchievement{UserID: userID, AchievementID: achievementID}
	err = tx.QueryRow(ctx, `
		INSERT INTO user_achievements (user_id, achievement_id)
		VALUES ($1, $2)
		RETURNING id, unlocked_at`, userID, achievementID,
	).Scan(&ua.ID, &ua.UnlockedAt)
	if database.IsUniqueViolation(err) {
		return nil, ErrAlreadyUnlocked
	}
	if err != nil {
		return nil, err
	}

	if points > 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO gem_transactions (user_id, amount, reason, reference_id)
			VALUES ($1, $2, $3, $4)`,
			userID, points, models.GemReasonAchievementUnlock, achievementID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ua, nil
}

func (r *Repository) History(ctx context.Context, orgID uuid.UUID, achievementID, userID *uuid.UUID) ([]UnlockRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT ua.id, ua.user_id, u.email, u.full_name, ua.achievement_id, a.name, a.points, ua.unlocked_at
		FROM user_achievements ua
		JOIN achievements a ON a.id = ua.achievement_id
		JOIN users u ON u.id = ua.user_id
		WHERE a.organization_id = $1
		  AND ($2::uuid IS NULL OR ua.achievement_id = $2)
		  AND ($3::uuid IS NULL OR ua.user_id = $3)
		ORDER BY ua.unlocked_at DESC`, orgID, achievementID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UnlockRow
	for rows.Next() {
		var row UnlockRow
		if err := rows.Scan(&row.ID, &row.UserID, &row.UserEmail, &row.UserName,
			&row.AchievementID, &row.AchievementName, &row.Points, &row.UnlockedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Repository) UnlockAutoTriggered(ctx context.Context, orgID, userID uuid.UUID, completedCount int) ([]models.Achievement, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+achievementColumns+`
		FROM achievements a
		WHERE a.organization_id = $1
		  AND a.active = TRUE
		  AND a.trigger_type = 'auto'
		  AND a.auto_unlock = TRUE
		  AND a.trigger_value <= $3
		  AND NOT EXISTS (
			SELECT 1 FROM user_achievements ua
			WHERE ua.user_id = $2 AND ua.achievement_id = a.id
		  )
		ORDER BY a.trigger_value ASC`, orgID, userID, completedCount)
	if err != nil {
		return nil, err
	}
	var candidates []models.Achievement
	for rows.Next() {
		a, err := scanAchievement(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		candidates = append(candidates, *a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var unlocked []models.Achievement
	for _, a := range candidates {
		if _, err := r.Claim(ctx, orgID, userID, a.ID); err != nil {
			// Lost the race to another unlock; fine.
			if errors.Is(err, ErrAlreadyUnlocked) {
				continue
			}
			return unlocked, err
		}
		unlocked = append(unlocked, a)
	}
	return unlocked, nil
}
