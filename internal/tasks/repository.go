package tasks

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bizquest/backend/internal/models"
)

// Repository is the Postgres-backed task store.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const taskColumns = `id, organization_id, title, description, gems_reward, status,
	assigned_to, created_by, completed_at, created_at, updated_at`

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.OrganizationID, &t.Title, &t.Description, &t.GemsReward,
		&t.Status, &t.AssignedTo, &t.CreatedBy, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Task, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE organization_id = $1
		ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *Repository) Create(ctx context.Context, t *models.Task) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO tasks (organization_id, title, description, gems_reward, assigned_to, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, status, created_at, updated_at`,
		t.OrganizationID, t.Title, t.Description, t.GemsReward, t.AssignedTo, t.CreatedBy,
	).Scan(&t.ID, &t.Status, &t.CreatedAt, &t.UpdatedAt)
}

func (r *Repository) Update(ctx context.Context, id, orgID uuid.UUID, p UpdateParams) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE tasks SET
			title = COALESCE($3, title),
			description = COALESCE($4, description),
			gems_reward = COALESCE($5, gems_reward),
			assigned_to = COALESCE($6, assigned_to),
			updated_at = NOW()
		WHERE id = $1 AND organization_id = $2`,
		id, orgID, p.Title, p.Description, p.GemsReward, p.AssignedTo)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id, orgID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM tasks WHERE id = $1 AND organization_id = $2`, id, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *Repository) Complete(ctx context.Context, id, orgID, userID uuid.UUID) (*models.Task, int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback(ctx)

	// First completion wins: the conditional update succeeds for exactly one
	// caller, everyone else sees zero rows.
	t, err := scanTask(tx.QueryRow(ctx, `
		UPDATE tasks
		SET status = 'completed', completed_at = NOW(), assigned_to = $3, updated_at = NOW()
		WHERE id = $1 AND organization_id = $2 AND status = 'open'
		RETURNING `+taskColumns, id, orgID, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			var status string
			lookupErr := r.db.QueryRow(ctx,
				`SELECT status FROM tasks WHERE id = $1 AND organization_id = $2`, id, orgID,
			).Scan(&status)
			if lookupErr == pgx.ErrNoRows {
				return nil, 0, ErrTaskNotFound
			}
			if lookupErr != nil {
				return nil, 0, lookupErr
			}
			return nil, 0, ErrTaskAlreadyCompleted
		}
		return nil, 0, err
	}

	if t.GemsReward > 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO gem_transactions (user_id, amount, reason, reference_id)
			VALUES ($1, $2, $3, $4)`,
			userID, t.GemsReward, models.GemReasonTaskCompleted, t.ID)
		if err != nil {
			return nil, 0, err
		}
	}

	var count int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM tasks
		WHERE organization_id = $1 AND assigned_to = $2 AND status = 'completed'`,
		orgID, userID,
	).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, err
	}
	return t, count, nil
}
