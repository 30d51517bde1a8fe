package gems

import (
	"context"

	"github.com/google/uuid"

	"github.com/bizquest/backend/internal/models"
)

// Store is the read side of the gem ledger. Writes happen inside the
// achievement, reward and task transactions that earn or spend gems.
type Store interface {
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
	List(ctx context.Context, userID uuid.UUID, limit int) ([]models.GemTransaction, error)
}
