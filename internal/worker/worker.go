package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bizquest/backend/internal/models"
	"github.com/bizquest/backend/internal/rewards"
	"github.com/bizquest/backend/pkg/queue"
)

// JobQueue is the queue surface the worker consumes.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// FulfillmentProcessor processes reward fulfillment jobs: a redemption is
// picked up from the queue and marked delivered once fulfilled.
type FulfillmentProcessor struct {
	rewards rewards.Store
	queue   JobQueue
	logger  *zap.Logger
}

// NewFulfillmentProcessor creates a reward fulfillment processor.
func NewFulfillmentProcessor(store rewards.Store, q JobQueue, logger *zap.Logger) *FulfillmentProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FulfillmentProcessor{rewards: store, queue: q, logger: logger}
}

// Process executes one fulfillment job.
func (p *FulfillmentProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeRewardFulfillment {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.RewardFulfillmentPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	_, err := p.rewards.UpdateStatus(ctx, payload.RedemptionID, models.RedemptionDelivered)
	if errors.Is(err, rewards.ErrRedemptionNotFound) {
		// Redemption gone, nothing to retry.
		p.logger.Warn("redemption not found", zap.String("redemption_id", payload.RedemptionID.String()))
		return nil
	}
	if errors.Is(err, rewards.ErrInvalidTransition) {
		// Already delivered or cancelled by an operator.
		p.logger.Info("redemption already resolved", zap.String("redemption_id", payload.RedemptionID.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}

	p.logger.Info("redemption fulfilled",
		zap.String("redemption_id", payload.RedemptionID.String()),
		zap.String("user_id", payload.UserID.String()))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *FulfillmentProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("fulfillment worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			// A cancelled context surfaces as a dequeue error; stop right
			// away instead of sleeping through the backoff first.
			if ctx.Err() != nil {
				p.logger.Info("fulfillment worker stopping")
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
