/**
 * @description
 * The outbox dispatcher drains the email outbox into RabbitMQ. Purchases
 * enqueue rows inside their own transactions; this loop claims due rows
 * (with SKIP LOCKED, so replicas never double-publish), publishes them and
 * marks the outcome. Failed publishes are rescheduled with exponential
 * backoff.
 */
package app

import (
	"context"
	"log"
	"time"

	"github.com/rizzosai/affiliate-service/internal/domain"
	"github.com/rizzosai/affiliate-service/pkg/rabbitmq"
)

// OutboxRepository is the persistence surface the dispatcher needs.
type OutboxRepository interface {
	ClaimOutboxMessages(ctx context.Context, limit int, staleAfterSeconds int) ([]domain.OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, id int64) error
	MarkOutboxFailed(ctx context.Context, id int64, retryAfterSeconds int, reason string) error
}

// OutboxDispatcher publishes committed outbox rows to the broker.
type OutboxDispatcher struct {
	repo      OutboxRepository
	publisher rabbitmq.Publisher

	pollInterval time.Duration
	batchSize    int
	staleAfter   time.Duration
}

// NewOutboxDispatcher creates a dispatcher with the default cadence.
func NewOutboxDispatcher(repo OutboxRepository, publisher rabbitmq.Publisher) *OutboxDispatcher {
	return &OutboxDispatcher{
		repo:         repo,
		publisher:    publisher,
		pollInterval: 5 * time.Second,
		batchSize:    20,
		staleAfter:   2 * time.Minute,
	}
}

// Run drains the outbox until the context is cancelled.
func (d *OutboxDispatcher) Run(ctx context.Context) {
	log.Println("Outbox dispatcher started")
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Outbox dispatcher stopped")
			return
		case <-ticker.C:
			d.dispatchOnce(ctx)
		}
	}
}

// dispatchOnce claims one batch and publishes it.
func (d *OutboxDispatcher) dispatchOnce(ctx context.Context) {
	messages, err := d.repo.ClaimOutboxMessages(ctx, d.batchSize, int(d.staleAfter.Seconds()))
	if err != nil {
		log.Printf("Error claiming outbox messages: %v", err)
		return
	}

	for _, msg := range messages {
		if err := d.publisher.Publish(ctx, msg.Exchange, msg.RoutingKey, msg.Payload); err != nil {
			delay := retryDelaySeconds(msg.Attempts)
			log.Printf("Error publishing outbox message %d (attempt %d, retry in %ds): %v",
				msg.ID, msg.Attempts, delay, err)
			if markErr := d.repo.MarkOutboxFailed(ctx, msg.ID, delay, err.Error()); markErr != nil {
				log.Printf("Error rescheduling outbox message %d: %v", msg.ID, markErr)
			}
			continue
		}
		if err := d.repo.MarkOutboxPublished(ctx, msg.ID); err != nil {
			// The stale-claim reclaim will retry it; the consumer must
			// tolerate the duplicate.
			log.Printf("Error finalizing outbox message %d: %v", msg.ID, err)
		}
	}
}

// retryDelaySeconds backs off exponentially per attempt, capped at an hour.
func retryDelaySeconds(attempts int) int {
	delay := 30
	for i := 1; i < attempts && delay < 3600; i++ {
		delay *= 2
	}
	if delay > 3600 {
		delay = 3600
	}
	return delay
}
