/**
 * @description
 * Email outbox queries. Rows are claimed with SKIP LOCKED so multiple
 * dispatcher replicas never publish the same message twice; stale
 * processing rows are reclaimed after a timeout in case a dispatcher died
 * mid-flight.
 */
package store

import (
	"context"

	"github.com/rizzosai/affiliate-service/internal/domain"
)

// ClaimOutboxMessages atomically moves up to limit due messages to the
// processing state and returns them.
func (r *PostgresRepository) ClaimOutboxMessages(ctx context.Context, limit int, staleAfterSeconds int) ([]domain.OutboxMessage, error) {
	rows, err := r.db.Query(ctx, `
        UPDATE email_outbox
        SET status = 'processing', attempts = attempts + 1, next_attempt_at = NOW()
        WHERE id IN (
            SELECT id FROM email_outbox
            WHERE (status = 'pending' AND next_attempt_at <= NOW())
               OR (status = 'processing' AND next_attempt_at <= NOW() - make_interval(secs => $2))
            ORDER BY id
            LIMIT $1
            FOR UPDATE SKIP LOCKED
        )
        RETURNING id, exchange, routing_key, payload, status, attempts, next_attempt_at, created_at`,
		limit, staleAfterSeconds)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var messages []domain.OutboxMessage
	for rows.Next() {
		var m domain.OutboxMessage
		if err := rows.Scan(&m.ID, &m.Exchange, &m.RoutingKey, &m.Payload,
			&m.Status, &m.Attempts, &m.NextAttemptAt, &m.CreatedAt); err != nil {
			return nil, translateError(err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// MarkOutboxPublished finalizes a successfully published message.
func (r *PostgresRepository) MarkOutboxPublished(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE email_outbox SET status = 'published' WHERE id = $1`, id)
	return translateError(err)
}

// MarkOutboxFailed reschedules a message after a publish failure.
func (r *PostgresRepository) MarkOutboxFailed(ctx context.Context, id int64, retryAfterSeconds int, reason string) error {
	_, err := r.db.Exec(ctx, `
        UPDATE email_outbox
        SET status = 'pending', next_attempt_at = NOW() + make_interval(secs => $2), last_error = $3
        WHERE id = $1`,
		id, retryAfterSeconds, reason)
	return translateError(err)
}
