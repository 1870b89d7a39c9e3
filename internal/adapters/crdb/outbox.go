package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// OutboxRecord is a committed notification waiting to be published.
type OutboxRecord struct {
	ID          uuid.UUID
	RoutingKey  string
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
	Status      string // NEW, PUBLISHED
	DedupeKey   string
}

// GetUnpublishedOutbox claims up to limit NEW records in commit order.
func (s *Store) GetUnpublishedOutbox(ctx context.Context, limit int) ([]OutboxRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, routing_key, payload_json, created_at, published_at, status, dedupe_key
		FROM outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT $1 FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "poll outbox")
	}
	defer rows.Close()

	var records []OutboxRecord
	for rows.Next() {
		var rec OutboxRecord
		if err := rows.Scan(&rec.ID, &rec.RoutingKey, &rec.Payload, &rec.CreatedAt, &rec.PublishedAt, &rec.Status, &rec.DedupeKey); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE outbox SET status = 'PUBLISHED', published_at = $2 WHERE id = $1
	`, id, publishedAt)
	return errors.Wrap(err, "mark published")
}

// OutboxLag returns the age of the oldest unpublished record, zero when the
// outbox is drained.
func (s *Store) OutboxLag(ctx context.Context, now time.Time) (time.Duration, error) {
	var oldest *time.Time
	err := s.pool.QueryRow(ctx, `SELECT MIN(created_at) FROM outbox WHERE status = 'NEW'`).Scan(&oldest)
	if err != nil {
		return 0, errors.Wrap(err, "outbox lag")
	}
	if oldest == nil {
		return 0, nil
	}
	return now.Sub(*oldest), nil
}
