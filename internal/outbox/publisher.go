// Package outbox drains committed notifications into the message broker.
// Records are written in the same transaction as the state change they
// describe, so a crash between commit and publish only delays delivery.
package outbox

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ticketvault/ticketvault/internal/adapters/crdb"
	"github.com/ticketvault/ticketvault/internal/adapters/rabbit"
	"github.com/ticketvault/ticketvault/internal/observability"
)

type Publisher struct {
	store     *crdb.Store
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
}

func NewPublisher(store *crdb.Store, rabbitPub *rabbit.Publisher, logger observability.Logger) *Publisher {
	return &Publisher{store: store, rabbitPub: rabbitPub, logger: logger}
}

func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.drain(ctx)

			lag, err := p.store.OutboxLag(ctx, time.Now())
			if err == nil {
				observability.OutboxLag.Set(lag.Seconds())
			}
		}
	}
}

func (p *Publisher) drain(ctx context.Context) {
	records, err := p.store.GetUnpublishedOutbox(ctx, 10)
	if err != nil {
		p.logger.WithField("error", err.Error()).Error("poll outbox")
		return
	}
	for _, rec := range records {
		msg := amqp.Publishing{
			MessageId:   rec.DedupeKey,
			ContentType: "application/json",
			Body:        rec.Payload,
		}
		if err := p.rabbitPub.Publish(ctx, rec.RoutingKey, msg); err != nil {
			p.logger.WithField("routing_key", rec.RoutingKey).Error("publish notification")
			continue
		}
		if err := p.store.MarkPublished(ctx, rec.ID, time.Now()); err != nil {
			p.logger.WithField("id", rec.ID.String()).Error("mark published")
		}
	}
}
