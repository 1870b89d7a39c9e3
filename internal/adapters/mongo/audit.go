package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ticketvault/ticketvault/internal/domain"
	"github.com/ticketvault/ticketvault/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// AuditLogger keeps an append-only trail of successful ledger operations.
// Writes are best-effort; the ledger itself is the system of record.
type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditLog struct {
	ID        uuid.UUID      `bson:"_id"`
	Action    string         `bson:"action"`
	Caller    domain.Address `bson:"caller"`
	Timestamp time.Time      `bson:"timestamp"`
	Data      bson.M         `bson:"data"`
}

func (a *AuditLogger) Log(ctx context.Context, action string, caller domain.Address, data map[string]interface{}) error {
	entry := AuditLog{
		ID:        uuid.New(),
		Action:    action,
		Caller:    caller,
		Timestamp: time.Now().UTC(),
		Data:      bson.M(data),
	}
	if _, err := a.coll.InsertOne(ctx, entry); err != nil {
		a.logger.Error("failed to insert audit log", err)
		return err
	}
	return nil
}
