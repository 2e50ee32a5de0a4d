package mongodb

import (
	"context"
	"time"

	"petcare_settlement/internal/dao/repository"
	"petcare_settlement/internal/models"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type AuditLogDAO struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

func NewAuditLogDAO(db *mongo.Database, logger *zap.Logger) *AuditLogDAO {
	return &AuditLogDAO{
		collection: db.Collection(CollectionAuditLogs),
		logger:     logger.Named("AuditLogDAO"),
	}
}

// Create writes entry inside the caller's transaction when ctx carries one. A failed write is
// logged and swallowed so the settlement step it describes still commits.
func (d *AuditLogDAO) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if _, err := d.collection.InsertOne(ctx, entry); err != nil {
		d.logger.Error("Create: InsertOne failed",
			zap.Error(err),
			zap.String("action", entry.Action),
			zap.String("entityType", entry.EntityType),
			zap.Stringer("entityID", entry.EntityID),
			zap.Stringer("operatorID", entry.OperatorID))
		return err
	}
	return nil
}

var _ repository.AuditLogRepository = (*AuditLogDAO)(nil)
