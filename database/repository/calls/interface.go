package callsRepo

import (
	"context"

	"revline/database"
	"revline/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// CallRecordRepository persists terminal call records for analytics and
// the shop dashboard.
type CallRecordRepository interface {
	Create(ctx context.Context, record models.CallRecord) (string, error)
	GetByCallSID(ctx context.Context, callSID string) (*models.CallRecord, error)
	GetByShopID(ctx context.Context, shopID string, limit int64) ([]models.CallRecord, error)
	CountByShopSince(ctx context.Context, shopID string, since int64) (int64, error)
}

type mongoCallRepo struct {
	coll *mongo.Collection
}

// NewMongoCallRepo returns a new CallRecordRepository instance using MongoDB.
func NewMongoCallRepo() CallRecordRepository {
	return &mongoCallRepo{
		coll: database.DB().Collection("call_records"),
	}
}
