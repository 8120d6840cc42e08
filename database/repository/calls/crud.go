package callsRepo

import (
	"context"
	"time"

	"revline/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Create inserts a terminal call record and returns its ID.
func (r *mongoCallRepo) Create(ctx context.Context, record models.CallRecord) (string, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	_, err := r.coll.InsertOne(ctx, record)
	if err != nil {
		return "", err
	}
	return record.ID, nil
}

// GetByCallSID returns the record for a specific call.
func (r *mongoCallRepo) GetByCallSID(ctx context.Context, callSID string) (*models.CallRecord, error) {
	var record models.CallRecord
	err := r.coll.FindOne(ctx, bson.M{"callSid": callSID}).Decode(&record)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetByShopID fetches the most recent records for a shop.
func (r *mongoCallRepo) GetByShopID(ctx context.Context, shopID string, limit int64) ([]models.CallRecord, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(limit)
	cursor, err := r.coll.Find(ctx, bson.M{"shopId": shopID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.CallRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// CountByShopSince counts calls a shop has taken since the given unix time.
func (r *mongoCallRepo) CountByShopSince(ctx context.Context, shopID string, since int64) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{
		"shopId":    shopID,
		"createdAt": bson.M{"$gte": time.Unix(since, 0)},
	})
}
