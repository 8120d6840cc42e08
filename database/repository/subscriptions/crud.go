package subscriptionsRepo

import (
	"context"
	"errors"
	"time"

	"revline/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when no subscription matches the lookup.
var ErrNotFound = errors.New("subscription not found")

// Create inserts a new subscription.
func (r *mongoSubscriptionRepo) Create(ctx context.Context, subscription *models.Subscription) error {
	if subscription.ID == "" {
		subscription.ID = uuid.NewString()
	}
	subscription.CreatedAt = time.Now()
	_, err := r.coll.InsertOne(ctx, subscription)
	return err
}

func (r *mongoSubscriptionRepo) findOne(ctx context.Context, filter bson.M) (*models.Subscription, error) {
	var subscription models.Subscription
	err := r.coll.FindOne(ctx, filter).Decode(&subscription)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

// GetByShopID returns a shop's subscription.
func (r *mongoSubscriptionRepo) GetByShopID(ctx context.Context, shopID string) (*models.Subscription, error) {
	return r.findOne(ctx, bson.M{"shopId": shopID})
}

// GetByStripeSubscriptionID resolves a webhook's subscription reference.
func (r *mongoSubscriptionRepo) GetByStripeSubscriptionID(ctx context.Context, stripeSubID string) (*models.Subscription, error) {
	return r.findOne(ctx, bson.M{"stripeSubscriptionId": stripeSubID})
}

// GetByStripeCustomerID resolves a webhook's customer reference.
func (r *mongoSubscriptionRepo) GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*models.Subscription, error) {
	return r.findOne(ctx, bson.M{"stripeCustomerId": stripeCustomerID})
}

// Update replaces a subscription document by ID.
func (r *mongoSubscriptionRepo) Update(ctx context.Context, subscription *models.Subscription) error {
	_, err := r.coll.ReplaceOne(ctx, bson.M{"id": subscription.ID}, subscription)
	return err
}
