package subscriptionsRepo

import (
	"context"

	"revline/database"
	"revline/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// SubscriptionRepository stores shop billing subscriptions.
type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *models.Subscription) error
	GetByShopID(ctx context.Context, shopID string) (*models.Subscription, error)
	GetByStripeSubscriptionID(ctx context.Context, stripeSubID string) (*models.Subscription, error)
	GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*models.Subscription, error)
	Update(ctx context.Context, subscription *models.Subscription) error
}

type mongoSubscriptionRepo struct {
	coll *mongo.Collection
}

// NewMongoSubscriptionRepo returns a new SubscriptionRepository instance using MongoDB.
func NewMongoSubscriptionRepo() SubscriptionRepository {
	return &mongoSubscriptionRepo{
		coll: database.DB().Collection("subscriptions"),
	}
}
