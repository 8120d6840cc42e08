package shopsRepo

import (
	"context"

	"revline/database"
	"revline/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// ShopRepository looks up and maintains shop (tenant) configuration.
type ShopRepository interface {
	Create(ctx context.Context, shop models.Shop) (string, error)
	GetByID(ctx context.Context, id string) (*models.Shop, error)
	GetByPhoneNumber(ctx context.Context, phone string) (*models.Shop, error)
	UpdateSettings(ctx context.Context, id string, settings models.ShopSettings) error
}

type mongoShopRepo struct {
	coll *mongo.Collection
}

// NewMongoShopRepo returns a new ShopRepository instance using MongoDB.
func NewMongoShopRepo() ShopRepository {
	return &mongoShopRepo{
		coll: database.DB().Collection("shops"),
	}
}
