package shopsRepo

import (
	"context"
	"time"

	"revline/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// Create inserts a new shop and returns its ID.
func (r *mongoShopRepo) Create(ctx context.Context, shop models.Shop) (string, error) {
	if shop.ID == "" {
		shop.ID = uuid.New().String()
	}
	shop.CreatedAt = time.Now()
	shop.UpdatedAt = time.Now()

	_, err := r.coll.InsertOne(ctx, shop)
	if err != nil {
		return "", err
	}
	return shop.ID, nil
}

// GetByID returns a shop by its ID.
func (r *mongoShopRepo) GetByID(ctx context.Context, id string) (*models.Shop, error) {
	var shop models.Shop
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&shop)
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

// GetByPhoneNumber returns the shop owning a given receptionist line.
func (r *mongoShopRepo) GetByPhoneNumber(ctx context.Context, phone string) (*models.Shop, error) {
	var shop models.Shop
	err := r.coll.FindOne(ctx, bson.M{"phoneNumber": phone}).Decode(&shop)
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

// UpdateSettings replaces a shop's settings document.
func (r *mongoShopRepo) UpdateSettings(ctx context.Context, id string, settings models.ShopSettings) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{
		"$set": bson.M{
			"settings":  settings,
			"updatedAt": time.Now(),
		},
	})
	return err
}
