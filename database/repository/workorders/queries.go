package workordersRepo

import (
	"context"

	"revline/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GetByID returns a single work order scoped to a shop.
func (r *mongoWorkOrderRepo) GetByID(ctx context.Context, shopID, orderID string) (*models.WorkOrder, error) {
	var order models.WorkOrder
	err := r.coll.FindOne(ctx, bson.M{"id": orderID, "shopId": shopID}).Decode(&order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (q WorkOrderQuery) filter(shopID string) bson.M {
	filter := bson.M{"shopId": shopID}
	if q.CustomerName != "" {
		filter["customerName"] = primitive.Regex{Pattern: q.CustomerName, Options: "i"}
	} else if q.LastName != "" {
		filter["customerName"] = primitive.Regex{Pattern: q.LastName + "$", Options: "i"}
	}
	if q.LicensePlate != "" {
		filter["vehicle.licensePlate"] = primitive.Regex{Pattern: "^" + q.LicensePlate + "$", Options: "i"}
	}
	if q.Phone != "" {
		filter["customerPhone"] = q.Phone
	}
	return filter
}

// Search returns work orders matching any of the provided customer hints.
func (r *mongoWorkOrderRepo) Search(ctx context.Context, shopID string, query WorkOrderQuery) ([]models.WorkOrder, error) {
	cursor, err := r.coll.Find(ctx, query.filter(shopID))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []models.WorkOrder
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// VehiclesByCustomer returns the distinct vehicles on file for a customer.
func (r *mongoWorkOrderRepo) VehiclesByCustomer(ctx context.Context, shopID string, query WorkOrderQuery) ([]models.Vehicle, error) {
	orders, err := r.Search(ctx, shopID, query)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var vehicles []models.Vehicle
	for _, order := range orders {
		if _, ok := seen[order.Vehicle.LicensePlate]; ok {
			continue
		}
		seen[order.Vehicle.LicensePlate] = struct{}{}
		vehicles = append(vehicles, order.Vehicle)
	}
	return vehicles, nil
}
