package workordersRepo

import (
	"context"

	"revline/database"
	"revline/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// WorkOrderRepository serves the shop-system adapter's lookups.
type WorkOrderRepository interface {
	GetByID(ctx context.Context, shopID, orderID string) (*models.WorkOrder, error)
	Search(ctx context.Context, shopID string, query WorkOrderQuery) ([]models.WorkOrder, error)
	VehiclesByCustomer(ctx context.Context, shopID string, query WorkOrderQuery) ([]models.Vehicle, error)
}

// WorkOrderQuery narrows a lookup. Empty fields are ignored.
type WorkOrderQuery struct {
	CustomerName string
	LastName     string
	LicensePlate string
	Phone        string
}

type mongoWorkOrderRepo struct {
	coll *mongo.Collection
}

// NewMongoWorkOrderRepo returns a new WorkOrderRepository instance using MongoDB.
func NewMongoWorkOrderRepo() WorkOrderRepository {
	return &mongoWorkOrderRepo{
		coll: database.DB().Collection("work_orders"),
	}
}
