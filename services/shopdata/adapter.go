package shopdata

import (
	"context"

	"revline/models"
)

// LookupQuery narrows a work-order search. Empty fields are ignored, but at
// least one should be set.
type LookupQuery struct {
	CustomerName string
	LastName     string
	LicensePlate string
	Phone        string
}

// Adapter exposes one shop's management-system data to the receptionist's
// tools. Implementations fetch from the shop's own records or, for shops
// without a connected system, from demo data.
type Adapter interface {
	LookupWorkOrders(ctx context.Context, query LookupQuery) ([]models.WorkOrder, error)
	WorkOrderStatus(ctx context.Context, orderID string) (*models.WorkOrder, error)
	BusinessHours(ctx context.Context) (string, error)
	Location(ctx context.Context) (string, error)
	ListServices(ctx context.Context) ([]string, error)
	CustomerVehicles(ctx context.Context, phone, customerName string) ([]models.Vehicle, error)

	CheckAvailability(ctx context.Context, date string) ([]string, error)
	CreateAppointment(ctx context.Context, appointment *models.Appointment) error
}
