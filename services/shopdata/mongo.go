package shopdata

import (
	"context"

	"go.uber.org/zap"

	appointmentsRepo "revline/database/repository/appointments"
	workordersRepo "revline/database/repository/workorders"
	"revline/models"
)

// defaultSlots is the bookable grid used when the shop has no finer
// scheduling source connected.
var defaultSlots = []string{
	"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	"13:00", "13:30", "14:00", "14:30", "15:00", "15:30", "16:00",
}

type mongoAdapter struct {
	shop         *models.Shop
	orders       workordersRepo.WorkOrderRepository
	appointments appointmentsRepo.AppointmentRepository
	logger       *zap.Logger
}

// NewMongoAdapter serves a shop's tools from its own stored records.
func NewMongoAdapter(shop *models.Shop, orders workordersRepo.WorkOrderRepository, appointments appointmentsRepo.AppointmentRepository, logger *zap.Logger) Adapter {
	return &mongoAdapter{
		shop:         shop,
		orders:       orders,
		appointments: appointments,
		logger:       logger,
	}
}

func (a *mongoAdapter) LookupWorkOrders(ctx context.Context, query LookupQuery) ([]models.WorkOrder, error) {
	return a.orders.Search(ctx, a.shop.ID, workordersRepo.WorkOrderQuery{
		CustomerName: query.CustomerName,
		LastName:     query.LastName,
		LicensePlate: query.LicensePlate,
		Phone:        query.Phone,
	})
}

func (a *mongoAdapter) WorkOrderStatus(ctx context.Context, orderID string) (*models.WorkOrder, error) {
	return a.orders.GetByID(ctx, a.shop.ID, orderID)
}

func (a *mongoAdapter) BusinessHours(ctx context.Context) (string, error) {
	return a.shop.Hours, nil
}

func (a *mongoAdapter) Location(ctx context.Context) (string, error) {
	return a.shop.Address, nil
}

func (a *mongoAdapter) ListServices(ctx context.Context) ([]string, error) {
	return a.shop.Services, nil
}

func (a *mongoAdapter) CustomerVehicles(ctx context.Context, phone, customerName string) ([]models.Vehicle, error) {
	return a.orders.VehiclesByCustomer(ctx, a.shop.ID, workordersRepo.WorkOrderQuery{
		Phone:        phone,
		CustomerName: customerName,
	})
}

// CheckAvailability returns the open slots on a date: the standard grid
// minus times already booked.
func (a *mongoAdapter) CheckAvailability(ctx context.Context, date string) ([]string, error) {
	booked, err := a.appointments.ListByDate(ctx, a.shop.ID, date)
	if err != nil {
		return nil, err
	}

	taken := make(map[string]struct{}, len(booked))
	for _, appointment := range booked {
		taken[normalizeTime(appointment.TimeOfDay)] = struct{}{}
	}

	var open []string
	for _, slot := range defaultSlots {
		if _, ok := taken[slot]; !ok {
			open = append(open, slot)
		}
	}
	return open, nil
}

func (a *mongoAdapter) CreateAppointment(ctx context.Context, appointment *models.Appointment) error {
	appointment.ShopID = a.shop.ID
	appointment.TimeOfDay = normalizeTime(appointment.TimeOfDay)
	if err := a.appointments.Create(ctx, appointment); err != nil {
		return err
	}
	a.logger.Info("appointment booked",
		zap.String("shopId", a.shop.ID), zap.String("date", appointment.Date),
		zap.String("time", appointment.TimeOfDay))
	return nil
}

// normalizeTime reduces "15:00:00" to "15:00" so grid comparison works.
func normalizeTime(t string) string {
	if len(t) > 5 {
		return t[:5]
	}
	return t
}
