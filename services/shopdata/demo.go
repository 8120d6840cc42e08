package shopdata

import (
	"context"
	"strings"
	"sync"
	"time"

	"revline/models"
)

// DemoAdapter serves canned data for shops without a connected management
// system, and for tests. Appointments book into memory.
type DemoAdapter struct {
	mu     sync.Mutex
	booked map[string]map[string]struct{} // date -> taken slots

	orders   []models.WorkOrder
	hours    string
	address  string
	services []string
}

// NewDemoAdapter returns an adapter pre-loaded with sample work orders.
func NewDemoAdapter() *DemoAdapter {
	eta := time.Now().Add(24 * time.Hour)
	return &DemoAdapter{
		booked: make(map[string]map[string]struct{}),
		orders: []models.WorkOrder{
			{
				ID:            "WO-1001",
				CustomerName:  "John Smith",
				CustomerPhone: "+15550001111",
				Vehicle:       models.Vehicle{Make: "Honda", Model: "Civic", Year: 2019, LicensePlate: "ABC123"},
				Description:   "Brake pad replacement",
				Status:        models.WorkOrderInProgress,
				EstimatedDone: &eta,
			},
			{
				ID:           "WO-1002",
				CustomerName: "Maria Garcia",
				Vehicle:      models.Vehicle{Make: "Toyota", Model: "Camry", Year: 2021, LicensePlate: "XYZ789"},
				Description:  "Oil change and tire rotation",
				Status:       models.WorkOrderReady,
			},
		},
		hours:    "Monday to Friday 8am-6pm, Saturday 9am-2pm, closed Sunday",
		address:  "412 Main Street, Springfield",
		services: []string{"Oil Change", "Brake Repair", "Tire Rotation", "Engine Diagnostics", "AC Service"},
	}
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (a *DemoAdapter) matches(order models.WorkOrder, query LookupQuery) bool {
	if query.CustomerName != "" &&
		!strings.Contains(strings.ToLower(order.CustomerName), strings.ToLower(query.CustomerName)) {
		return false
	}
	if query.LastName != "" {
		parts := strings.Fields(strings.ToLower(order.CustomerName))
		found := false
		for _, p := range parts {
			if p == strings.ToLower(query.LastName) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if query.LicensePlate != "" &&
		!strings.EqualFold(order.Vehicle.LicensePlate, query.LicensePlate) {
		return false
	}
	if query.Phone != "" &&
		!strings.Contains(digitsOnly(order.CustomerPhone), digitsOnly(query.Phone)) {
		return false
	}
	return true
}

func (a *DemoAdapter) LookupWorkOrders(ctx context.Context, query LookupQuery) ([]models.WorkOrder, error) {
	var results []models.WorkOrder
	for _, order := range a.orders {
		if a.matches(order, query) {
			results = append(results, order)
		}
	}
	return results, nil
}

func (a *DemoAdapter) WorkOrderStatus(ctx context.Context, orderID string) (*models.WorkOrder, error) {
	for i := range a.orders {
		if a.orders[i].ID == orderID {
			return &a.orders[i], nil
		}
	}
	return nil, nil
}

func (a *DemoAdapter) BusinessHours(ctx context.Context) (string, error) { return a.hours, nil }

func (a *DemoAdapter) Location(ctx context.Context) (string, error) { return a.address, nil }

func (a *DemoAdapter) ListServices(ctx context.Context) ([]string, error) { return a.services, nil }

func (a *DemoAdapter) CustomerVehicles(ctx context.Context, phone, customerName string) ([]models.Vehicle, error) {
	orders, _ := a.LookupWorkOrders(ctx, LookupQuery{Phone: phone, CustomerName: customerName})
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

func (a *DemoAdapter) CheckAvailability(ctx context.Context, date string) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	taken := a.booked[date]
	var open []string
	for _, slot := range defaultSlots {
		if _, ok := taken[slot]; !ok {
			open = append(open, slot)
		}
	}
	return open, nil
}

func (a *DemoAdapter) CreateAppointment(ctx context.Context, appointment *models.Appointment) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.booked[appointment.Date] == nil {
		a.booked[appointment.Date] = make(map[string]struct{})
	}
	a.booked[appointment.Date][normalizeTime(appointment.TimeOfDay)] = struct{}{}
	return nil
}
