package tools

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"revline/models"
	"revline/services/shopdata"
	"revline/services/voice"
)

// Registry bridges the model's function calls to the shop's data adapter
// and the session's booking proposal. One registry per call.
type Registry struct {
	adapter     shopdata.Adapter
	booking     *voice.BookingProposal
	callSID     string
	callerPhone string
	logger      *zap.Logger
}

var _ voice.ToolExecutor = (*Registry)(nil)

// NewRegistry creates the per-call tool registry. Bind must be called with
// the session's booking proposal before the first tool call.
func NewRegistry(adapter shopdata.Adapter, callSID, callerPhone string, logger *zap.Logger) *Registry {
	return &Registry{
		adapter:     adapter,
		callSID:     callSID,
		callerPhone: callerPhone,
		logger:      logger,
	}
}

// Bind attaches the session-scoped booking proposal. The session owns the
// proposal's lifetime; the registry only reads and updates it.
func (r *Registry) Bind(booking *voice.BookingProposal) {
	r.booking = booking
}

// Execute dispatches one tool call. Failures come back as result payloads
// with success=false so the model can recover in conversation; an error
// return is reserved for adapter-level faults.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	switch name {
	case "lookup_work_order":
		return r.lookupWorkOrder(ctx, args)
	case "get_work_order_status":
		return r.workOrderStatus(ctx, args)
	case "get_business_hours":
		hours, err := r.adapter.BusinessHours(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"success": true, "hours": hours}, nil
	case "get_location":
		location, err := r.adapter.Location(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"success": true, "location": location}, nil
	case "list_services":
		services, err := r.adapter.ListServices(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"success": true, "services": services}, nil
	case "get_customer_vehicles":
		return r.customerVehicles(ctx, args)
	case "check_availability":
		return r.checkAvailability(ctx, args)
	case "propose_appointment":
		return r.proposeAppointment(args)
	case "confirm_appointment":
		return r.confirmAppointment(ctx, args)
	case "transfer_to_human":
		reason := stringArg(args, "reason")
		if reason == "" {
			reason = "Customer requested transfer"
		}
		return map[string]any{"success": true, "action": "transfer", "reason": reason}, nil
	}
	return map[string]any{"success": false, "error": fmt.Sprintf("unknown tool: %s", name)}, nil
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func (r *Registry) lookupWorkOrder(ctx context.Context, args map[string]any) (map[string]any, error) {
	orders, err := r.adapter.LookupWorkOrders(ctx, shopdata.LookupQuery{
		CustomerName: stringArg(args, "customer_name"),
		LastName:     stringArg(args, "last_name"),
		LicensePlate: stringArg(args, "license_plate"),
		Phone:        stringArg(args, "phone"),
	})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return map[string]any{
			"success": false,
			"message": "No work orders found matching the provided information.",
		}, nil
	}
	return map[string]any{"success": true, "work_orders": orderSummaries(orders)}, nil
}

func orderSummaries(orders []models.WorkOrder) []map[string]any {
	out := make([]map[string]any, 0, len(orders))
	for _, order := range orders {
		out = append(out, orderSummary(&order))
	}
	return out
}

func orderSummary(order *models.WorkOrder) map[string]any {
	summary := map[string]any{
		"order_id":      order.ID,
		"customer_name": order.CustomerName,
		"status":        string(order.Status),
		"description":   order.Description,
		"vehicle": map[string]any{
			"make":          order.Vehicle.Make,
			"model":         order.Vehicle.Model,
			"year":          order.Vehicle.Year,
			"license_plate": order.Vehicle.LicensePlate,
		},
	}
	if order.EstimatedDone != nil {
		summary["estimated_completion"] = order.EstimatedDone.Format(time.RFC3339)
	}
	return summary
}

func (r *Registry) workOrderStatus(ctx context.Context, args map[string]any) (map[string]any, error) {
	orderID := stringArg(args, "order_id")
	if orderID == "" {
		return map[string]any{"success": false, "error": "order_id is required"}, nil
	}
	order, err := r.adapter.WorkOrderStatus(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return map[string]any{
			"success": false,
			"message": fmt.Sprintf("Work order %s not found.", orderID),
		}, nil
	}
	result := orderSummary(order)
	result["success"] = true
	return result, nil
}

func (r *Registry) customerVehicles(ctx context.Context, args map[string]any) (map[string]any, error) {
	phone := stringArg(args, "phone")
	if phone == "" {
		phone = r.callerPhone
	}
	vehicles, err := r.adapter.CustomerVehicles(ctx, phone, stringArg(args, "customer_name"))
	if err != nil {
		return nil, err
	}
	if len(vehicles) == 0 {
		return map[string]any{"success": false, "message": "No vehicles found for this customer."}, nil
	}
	return map[string]any{"success": true, "vehicles": vehicles}, nil
}

func (r *Registry) checkAvailability(ctx context.Context, args map[string]any) (map[string]any, error) {
	date := stringArg(args, "date")
	if date == "" {
		return map[string]any{"success": false, "error": "date is required"}, nil
	}
	slots, err := r.adapter.CheckAvailability(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return map[string]any{"success": false, "message": "No open slots on that date."}, nil
	}
	return map[string]any{"success": true, "date": date, "available_slots": slots}, nil
}

func (r *Registry) proposeAppointment(args map[string]any) (map[string]any, error) {
	date := stringArg(args, "date")
	timeOfDay := stringArg(args, "time")
	if date == "" || timeOfDay == "" {
		return map[string]any{"success": false, "error": "date and time are required"}, nil
	}
	duration := 30
	if v, ok := args["duration_minutes"].(float64); ok && v > 0 {
		duration = int(v)
	}

	r.booking.Propose(date, timeOfDay, duration)
	r.logger.Info("appointment proposed",
		zap.String("callSid", r.callSID), zap.String("date", date), zap.String("time", timeOfDay))
	return map[string]any{
		"success": true,
		"status":  "proposed",
		"date":    date,
		"time":    timeOfDay,
		"message": "Slot proposed. Ask the customer to confirm before booking.",
	}, nil
}

// confirmAppointment books only when the caller confirmed the exact slot
// previously proposed. A mismatched or missing proposal never writes.
func (r *Registry) confirmAppointment(ctx context.Context, args map[string]any) (map[string]any, error) {
	date := stringArg(args, "date")
	timeOfDay := stringArg(args, "time")

	if !r.booking.HasProposal() {
		return map[string]any{
			"success": false,
			"error":   "No appointment has been proposed yet. Propose a slot first.",
		}, nil
	}
	if !r.booking.VerifyConfirmation(date, timeOfDay) {
		proposedDate, proposedTime, _ := r.booking.Details()
		r.logger.Warn("booking confirmation mismatch",
			zap.String("callSid", r.callSID),
			zap.String("proposed", proposedDate+" "+proposedTime),
			zap.String("requested", date+" "+timeOfDay))
		return map[string]any{
			"success": false,
			"error": fmt.Sprintf("The confirmed slot does not match the proposed one (%s at %s). Propose again.",
				proposedDate, proposedTime),
		}, nil
	}

	proposedDate, proposedTime, duration := r.booking.Details()
	appointment := &models.Appointment{
		CustomerName:    stringArg(args, "customer_name"),
		CustomerPhone:   r.callerPhone,
		Date:            proposedDate,
		TimeOfDay:       proposedTime,
		DurationMinutes: duration,
		Service:         stringArg(args, "service"),
		CallSID:         r.callSID,
	}
	if err := r.adapter.CreateAppointment(ctx, appointment); err != nil {
		return nil, err
	}
	r.booking.MarkConfirmed()

	r.logger.Info("appointment confirmed",
		zap.String("callSid", r.callSID), zap.String("date", proposedDate), zap.String("time", proposedTime))
	return map[string]any{
		"success": true,
		"status":  "booked",
		"date":    proposedDate,
		"time":    proposedTime,
	}, nil
}
