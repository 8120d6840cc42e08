package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"revline/services/shopdata"
	"revline/services/voice"
)

func newTestRegistry() (*Registry, *voice.BookingProposal) {
	booking := voice.NewBookingProposal()
	r := NewRegistry(shopdata.NewDemoAdapter(), "CA123", "+15550001111", zap.NewNop())
	r.Bind(booking)
	return r, booking
}

func TestLookupWorkOrder(t *testing.T) {
	r, _ := newTestRegistry()

	result, err := r.Execute(context.Background(), "lookup_work_order", map[string]any{
		"last_name": "Smith",
	})
	require.NoError(t, err)
	assert.Equal(t, true, result["success"])
	orders := result["work_orders"].([]map[string]any)
	require.Len(t, orders, 1)
	assert.Equal(t, "WO-1001", orders[0]["order_id"])
}

func TestLookupWorkOrderNoMatch(t *testing.T) {
	r, _ := newTestRegistry()

	result, err := r.Execute(context.Background(), "lookup_work_order", map[string]any{
		"last_name": "Nobody",
	})
	require.NoError(t, err)
	assert.Equal(t, false, result["success"])
	assert.Contains(t, result["message"], "No work orders found")
}

func TestCustomerVehiclesDefaultsToCallerPhone(t *testing.T) {
	r, _ := newTestRegistry()

	// No phone argument: the caller's own number is used.
	result, err := r.Execute(context.Background(), "get_customer_vehicles", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, true, result["success"])
}

func TestBookingFlow(t *testing.T) {
	r, booking := newTestRegistry()
	ctx := context.Background()

	result, err := r.Execute(ctx, "propose_appointment", map[string]any{
		"date": "2026-09-03", "time": "10:00", "duration_minutes": float64(45),
	})
	require.NoError(t, err)
	assert.Equal(t, true, result["success"])
	assert.True(t, booking.HasProposal())

	result, err = r.Execute(ctx, "confirm_appointment", map[string]any{
		"date": "2026-09-03", "time": "10:00", "customer_name": "John Smith",
	})
	require.NoError(t, err)
	assert.Equal(t, true, result["success"])
	assert.Equal(t, "booked", result["status"])
	assert.True(t, booking.Confirmed())

	// The booked slot is gone from availability.
	result, err = r.Execute(ctx, "check_availability", map[string]any{"date": "2026-09-03"})
	require.NoError(t, err)
	assert.NotContains(t, result["available_slots"], "10:00")
}

func TestConfirmWithoutProposal(t *testing.T) {
	r, booking := newTestRegistry()

	result, err := r.Execute(context.Background(), "confirm_appointment", map[string]any{
		"date": "2026-09-03", "time": "10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, false, result["success"])
	assert.False(t, booking.Confirmed())
}

func TestConfirmMismatchedSlot(t *testing.T) {
	r, booking := newTestRegistry()
	ctx := context.Background()

	_, err := r.Execute(ctx, "propose_appointment", map[string]any{
		"date": "2026-09-03", "time": "10:00",
	})
	require.NoError(t, err)

	result, err := r.Execute(ctx, "confirm_appointment", map[string]any{
		"date": "2026-09-03", "time": "14:00",
	})
	require.NoError(t, err)
	assert.Equal(t, false, result["success"])
	assert.False(t, booking.Confirmed(), "a mismatched confirmation must not book")
}

func TestTransferToHuman(t *testing.T) {
	r, _ := newTestRegistry()

	result, err := r.Execute(context.Background(), "transfer_to_human", map[string]any{
		"reason": "caller asked for the manager",
	})
	require.NoError(t, err)
	assert.Equal(t, "transfer", result["action"])

	// Missing reason falls back to a default.
	result, err = r.Execute(context.Background(), "transfer_to_human", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "Customer requested transfer", result["reason"])
}

func TestUnknownTool(t *testing.T) {
	r, _ := newTestRegistry()

	result, err := r.Execute(context.Background(), "order_pizza", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, false, result["success"])
	assert.Contains(t, result["error"], "unknown tool")
}

func TestDefinitionsCoverAllTools(t *testing.T) {
	r, _ := newTestRegistry()

	names := make(map[string]bool)
	for _, def := range r.Definitions() {
		names[def.Name] = true
	}
	for _, want := range []string{
		"lookup_work_order", "get_work_order_status", "get_business_hours",
		"get_location", "list_services", "get_customer_vehicles",
		"check_availability", "propose_appointment", "confirm_appointment",
		"transfer_to_human",
	} {
		assert.True(t, names[want], want)
	}
}
