package tools

import "revline/services/voice"

func objectSchema(properties map[string]any, required ...string) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// Definitions returns the tool schema sent to the realtime session.
func (r *Registry) Definitions() []voice.ToolDefinition {
	return []voice.ToolDefinition{
		{
			Name:        "lookup_work_order",
			Description: "Look up the status of a customer's vehicle or work order. Use this when a caller asks about their car, vehicle status, or repair progress.",
			Parameters: objectSchema(map[string]any{
				"customer_name": stringProp("The customer's full name (e.g., 'John Smith')"),
				"last_name":     stringProp("The customer's last name only (e.g., 'Smith')"),
				"license_plate": stringProp("The vehicle's license plate number"),
				"phone":         stringProp("The customer's phone number"),
			}),
		},
		{
			Name:        "get_work_order_status",
			Description: "Get detailed status of a specific work order by its ID.",
			Parameters: objectSchema(map[string]any{
				"order_id": stringProp("The work order ID (e.g., 'WO-1001')"),
			}, "order_id"),
		},
		{
			Name:        "get_business_hours",
			Description: "Get the shop's business hours. Use this when a caller asks what time you open, close, or your hours of operation.",
			Parameters:  objectSchema(map[string]any{}),
		},
		{
			Name:        "get_location",
			Description: "Get the shop's address and location. Use this when a caller asks where you are located or for directions.",
			Parameters:  objectSchema(map[string]any{}),
		},
		{
			Name:        "list_services",
			Description: "Get a list of services offered by the shop. Use this when a caller asks what services you provide or if you do a specific type of repair.",
			Parameters:  objectSchema(map[string]any{}),
		},
		{
			Name:        "get_customer_vehicles",
			Description: "Look up vehicles associated with a customer by their phone number or name.",
			Parameters: objectSchema(map[string]any{
				"phone":         stringProp("The customer's phone number"),
				"customer_name": stringProp("The customer's name"),
			}),
		},
		{
			Name:        "check_availability",
			Description: "Check open appointment slots on a date. Use this before proposing a time to the caller.",
			Parameters: objectSchema(map[string]any{
				"date": stringProp("The date to check, as YYYY-MM-DD"),
			}, "date"),
		},
		{
			Name:        "propose_appointment",
			Description: "Propose one specific appointment slot to the caller. Always propose before confirming, and wait for an explicit yes.",
			Parameters: objectSchema(map[string]any{
				"date":             stringProp("Appointment date, as YYYY-MM-DD"),
				"time":             stringProp("Appointment time, as HH:MM"),
				"duration_minutes": map[string]any{"type": "number", "description": "Expected duration in minutes"},
			}, "date", "time"),
		},
		{
			Name:        "confirm_appointment",
			Description: "Book the appointment the caller explicitly confirmed. The date and time must match the proposed slot exactly.",
			Parameters: objectSchema(map[string]any{
				"date":          stringProp("Confirmed date, as YYYY-MM-DD"),
				"time":          stringProp("Confirmed time, as HH:MM"),
				"customer_name": stringProp("The customer's name for the booking"),
				"service":       stringProp("The service being booked"),
			}, "date", "time"),
		},
		{
			Name:        "transfer_to_human",
			Description: "Transfer the call to a human. Use this when the caller explicitly asks to speak with a person, or when you cannot help them.",
			Parameters: objectSchema(map[string]any{
				"reason": stringProp("Brief reason for the transfer"),
			}, "reason"),
		},
	}
}
