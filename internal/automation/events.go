package automation

// Event types produced across the platform. Payloads are JSON-encoded into
// the outbox and carried opaquely through the queue.
const (
	EventContactCreated  = "contact.created"
	EventBookingCreated  = "booking.created"
	EventBookingReminder = "booking.reminder"
	EventInventoryLow    = "inventory.low"
	EventStaffReplied    = "staff.replied"
)

// ContactCreatedPayload announces a new CRM contact.
type ContactCreatedPayload struct {
	ContactID string `json:"contact_id"`
	Name      string `json:"name"`
	Source    string `json:"source,omitempty"`
}

// BookingEventPayload announces a created booking or an upcoming one due for
// a reminder.
type BookingEventPayload struct {
	BookingID   string `json:"booking_id"`
	ContactID   string `json:"contact_id"`
	ServiceID   string `json:"service_id"`
	ServiceName string `json:"service_name"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time,omitempty"`
}

// InventoryLowPayload announces an item crossing its low-stock threshold.
type InventoryLowPayload struct {
	ItemID    string `json:"item_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Threshold int    `json:"threshold"`
}

// StaffRepliedPayload announces a manual staff reply in a conversation.
type StaffRepliedPayload struct {
	ConversationID string `json:"conversation_id"`
	ContactID      string `json:"contact_id"`
}
