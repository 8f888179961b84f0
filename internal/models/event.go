package models

import "time"

// Event represents an auditable action in the system.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`  // e.g., "booking.create", "booking.status"
	Level      string    `json:"level"` // e.g., "info", "warn", "error"
	Message    string    `json:"message"`
	BookingID  *string   `json:"booking_id,omitempty"` // Nullable for non-booking events
	ActorEmail string    `json:"actor_email,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
