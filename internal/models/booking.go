package models

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingRejected  BookingStatus = "rejected"
	BookingCancelled BookingStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingRejected, BookingCancelled:
		return true
	}
	return false
}

// Booking is a reservation request for a costume. UserName and CostumeName
// are snapshots taken at creation and are never rewritten.
type Booking struct {
	ID          string        `json:"id"`
	UserEmail   string        `json:"user_email"`
	UserName    string        `json:"user_name"`
	CostumeID   string        `json:"costume_id"`
	CostumeName string        `json:"costume_name"`
	StartDate   string        `json:"start_date"`
	EndDate     string        `json:"end_date"`
	Size        string        `json:"size"`
	Notes       *string       `json:"notes"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}

// BookingInput is the caller-supplied part of a new booking.
type BookingInput struct {
	CostumeID string  `json:"costume_id"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Size      string  `json:"size"`
	Notes     *string `json:"notes"`
}

// BookingStatusUpdate is the body of an admin status change.
type BookingStatusUpdate struct {
	Status string `json:"status"`
}
