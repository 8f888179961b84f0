package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/AbogiC/kostum-resonanz/internal/database"
	"github.com/AbogiC/kostum-resonanz/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Event types written to the audit log.
const (
	EventAccountRegister = "account.register"
	EventBookingCreate   = "booking.create"
	EventBookingStatus   = "booking.status"
	EventCostumeCreate   = "costume.create"
	EventCostumeUpdate   = "costume.update"
	EventCostumeDelete   = "costume.delete"
	EventBookingDigest   = "booking.digest"
)

const (
	DefaultEventLimit = 20
	MaxEventLimit     = 200
)

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, event models.Event) error
	GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error)
}

// EventService provides business logic for the audit log.
type EventService struct {
	db  *sql.DB
	now func() time.Time
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{db: db, now: time.Now}
}

// CreateEvent logs a new event to the database. ID, Level and CreatedAt are
// filled in when empty.
func (s *EventService) CreateEvent(ctx context.Context, event models.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Level == "" {
		event.Level = "info"
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (id, type, level, message, booking_id, actor_email, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		event.ID, event.Type, event.Level, event.Message, event.BookingID, event.ActorEmail, database.FormatTime(event.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetRecentEvents retrieves the most recent events, newest first. The limit
// is clamped to [1, MaxEventLimit]; zero or negative means DefaultEventLimit.
func (s *EventService) GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	if limit > MaxEventLimit {
		limit = MaxEventLimit
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, type, level, message, booking_id, actor_email, created_at FROM events ORDER BY created_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var (
			event     models.Event
			bookingID sql.NullString
			createdAt string
		)
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message, &bookingID, &event.ActorEmail, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if bookingID.Valid {
			event.BookingID = &bookingID.String
		}
		if event.CreatedAt, err = database.ParseTime(createdAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// recordEvent writes an audit entry. Failures are logged and swallowed so the
// mutation that triggered the event still succeeds.
func recordEvent(ctx context.Context, events EventServiceProvider, event models.Event) {
	if events == nil {
		return
	}
	if err := events.CreateEvent(ctx, event); err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("Failed to record event")
	}
}
