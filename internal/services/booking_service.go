package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AbogiC/kostum-resonanz/internal/apperror"
	"github.com/AbogiC/kostum-resonanz/internal/auth"
	"github.com/AbogiC/kostum-resonanz/internal/database"
	"github.com/AbogiC/kostum-resonanz/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Actions published to live subscribers.
const (
	ActionBookingCreated = "booking.created"
	ActionBookingStatus  = "booking.status"
)

// ItemLookup resolves the costume a booking refers to.
type ItemLookup interface {
	GetCostumeByID(ctx context.Context, id string) (models.Costume, error)
}

// Publisher fans booking changes out to live subscribers.
type Publisher interface {
	Publish(action string, payload interface{})
}

// BookingServiceProvider defines the interface for booking services.
type BookingServiceProvider interface {
	CreateBooking(ctx context.Context, requester models.Account, input models.BookingInput) (models.Booking, error)
	GetBookingByID(ctx context.Context, id string) (models.Booking, error)
	ListBookingsForAccount(ctx context.Context, requester models.Account) ([]models.Booking, error)
	ListAllBookings(ctx context.Context, actor models.Account) ([]models.Booking, error)
	UpdateBookingStatus(ctx context.Context, actor models.Account, id string, status string) (models.Booking, error)
	CountByStatus(ctx context.Context) (map[models.BookingStatus]int, error)
}

// BookingService manages the booking lifecycle: creation in the pending
// state, per-account and admin listings, and admin status changes.
type BookingService struct {
	db        *sql.DB
	items     ItemLookup
	events    EventServiceProvider
	publisher Publisher
	now       func() time.Time
}

// NewBookingService creates a new BookingService. events and publisher may be nil.
func NewBookingService(db *sql.DB, items ItemLookup, events EventServiceProvider, publisher Publisher) *BookingService {
	return &BookingService{
		db:        db,
		items:     items,
		events:    events,
		publisher: publisher,
		now:       time.Now,
	}
}

const bookingColumns = "id, user_email, user_name, costume_id, costume_name, start_date, end_date, size, notes, status, created_at"

func scanBooking(scanner interface{ Scan(...interface{}) error }) (models.Booking, error) {
	var (
		b         models.Booking
		notes     sql.NullString
		status    string
		createdAt string
	)
	err := scanner.Scan(
		&b.ID, &b.UserEmail, &b.UserName, &b.CostumeID, &b.CostumeName,
		&b.StartDate, &b.EndDate, &b.Size, &notes, &status, &createdAt,
	)
	if err != nil {
		return b, err
	}
	if notes.Valid {
		b.Notes = &notes.String
	}
	b.Status = models.BookingStatus(status)
	if b.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return b, err
	}
	return b, nil
}

func (s *BookingService) queryBookings(ctx context.Context, query string, args ...interface{}) ([]models.Booking, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	bookings := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func validateBookingInput(input models.BookingInput) error {
	required := []struct{ field, value string }{
		{"costume_id", input.CostumeID},
		{"start_date", input.StartDate},
		{"end_date", input.EndDate},
		{"size", input.Size},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return apperror.InvalidArgument(r.field + " is required")
		}
	}
	return nil
}

// CreateBooking records a pending booking for requester. The costume name and
// the requester's name are copied into the booking and never updated.
func (s *BookingService) CreateBooking(ctx context.Context, requester models.Account, input models.BookingInput) (models.Booking, error) {
	if requester.Email == "" || !requester.Role.Valid() {
		return models.Booking{}, apperror.Unauthenticated("missing auth token")
	}
	if err := validateBookingInput(input); err != nil {
		return models.Booking{}, err
	}

	costume, err := s.items.GetCostumeByID(ctx, input.CostumeID)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return models.Booking{}, apperror.NotFound("costume not found")
		}
		return models.Booking{}, err
	}

	booking := models.Booking{
		ID:          uuid.New().String(),
		UserEmail:   requester.Email,
		UserName:    requester.Name,
		CostumeID:   costume.ID,
		CostumeName: costume.Name,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		Size:        input.Size,
		Notes:       input.Notes,
		Status:      models.BookingPending,
		CreatedAt:   s.now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO bookings ("+bookingColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		booking.ID, booking.UserEmail, booking.UserName, booking.CostumeID, booking.CostumeName,
		booking.StartDate, booking.EndDate, booking.Size, booking.Notes, string(booking.Status),
		database.FormatTime(booking.CreatedAt),
	)
	if err != nil {
		return models.Booking{}, fmt.Errorf("insert booking: %w", err)
	}

	log.Info().Str("booking_id", booking.ID).Str("email", booking.UserEmail).Str("costume_id", booking.CostumeID).Msg("Booking created")
	recordEvent(ctx, s.events, models.Event{
		Type:       EventBookingCreate,
		Message:    fmt.Sprintf("%s requested '%s' from %s to %s", booking.UserName, booking.CostumeName, booking.StartDate, booking.EndDate),
		BookingID:  &booking.ID,
		ActorEmail: booking.UserEmail,
	})
	s.publish(ActionBookingCreated, booking)

	return booking, nil
}

// GetBookingByID retrieves a single booking by its ID.
func (s *BookingService) GetBookingByID(ctx context.Context, id string) (models.Booking, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id = ?", id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Booking{}, apperror.NotFound("booking not found")
		}
		return models.Booking{}, fmt.Errorf("query booking: %w", err)
	}
	return b, nil
}

// ListBookingsForAccount returns the requester's own bookings, newest first.
func (s *BookingService) ListBookingsForAccount(ctx context.Context, requester models.Account) ([]models.Booking, error) {
	if requester.Email == "" {
		return nil, apperror.Unauthenticated("missing auth token")
	}
	return s.queryBookings(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE user_email = ? ORDER BY created_at DESC, rowid DESC",
		requester.Email,
	)
}

// ListAllBookings returns every booking, newest first. Admin only.
func (s *BookingService) ListAllBookings(ctx context.Context, actor models.Account) ([]models.Booking, error) {
	if _, err := auth.RequireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	return s.queryBookings(ctx, "SELECT "+bookingColumns+" FROM bookings ORDER BY created_at DESC, rowid DESC")
}

// UpdateBookingStatus sets the status of a booking. Admin only. Any known
// status may follow any other, and concurrent updates to the same booking
// are last-write-wins.
func (s *BookingService) UpdateBookingStatus(ctx context.Context, actor models.Account, id string, status string) (models.Booking, error) {
	if _, err := auth.RequireRole(actor, models.RoleAdmin); err != nil {
		return models.Booking{}, err
	}
	newStatus := models.BookingStatus(status)
	if !newStatus.Valid() {
		return models.Booking{}, apperror.InvalidArgument(fmt.Sprintf("unknown booking status %q", status))
	}

	res, err := s.db.ExecContext(ctx, "UPDATE bookings SET status = ? WHERE id = ?", string(newStatus), id)
	if err != nil {
		return models.Booking{}, fmt.Errorf("update booking status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Booking{}, fmt.Errorf("update booking status: %w", err)
	}
	if n == 0 {
		return models.Booking{}, apperror.NotFound("booking not found")
	}

	booking, err := s.GetBookingByID(ctx, id)
	if err != nil {
		return models.Booking{}, err
	}

	log.Info().Str("booking_id", id).Str("status", string(newStatus)).Str("actor", actor.Email).Msg("Booking status updated")
	recordEvent(ctx, s.events, models.Event{
		Type:       EventBookingStatus,
		Message:    fmt.Sprintf("Booking for '%s' by %s set to %s", booking.CostumeName, booking.UserName, newStatus),
		BookingID:  &booking.ID,
		ActorEmail: actor.Email,
	})
	s.publish(ActionBookingStatus, booking)

	return booking, nil
}

// CountByStatus returns the number of bookings in each status.
func (s *BookingService) CountByStatus(ctx context.Context) (map[models.BookingStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM bookings GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.BookingStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan booking count: %w", err)
		}
		counts[models.BookingStatus(status)] = n
	}
	return counts, rows.Err()
}

func (s *BookingService) publish(action string, booking models.Booking) {
	if s.publisher != nil {
		s.publisher.Publish(action, booking)
	}
}
