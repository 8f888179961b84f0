package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/AbogiC/kostum-resonanz/internal/auth"
	"github.com/AbogiC/kostum-resonanz/internal/database"
	"github.com/AbogiC/kostum-resonanz/internal/models"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

// stepClock returns a clock that advances by step on every call.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := current
		current = current.Add(step)
		return t
	}
}

type published struct {
	action  string
	payload interface{}
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []published
}

func (p *recordingPublisher) Publish(action string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, published{action: action, payload: payload})
}

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.messages))
	for _, m := range p.messages {
		out = append(out, m.action)
	}
	return out
}

type fixture struct {
	db        *sql.DB
	tokens    *auth.TokenService
	events    *EventService
	accounts  *AccountService
	catalog   *CatalogService
	bookings  *BookingService
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	clock := stepClock(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC), time.Second)

	f := &fixture{
		db:        db,
		tokens:    auth.NewTokenService("test-secret", time.Hour),
		events:    NewEventService(db),
		publisher: &recordingPublisher{},
	}
	f.events.now = clock
	f.accounts = NewAccountService(db, f.tokens, f.events)
	f.accounts.now = clock
	f.catalog = NewCatalogService(db, f.events)
	f.catalog.now = clock
	f.bookings = NewBookingService(db, f.catalog, f.events, f.publisher)
	f.bookings.now = clock
	return f
}

var (
	testAdmin = models.Account{Email: "admin@theatrical.com", Name: "Admin User", Role: models.RoleAdmin}
	testUser  = models.Account{Email: "user@test.com", Name: "Test User", Role: models.RoleUser}
)

func (f *fixture) createCostume(t *testing.T, name string) models.Costume {
	t.Helper()
	c, err := f.catalog.CreateCostume(context.Background(), testAdmin, models.CostumeInput{
		Name:        name,
		Description: "A costume called " + name,
		Category:    "historical",
		Sizes:       []string{"S", "M", "L"},
		PricePerDay: 45,
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) createBooking(t *testing.T, requester models.Account, costumeID string) models.Booking {
	t.Helper()
	b, err := f.bookings.CreateBooking(context.Background(), requester, models.BookingInput{
		CostumeID: costumeID,
		StartDate: "2025-02-01",
		EndDate:   "2025-02-03",
		Size:      "M",
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) eventTypes(t *testing.T) []string {
	t.Helper()
	events, err := f.events.GetRecentEvents(context.Background(), MaxEventLimit)
	require.NoError(t, err)
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}
