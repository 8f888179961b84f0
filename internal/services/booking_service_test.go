package services

import (
	"context"
	"sync"
	"testing"

	"github.com/AbogiC/kostum-resonanz/internal/apperror"
	"github.com/AbogiC/kostum-resonanz/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countBookings(t *testing.T, f *fixture) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow("SELECT COUNT(*) FROM bookings").Scan(&n))
	return n
}

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.createCostume(t, "Victorian Gown")
	notes := "Need it for opening night"

	b, err := f.bookings.CreateBooking(ctx, testUser, models.BookingInput{
		CostumeID: c.ID,
		StartDate: "2025-02-01",
		EndDate:   "2025-02-03",
		Size:      "M",
		Notes:     &notes,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, models.BookingPending, b.Status)
	assert.Equal(t, "user@test.com", b.UserEmail)
	assert.Equal(t, "Test User", b.UserName)
	assert.Equal(t, "Victorian Gown", b.CostumeName)

	stored, err := f.bookings.GetBookingByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, stored.ID)
	require.NotNil(t, stored.Notes)
	assert.Equal(t, notes, *stored.Notes)
	assert.True(t, stored.CreatedAt.Equal(b.CreatedAt))

	assert.Equal(t, []string{ActionBookingCreated}, f.publisher.actions())
	assert.Contains(t, f.eventTypes(t), EventBookingCreate)
}

func TestCreateBooking_WithoutNotes(t *testing.T) {
	f := newFixture(t)
	c := f.createCostume(t, "Pirate Captain")
	b := f.createBooking(t, testUser, c.ID)

	stored, err := f.bookings.GetBookingByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Notes)
}

func TestCreateBooking_SnapshotSurvivesRename(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.createCostume(t, "Victorian Gown")
	b := f.createBooking(t, testUser, c.ID)

	_, err := f.catalog.UpdateCostume(ctx, testAdmin, c.ID, models.CostumeInput{Name: "Renamed Gown"})
	require.NoError(t, err)
	_, err = f.db.Exec("UPDATE accounts SET name = ? WHERE email = ?", "Renamed User", testUser.Email)
	require.NoError(t, err)

	stored, err := f.bookings.GetBookingByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Victorian Gown", stored.CostumeName)
	assert.Equal(t, "Test User", stored.UserName)

	// Deleting the costume does not remove the booking either.
	require.NoError(t, f.catalog.DeleteCostume(ctx, testAdmin, c.ID))
	_, err = f.bookings.GetBookingByID(ctx, b.ID)
	assert.NoError(t, err)
}

func TestCreateBooking_UnknownCostume(t *testing.T) {
	f := newFixture(t)
	_, err := f.bookings.CreateBooking(context.Background(), testUser, models.BookingInput{
		CostumeID: "nonexistent-id", StartDate: "2025-02-01", EndDate: "2025-02-03", Size: "M",
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.Zero(t, countBookings(t, f))
	assert.Empty(t, f.publisher.actions())
}

func TestCreateBooking_MissingFields(t *testing.T) {
	f := newFixture(t)
	c := f.createCostume(t, "Victorian Gown")
	full := models.BookingInput{CostumeID: c.ID, StartDate: "2025-02-01", EndDate: "2025-02-03", Size: "M"}

	mutations := map[string]func(*models.BookingInput){
		"costume_id": func(in *models.BookingInput) { in.CostumeID = "" },
		"start_date": func(in *models.BookingInput) { in.StartDate = "" },
		"end_date":   func(in *models.BookingInput) { in.EndDate = " " },
		"size":       func(in *models.BookingInput) { in.Size = "" },
	}
	for field, mutate := range mutations {
		t.Run(field, func(t *testing.T) {
			in := full
			mutate(&in)
			_, err := f.bookings.CreateBooking(context.Background(), testUser, in)
			require.Error(t, err)
			assert.Equal(t, apperror.KindInvalidArgument, apperror.KindOf(err))
			assert.Contains(t, apperror.Message(err), field)
		})
	}
	assert.Zero(t, countBookings(t, f))
}

func TestCreateBooking_UnresolvedRequester(t *testing.T) {
	f := newFixture(t)
	c := f.createCostume(t, "Victorian Gown")

	_, err := f.bookings.CreateBooking(context.Background(), models.Account{}, models.BookingInput{
		CostumeID: c.ID, StartDate: "2025-02-01", EndDate: "2025-02-03", Size: "M",
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindUnauthenticated, apperror.KindOf(err))
	assert.Zero(t, countBookings(t, f))
}

func TestListBookingsForAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := models.Account{Email: "other@test.com", Name: "Other", Role: models.RoleUser}

	empty, err := f.bookings.ListBookingsForAccount(ctx, testUser)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	c := f.createCostume(t, "Victorian Gown")
	first := f.createBooking(t, testUser, c.ID)
	f.createBooking(t, other, c.ID)
	second := f.createBooking(t, testUser, c.ID)

	mine, err := f.bookings.ListBookingsForAccount(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)
	for _, b := range mine {
		assert.Equal(t, testUser.Email, b.UserEmail)
	}
}

func TestListAllBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.bookings.ListAllBookings(ctx, testAdmin)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	c := f.createCostume(t, "Victorian Gown")
	first := f.createBooking(t, testUser, c.ID)
	second := f.createBooking(t, models.Account{Email: "other@test.com", Name: "Other", Role: models.RoleUser}, c.ID)

	all, err := f.bookings.ListAllBookings(ctx, testAdmin)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)
}

func TestListAllBookings_ForbiddenForUser(t *testing.T) {
	f := newFixture(t)
	c := f.createCostume(t, "Victorian Gown")
	f.createBooking(t, testUser, c.ID)

	list, err := f.bookings.ListAllBookings(context.Background(), testUser)
	require.Error(t, err)
	assert.Nil(t, list)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestUpdateBookingStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.createCostume(t, "Victorian Gown")
	b := f.createBooking(t, testUser, c.ID)

	// No transition guard: every known status is reachable from every other.
	for _, status := range []models.BookingStatus{
		models.BookingConfirmed, models.BookingCancelled, models.BookingPending, models.BookingRejected, models.BookingConfirmed,
	} {
		updated, err := f.bookings.UpdateBookingStatus(ctx, testAdmin, b.ID, string(status))
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)
		assert.Equal(t, "Victorian Gown", updated.CostumeName)
	}

	stored, err := f.bookings.GetBookingByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, stored.Status)

	actions := f.publisher.actions()
	require.Len(t, actions, 6)
	assert.Equal(t, ActionBookingStatus, actions[5])
	assert.Contains(t, f.eventTypes(t), EventBookingStatus)
}

func TestUpdateBookingStatus_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.createCostume(t, "Victorian Gown")
	b := f.createBooking(t, testUser, c.ID)

	_, err := f.bookings.UpdateBookingStatus(ctx, testAdmin, "nonexistent-id", "confirmed")
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	for _, status := range []string{"approved", "", "CONFIRMED", "completed"} {
		_, err = f.bookings.UpdateBookingStatus(ctx, testAdmin, b.ID, status)
		assert.Equal(t, apperror.KindInvalidArgument, apperror.KindOf(err), status)
	}

	_, err = f.bookings.UpdateBookingStatus(ctx, testUser, b.ID, "confirmed")
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	// A forbidden caller is rejected before the id is looked at.
	_, err = f.bookings.UpdateBookingStatus(ctx, testUser, "nonexistent-id", "confirmed")
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	stored, err := f.bookings.GetBookingByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, stored.Status)
}

func TestUpdateBookingStatus_ConcurrentLastWriteWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.createCostume(t, "Victorian Gown")
	b := f.createBooking(t, testUser, c.ID)

	statuses := []string{"confirmed", "rejected", "cancelled", "confirmed", "rejected"}
	var wg sync.WaitGroup
	errs := make([]error, len(statuses))
	for i, s := range statuses {
		wg.Add(1)
		go func(i int, s string) {
			defer wg.Done()
			_, errs[i] = f.bookings.UpdateBookingStatus(ctx, testAdmin, b.ID, s)
		}(i, s)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	stored, err := f.bookings.GetBookingByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Contains(t, statuses, string(stored.Status))
}

func TestCountByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	counts, err := f.bookings.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)

	c := f.createCostume(t, "Victorian Gown")
	f.createBooking(t, testUser, c.ID)
	f.createBooking(t, testUser, c.ID)
	b := f.createBooking(t, testUser, c.ID)
	_, err = f.bookings.UpdateBookingStatus(ctx, testAdmin, b.ID, "confirmed")
	require.NoError(t, err)

	counts, err = f.bookings.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[models.BookingPending])
	assert.Equal(t, 1, counts[models.BookingConfirmed])
	assert.Zero(t, counts[models.BookingRejected])
}
