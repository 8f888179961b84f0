package handlers

import (
	"net/http"

	"github.com/AbogiC/kostum-resonanz/internal/models"
	"github.com/AbogiC/kostum-resonanz/internal/services"
	"github.com/go-chi/chi/v5"
)

// BookingHandler handles HTTP requests for bookings.
type BookingHandler struct {
	service services.BookingServiceProvider
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service services.BookingServiceProvider) *BookingHandler {
	return &BookingHandler{service: service}
}

// Create books a costume for the calling account.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	account, ok := currentAccount(w, r)
	if !ok {
		return
	}
	var input models.BookingInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, r, err, "Invalid booking body")
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), account, input)
	if err != nil {
		writeError(w, r, err, "Failed to create booking")
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

// ListMine returns the calling account's bookings.
func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	account, ok := currentAccount(w, r)
	if !ok {
		return
	}
	bookings, err := h.service.ListBookingsForAccount(r.Context(), account)
	if err != nil {
		writeError(w, r, err, "Failed to retrieve bookings")
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// ListAll returns every booking.
func (h *BookingHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	account, ok := currentAccount(w, r)
	if !ok {
		return
	}
	bookings, err := h.service.ListAllBookings(r.Context(), account)
	if err != nil {
		writeError(w, r, err, "Failed to retrieve all bookings")
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// UpdateStatus changes the status of a booking.
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	account, ok := currentAccount(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	var payload models.BookingStatusUpdate
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err, "Invalid status body")
		return
	}

	booking, err := h.service.UpdateBookingStatus(r.Context(), account, id, payload.Status)
	if err != nil {
		writeError(w, r, err, "Failed to update booking status")
		return
	}
	writeJSON(w, http.StatusOK, booking)
}
