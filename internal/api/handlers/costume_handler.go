package handlers

import (
	"net/http"

	"github.com/AbogiC/kostum-resonanz/internal/models"
	"github.com/AbogiC/kostum-resonanz/internal/services"
	"github.com/go-chi/chi/v5"
)

// CostumeHandler handles HTTP requests related to the costume catalog.
type CostumeHandler struct {
	service services.CatalogServiceProvider
}

// NewCostumeHandler creates a new CostumeHandler.
func NewCostumeHandler(service services.CatalogServiceProvider) *CostumeHandler {
	return &CostumeHandler{service: service}
}

// GetAll lists costumes, optionally filtered by the category and search query parameters.
func (h *CostumeHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	costumes, err := h.service.ListCostumes(r.Context(), models.CostumeFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	})
	if err != nil {
		writeError(w, r, err, "Failed to retrieve costumes")
		return
	}
	writeJSON(w, http.StatusOK, costumes)
}

// Get handles the request to get a single costume by its ID.
func (h *CostumeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	costume, err := h.service.GetCostumeByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "Failed to get costume by ID")
		return
	}
	writeJSON(w, http.StatusOK, costume)
}

// Create handles the request to add a costume.
func (h *CostumeHandler) Create(w http.ResponseWriter, r *http.Request) {
	account, ok := currentAccount(w, r)
	if !ok {
		return
	}
	var input models.CostumeInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, r, err, "Invalid costume body")
		return
	}

	costume, err := h.service.CreateCostume(r.Context(), account, input)
	if err != nil {
		writeError(w, r, err, "Failed to create costume")
		return
	}
	writeJSON(w, http.StatusCreated, costume)
}

// Update handles the request to replace an existing costume.
func (h *CostumeHandler) Update(w http.ResponseWriter, r *http.Request) {
	account, ok := currentAccount(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	var input models.CostumeInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, r, err, "Invalid costume body")
		return
	}

	costume, err := h.service.UpdateCostume(r.Context(), account, id, input)
	if err != nil {
		writeError(w, r, err, "Failed to update costume")
		return
	}
	writeJSON(w, http.StatusOK, costume)
}

// Delete handles the request to remove a costume.
func (h *CostumeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	account, ok := currentAccount(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteCostume(r.Context(), account, id); err != nil {
		writeError(w, r, err, "Failed to delete costume")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Costume deleted successfully"})
}
