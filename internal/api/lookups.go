package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// LookupsHandler handles the category and place lookup endpoints.
type LookupsHandler struct {
	DB *sql.DB
}

type createCategoryRequest struct {
	Name string `json:"name"`
}

type createPlaceRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// ListCategories handles GET /api/categories.
func (h *LookupsHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := store.ListCategories(r.Context(), h.DB)
	if err != nil {
		storeError(w, err, "failed to list categories")
		return
	}
	if categories == nil {
		categories = []model.Category{}
	}
	jsonResponse(w, http.StatusOK, categories)
}

// CreateCategory handles POST /api/categories (admin only).
func (h *LookupsHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	category, err := store.CreateCategory(r.Context(), h.DB, req.Name)
	if err != nil {
		storeError(w, err, "failed to create category")
		return
	}
	jsonResponse(w, http.StatusCreated, category)
}

// ListPlaces handles GET /api/places.
func (h *LookupsHandler) ListPlaces(w http.ResponseWriter, r *http.Request) {
	places, err := store.ListPlaces(r.Context(), h.DB)
	if err != nil {
		storeError(w, err, "failed to list places")
		return
	}
	if places == nil {
		places = []model.Place{}
	}
	jsonResponse(w, http.StatusOK, places)
}

// CreatePlace handles POST /api/places (admin only).
func (h *LookupsHandler) CreatePlace(w http.ResponseWriter, r *http.Request) {
	var req createPlaceRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	place, err := store.CreatePlace(r.Context(), h.DB, req.Name, req.Address)
	if err != nil {
		storeError(w, err, "failed to create place")
		return
	}
	jsonResponse(w, http.StatusCreated, place)
}
