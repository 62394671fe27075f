package api

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/najdeno/internal/imaging"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// ItemsHandler handles found-item registration and listing endpoints.
type ItemsHandler struct {
	DB *sql.DB

	// DefaultLocker is assigned when the kiosk doesn't supply one.
	DefaultLocker int
}

// itemView augments an item with the availability fields derived at read
// time; the lock expires by clock passage alone so these are never stored.
type itemView struct {
	model.Item
	IsAvailable   bool   `json:"is_available"`
	DisplayStatus string `json:"display_status"`
	LockMessage   string `json:"lock_message,omitempty"`
}

func newItemView(item model.Item, now time.Time) itemView {
	return itemView{
		Item:          item,
		IsAvailable:   item.Available(now),
		DisplayStatus: item.DisplayStatus(now),
		LockMessage:   item.LockMessage(now),
	}
}

// Create handles POST /api/items (kiosk registration, multipart form).
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<16)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	name := r.FormValue("name")
	if name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}
	categoryID, err := strconv.ParseInt(r.FormValue("category_id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "valid category_id required")
		return
	}
	placeID, err := strconv.ParseInt(r.FormValue("place_id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "valid place_id required")
		return
	}

	// Anonymous hand-ins are allowed; a finder id earns the reward.
	var finderID *int64
	if v := r.FormValue("finder_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid finder_id")
			return
		}
		finderID = &id
	}

	locker := h.DefaultLocker
	if v := r.FormValue("locker_number"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, http.StatusBadRequest, "invalid locker_number")
			return
		}
		locker = n
	}

	// Photo is optional; validate it before touching the database so a
	// bad upload fails the whole registration and the kiosk can retake it.
	var photo *imaging.Photo
	if file, _, err := r.FormFile("image"); err == nil {
		defer file.Close()
		photo, err = imaging.Process(file)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	item, err := store.CreateItem(r.Context(), h.DB, name, categoryID, placeID,
		r.FormValue("description"), r.FormValue("found_date"), finderID, locker)
	if err != nil {
		storeError(w, err, "failed to register item")
		return
	}

	if photo != nil {
		if err := store.SetItemImage(r.Context(), h.DB, item.ID, photo.Data, photo.MIME); err != nil {
			storeError(w, err, "failed to save item photo")
			return
		}
		// The item is already registered; if the re-read fails, respond
		// with the pre-photo row rather than erroring out.
		if updated, err := store.GetItem(r.Context(), h.DB, item.ID); err == nil && updated != nil {
			item = updated
		}
	}

	jsonResponse(w, http.StatusCreated, newItemView(*item, time.Now()))
}

// List handles GET /api/items: items still claimable or under an active
// claim, with availability derived per row at read time.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListOpenItems(r.Context(), h.DB)
	if err != nil {
		storeError(w, err, "failed to list items")
		return
	}

	now := time.Now()
	views := make([]itemView, 0, len(items))
	for _, item := range items {
		views = append(views, newItemView(item, now))
	}
	jsonResponse(w, http.StatusOK, views)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItemDetail(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	jsonResponse(w, http.StatusOK, newItemView(*item, time.Now()))
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	data, mime, err := store.GetItemImage(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "failed to get item photo")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no photo")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}
