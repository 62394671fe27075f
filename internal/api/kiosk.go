package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// KioskHandler handles the pickup flow at the locker kiosk.
type KioskHandler struct {
	DB *sql.DB
}

type collectRequest struct {
	ItemID int64 `json:"item_id"`
}

type collectResponse struct {
	LockerNumber int    `json:"locker_number"`
	Message      string `json:"message"`
}

// ListMine handles GET /api/kiosk/items: the caller's approved claims on
// items still waiting in a locker.
func (h *KioskHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	collectable, err := store.ListCollectable(r.Context(), h.DB, claims.MemberID)
	if err != nil {
		storeError(w, err, "failed to list collectable items")
		return
	}
	if collectable == nil {
		collectable = []model.Claim{}
	}
	jsonResponse(w, http.StatusOK, collectable)
}

// Collect handles POST /api/kiosk/collect. On success the response carries
// the locker number; opening the physical locker is the kiosk's job.
func (h *KioskHandler) Collect(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req collectRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ItemID == 0 {
		jsonError(w, http.StatusBadRequest, "item_id required")
		return
	}

	locker, err := store.Collect(r.Context(), h.DB, claims.MemberID, req.ItemID)
	if err != nil {
		storeError(w, err, "failed to collect item")
		return
	}

	slog.Info("item collected", "item", req.ItemID, "member", claims.MemberID, "locker", locker)
	jsonResponse(w, http.StatusOK, collectResponse{
		LockerNumber: locker,
		Message:      fmt.Sprintf("locker %d is opening", locker),
	})
}
