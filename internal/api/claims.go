package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/najdeno/internal/imaging"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// ClaimsHandler handles retrieval claims and their adjudication.
type ClaimsHandler struct {
	DB *sql.DB
}

type decideRequest struct {
	Action string `json:"action"` // "approve" or "reject"
}

// Create handles POST /api/claims (multipart form with optional proof photo).
func (h *ClaimsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<16)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	itemID, err := strconv.ParseInt(r.FormValue("item_id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "valid item_id required")
		return
	}
	description := r.FormValue("description")
	if description == "" {
		jsonError(w, http.StatusBadRequest, "proof description required")
		return
	}

	var proofData []byte
	var proofMime string
	if file, _, err := r.FormFile("proof"); err == nil {
		defer file.Close()
		photo, err := imaging.Process(file)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		proofData = photo.Data
		proofMime = photo.MIME
	}

	claim, err := store.SubmitClaim(r.Context(), h.DB, itemID, claims.MemberID,
		description, r.FormValue("location"), proofData, proofMime)
	if err != nil {
		storeError(w, err, "failed to submit claim")
		return
	}

	slog.Info("claim submitted", "claim", claim.ID, "item", itemID, "member", claims.MemberID)
	jsonResponse(w, http.StatusCreated, claim)
}

// ListPending handles GET /api/admin/claims (admin only), oldest first.
func (h *ClaimsHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	pending, err := store.ListPendingClaims(r.Context(), h.DB)
	if err != nil {
		storeError(w, err, "failed to list pending claims")
		return
	}
	if pending == nil {
		pending = []model.Claim{}
	}
	jsonResponse(w, http.StatusOK, pending)
}

// Decide handles POST /api/admin/claims/{id}/decide (admin only).
func (h *ClaimsHandler) Decide(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid claim id")
		return
	}

	var req decideRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var approve bool
	switch req.Action {
	case "approve":
		approve = true
	case "reject":
		approve = false
	default:
		jsonError(w, http.StatusBadRequest, "action must be approve or reject")
		return
	}

	if err := store.DecideClaim(r.Context(), h.DB, id, approve); err != nil {
		storeError(w, err, "failed to decide claim")
		return
	}

	slog.Info("claim decided", "claim", id, "action", req.Action)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "claim " + req.Action + "d"})
}

// GetProof handles GET /api/admin/claims/{id}/proof (admin only).
func (h *ClaimsHandler) GetProof(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid claim id")
		return
	}

	data, mime, err := store.GetClaimProof(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "failed to get claim proof")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no proof photo")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Write(data)
}
