package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// MembersHandler handles admin-facing member endpoints.
type MembersHandler struct {
	DB *sql.DB
}

// List handles GET /api/admin/members.
func (h *MembersHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := store.ListMembers(r.Context(), h.DB)
	if err != nil {
		storeError(w, err, "failed to list members")
		return
	}
	if members == nil {
		members = []model.Member{}
	}
	jsonResponse(w, http.StatusOK, members)
}

// Get handles GET /api/admin/members/{id}.
func (h *MembersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	member, err := store.GetMember(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "failed to get member")
		return
	}
	if member == nil {
		jsonError(w, http.StatusNotFound, "member not found")
		return
	}
	jsonResponse(w, http.StatusOK, member)
}

// Delete handles DELETE /api/admin/members/{id}.
func (h *MembersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	if err := store.DeleteMember(r.Context(), h.DB, id); err != nil {
		storeError(w, err, "failed to delete member")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "member deleted"})
}
