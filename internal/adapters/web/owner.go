package web

import (
	"net/http"

	"inventory-admin/internal/core"

	"github.com/go-chi/chi/v5"
)

// listUsers handles GET /api/owner/users.
func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListUsers(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// createUser handles POST /api/owner/users.
// Body: { username, password, role, full_name? }
func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string    `json:"username"`
		Password string    `json:"password"`
		Role     core.Role `json:"role"`
		FullName string    `json:"full_name"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	u, err := h.svc.CreateUser(r.Context(), core.NewUser{
		Username: body.Username,
		Password: body.Password,
		Role:     body.Role,
		FullName: body.FullName,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, u)
}

// updateUser handles PUT /api/owner/users/{id}.
func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch core.UserPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	u, err := h.svc.UpdateUser(r.Context(), id, patch)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, u)
}

// deleteUser handles DELETE /api/owner/users/{id}.
func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteUser(r.Context(), id, actorFromRequest(r)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// userChanges handles GET /api/owner/users/{id}/changes.
func (h *Handler) userChanges(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	changes, err := h.svc.GetUserChanges(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, changes)
}

// listLogins handles GET /api/owner/logins and GET /api/owner/logins/{userId}.
func (h *Handler) listLogins(w http.ResponseWriter, r *http.Request) {
	var userID *int64
	if chi.URLParam(r, "userId") != "" {
		id, ok := pathID(w, r, "userId")
		if !ok {
			return
		}
		userID = &id
	}
	result, err := h.svc.ListLogins(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// getSettings handles GET /api/owner/settings.
func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.GetSettings(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, settings)
}

// updateSettings handles PUT /api/owner/settings.
// Body: { default_currency?, fx_fallback_sar?, pin? } where an empty pin clears it.
func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var patch core.SettingsPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	settings, err := h.svc.UpdateSettings(r.Context(), patch)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, settings)
}

// verifyPIN handles POST /api/settings/verify-pin.
func (h *Handler) verifyPIN(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PIN string `json:"pin"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	ok, err := h.svc.VerifyPIN(r.Context(), body.PIN)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	type response struct {
		Valid bool `json:"valid"`
	}
	writeJSON(w, response{Valid: ok})
}
