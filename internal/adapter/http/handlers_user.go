package http

import (
	"net/http"
)

type resolveUserRequest struct {
	Username string `json:"username"`
}

// ResolveUser handles POST /api/v1/users/resolve. Returns the user record,
// creating it with a fresh id when the username is new.
func (h *Handlers) ResolveUser(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[resolveUserRequest](w, r)
	if !ok {
		return
	}
	u, err := h.Identity.ResolveUser(r.Context(), req.Username)
	if err != nil {
		writeDomainError(w, err, "resolve user")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// ListUsers handles GET /api/v1/staff/users.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Identity.ListUsers(r.Context())
	if err != nil {
		writeDomainError(w, err, "list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}
