package http

import (
	"net/http"

	"github.com/caadev/tutortrainer/internal/config"
	"github.com/caadev/tutortrainer/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Identity      *service.IdentityService
	Conversations *service.ConversationService
	Orchestrator  *service.OrchestratorService
	Evaluations   *service.EvaluationService
	Exports       *service.ExportService
	Staff         config.Staff
}

// staffHeader carries the caller's username for staff-gated endpoints.
// Authentication proper is handled upstream; this service only checks the
// username against the configured staff list.
const staffHeader = "X-Staff-Username"

// requireStaff gates staff-only endpoints on the configured username list.
func (h *Handlers) requireStaff(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := r.Header.Get(staffHeader)
		if username == "" || !h.Staff.IsStaff(username) {
			writeError(w, http.StatusForbidden, "staff access required")
			return
		}
		next(w, r)
	}
}

// Health handles GET /api/v1/health.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
