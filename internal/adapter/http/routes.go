package http

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)

		// Users
		r.Post("/users/resolve", h.ResolveUser)

		// Conversations
		r.Route("/users/{userID}/conversations", func(r chi.Router) {
			r.Get("/", h.ListConversations)
			r.Post("/next-name", h.NextConversationName)
			r.Get("/{name}", h.GetConversation)
			r.Delete("/{name}", h.DeleteConversation)
			r.Get("/{name}/transcript", h.GetTranscript)
			r.Post("/{name}/messages", h.SendMessage)
			r.Post("/{name}/export", h.ExportConversation)

			// Evaluation is a staff workflow.
			r.Post("/{name}/evaluate", h.requireStaff(h.EvaluateConversation))
			r.Get("/{name}/evaluations", h.requireStaff(h.ListEvaluations))
		})

		// Staff review and analytics
		r.Get("/staff/users", h.requireStaff(h.ListUsers))
		r.Get("/staff/conversations", h.requireStaff(h.ListAllConversations))
		r.Get("/staff/stats", h.requireStaff(h.Stats))
	})
}
