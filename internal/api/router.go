package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/properties", func(r chi.Router) {
			r.Get("/", s.handleListProperties)
			r.Get("/{key}", s.handleGetProperty)
			r.Put("/{key}", s.handleSetProperty)
		})

		r.Get("/notifications", s.handleListNotifications)

		r.Route("/rpc", func(r chi.Router) {
			r.Get("/", s.handleListRPC)
			r.Post("/{name}", s.handleRPCPost)
			r.Get("/{name}", s.handleRPCGet)
		})

		r.Get("/audit", s.handleListAudit)

		r.Route("/provisioning", func(r chi.Router) {
			r.Get("/", s.handleGetProvisioning)
			r.Post("/", s.handleStartProvisioning)
		})
	})

	r.Get(s.wsPath(), s.handleWebSocket)

	if s.panel != nil {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/panel/", http.StatusFound)
		})
		r.Mount("/panel", http.StripPrefix("/panel", s.panel))
	}

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": s.version,
	}
	if s.runtime != nil {
		if id := s.runtime.Identity(); id != nil {
			resp["device_id"] = id.DeviceIDHex()
		}
	}
	if s.link != nil {
		resp["cloud_connected"] = s.link.IsConnected()
	}
	writeJSON(w, http.StatusOK, resp)
}
