package server

import (
	"net/http"
)

func (s *Service) handleGetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, err := s.callerFromContext(ctx)
	if err != nil {
		s.internalServerError(w)
		return
	}

	stats, err := s.stats.Stats(ctx, caller)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, stats.Value())
}

// handleListNotifications serves the recorded outbound messages, standing
// in for a real mailbox.
func (s *Service) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, err := s.callerFromContext(ctx)
	if err != nil {
		s.internalServerError(w)
		return
	}

	notifications, err := s.coordinator.Notifications(ctx, caller)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, notifications)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
