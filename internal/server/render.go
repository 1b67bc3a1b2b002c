package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"bloodalert/pkg/types"
)

type messageResponse struct {
	Error string `json:"error"`
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

func (s *Service) writeMessage(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, messageResponse{Error: msg})
}

func (s *Service) internalServerError(w http.ResponseWriter) {
	s.writeMessage(w, http.StatusInternalServerError, "internal server error")
}

// writeError maps the engine's typed errors onto status codes. Anything
// else is logged and reported as a 500.
func (s *Service) writeError(w http.ResponseWriter, err error) {
	var (
		vErr    *types.ValidationError
		authErr *types.AuthorizationError
		nfErr   *types.NotFoundError
	)

	switch {
	case errors.As(err, &vErr):
		s.writeJSON(w, http.StatusBadRequest, fieldErrorsResponse{
			Error:       vErr.Error(),
			FieldErrors: map[string]string{vErr.Field: vErr.Reason},
		})
	case errors.As(err, &authErr):
		s.writeMessage(w, http.StatusForbidden, authErr.Error())
	case errors.As(err, &nfErr):
		s.writeMessage(w, http.StatusNotFound, nfErr.Error())
	case errors.Is(err, types.ErrUserNotFound):
		s.writeMessage(w, http.StatusNotFound, "user not found")
	default:
		s.logger.WithError(err).Error("request failed")
		s.internalServerError(w)
	}
}
