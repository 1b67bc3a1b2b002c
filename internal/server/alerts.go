package server

import (
	"net/http"

	"bloodalert/pkg/types"
)

type statusRequest struct {
	Status types.AlertStatus `json:"status" form:"status"`
}

func (s *Service) handlePostAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, err := s.callerFromContext(ctx)
	if err != nil {
		s.internalServerError(w)
		return
	}

	in := types.CreateAlertInput{RadiusKm: s.config.DefaultRadiusKm}
	if err := decodeRequest(r, &in); err != nil {
		s.writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	alert, err := s.coordinator.CreateAlert(ctx, caller, in)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, alert)
}

func (s *Service) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, err := s.callerFromContext(ctx)
	if err != nil {
		s.internalServerError(w)
		return
	}

	alerts, err := s.coordinator.ListAlerts(ctx, caller)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, alerts)
}

func (s *Service) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, err := s.callerFromContext(ctx)
	if err != nil {
		s.internalServerError(w)
		return
	}

	alert, err := s.coordinator.GetAlert(ctx, caller, r.PathValue("alertID"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, alert)
}

func (s *Service) handlePatchAlertStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, err := s.callerFromContext(ctx)
	if err != nil {
		s.internalServerError(w)
		return
	}

	var req statusRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	alert, err := s.coordinator.UpdateStatus(ctx, caller, r.PathValue("alertID"), req.Status)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, alert)
}

func (s *Service) handlePostResponse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, err := s.callerFromContext(ctx)
	if err != nil {
		s.internalServerError(w)
		return
	}

	var in types.RecordResponseInput
	if err := decodeRequest(r, &in); err != nil {
		s.writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	response, err := s.ledger.RecordResponse(ctx, caller, r.PathValue("alertID"), in)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Service) handleListResponses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, err := s.callerFromContext(ctx)
	if err != nil {
		s.internalServerError(w)
		return
	}

	responses, err := s.ledger.ListResponses(ctx, caller, r.PathValue("alertID"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, responses)
}
