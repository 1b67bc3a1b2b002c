package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bloodalert/internal/utils"
	"bloodalert/pkg/types"

	"github.com/sirupsen/logrus"
)

// Ledger records donor responses, one current answer per donor per alert.
type Ledger struct {
	alerts    AlertStore
	responses ResponseStore
	logger    logrus.FieldLogger
	now       func() time.Time
}

func NewLedger(alerts AlertStore, responses ResponseStore, logger logrus.FieldLogger, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{alerts: alerts, responses: responses, logger: logger, now: now}
}

// RecordResponse stores the calling donor's answer to an alert, replacing
// any earlier answer from the same donor.
func (l *Ledger) RecordResponse(ctx context.Context, caller types.Caller, alertID string, in types.RecordResponseInput) (*types.Response, error) {
	var donor types.Donor
	switch cl := caller.(type) {
	case types.Donor:
		donor = cl
	case types.HospitalStaff, types.Admin:
		return nil, forbidden(caller, "respond to alerts")
	default:
		return nil, forbidden(caller, "respond to alerts")
	}

	if _, err := l.alerts.Alert(ctx, alertID); err != nil {
		return nil, alertNotFound(err, alertID)
	}

	if !in.Response.Valid() {
		return nil, invalid("response", "must be available or not_available")
	}

	response := &types.Response{
		ID:          utils.NanoID(),
		AlertID:     alertID,
		DonorID:     donor.ID,
		Response:    in.Response,
		Message:     utils.TrimmedPtr(in.Message),
		RespondedAt: l.now(),
	}

	if err := l.responses.Upsert(ctx, response); err != nil {
		if errors.Is(err, types.ErrAlertNotFound) {
			return nil, alertNotFound(err, alertID)
		}
		return nil, fmt.Errorf("failed to record response: %w", err)
	}

	l.logger.WithFields(logrus.Fields{
		"alert_id": alertID,
		"donor_id": donor.ID,
		"response": response.Response,
	}).Info("donor response recorded")

	return response, nil
}

// ListResponses returns every response to an alert, newest first, to the
// hospital that raised it or to an admin.
func (l *Ledger) ListResponses(ctx context.Context, caller types.Caller, alertID string) ([]*types.ResponseView, error) {
	switch caller.(type) {
	case types.HospitalStaff, types.Admin:
	case types.Donor:
		return nil, forbidden(caller, "view alert responses")
	default:
		return nil, forbidden(caller, "view alert responses")
	}

	alert, err := l.alerts.Alert(ctx, alertID)
	if err != nil {
		return nil, alertNotFound(err, alertID)
	}

	if h, ok := caller.(types.HospitalStaff); ok && alert.HospitalID != h.ID {
		return nil, forbidden(caller, "view another hospital's responses")
	}

	responses, err := l.responses.ResponsesByAlert(ctx, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}

	return responses, nil
}
