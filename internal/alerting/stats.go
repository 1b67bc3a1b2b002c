package alerting

import (
	"context"
	"fmt"

	"bloodalert/pkg/types"
)

// StatsAggregator computes dashboard counters straight from the alert and
// response tables on every call.
type StatsAggregator struct {
	alerts    AlertStore
	responses ResponseStore
}

func NewStatsAggregator(alerts AlertStore, responses ResponseStore) *StatsAggregator {
	return &StatsAggregator{alerts: alerts, responses: responses}
}

func (s *StatsAggregator) Stats(ctx context.Context, caller types.Caller) (*types.Stats, error) {
	switch cl := caller.(type) {
	case types.HospitalStaff:
		h, err := s.hospitalStats(ctx, cl.ID)
		if err != nil {
			return nil, err
		}
		return &types.Stats{Hospital: h}, nil
	case types.Donor:
		d, err := s.donorStats(ctx, cl)
		if err != nil {
			return nil, err
		}
		return &types.Stats{Donor: d}, nil
	case types.Admin:
		h, err := s.hospitalStats(ctx, "")
		if err != nil {
			return nil, err
		}
		return &types.Stats{Hospital: h}, nil
	default:
		return nil, forbidden(caller, "view stats")
	}
}

// hospitalStats scopes to one hospital, or the whole system for "".
func (s *StatsAggregator) hospitalStats(ctx context.Context, hospitalID string) (*types.HospitalStats, error) {
	var (
		out types.HospitalStats
		err error
	)

	if out.TotalAlerts, err = s.alerts.CountAlerts(ctx, types.AlertFilter{HospitalID: hospitalID}); err != nil {
		return nil, fmt.Errorf("failed to count alerts: %w", err)
	}
	if out.ActiveAlerts, err = s.alerts.CountAlerts(ctx, types.AlertFilter{HospitalID: hospitalID, Status: types.AlertStatusActive}); err != nil {
		return nil, fmt.Errorf("failed to count active alerts: %w", err)
	}
	if out.TotalResponses, err = s.responses.CountResponses(ctx, types.ResponseFilter{HospitalID: hospitalID}); err != nil {
		return nil, fmt.Errorf("failed to count responses: %w", err)
	}
	if out.AvailableResponses, err = s.responses.CountResponses(ctx, types.ResponseFilter{HospitalID: hospitalID, Response: types.ResponseAvailable}); err != nil {
		return nil, fmt.Errorf("failed to count available responses: %w", err)
	}
	if out.NotAvailableResponses, err = s.responses.CountResponses(ctx, types.ResponseFilter{HospitalID: hospitalID, Response: types.ResponseNotAvailable}); err != nil {
		return nil, fmt.Errorf("failed to count not available responses: %w", err)
	}

	return &out, nil
}

func (s *StatsAggregator) donorStats(ctx context.Context, donor types.Donor) (*types.DonorStats, error) {
	var (
		out = types.DonorStats{LastDonation: donor.LastDonationAt}
		err error
	)

	if donor.BloodType != "" {
		out.ActiveAlertsForBloodType, err = s.alerts.CountAlerts(ctx, types.AlertFilter{BloodType: donor.BloodType, Status: types.AlertStatusActive})
		if err != nil {
			return nil, fmt.Errorf("failed to count active alerts: %w", err)
		}
	}
	if out.TotalResponses, err = s.responses.CountResponses(ctx, types.ResponseFilter{DonorID: donor.ID}); err != nil {
		return nil, fmt.Errorf("failed to count responses: %w", err)
	}
	if out.AvailableResponses, err = s.responses.CountResponses(ctx, types.ResponseFilter{DonorID: donor.ID, Response: types.ResponseAvailable}); err != nil {
		return nil, fmt.Errorf("failed to count available responses: %w", err)
	}

	return &out, nil
}
