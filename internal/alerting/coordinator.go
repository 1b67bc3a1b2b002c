// Package alerting is the alert matching and response coordination
// engine. Every operation takes a resolved types.Caller and branches on
// its concrete variant.
package alerting

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"bloodalert/internal/matching"
	"bloodalert/internal/utils"
	"bloodalert/pkg/types"

	"github.com/sirupsen/logrus"
)

// notificationListLimit caps the mock email listing.
const notificationListLimit = 100

type Options struct {
	// Async hands dispatch to a background goroutine so alert creation
	// returns without waiting on delivery.
	Async       bool
	Eligibility *matching.EligibilityFilter
	Now         func() time.Time
}

// Coordinator owns alert creation, matching and lifecycle.
type Coordinator struct {
	alerts        AlertStore
	users         UserStore
	notifications NotificationStore
	dispatcher    Dispatcher
	eligibility   *matching.EligibilityFilter
	logger        logrus.FieldLogger
	async         bool
	now           func() time.Time

	inflight sync.WaitGroup
}

func NewCoordinator(
	alerts AlertStore,
	users UserStore,
	notifications NotificationStore,
	dispatcher Dispatcher,
	logger logrus.FieldLogger,
	opts Options,
) *Coordinator {
	if opts.Eligibility == nil {
		opts.Eligibility = matching.NewEligibilityFilter()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Coordinator{
		alerts:        alerts,
		users:         users,
		notifications: notifications,
		dispatcher:    dispatcher,
		eligibility:   opts.Eligibility,
		logger:        logger,
		async:         opts.Async,
		now:           opts.Now,
	}
}

func validateCreateAlert(in types.CreateAlertInput) error {
	if !in.BloodType.Valid() {
		return invalid("bloodType", fmt.Sprintf("%q is not a recognised blood type", in.BloodType))
	}
	if in.UnitsNeeded < 1 {
		return invalid("unitsNeeded", "must be at least 1")
	}
	if !in.UrgencyLevel.Valid() {
		return invalid("urgencyLevel", "must be one of medium, high, critical")
	}
	if !(in.RadiusKm > 0) || math.IsInf(in.RadiusKm, 0) {
		return invalid("radiusKm", "must be a positive number")
	}
	return nil
}

// CreateAlert records a new active alert for the calling hospital and
// notifies every eligible donor in range. Matching and delivery problems
// are logged; they never undo the alert.
func (c *Coordinator) CreateAlert(ctx context.Context, caller types.Caller, in types.CreateAlertInput) (*types.Alert, error) {
	var hospital types.HospitalStaff
	switch cl := caller.(type) {
	case types.HospitalStaff:
		hospital = cl
	case types.Donor, types.Admin:
		return nil, forbidden(caller, "create alerts")
	default:
		return nil, forbidden(caller, "create alerts")
	}

	if err := validateCreateAlert(in); err != nil {
		return nil, err
	}

	now := c.now()
	alert := &types.Alert{
		ID:           utils.NanoID(),
		HospitalID:   hospital.ID,
		BloodType:    in.BloodType,
		UnitsNeeded:  in.UnitsNeeded,
		UrgencyLevel: in.UrgencyLevel,
		Description:  utils.TrimmedPtr(in.Description),
		RadiusKm:     in.RadiusKm,
		Status:       types.AlertStatusActive,
		CreatedAt:    now,
		ExpiresAt:    utils.TimePtr(now.Add(in.UrgencyLevel.TTL())),
	}
	if hospital.Location != nil {
		alert.Latitude = utils.Float64Ptr(hospital.Location.Lat)
		alert.Longitude = utils.Float64Ptr(hospital.Location.Lon)
	}

	if err := c.alerts.Create(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"alert_id":    alert.ID,
		"hospital_id": hospital.ID,
		"blood_type":  alert.BloodType,
		"urgency":     alert.UrgencyLevel,
		"radius_km":   alert.RadiusKm,
	}).Info("alert created")

	dispatched := *alert
	if c.async {
		c.inflight.Add(1)
		go func() {
			defer c.inflight.Done()
			c.notifyMatching(context.WithoutCancel(ctx), &dispatched, hospital.HospitalName)
		}()
	} else {
		c.notifyMatching(ctx, &dispatched, hospital.HospitalName)
	}

	return alert, nil
}

func (c *Coordinator) notifyMatching(ctx context.Context, alert *types.Alert, hospitalName string) {
	entry := c.logger.WithField("alert_id", alert.ID)

	var center *types.Point
	if alert.Latitude != nil && alert.Longitude != nil {
		center = &types.Point{Lat: *alert.Latitude, Lon: *alert.Longitude}
	}
	if center == nil {
		entry.Warn("hospital has no registered location, no donors matched")
		return
	}

	donors, err := c.Match(ctx, *center, alert.RadiusKm, alert.BloodType)
	if err != nil {
		entry.WithError(err).Error("failed to match donors")
		return
	}

	entry.WithField("eligible", len(donors)).Info("donors matched")
	if len(donors) == 0 {
		return
	}

	c.dispatcher.Dispatch(ctx, alert, hospitalName, donors)
}

// Match runs the matching pipeline against the current donor pool
// without creating anything.
func (c *Coordinator) Match(ctx context.Context, center types.Point, radiusKm float64, bloodType types.BloodType) ([]*types.User, error) {
	pool, err := c.users.Donors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load donor pool: %w", err)
	}

	candidates := matching.FindCandidates(center, radiusKm, pool)
	return c.eligibility.FilterEligible(candidates, bloodType), nil
}

// Wait blocks until background dispatches have finished.
func (c *Coordinator) Wait() {
	c.inflight.Wait()
}

// ListAlerts returns the role-scoped alert view, newest first.
func (c *Coordinator) ListAlerts(ctx context.Context, caller types.Caller) ([]*types.AlertView, error) {
	var (
		alerts []*types.AlertView
		err    error
	)

	switch cl := caller.(type) {
	case types.HospitalStaff:
		alerts, err = c.alerts.AlertsByHospital(ctx, cl.ID)
	case types.Donor:
		if cl.BloodType == "" {
			return []*types.AlertView{}, nil
		}
		alerts, err = c.alerts.ActiveAlertsByBloodType(ctx, cl.BloodType)
	case types.Admin:
		alerts, err = c.alerts.AllAlerts(ctx)
	default:
		return nil, forbidden(caller, "list alerts")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	return alerts, nil
}

// GetAlert returns a single alert to any authenticated caller.
func (c *Coordinator) GetAlert(ctx context.Context, caller types.Caller, alertID string) (*types.AlertView, error) {
	if caller == nil {
		return nil, forbidden(caller, "read alerts")
	}

	alert, err := c.alerts.Alert(ctx, alertID)
	if err != nil {
		return nil, alertNotFound(err, alertID)
	}

	return alert, nil
}

// UpdateStatus closes an active alert as fulfilled or cancelled. Only the
// raising hospital or an admin may do so.
func (c *Coordinator) UpdateStatus(ctx context.Context, caller types.Caller, alertID string, status types.AlertStatus) (*types.AlertView, error) {
	switch caller.(type) {
	case types.HospitalStaff, types.Admin:
	case types.Donor:
		return nil, forbidden(caller, "change alert status")
	default:
		return nil, forbidden(caller, "change alert status")
	}

	if status != types.AlertStatusFulfilled && status != types.AlertStatusCancelled {
		return nil, invalid("status", "must be fulfilled or cancelled")
	}

	alert, err := c.alerts.Alert(ctx, alertID)
	if err != nil {
		return nil, alertNotFound(err, alertID)
	}

	if h, ok := caller.(types.HospitalStaff); ok && alert.HospitalID != h.ID {
		return nil, forbidden(caller, "change another hospital's alert")
	}

	if alert.Status != types.AlertStatusActive {
		return nil, invalid("status", fmt.Sprintf("alert is already %s", alert.Status))
	}

	moved, err := c.alerts.TransitionStatus(ctx, alertID, types.AlertStatusActive, status)
	if err != nil {
		return nil, fmt.Errorf("failed to update alert status: %w", err)
	}
	if !moved {
		return nil, invalid("status", "alert is no longer active")
	}

	c.logger.WithFields(logrus.Fields{
		"alert_id": alertID,
		"status":   status,
	}).Info("alert status changed")

	alert.Status = status
	return alert, nil
}

// ExpireStale closes every active alert whose expiry has passed.
func (c *Coordinator) ExpireStale(ctx context.Context) (int64, error) {
	n, err := c.alerts.ExpireStale(ctx, c.now())
	if err != nil {
		return 0, err
	}

	if n > 0 {
		c.logger.WithField("expired", n).Info("expired stale alerts")
	}

	return n, nil
}

// Notifications lists recorded notifications visible to the caller:
// donors see their own, hospitals those sent for their alerts, admins all.
func (c *Coordinator) Notifications(ctx context.Context, caller types.Caller) ([]*types.Notification, error) {
	filter := types.NotificationFilter{Limit: notificationListLimit}

	switch cl := caller.(type) {
	case types.Donor:
		filter.RecipientID = cl.ID
	case types.HospitalStaff:
		filter.HospitalID = cl.ID
	case types.Admin:
	default:
		return nil, forbidden(caller, "list notifications")
	}

	out, err := c.notifications.Notifications(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return out, nil
}
