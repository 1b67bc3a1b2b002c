// Package notify fans a newly created alert out to its eligible donors and
// keeps an audit record of every delivery attempt.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bloodalert/internal/utils"
	"bloodalert/pkg/types"

	"github.com/sirupsen/logrus"
)

type NotificationStore interface {
	Create(ctx context.Context, n *types.Notification) error
}

type Dispatcher struct {
	sink   Sink
	store  NotificationStore
	logger logrus.FieldLogger
	now    func() time.Time
}

func NewDispatcher(sink Sink, store NotificationStore, logger logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{sink: sink, store: store, logger: logger, now: time.Now}
}

// Dispatch sends one message per donor and records a notification for
// each, sent or failed. Errors from the sink or the store are logged and
// never returned; the records that were built are returned in donor order.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *types.Alert, hospitalName string, donors []*types.User) []*types.Notification {
	out := make([]*types.Notification, 0, len(donors))

	for _, donor := range donors {
		msg := Compose(alert, hospitalName, donor)

		n := &types.Notification{
			ID:             utils.NanoID(),
			AlertID:        alert.ID,
			RecipientID:    donor.ID,
			RecipientEmail: donor.Email,
			Subject:        msg.Subject,
			Body:           msg.Body,
			Status:         types.NotificationStatusSent,
		}

		entry := d.logger.WithFields(logrus.Fields{
			"alert_id": alert.ID,
			"donor_id": donor.ID,
		})

		if err := d.sink.Send(ctx, msg); err != nil {
			entry.WithError(err).Warn("notification delivery failed")
			n.Status = types.NotificationStatusFailed
			n.Error = utils.StringPtr(err.Error())
		}
		n.SentAt = d.now()

		if err := d.store.Create(ctx, n); err != nil {
			entry.WithError(err).Error("failed to record notification")
		}

		out = append(out, n)
	}

	d.logger.WithFields(logrus.Fields{
		"alert_id":   alert.ID,
		"recipients": len(donors),
	}).Info("alert dispatched")

	return out
}

// Compose builds the message a donor receives for an alert.
func Compose(alert *types.Alert, hospitalName string, donor *types.User) Message {
	if hospitalName == "" {
		hospitalName = "A nearby hospital"
	}

	description := "Emergency blood requirement"
	if d := utils.PtrString(alert.Description); strings.TrimSpace(d) != "" {
		description = d
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", donor.Name)
	fmt.Fprintf(&b, "%s has requested %d units of %s blood.\n\n", hospitalName, alert.UnitsNeeded, alert.BloodType)
	fmt.Fprintf(&b, "Urgency Level: %s\n", strings.ToUpper(string(alert.UrgencyLevel)))
	fmt.Fprintf(&b, "Description: %s\n\n", description)
	b.WriteString("Your blood type matches and you are within the search radius. ")
	b.WriteString("If you are available to donate, please respond as soon as possible.\n\n")
	b.WriteString("To respond to this alert, log in to the Blood Donation Portal.\n\n")
	b.WriteString("Thank you for your willingness to save lives!\n")

	return Message{
		To:      donor.Email,
		Subject: fmt.Sprintf("URGENT: %s Blood Needed at %s", alert.BloodType, hospitalName),
		Body:    b.String(),
	}
}
