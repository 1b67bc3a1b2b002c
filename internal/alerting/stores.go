package alerting

import (
	"context"
	"time"

	"bloodalert/pkg/types"
)

// The persistence the engine needs. internal/store provides the Postgres
// implementations; every method is a single statement so callers can
// retry after a transient failure.

type UserStore interface {
	User(ctx context.Context, userID string) (*types.User, error)
	Donors(ctx context.Context) ([]*types.User, error)
}

type AlertStore interface {
	Create(ctx context.Context, alert *types.Alert) error
	Alert(ctx context.Context, alertID string) (*types.AlertView, error)
	AlertsByHospital(ctx context.Context, hospitalID string) ([]*types.AlertView, error)
	ActiveAlertsByBloodType(ctx context.Context, bloodType types.BloodType) ([]*types.AlertView, error)
	AllAlerts(ctx context.Context) ([]*types.AlertView, error)
	TransitionStatus(ctx context.Context, alertID string, from, to types.AlertStatus) (bool, error)
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
	CountAlerts(ctx context.Context, filter types.AlertFilter) (int, error)
}

type ResponseStore interface {
	Upsert(ctx context.Context, response *types.Response) error
	ResponsesByAlert(ctx context.Context, alertID string) ([]*types.ResponseView, error)
	CountResponses(ctx context.Context, filter types.ResponseFilter) (int, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n *types.Notification) error
	Notifications(ctx context.Context, filter types.NotificationFilter) ([]*types.Notification, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, alert *types.Alert, hospitalName string, donors []*types.User) []*types.Notification
}
