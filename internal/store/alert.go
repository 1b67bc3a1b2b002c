package store

import (
	"bloodalert/internal/utils"
	"bloodalert/pkg/types"
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const alertTableName = "alerts"

var alertColumns = utils.StructTagValues(types.Alert{})

type AlertRepository struct {
	pool *pgxpool.Pool
}

func NewAlertRepository(pool *pgxpool.Pool) *AlertRepository {
	return &AlertRepository{pool: pool}
}

// alertViews selects alerts joined with the raising hospital's name.
func alertViews() sq.SelectBuilder {
	columns := append(utils.PrefixColumns("a", alertColumns), "u.hospital_name")
	return psql().
		Select(columns...).
		From(alertTableName + " a").
		LeftJoin(userTableName + " u ON u.id = a.hospital_id")
}

func (r *AlertRepository) Create(ctx context.Context, alert *types.Alert) error {
	if alert.ID == "" {
		alert.ID = utils.NanoID()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}

	query, args, err := psql().Insert(alertTableName).SetMap(utils.StructToMap(alert)).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert alert query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create alert")
}

func (r *AlertRepository) Alert(ctx context.Context, alertID string) (*types.AlertView, error) {
	query, args, err := alertViews().
		Where(sq.Eq{"a.id": alertID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate alert query: %w", err)
	}

	var alert types.AlertView
	err = pgxscan.Get(ctx, r.pool, &alert, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to fetch alert %s: %w", alertID, err)
	}

	return &alert, nil
}

func (r *AlertRepository) AlertsByHospital(ctx context.Context, hospitalID string) ([]*types.AlertView, error) {
	return r.list(ctx, sq.Eq{"a.hospital_id": hospitalID})
}

func (r *AlertRepository) ActiveAlertsByBloodType(ctx context.Context, bloodType types.BloodType) ([]*types.AlertView, error) {
	return r.list(ctx, sq.Eq{"a.blood_type": bloodType, "a.status": types.AlertStatusActive})
}

func (r *AlertRepository) AllAlerts(ctx context.Context) ([]*types.AlertView, error) {
	return r.list(ctx, nil)
}

func (r *AlertRepository) list(ctx context.Context, pred sq.Sqlizer) ([]*types.AlertView, error) {
	builder := alertViews().OrderBy("a.created_at DESC", "a.id DESC")
	if pred != nil {
		builder = builder.Where(pred)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate alert list query: %w", err)
	}

	alerts := make([]*types.AlertView, 0)
	err = pgxscan.Select(ctx, r.pool, &alerts, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	return alerts, nil
}

// TransitionStatus moves an alert from one status to another in a single
// conditional update. It reports false when the alert was not in from.
func (r *AlertRepository) TransitionStatus(ctx context.Context, alertID string, from, to types.AlertStatus) (bool, error) {
	query, args, err := psql().
		Update(alertTableName).
		Set("status", to).
		Where(sq.Eq{"id": alertID, "status": from}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to generate alert status query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update status for alert %s: %w", alertID, err)
	}

	return tag.RowsAffected() == 1, nil
}

// ExpireStale marks active alerts whose expiry has passed as expired and
// returns how many changed.
func (r *AlertRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	query, args, err := expireStaleQuery(now)
	if err != nil {
		return 0, fmt.Errorf("failed to generate expire query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to expire alerts: %w", err)
	}

	return tag.RowsAffected(), nil
}

func expireStaleQuery(now time.Time) (string, []any, error) {
	return psql().
		Update(alertTableName).
		Set("status", types.AlertStatusExpired).
		Where(sq.Eq{"status": types.AlertStatusActive}).
		Where(sq.LtOrEq{"expires_at": now}).
		ToSql()
}

func (r *AlertRepository) CountAlerts(ctx context.Context, filter types.AlertFilter) (int, error) {
	query, args, err := countAlertsQuery(filter)
	if err != nil {
		return 0, fmt.Errorf("failed to generate alert count query: %w", err)
	}

	var count int
	err = r.pool.QueryRow(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	return count, nil
}

func countAlertsQuery(filter types.AlertFilter) (string, []any, error) {
	pred := sq.Eq{}
	if filter.HospitalID != "" {
		pred["hospital_id"] = filter.HospitalID
	}
	if filter.BloodType != "" {
		pred["blood_type"] = filter.BloodType
	}
	if filter.Status != "" {
		pred["status"] = filter.Status
	}

	builder := psql().Select("count(*)").From(alertTableName)
	if len(pred) > 0 {
		builder = builder.Where(pred)
	}

	return builder.ToSql()
}
