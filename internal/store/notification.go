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

const notificationTableName = "notifications"

var notificationColumns = utils.StructTagValues(types.Notification{})

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) Create(ctx context.Context, n *types.Notification) error {
	if n.ID == "" {
		n.ID = utils.NanoID()
	}
	if n.SentAt.IsZero() {
		n.SentAt = time.Now()
	}

	query, args, err := psql().
		Insert(notificationTableName).
		SetMap(utils.StructToMap(n)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert notification query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to record notification")
}

func (r *NotificationRepository) Notifications(ctx context.Context, filter types.NotificationFilter) ([]*types.Notification, error) {
	query, args, err := notificationsQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to generate notifications query: %w", err)
	}

	out := make([]*types.Notification, 0)
	if err := pgxscan.Select(ctx, r.pool, &out, query, args...); err != nil {
		return nil, fmt.Errorf("select notifications: %w", err)
	}

	return out, nil
}

func notificationsQuery(filter types.NotificationFilter) (string, []any, error) {
	builder := psql().
		Select(utils.PrefixColumns("n", notificationColumns)...).
		From(notificationTableName+" n").
		OrderBy("n.sent_at DESC", "n.id DESC")

	if filter.HospitalID != "" {
		builder = builder.
			Join(alertTableName + " a ON a.id = n.alert_id").
			Where(sq.Eq{"a.hospital_id": filter.HospitalID})
	}
	if filter.RecipientID != "" {
		builder = builder.Where(sq.Eq{"n.recipient_id": filter.RecipientID})
	}
	if filter.Since != nil {
		builder = builder.Where(sq.GtOrEq{"n.sent_at": *filter.Since})
	}
	if filter.Until != nil {
		builder = builder.Where(sq.Lt{"n.sent_at": *filter.Until})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}

	return builder.ToSql()
}
