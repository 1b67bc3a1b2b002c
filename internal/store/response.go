package store

import (
	"bloodalert/internal/utils"
	"bloodalert/pkg/types"
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const responseTableName = "responses"

var responseColumns = utils.StructTagValues(types.Response{})

type ResponseRepository struct {
	pool *pgxpool.Pool
}

func NewResponseRepository(pool *pgxpool.Pool) *ResponseRepository {
	return &ResponseRepository{pool: pool}
}

// Upsert records the donor's answer for an alert. The (alert_id, donor_id)
// unique constraint makes concurrent calls converge on one row; the row
// keeps its original id and takes the latest response, message and time.
// A missing alert surfaces as types.ErrAlertNotFound and a missing donor as
// types.ErrUserNotFound, told apart by the violated foreign key.
func (r *ResponseRepository) Upsert(ctx context.Context, response *types.Response) error {
	if response.ID == "" {
		response.ID = utils.NanoID()
	}
	if response.RespondedAt.IsZero() {
		response.RespondedAt = time.Now()
	}

	query, args, err := upsertResponseQuery(response)
	if err != nil {
		return fmt.Errorf("failed to generate upsert response query: %w", err)
	}

	err = r.pool.QueryRow(ctx, query, args...).Scan(&response.ID)
	if err != nil {
		if mapped := responseForeignKeyError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to upsert response for alert %s: %w", response.AlertID, err)
	}

	return nil
}

// Default Postgres names for the responses foreign keys.
const (
	responseAlertForeignKey = "responses_alert_id_fkey"
	responseDonorForeignKey = "responses_donor_id_fkey"
)

func responseForeignKeyError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgForeignKeyViolation {
		return nil
	}

	switch pgErr.ConstraintName {
	case responseAlertForeignKey:
		return types.ErrAlertNotFound
	case responseDonorForeignKey:
		return types.ErrUserNotFound
	}

	return nil
}

func upsertResponseQuery(response *types.Response) (string, []any, error) {
	return psql().
		Insert(responseTableName).
		SetMap(utils.StructToMap(response)).
		Suffix("ON CONFLICT (alert_id, donor_id) DO UPDATE SET " +
			"response = EXCLUDED.response, message = EXCLUDED.message, responded_at = EXCLUDED.responded_at " +
			"RETURNING id").
		ToSql()
}

func (r *ResponseRepository) ResponsesByAlert(ctx context.Context, alertID string) ([]*types.ResponseView, error) {
	query, args, err := responsesByAlertQuery(alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate responses query: %w", err)
	}

	responses := make([]*types.ResponseView, 0)
	err = pgxscan.Select(ctx, r.pool, &responses, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch responses for alert %s: %w", alertID, err)
	}

	return responses, nil
}

func responsesByAlertQuery(alertID string) (string, []any, error) {
	columns := append(utils.PrefixColumns("r", responseColumns),
		"u.name AS donor_name", "u.email AS donor_email", "u.phone AS donor_phone")

	return psql().
		Select(columns...).
		From(responseTableName+" r").
		Join(userTableName+" u ON u.id = r.donor_id").
		Where(sq.Eq{"r.alert_id": alertID}).
		OrderBy("r.responded_at DESC", "r.id DESC").
		ToSql()
}

func (r *ResponseRepository) CountResponses(ctx context.Context, filter types.ResponseFilter) (int, error) {
	query, args, err := countResponsesQuery(filter)
	if err != nil {
		return 0, fmt.Errorf("failed to generate response count query: %w", err)
	}

	var count int
	err = r.pool.QueryRow(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count responses: %w", err)
	}

	return count, nil
}

func countResponsesQuery(filter types.ResponseFilter) (string, []any, error) {
	builder := psql().Select("count(*)").From(responseTableName + " r")

	pred := sq.Eq{}
	if filter.HospitalID != "" {
		builder = builder.Join(alertTableName + " a ON a.id = r.alert_id")
		pred["a.hospital_id"] = filter.HospitalID
	}
	if filter.DonorID != "" {
		pred["r.donor_id"] = filter.DonorID
	}
	if filter.Response != "" {
		pred["r.response"] = filter.Response
	}
	if len(pred) > 0 {
		builder = builder.Where(pred)
	}

	return builder.ToSql()
}
