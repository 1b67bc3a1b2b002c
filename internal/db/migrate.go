package db

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the idempotent schema into the given schema name.
func Migrate(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	ddl := strings.ReplaceAll(schemaSQL, "{{schema}}", schema)

	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("apply schema %s: %w", schema, err)
	}

	return nil
}
