package main

import (
	"context"
	"fmt"

	"bloodalert/internal/db"

	"github.com/urfave/cli/v2"
)

var expireCommand = &cli.Command{
	Name:  "expire",
	Usage: "Mark active alerts past their expiry as expired",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		engine, err := newEngine(cfg, pool, logger)
		if err != nil {
			return err
		}

		n, err := engine.coordinator.ExpireStale(ctx)
		if err != nil {
			return err
		}

		logger.WithField("expired", n).Info("expiry sweep complete")

		return nil
	},
}
