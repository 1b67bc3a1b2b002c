package main

import (
	"context"
	"fmt"

	"bloodalert/internal/db"
	"bloodalert/internal/seed"
	"bloodalert/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with demo hospital, donor and admin accounts",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logrus.Info("Connected to database")

		n, err := seed.SeedUsers(ctx, store.NewUserRepository(pool))
		if err != nil {
			return err
		}

		logrus.WithField("users", n).Info("Users seeded successfully")

		return nil
	},
}
