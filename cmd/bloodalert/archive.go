package main

import (
	"context"
	"fmt"
	"time"

	"bloodalert/internal/db"
	"bloodalert/internal/storage"
	"bloodalert/internal/store"
	"bloodalert/internal/utils"
	"bloodalert/pkg/types"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var archiveCommand = &cli.Command{
	Name:  "archive",
	Usage: "Upload the notification audit for a time window to S3",
	Flags: []cli.Flag{
		&cli.TimestampFlag{Name: "since", Usage: "Window start (RFC 3339)", Layout: time.RFC3339},
		&cli.TimestampFlag{Name: "until", Usage: "Window end, exclusive (RFC 3339)", Layout: time.RFC3339},
		&cli.DurationFlag{Name: "window", Usage: "Window length when --since is omitted", Value: 24 * time.Hour},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		until := time.Now().UTC().Truncate(time.Hour)
		if t := c.Timestamp("until"); t != nil {
			until = *t
		}
		since := until.Add(-c.Duration("window"))
		if t := c.Timestamp("since"); t != nil {
			since = *t
		}
		if !since.Before(until) {
			return fmt.Errorf("--since must be before --until")
		}

		ctx := context.Background()

		awsConfig, err := loadAWSConfig(ctx)
		if err != nil {
			return err
		}

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		notifications, err := store.NewNotificationRepository(pool).Notifications(ctx, types.NotificationFilter{
			Since: utils.TimePtr(since),
			Until: utils.TimePtr(until),
		})
		if err != nil {
			return err
		}

		archive := storage.NewNotificationArchive(s3.NewFromConfig(awsConfig), cfg.ArchiveBucket, cfg.ArchivePrefix)
		key, err := archive.Upload(ctx, since, until, notifications)
		if err != nil {
			return err
		}

		logrus.WithFields(logrus.Fields{
			"bucket":        cfg.ArchiveBucket,
			"key":           key,
			"notifications": len(notifications),
		}).Info("notification archive uploaded")

		return nil
	},
}
