package main

import (
	"context"
	"fmt"
	"time"

	"bloodalert/internal/alerting"
	"bloodalert/internal/matching"
	"bloodalert/internal/notify"
	"bloodalert/internal/store"
	"bloodalert/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

func loadConfig() (*types.Config, error) {
	c := new(types.Config)
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("set DATABASE_URL")
	}

	if c.ServerPort == 0 {
		c.ServerPort = 8080
	}

	if c.ReadTimeoutSec == 0 {
		c.ReadTimeoutSec = 10
	}

	if c.WriteTimeoutSec == 0 {
		c.WriteTimeoutSec = 15
	}

	if c.DatabaseSchema == "" {
		c.DatabaseSchema = "bloodalert"
	}

	if c.DefaultRadiusKm <= 0 {
		c.DefaultRadiusKm = 50
	}

	if c.MinDonationIntervalDays < 0 {
		return nil, fmt.Errorf("MIN_DONATION_INTERVAL_DAYS must not be negative")
	}

	return c, nil
}

func loadAWSConfig(ctx context.Context) (aws.Config, error) {
	config, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}

	return config, nil
}

func newLogger(c *types.Config) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	logger.SetLevel(level)

	return logger, nil
}

func newEligibility(c *types.Config) (*matching.EligibilityFilter, error) {
	policy, err := matching.ParseBloodPolicy(c.BloodMatchPolicy)
	if err != nil {
		return nil, err
	}

	filter := matching.NewEligibilityFilter()
	filter.Policy = policy
	if c.MinDonationIntervalDays > 0 {
		filter.Recency = matching.MinInterval(time.Duration(c.MinDonationIntervalDays) * 24 * time.Hour)
	}

	return filter, nil
}

type engine struct {
	users         *store.UserRepository
	alerts        *store.AlertRepository
	responses     *store.ResponseRepository
	notifications *store.NotificationRepository

	coordinator *alerting.Coordinator
	ledger      *alerting.Ledger
	stats       *alerting.StatsAggregator
}

func newEngine(c *types.Config, pool *pgxpool.Pool, logger *logrus.Logger) (*engine, error) {
	eligibility, err := newEligibility(c)
	if err != nil {
		return nil, err
	}

	e := &engine{
		users:         store.NewUserRepository(pool),
		alerts:        store.NewAlertRepository(pool),
		responses:     store.NewResponseRepository(pool),
		notifications: store.NewNotificationRepository(pool),
	}

	dispatcher := notify.NewDispatcher(notify.NewLogSink(logger), e.notifications, logger)

	e.coordinator = alerting.NewCoordinator(e.alerts, e.users, e.notifications, dispatcher, logger, alerting.Options{
		Async:       c.DispatchAsync,
		Eligibility: eligibility,
	})
	e.ledger = alerting.NewLedger(e.alerts, e.responses, logger, nil)
	e.stats = alerting.NewStatsAggregator(e.alerts, e.responses)

	return e, nil
}
