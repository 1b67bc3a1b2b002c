package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bloodalert/internal/db"
	"bloodalert/internal/server"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(config)
	if err != nil {
		return err
	}

	awsConfig, err := loadAWSConfig(ctx)
	if err != nil {
		return err
	}

	cognitoClient := cognitoidentityprovider.NewFromConfig(awsConfig)

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	engine, err := newEngine(config, pool, logger)
	if err != nil {
		return err
	}

	jwkCache, err := jwk.NewCache(ctx, httprc.NewClient())
	if err != nil {
		return fmt.Errorf("failed to initialize jwk cache: %w", err)
	}

	jwksURL := fmt.Sprintf("%s/.well-known/jwks.json", config.CognitoIssuerURL)

	err = jwkCache.Register(ctx, jwksURL)
	if err != nil {
		return fmt.Errorf("failed to register cognito jwks with cache: %w", err)
	}

	srv, err := server.New(
		config,
		logger,
		cognitoClient,
		server.NewJWKSVerifier(jwkCache, jwksURL),
		engine.users,
		engine.coordinator,
		engine.ledger,
		engine.stats,
	)
	if err != nil {
		return err
	}

	var sweeper *cron.Cron
	if config.ExpirySweepSpec != "" {
		sweeper = cron.New(cron.WithLogger(cron.PrintfLogger(logger)))
		_, err := sweeper.AddFunc(config.ExpirySweepSpec, func() {
			sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()
			if _, err := engine.coordinator.ExpireStale(sweepCtx); err != nil {
				logger.WithError(err).Error("expiry sweep failed")
			}
		})
		if err != nil {
			return fmt.Errorf("invalid EXPIRY_SWEEP_SPEC %q: %w", config.ExpirySweepSpec, err)
		}
		sweeper.Start()
	}

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if sweeper != nil {
		<-sweeper.Stop().Done()
	}

	err = srv.Stop(shutdownCtx)

	engine.coordinator.Wait()
	logger.Info("pending notification dispatches drained")

	return err
}
