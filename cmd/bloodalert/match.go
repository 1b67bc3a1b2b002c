package main

import (
	"context"
	"fmt"

	"bloodalert/internal/db"
	"bloodalert/internal/matching"
	"bloodalert/internal/utils"
	"bloodalert/pkg/types"

	"github.com/k0kubun/pp/v3"
	"github.com/urfave/cli/v2"
)

type matchRow struct {
	ID         string
	Name       string
	BloodType  types.BloodType
	DistanceKm float64
}

var matchCommand = &cli.Command{
	Name:  "match",
	Usage: "Show which donors an alert would reach, without creating it",
	Flags: []cli.Flag{
		&cli.Float64Flag{Name: "lat", Usage: "Search center latitude", Required: true},
		&cli.Float64Flag{Name: "lon", Usage: "Search center longitude", Required: true},
		&cli.Float64Flag{Name: "radius", Aliases: []string{"r"}, Usage: "Radius in km (defaults to DEFAULT_RADIUS_KM)"},
		&cli.StringFlag{Name: "blood-type", Aliases: []string{"b"}, Usage: "Requested blood type", Required: true},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		bloodType := types.BloodType(c.String("blood-type"))
		if !bloodType.Valid() {
			return fmt.Errorf("unknown blood type %q", bloodType)
		}

		radius := c.Float64("radius")
		if radius == 0 {
			radius = cfg.DefaultRadiusKm
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

		center := types.Point{Lat: c.Float64("lat"), Lon: c.Float64("lon")}
		donors, err := engine.coordinator.Match(ctx, center, radius, bloodType)
		if err != nil {
			return err
		}

		rows := make([]matchRow, 0, len(donors))
		for _, d := range donors {
			row := matchRow{ID: d.ID, Name: d.Name}
			if d.BloodType != nil {
				row.BloodType = *d.BloodType
			}
			if loc := d.Location(); loc != nil {
				row.DistanceKm = utils.RoundFloat64(matching.DistanceKm(center, *loc), 2)
			}
			rows = append(rows, row)
		}

		pp.Println(rows)
		fmt.Printf("%d eligible donors within %.1f km\n", len(rows), radius)

		return nil
	},
}
