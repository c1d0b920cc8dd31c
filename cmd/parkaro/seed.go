package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Spok95/parkaro/internal/domain/locations"
	"github.com/Spok95/parkaro/internal/domain/pricing"
	"github.com/Spok95/parkaro/internal/domain/refunds"
	"github.com/Spok95/parkaro/internal/domain/vehicles"
	"github.com/Spok95/parkaro/internal/infra/db"
)

func demoLocation() locations.Location {
	return locations.Location{
		Name:       "Demo Parking",
		Address:    "MG Road 1",
		TotalSlots: 4,
		HourlyRate: decimal.NewFromInt(50),
		DailyRate:  decimal.NewFromInt(400),
		Active:     true,
	}
}

func demoSlots(locationID int64) []locations.Slot {
	classes := []locations.VehicleClass{locations.Class4W, locations.Class4W, locations.Class2W, locations.ClassAll}
	out := make([]locations.Slot, 0, len(classes))
	for i, class := range classes {
		out = append(out, locations.Slot{LocationID: locationID, Code: fmt.Sprintf("A-%02d", i+1), Level: "G", VehicleTypeAllowed: class})
	}
	return out
}

func demoVehicle() vehicles.Vehicle {
	return vehicles.Vehicle{OwnerID: 1, Number: "KA01AB1234", Type: locations.Class4W, IsDefault: true}
}

// Вечерний час пик по будням.
func demoRules(locationID int64) []pricing.Rule {
	out := make([]pricing.Rule, 0, 5)
	for day := 0; day < 5; day++ {
		out = append(out, pricing.Rule{
			LocationID: &locationID,
			DayOfWeek:  &day,
			Start:      pricing.NewClock(17, 0),
			End:        pricing.NewClock(20, 0),
			Multiplier: decimal.RequireFromString("1.5"),
			Notes:      "weekday evening peak",
		})
	}
	return out
}

func demoPolicies() []refunds.Policy {
	return []refunds.Policy{
		{MinMinutesBefore: 24 * 60, RefundPercentage: decimal.NewFromInt(100), Description: "full refund a day ahead"},
		{MinMinutesBefore: 120, RefundPercentage: decimal.NewFromInt(50), Description: "half refund two hours ahead"},
	}
}

// seedPostgres пишет демо-парковку одной транзакцией.
func seedPostgres(ctx context.Context, tx pgx.Tx) (*locations.Location, error) {
	locs := locations.NewRepo(tx)
	loc, err := locs.Create(ctx, demoLocation())
	if err != nil {
		return nil, fmt.Errorf("location: %w", err)
	}
	for _, sl := range demoSlots(loc.ID) {
		if _, err := locs.CreateSlot(ctx, sl); err != nil {
			return nil, fmt.Errorf("slot %s: %w", sl.Code, err)
		}
	}
	if _, err := vehicles.NewRepo(tx).Upsert(ctx, demoVehicle()); err != nil {
		return nil, fmt.Errorf("vehicle: %w", err)
	}
	rules := pricing.NewRepo(tx)
	for _, r := range demoRules(loc.ID) {
		if _, err := rules.Create(ctx, r); err != nil {
			return nil, fmt.Errorf("pricing rule: %w", err)
		}
	}
	policies := refunds.NewRepo(tx)
	for _, p := range demoPolicies() {
		if _, err := policies.Create(ctx, p); err != nil {
			return nil, fmt.Errorf("cancellation policy: %w", err)
		}
	}
	return loc, nil
}

func seedCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert a demo parking location into the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := db.Connect(ctx, cfg.Postgres.DSN)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer pool.Close()

			tx, err := pool.Begin(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = tx.Rollback(ctx) }()

			loc, err := seedPostgres(ctx, tx)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			if err := tx.Commit(ctx); err != nil {
				return err
			}
			log.Info("demo data inserted", "location_id", loc.ID)
			return nil
		},
	}
}
