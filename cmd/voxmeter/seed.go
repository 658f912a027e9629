package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/artpar/voxmeter/adapters/clock"
	"github.com/artpar/voxmeter/app"
	"github.com/artpar/voxmeter/domain/money"
	"github.com/artpar/voxmeter/domain/resource"
	"github.com/artpar/voxmeter/domain/window"
	"github.com/artpar/voxmeter/ports"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate a development database with sample data",
	Long: `Populate a development database with sample users, windows, and
usage events. Existing users are left untouched, so the command is safe
to run repeatedly.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, db, err := openStores()
	if err != nil {
		return err
	}
	defer db.Close()

	accounts, err := newAccountService(cfg, db)
	if err != nil {
		return err
	}
	meter, err := newMeterService(cfg, db)
	if err != nil {
		return err
	}

	ctx := context.Background()

	samples := []struct {
		id        int64
		firstName string
		lastName  string
		username  string
	}{
		{1001, "Alice", "Anderson", "alice"},
		{1002, "Bob", "Baker", "bob"},
		{1003, "Carol", "Clark", "carol"},
	}
	for _, s := range samples {
		_, err := accounts.Register(ctx, s.id, s.firstName, s.lastName, s.username)
		if errors.Is(err, ports.ErrExists) {
			fmt.Printf("user %d already exists, skipping\n", s.id)
			continue
		}
		if err != nil {
			return err
		}
		fmt.Printf("registered user %d (%s)\n", s.id, s.username)
	}

	// Alice gets a one-month subscription backed by a payment record.
	start, end := window.MonthBounds(clock.Real{}.Now())
	_, err = accounts.Subscribe(ctx, 1001, app.SubscriptionSpec{
		Start:           start,
		End:             end,
		TTSLimitChars:   100_000,
		STTLimitSeconds: 36_000,
		CostLimit:       money.Unlimited,
		Amount:          money.FromCents(500),
		Method:          "seed",
	})
	if err != nil && !errors.Is(err, ports.ErrExists) {
		return err
	}

	if cfg.Quotas.SharedPool.Enabled {
		if _, err := accounts.EnsureSharedPool(ctx, cfg.SharedPoolBudget()); err != nil {
			return err
		}
	}

	// A little consumption so summaries show non-zero figures.
	usage := []struct {
		userID   int64
		kind     resource.Kind
		quantity int64
	}{
		{1001, resource.TTSChars, 2_500},
		{1001, resource.STTSeconds, 90},
		{1002, resource.TTSChars, 800},
		{1003, resource.STTSeconds, 45},
	}
	for _, u := range usage {
		if _, err := meter.RecordUsage(ctx, u.userID, u.kind, u.quantity); err != nil {
			return err
		}
	}

	fmt.Println("seed complete")
	return nil
}
