package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/artpar/voxmeter/adapters/clock"
	"github.com/artpar/voxmeter/adapters/idgen"
	"github.com/artpar/voxmeter/adapters/sqlite"
	"github.com/artpar/voxmeter/app"
	"github.com/artpar/voxmeter/config"
	"github.com/artpar/voxmeter/domain/eligibility"
	"github.com/artpar/voxmeter/domain/money"
	"github.com/artpar/voxmeter/domain/window"
	"github.com/spf13/cobra"
)

var usageCmd = &cobra.Command{
	Use:   "usage <user-id>",
	Short: "Show a user's usage summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsage,
}

func init() {
	rootCmd.AddCommand(usageCmd)
}

func newMeterService(cfg *config.Config, db *sqlite.DB) (*app.MeterService, error) {
	rates, err := cfg.RateTable()
	if err != nil {
		return nil, err
	}
	return app.NewMeterService(app.MeterDeps{
		Users:   sqlite.NewUserStore(db),
		Windows: sqlite.NewWindowStore(db),
		Ledger:  sqlite.NewLedgerStore(db),
		Clock:   clock.Real{},
		IDGen:   idgen.UUID{},
		Logger:  newLogger(cfg),
	}, app.MeterConfig{
		Mode:     cfg.Mode(),
		Rates:    rates,
		VIPs:     cfg.VIPUsers,
		FailOpen: cfg.Quotas.FailOpen,
	})
}

func runUsage(cmd *cobra.Command, args []string) error {
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q", args[0])
	}

	cfg, db, err := openStores()
	if err != nil {
		return err
	}
	defer db.Close()

	meter, err := newMeterService(cfg, db)
	if err != nil {
		return err
	}

	summary, err := meter.GetUsageSummary(context.Background(), userID)
	if err != nil {
		return err
	}

	fmt.Printf("User %d\n", summary.UserID)
	if !summary.Active {
		fmt.Println("  No active quota window")
		return nil
	}
	fmt.Printf("  Window: %s", summary.WindowKind)
	if summary.WindowKind == window.VIPBypass {
		fmt.Print(" (no limits enforced)")
	}
	if summary.WindowEnd != nil {
		fmt.Printf(", ends %s", summary.WindowEnd.Format("2006-01-02"))
	}
	fmt.Println()

	for _, ru := range summary.Resources {
		if ru.Limit == window.NoLimit {
			fmt.Printf("  %-12s %d used (unlimited)\n", ru.Kind, ru.Used)
			continue
		}
		fmt.Printf("  %-12s %d / %d\n", ru.Kind, ru.Used, ru.Limit)
	}
	if meter.Mode() == eligibility.ModeCost {
		if summary.CostLimit == money.Unlimited {
			fmt.Printf("  cost         %s used (unlimited)\n", summary.CostUsed)
		} else {
			fmt.Printf("  cost         %s / %s\n", summary.CostUsed, summary.CostLimit)
		}
	}
	return nil
}
