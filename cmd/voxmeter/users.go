package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/artpar/voxmeter/adapters/clock"
	"github.com/artpar/voxmeter/adapters/idgen"
	"github.com/artpar/voxmeter/adapters/sqlite"
	"github.com/artpar/voxmeter/app"
	"github.com/artpar/voxmeter/config"
	"github.com/spf13/cobra"
)

var (
	registerFirstName string
	registerLastName  string
	registerUsername  string
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage users",
}

var usersRegisterCmd = &cobra.Command{
	Use:   "register <user-id>",
	Short: "Register a user and grant the free trial",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersRegister,
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered users",
	RunE:  runUsersList,
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersRegisterCmd)
	usersCmd.AddCommand(usersListCmd)

	usersRegisterCmd.Flags().StringVar(&registerFirstName, "first-name", "", "first name")
	usersRegisterCmd.Flags().StringVar(&registerLastName, "last-name", "", "last name")
	usersRegisterCmd.Flags().StringVar(&registerUsername, "username", "", "username")
}

// openStores loads configuration and opens the database for CLI
// commands that operate on the store directly.
func openStores() (*config.Config, *sqlite.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := sqlite.Open(cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return cfg, db, nil
}

func newAccountService(cfg *config.Config, db *sqlite.DB) (*app.AccountService, error) {
	return app.NewAccountService(app.AccountDeps{
		Users:    sqlite.NewUserStore(db),
		Windows:  sqlite.NewWindowStore(db),
		Payments: sqlite.NewPaymentStore(db),
		Clock:    clock.Real{},
		IDGen:    idgen.UUID{},
		Logger:   newLogger(cfg),
	}, app.AccountConfig{
		TrialDays:       cfg.Quotas.Trial.Days,
		TrialTTSChars:   cfg.Quotas.Trial.TTSChars,
		TrialSTTSeconds: cfg.Quotas.Trial.STTSeconds,
		VIPs:            cfg.VIPUsers,
	})
}

func runUsersRegister(cmd *cobra.Command, args []string) error {
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q", args[0])
	}

	cfg, db, err := openStores()
	if err != nil {
		return err
	}
	defer db.Close()

	accounts, err := newAccountService(cfg, db)
	if err != nil {
		return err
	}

	u, err := accounts.Register(context.Background(), userID, registerFirstName, registerLastName, registerUsername)
	if err != nil {
		return err
	}

	fmt.Printf("Registered user %d (%s)\n", u.ID, u.DisplayName())
	if u.VIP {
		fmt.Println("  VIP: quota checks bypassed")
	}
	fmt.Printf("  Trial: %d days, %d TTS chars, %d STT seconds\n",
		cfg.Quotas.Trial.Days, cfg.Quotas.Trial.TTSChars, cfg.Quotas.Trial.STTSeconds)
	return nil
}

func runUsersList(cmd *cobra.Command, args []string) error {
	_, db, err := openStores()
	if err != nil {
		return err
	}
	defer db.Close()

	users := sqlite.NewUserStore(db)
	list, err := users.List(context.Background(), 0, 0)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tUSERNAME\tVIP\tCREATED")
	for _, u := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%v\t%s\n",
			u.ID, u.DisplayName(), u.Username, u.VIP, u.CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}
