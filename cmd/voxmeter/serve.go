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

	"github.com/artpar/voxmeter/adapters/clock"
	"github.com/artpar/voxmeter/adapters/idgen"
	"github.com/artpar/voxmeter/adapters/metrics"
	"github.com/artpar/voxmeter/adapters/notify"
	"github.com/artpar/voxmeter/adapters/speech"
	"github.com/artpar/voxmeter/adapters/sqlite"
	"github.com/artpar/voxmeter/app"
	"github.com/artpar/voxmeter/config"
	"github.com/artpar/voxmeter/web"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var hotReload bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the voxmeter API server.

The server will:
  - Load configuration from voxmeter.yaml (or --config)
  - Or load configuration from VOXMETER_* environment variables
  - Open the database and run migrations
  - Serve the eligibility, usage, and speech endpoints

Environment variables (for Docker deployments):
  VOXMETER_DATABASE_DSN    - Database path (default: voxmeter.db)
  VOXMETER_SERVER_PORT     - Server port (default: 8080)
  VOXMETER_SPEECH_API_KEY  - OpenAI API key for synthesis/transcription
  VOXMETER_QUOTA_MODE      - Quota mode: quantity or cost
  VOXMETER_LOG_LEVEL       - Log level: debug, info, warn, error

Examples:
  voxmeter serve
  voxmeter serve --config /etc/voxmeter/config.yaml
  voxmeter serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(cfgFile); err == nil {
		return config.Load(cfgFile)
	}
	if config.HasEnvConfig() {
		return config.LoadFromEnv()
	}
	return nil, fmt.Errorf("no configuration found: create %s or set VOXMETER_* variables", cfgFile)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	if cfg.Logging.Format == "console" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return logger
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	db, err := sqlite.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	rates, err := cfg.RateTable()
	if err != nil {
		return err
	}

	users := sqlite.NewUserStore(db)
	windows := sqlite.NewWindowStore(db)
	events := sqlite.NewLedgerStore(db)
	payments := sqlite.NewPaymentStore(db)
	clk := clock.Real{}
	ids := idgen.UUID{}
	collector := metrics.New()

	meter, err := app.NewMeterService(app.MeterDeps{
		Users:   users,
		Windows: windows,
		Ledger:  events,
		Clock:   clk,
		IDGen:   ids,
		Logger:  logger,
		Metrics: collector,
	}, app.MeterConfig{
		Mode:     cfg.Mode(),
		Rates:    rates,
		VIPs:     cfg.VIPUsers,
		FailOpen: cfg.Quotas.FailOpen,
	})
	if err != nil {
		return err
	}

	accounts, err := app.NewAccountService(app.AccountDeps{
		Users:    users,
		Windows:  windows,
		Payments: payments,
		Clock:    clk,
		IDGen:    ids,
		Logger:   logger,
	}, app.AccountConfig{
		TrialDays:       cfg.Quotas.Trial.Days,
		TrialTTSChars:   cfg.Quotas.Trial.TTSChars,
		TrialSTTSeconds: cfg.Quotas.Trial.STTSeconds,
		VIPs:            cfg.VIPUsers,
	})
	if err != nil {
		return err
	}

	if cfg.Quotas.SharedPool.Enabled {
		if _, err := accounts.EnsureSharedPool(context.Background(), cfg.SharedPoolBudget()); err != nil {
			return err
		}
	}

	provider, err := speech.NewOpenAI(speech.Config{
		APIKey:   cfg.Speech.APIKey,
		TTSModel: cfg.Speech.TTSModel,
		TTSVoice: cfg.Speech.TTSVoice,
		STTModel: cfg.Speech.STTModel,
	})
	if err != nil {
		return err
	}

	assist := app.NewAssistService(meter, provider, notify.NewLog(logger), logger)

	if hotReload {
		if _, statErr := os.Stat(cfgFile); statErr == nil {
			holder, err := config.NewHolder(cfgFile, logger)
			if err != nil {
				return err
			}
			// Push the reloadable quota settings into the running
			// services; mode and rates stay fixed until restart.
			holder.OnChange(func(next *config.Config) {
				meter.UpdateSettings(next.VIPUsers, next.Quotas.FailOpen)
				err := accounts.UpdateSettings(app.AccountConfig{
					TrialDays:       next.Quotas.Trial.Days,
					TrialTTSChars:   next.Quotas.Trial.TTSChars,
					TrialSTTSeconds: next.Quotas.Trial.STTSeconds,
					VIPs:            next.VIPUsers,
				})
				if err != nil {
					logger.Error().Err(err).Msg("reloaded account settings rejected")
				}
			})
			if err := holder.WatchFile(); err != nil {
				return err
			}
			holder.WatchSignals()
			defer holder.Stop()
		}
	}

	handler := web.New(web.Deps{
		Meter:    meter,
		Accounts: accounts,
		Assist:   assist,
		Logger:   logger,
	})
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler.Routes(metricsPath),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("mode", string(cfg.Mode())).Msg("server listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
