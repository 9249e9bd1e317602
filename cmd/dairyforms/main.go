package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/terraincognita07/dairyforms/internal/api"
	"github.com/terraincognita07/dairyforms/internal/cli"
	"github.com/terraincognita07/dairyforms/internal/config"
	"github.com/terraincognita07/dairyforms/internal/db"
	"github.com/terraincognita07/dairyforms/internal/logging"
	"github.com/terraincognita07/dairyforms/internal/schema"
	"github.com/terraincognita07/dairyforms/internal/services"
	"github.com/terraincognita07/dairyforms/internal/storage"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// runtime carries what PersistentPreRunE resolved to the subcommands.
type runtime struct {
	configFile string
	logLevel   string
	cfg        *config.Config
	logger     *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rt := &runtime{}

	rootCmd := &cobra.Command{
		Use:           "dairyforms",
		Short:         "Field data collection for dairy cooperative surveys",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rt.configFile)
			if err != nil {
				return err
			}
			if rt.logLevel != "" {
				cfg.LogLevel = rt.logLevel
			}
			logger, err := logging.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			rt.cfg = cfg
			rt.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if rt.logger != nil {
				_ = rt.logger.Sync()
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&rt.configFile, "config", "", "config file (default ./dairyforms.yaml)")
	rootCmd.PersistentFlags().StringVar(&rt.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(
		newServeCmd(rt),
		newAdminPasswordCmd(),
		newExportCmd(rt),
		newPurgeSessionsCmd(rt),
	)
	return rootCmd
}

func newServeCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rt.cfg, rt.logger)
		},
	}
}

func newAdminPasswordCmd() *cobra.Command {
	var generate bool
	cmd := &cobra.Command{
		Use:   "admin-password",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunAdminPasswordCommand(os.Stdin, cmd.OutOrStdout(), generate)
		},
	}
	cmd.Flags().BoolVar(&generate, "generate", false, "generate a random password instead of prompting")
	return cmd
}

func newExportCmd(rt *runtime) *cobra.Command {
	options := cli.ExportOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a form's submissions as CSV or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			options.DataDir = rt.cfg.DataDir
			options.Logger = rt.logger
			return cli.RunExportCommand(cmd.OutOrStdout(), options)
		},
	}
	cmd.Flags().StringVar(&options.Form, "form", "", "form name, for example snf_survey")
	cmd.Flags().StringVar(&options.Format, "format", "csv", "csv or json")
	cmd.Flags().StringVar(&options.From, "from", "", "first date to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&options.To, "to", "", "last date to include (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("form")
	return cmd
}

func newPurgeSessionsCmd(rt *runtime) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "purge-sessions",
		Short: "Delete stored sessions that have not been used recently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("older-than") {
				olderThan = rt.cfg.SessionTTL
			}
			dbPath := storage.NewLayout(rt.cfg.DataDir).DatabasePath()
			return cli.RunPurgeSessionsCommand(cmd.OutOrStdout(), dbPath, olderThan, rt.logger)
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "age threshold (defaults to SESSION_TTL)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	layout := storage.NewLayout(cfg.DataDir)
	database, err := db.OpenSQLite(layout.DatabasePath(), logger)
	if err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}

	registry, err := schema.LoadBuiltin()
	if err != nil {
		return fmt.Errorf("schema init failed: %w", err)
	}
	workflows := services.OpenWorkflows(registry, layout, logger)
	sessions := db.NewSessionRepository(database)

	if cfg.AdminPasswordHash == "" {
		logger.Warn("ADMIN_PASSWORD_HASH is not set; admin endpoints are disabled")
	}
	handler, err := api.NewHandler(api.Options{
		Workflows:         workflows,
		Sessions:          sessions,
		SecretKey:         cfg.SecretKey,
		AdminUser:         cfg.AdminUser,
		AdminPasswordHash: cfg.AdminPasswordHash,
		CookieSecure:      cfg.CookieSecure,
		SessionTTL:        cfg.SessionTTL,
		Logger:            logger,
	})
	if err != nil {
		return fmt.Errorf("handler init failed: %w", err)
	}
	app := api.NewApp(handler, cfg.AccessLog)

	lifecycleCtx, cancelLifecycle := context.WithCancel(ctx)
	defer cancelLifecycle()
	services.NewSessionJanitor(sessions, cfg.SessionTTL, logger).Start(lifecycleCtx)

	sigCtx, stopSignals := signal.NotifyContext(lifecycleCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	go func() {
		<-sigCtx.Done()
		cancelLifecycle()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("dairyforms listening",
		zap.String("addr", "0.0.0.0:"+cfg.Port),
		zap.String("data_dir", layout.Root),
		zap.Strings("forms", registry.Names()),
	)
	if err := app.Listen(":" + cfg.Port); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	return nil
}
