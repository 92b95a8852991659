package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/gobdigital/firmador/internal/config"
	"github.com/gobdigital/firmador/internal/dss"
	"github.com/gobdigital/firmador/internal/expediente"
	"github.com/gobdigital/firmador/internal/firma"
	"github.com/gobdigital/firmador/internal/logger"
	"github.com/gobdigital/firmador/internal/server"
	"github.com/gobdigital/firmador/internal/store"
	"github.com/gobdigital/firmador/internal/version"
)

// firmador-server is the HTTP service for validating and signing the JAdES
// signature chains of procedural case files (expedientes).
func main() {
	cmd := &cobra.Command{
		Use:   "firmador-server",
		Short: "Expediente signature validation and signing server",
		Long:  `firmador-server validates the JAdES signature chains and document integrity of procedural case files, and drives the two-phase remote-token signing flow`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	v := version.Get()
	cmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.NewServerConfig()
	if err != nil {
		log.Printf("failed to load configuration: %v", err.Error())
		os.Exit(1)
	}

	appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)

	appLogger.Info("Configuration loaded",
		slog.String("ENVIRONMENT", cfg.Environment),
		slog.String("HOST", cfg.Host),
		slog.Int("PORT", cfg.Port),
		slog.String("LOG_LEVEL", cfg.LogLevel),
		slog.String("DSS_BASE_URL", cfg.DSSBaseURL),
		slog.String("TRUSTED_CERTS_DIR", cfg.TrustedCertsDir),
		slog.Bool("TRUST_FAIL_OPEN", cfg.TrustFailOpen),
		slog.Int("STEP_WORKERS", cfg.StepWorkers),
		slog.Int("DOC_WORKERS", cfg.DocWorkers),
	)

	// the audit database is optional: validation and signing work without it
	var (
		pool       *pgxpool.Pool
		auditStore *store.Store
	)
	if cfg.DatabaseURL != "" {
		dbCtx, dbCancel := context.WithTimeout(context.Background(), cfg.DatabasePingTimeout)
		defer dbCancel()

		pool, err = store.NewPool(dbCtx, cfg)
		if err != nil {
			appLogger.Error("Failed to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}

		auditStore, err = store.New(pool, appLogger)
		if err != nil {
			appLogger.Error("Failed to initialize audit store", slog.String("error", err.Error()))
			os.Exit(1)
		}

		appLogger.Info("connected to PostgreSQL")
	} else {
		appLogger.Info("no DATABASE_URL configured, audit store disabled")
	}

	oracle := dss.NewClient(cfg.DSSBaseURL, cfg.DSSTimeout, appLogger)
	trust := expediente.NewTrustValidator(cfg.TrustedCertsDir, cfg.TrustFailOpen, appLogger)
	engine := expediente.NewEngine(oracle, trust, cfg.StepWorkers, cfg.DocWorkers, appLogger)
	signing := firma.NewService(oracle, engine, appLogger)

	appLogger.Info("Starting server", slog.String("version", version.Get().Version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer(pool, auditStore, engine, signing, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer srv.DatabaseShutdown()

	if err := srv.Start(ctx); err != nil {
		appLogger.Error("Server error", slog.String("error", err.Error()))
		return err
	}

	appLogger.Info("server shutdown complete")
	return nil
}
