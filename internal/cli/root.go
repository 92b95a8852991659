// Package cli implements the firmador command line client.
//
// The CLI runs the validation engine locally against the configured DSS
// service, without the HTTP server or the audit database. It is intended
// for operators checking a filed expediente from the shell.
package cli

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gobdigital/firmador/internal/config"
	"github.com/gobdigital/firmador/internal/dss"
	"github.com/gobdigital/firmador/internal/expediente"
	"github.com/gobdigital/firmador/internal/logger"
	"github.com/gobdigital/firmador/internal/version"
)

var (
	cfg       *config.ServerEnvironment
	appLogger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:               "firmador",
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	Short:             "Expediente signature chain validation CLI",
	Long:              `firmador validates the JAdES signature chains and document integrity of procedural case files against the configured DSS service`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.NewServerConfig()
		if err != nil {
			log.Printf("failed to load configuration: %v", err.Error())
			return err
		}

		appLogger = logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)
		return nil
	},
}

func Execute() {
	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(inspectCmd)
}

// newEngine builds a validation engine from the loaded configuration.
func newEngine() *expediente.Engine {
	oracle := dss.NewClient(cfg.DSSBaseURL, cfg.DSSTimeout, appLogger)
	trust := expediente.NewTrustValidator(cfg.TrustedCertsDir, cfg.TrustFailOpen, appLogger)
	return expediente.NewEngine(oracle, trust, cfg.StepWorkers, cfg.DocWorkers, appLogger)
}
