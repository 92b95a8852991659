package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gobdigital/firmador/internal/expediente"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate an expediente archive or record log",
}

var recordSignature string

// validateExpedienteCmd validates a filed case bundle in aggregate mode.
var validateExpedienteCmd = &cobra.Command{
	Use:   "expediente <bundle.zip>",
	Short: "Validate every signature and document of a filed case bundle",
	Long: `Validate a filed expediente ZIP: every step's signature chain, every
referenced PDF's embedded signatures and content hashes. All problems are
reported together; the exit code is non-zero when the conclusion is negative.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		zipData, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read archive: %w", err)
		}

		report := newEngine().ValidateArchive(cmd.Context(), zipData)
		return printReport(report)
	},
}

// validateRecordCmd validates a record log in sequential fail-fast mode.
var validateRecordCmd = &cobra.Command{
	Use:   "record <index.json>",
	Short: "Validate a record's signature chain step by step",
	Long: `Validate a record log in sequential fail-fast mode, stopping at the
first broken step. Use --signature to supply the current step's detached
signature when it is not attached to the record yet.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read record: %w", err)
		}

		record, err := expediente.ParseRecord(raw)
		if err != nil {
			return fmt.Errorf("record is not valid: %w", err)
		}

		signature := recordSignature
		if signature == "" {
			signature = record.Tramites[len(record.Tramites)-1].Firma
		}

		report := newEngine().ValidateRecordChain(cmd.Context(), record, signature)
		return printReport(report)
	},
}

func init() {
	validateRecordCmd.Flags().StringVar(&recordSignature, "signature", "", "base64 detached signature for the record's last step")

	validateCmd.AddCommand(validateExpedienteCmd)
	validateCmd.AddCommand(validateRecordCmd)
}

// printReport writes the report as indented JSON and maps a negative
// conclusion to a non-zero exit status.
func printReport(report *expediente.ValidationReport) error {
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if !report.Conclusion {
		return fmt.Errorf("validation failed: %s", report.Message)
	}
	return nil
}
