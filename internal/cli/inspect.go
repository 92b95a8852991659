package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gobdigital/firmador/internal/expediente"
)

// inspectCmd prints the structure of a record log without calling DSS:
// which steps are signed, with which key, and what they declare.
var inspectCmd = &cobra.Command{
	Use:   "inspect <index.json>",
	Short: "Show the steps and signatures of a record log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read record: %w", err)
		}

		record, err := expediente.ParseRecord(raw)
		if err != nil {
			return fmt.Errorf("record is not valid: %w", err)
		}

		fmt.Printf("expediente %s\n\n", record.CaseID())

		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "SECUENCIA\tDOCUMENTOS\tFIRMA\tKEY ID\tALG")

		for _, tramite := range record.Tramites {
			firma, keyID, alg := "-", "", ""
			if tramite.Signed() {
				firma = "signed"
				info, err := expediente.InspectSignature(tramite.Firma)
				if err != nil {
					firma = "unreadable"
				} else {
					keyID = info.KeyID
					alg = info.Algorithm
				}
			}
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n",
				tramite.Secuencia, len(tramite.Documentos), firma, keyID, alg)
		}
		return w.Flush()
	},
}
