package cmd

import (
	"fmt"
	"io"
	"time"

	"sniffstore/feature/integrity"
	"sniffstore/feature/integrity/checks"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// integrityCmd runs the storage and ledger checks.
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Check the bucket, the upload ledger and stored content types",
	Long:  `Checks that the bucket is reachable and the upload ledger schema is complete. Use the content subcommand to re-detect stored objects.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, rt, err := integrityService(cmd)
		if err != nil {
			return err
		}

		storageReport := svc.CheckStorage(cmd.Context())
		ledgerReport, err := svc.CheckLedger()
		if err != nil {
			return err
		}
		if err := printJSON(cmd.OutOrStdout(), map[string]any{
			"storage": storageReport,
			"ledger":  ledgerReport,
		}); err != nil {
			return err
		}
		if !storageReport.OK() || !ledgerReport.OK() {
			return fmt.Errorf("integrity check failed")
		}
		rt.logger.Info("Integrity check passed")
		return nil
	},
}

// contentCmd re-detects stored objects.
var contentCmd = &cobra.Command{
	Use:   "content [prefix]",
	Short: "Compare stored Content-Type headers with the detected types",
	Long: `Reads the leading bytes of each object under prefix and reports objects
whose stored Content-Type differs from the detected one. With --fix the
mismatched objects are rewritten with the detected type, keeping their ACL
and metadata.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		maxKeys, _ := cmd.Flags().GetInt("max")
		fix, _ := cmd.Flags().GetBool("fix")
		asJSON, _ := cmd.Flags().GetBool("json")

		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}

		svc, rt, err := integrityService(cmd)
		if err != nil {
			return err
		}

		start := time.Now()
		rt.logger.Info("Checking content types (this might take a while)...", zap.String("prefix", prefix))
		report, err := svc.CheckContent(cmd.Context(), prefix, maxKeys)
		if err != nil {
			return fmt.Errorf("content check failed: %w", err)
		}

		if asJSON {
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
		} else {
			printContentMetrics(cmd.OutOrStdout(), report, time.Since(start))
		}

		if !fix || len(report.Mismatches) == 0 {
			return nil
		}
		fixed, err := svc.FixContent(cmd.Context(), report.Mismatches)
		rt.logger.Info("Rewrote mismatched objects", zap.Int("fixed", fixed), zap.Int("mismatched", len(report.Mismatches)))
		return err
	},
}

func integrityService(cmd *cobra.Command) (*integrity.Service, *deps, error) {
	rt, err := bootstrap(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	return integrity.NewService(rt.service, rt.store, rt.db, rt.logger), rt, nil
}

func printContentMetrics(w io.Writer, report *checks.ContentReport, elapsed time.Duration) {
	fmt.Fprintln(w, "=== Content Type Metrics ===")
	fmt.Fprintf(w, "Prefix: %q\n", report.Prefix)
	fmt.Fprintf(w, "Checked: %d\n", report.Checked)
	fmt.Fprintf(w, "Mismatches: %d\n", len(report.Mismatches))
	fmt.Fprintf(w, "Errors: %d\n", len(report.Errors))
	if report.Truncated {
		fmt.Fprintln(w, "Listing truncated: raise --max to check more objects")
	}
	fmt.Fprintf(w, "Execution Time: %s\n", elapsed.Round(time.Millisecond))
	for _, m := range report.Mismatches {
		fmt.Fprintf(w, "  %s: stored %s, detected %s\n", m.Key, m.Stored, m.Detected)
	}
}

func init() {
	contentCmd.Flags().Int("max", 0, "Maximum number of objects (default 1000)")
	contentCmd.Flags().Bool("fix", false, "Rewrite mismatched objects with the detected type")
	contentCmd.Flags().Bool("json", false, "Print the report as JSON")

	integrityCmd.AddCommand(contentCmd)
	RootCmd.AddCommand(integrityCmd)
}
