package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"sniffstore/core/reconcile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// maxSampleActions is how many planned actions the report logs.
const maxSampleActions = 5

// auditCmd compares the upload ledger with the bucket.
var auditCmd = &cobra.Command{
	Use:   "audit [prefix]",
	Short: "Compare the upload ledger with stored objects",
	Long: `Audit the upload ledger against the objects in the bucket.

Reports objects without a ledger row, rows whose object is gone and rows
whose size or content type disagrees with storage. Objects are never
modified; --fix only rewrites ledger rows.

Examples:
  # Report only
  audit img/

  # Repair the ledger after an interactive confirmation
  audit img/ --fix

  # Show what would change
  audit --fix --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAudit,
}

func runAudit(cmd *cobra.Command, args []string) error {
	fix, _ := cmd.Flags().GetBool("fix")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	yes, _ := cmd.Flags().GetBool("yes")
	asJSON, _ := cmd.Flags().GetBool("json")

	prefix := ""
	if len(args) == 1 {
		prefix = args[0]
	}

	rt, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	if rt.db == nil {
		return fmt.Errorf("audit needs the upload ledger: set DATABASE_ENABLED=true")
	}

	ctx := cmd.Context()
	plan, err := rt.service.Audit(ctx, prefix)
	if err != nil {
		return fmt.Errorf("failed to plan audit: %w", err)
	}

	if asJSON {
		if err := printJSON(cmd.OutOrStdout(), plan); err != nil {
			return err
		}
	} else {
		printAuditReport(rt.logger, plan)
	}

	if !fix {
		if len(plan.Actions) > 0 {
			rt.logger.Info("No changes made. Use --fix to repair the ledger.")
		}
		return nil
	}
	if len(plan.Actions) == 0 {
		rt.logger.Info("Ledger is consistent, nothing to repair")
		return nil
	}

	opts := reconcile.Options{DryRun: dryRun}
	if !dryRun {
		opts.Confirmed = yes || confirm(cmd.InOrStdin(), cmd.ErrOrStderr())
		if !opts.Confirmed {
			rt.logger.Warn("Operation cancelled by user. No changes were made.")
			return nil
		}
	}

	_, executed, err := rt.service.Repair(ctx, prefix, opts)
	if err != nil {
		return fmt.Errorf("failed to repair ledger: %w", err)
	}
	if dryRun {
		rt.logger.Info("Dry-run mode: No changes were made.")
		return nil
	}
	rt.logger.Info("Successfully executed actions", zap.Int("count", executed))
	return nil
}

// printAuditReport logs the summary and a sample of the planned actions.
func printAuditReport(l *zap.Logger, plan *reconcile.Plan) {
	s := plan.Summary

	l.Info("Audit report",
		zap.Int("total_items", s.TotalItems),
		zap.Int("missing_ledger", s.MissingLedger),
		zap.Int("missing_storage", s.MissingStorage),
		zap.Int("mismatches", s.Mismatches),
		zap.Bool("truncated", s.Truncated),
	)

	shown := min(len(plan.Actions), maxSampleActions)
	for _, action := range plan.Actions[:shown] {
		l.Info("Planned action",
			zap.String("type", string(action.Type)),
			zap.String("key", action.Key),
			zap.String("reason", action.Reason),
		)
	}
	if len(plan.Actions) > shown {
		l.Info("Additional actions not shown", zap.Int("count", len(plan.Actions)-shown))
	}
}

// confirm asks on out and reads the answer from in.
func confirm(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, "Type 'yes' to rewrite ledger rows: ")
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	return strings.TrimSpace(response) == "yes"
}

func init() {
	auditCmd.Flags().Bool("fix", false, "Apply the planned ledger changes")
	auditCmd.Flags().Bool("dry-run", false, "Plan only, even with --fix")
	auditCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
	auditCmd.Flags().Bool("json", false, "Print the plan as JSON")

	RootCmd.AddCommand(auditCmd)
}
