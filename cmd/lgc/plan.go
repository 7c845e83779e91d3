package main

import (
	"github.com/logcraftio/logcraft-cli/internal/reconciler"
	"github.com/spf13/cobra"
)

var (
	planStateOnly bool
	planVerbose   bool
)

var planCmd = &cobra.Command{
	Use:   "plan [id]",
	Short: "Show the changes apply would make",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().BoolVarP(&planStateOnly, "state-only", "s", false, "skip plugin.read and diff against recorded state only")
	planCmd.Flags().BoolVarP(&planVerbose, "verbose", "v", false, "print unified diffs for updates")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}

	services, err := e.resolveArg(args)
	if err != nil {
		exitCode = 1
		return err
	}

	entries, err := e.loadWorkspace()
	if err != nil {
		return err
	}
	rec := e.newReconciler(entries)

	plan, err := rec.Plan(ctx, services, reconciler.PlanOptions{StateOnly: planStateOnly})
	if err != nil {
		exitCode = 1
		return err
	}

	printPlan(plan, planVerbose)

	if plan.HasChanges() {
		exitCode = 2
	} else {
		exitCode = 0
	}
	return nil
}
