package main

import (
	"fmt"

	"github.com/logcraftio/logcraft-cli/internal/reconciler"
	"github.com/spf13/cobra"
)

var applyAutoApprove bool

var applyCmd = &cobra.Command{
	Use:   "apply [id]",
	Short: "Reconcile services to match the workspace",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runApply,
}

func init() {
	applyCmd.Flags().BoolVarP(&applyAutoApprove, "auto-approve", "a", false, "apply without interactive confirmation")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	return applyOrDestroy(cmd, args, false)
}

func applyOrDestroy(cmd *cobra.Command, args []string, destroy bool) error {
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

	plan, err := rec.Plan(ctx, services, reconciler.PlanOptions{Destroy: destroy})
	if err != nil {
		exitCode = 1
		return err
	}

	result, err := rec.Apply(ctx, plan, reconciler.ApplyOptions{
		AutoApprove: applyAutoApprove,
		Confirm:     confirmPrompt,
	})
	if err != nil {
		exitCode = 1
		return err
	}

	if result.Declined {
		fmt.Println("apply cancelled, no changes made")
		exitCode = 0
		return nil
	}

	for _, r := range result.Results {
		marker, verb, preposition := planMarker(r.Operation.Kind)
		if r.Err != nil {
			fmt.Printf("ERROR %s %s %s %s %s: %v\n", marker, r.Operation.Detection, verb, preposition, r.Operation.Service, r.Err)
		} else {
			fmt.Printf("%s %s %s %s %s\n", marker, r.Operation.Detection, verb, preposition, r.Operation.Service)
		}
	}

	if result.Failed() {
		exitCode = 1
		return fmt.Errorf("one or more operations failed")
	}
	exitCode = 0
	return nil
}
