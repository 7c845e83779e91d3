package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping [id]",
	Short: "Check connectivity to configured services",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
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

	results := rec.Ping(ctx, services)
	var anyFailed bool
	for _, r := range results {
		if r.Err != nil {
			anyFailed = true
			fmt.Printf("ERROR %s: %v\n", r.Service.ID, r.Err)
		} else {
			fmt.Printf("%s: ok\n", r.Service.ID)
		}
	}

	if anyFailed {
		exitCode = 1
	}
	return nil
}
