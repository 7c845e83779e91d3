package main

import (
	"fmt"

	"github.com/logcraftio/logcraft-cli/internal/domain"
	"github.com/logcraftio/logcraft-cli/internal/policy"
	"github.com/logcraftio/logcraft-cli/internal/workspace"
	"github.com/spf13/cobra"
)

var validateQuiet bool

var validateCmd = &cobra.Command{
	Use:   "validate [id]",
	Short: "Validate detections against plugin schemas and policies",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVarP(&validateQuiet, "quiet", "q", false, "suppress warnings (errors are still reported)")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
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

	var hasErrors bool
	rec := e.newReconciler(entries)

	for _, svc := range services {
		proxy, err := rec.NewProxy(ctx, svc)
		if err != nil {
			hasErrors = true
			fmt.Printf("ERROR %s: %v\n", svc.ID, err)
			continue
		}

		policies, err := policy.LoadPluginPolicies(".", svc.Plugin)
		if err != nil {
			hasErrors = true
			fmt.Printf("ERROR %s: %v\n", svc.ID, err)
			continue
		}
		spec := policy.NewPluginSpecification(policies, svc.Plugin)

		for name, bytes := range workspace.ByService(entries, svc.Plugin) {
			if err := proxy.ValidateDetection(ctx, bytes); err != nil {
				hasErrors = true
				fmt.Printf("ERROR %s/%s: %v\n", svc.Plugin, name, err)
				continue
			}

			violations, ok := spec.IsSatisfiedBy(bytes, name)
			if !ok {
				hasErrors = true
			}
			for _, v := range violations {
				if v.Severity == domain.SeverityError {
					hasErrors = true
					fmt.Println(v.Error())
				} else if !validateQuiet {
					fmt.Println(v.Error())
				}
			}
		}
	}

	// spec.md §6: validate exits 0 for clean and warnings-only runs, 1 only
	// when an error-severity violation or a structural failure occurred.
	if hasErrors {
		exitCode = 1
	} else {
		exitCode = 0
	}

	return nil
}
