// Package main provides the lgc CLI entry point.
package main

import (
	"os"

	"github.com/logcraftio/logcraft-cli/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	quiet    bool
)

// rootCmd is the application entry point.
var rootCmd = &cobra.Command{
	Use:   "lgc",
	Short: "Detection-as-code deployment engine",
	Long: `lgc deploys detection rules to security platforms through sandboxed
WebAssembly plugins, reconciling a workspace of detection files against
each service's deployed state.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logging.Setup(logLevel, quiet)
	},
	SilenceUsage: true,
}

// Execute runs the root command, returning the process exit code per
// spec.md §6. Each RunE sets the package-level exitCode explicitly before
// returning an error whenever the spec calls for something other than the
// default 1 (e.g. init's bad-path 2, services create's unknown-plugin 2,
// plan's changes-planned 2); Execute trusts that value and only falls back
// to 1 when a command returns an error without having set one (including
// errors cobra itself raises, e.g. unknown flags).
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		if exitCode != 0 {
			return exitCode
		}
		return 1
	}
	return exitCode
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "", "", "config file (default: ./lgc.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all log output, including errors")
}

func main() {
	os.Exit(Execute())
}
