package main

import "github.com/spf13/cobra"

var destroyAutoApprove bool

var destroyCmd = &cobra.Command{
	Use:   "destroy [id]",
	Short: "Remove all managed detections for the selected scope",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDestroy,
}

func init() {
	destroyCmd.Flags().BoolVarP(&destroyAutoApprove, "auto-approve", "a", false, "destroy without interactive confirmation")
	rootCmd.AddCommand(destroyCmd)
}

func runDestroy(cmd *cobra.Command, args []string) error {
	applyAutoApprove = destroyAutoApprove
	return applyOrDestroy(cmd, args, true)
}
