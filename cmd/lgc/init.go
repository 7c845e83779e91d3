package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	initRoot      string
	initWorkspace string
	initCreate    bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new logcraft-cli project",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initRoot, "root", "r", ".", "project root directory")
	initCmd.Flags().StringVarP(&initWorkspace, "workspace", "w", "rules", "workspace directory name")
	initCmd.Flags().BoolVarP(&initCreate, "create", "c", false, "create the root directory if it does not exist")
	rootCmd.AddCommand(initCmd)
}

func runInit(_ *cobra.Command, _ []string) error {
	info, err := os.Stat(initRoot)
	switch {
	case os.IsNotExist(err):
		if !initCreate {
			exitCode = 2
			return fmt.Errorf("root %s does not exist (use --create)", initRoot)
		}
		if err := os.MkdirAll(initRoot, 0o755); err != nil {
			exitCode = 2
			return fmt.Errorf("create root: %w", err)
		}
	case err != nil:
		exitCode = 2
		return err
	case !info.IsDir():
		exitCode = 2
		return fmt.Errorf("root %s is not a directory", initRoot)
	}

	configPath := filepath.Join(initRoot, "lgc.toml")
	if _, err := os.Stat(configPath); err == nil {
		exitCode = 1
		return fmt.Errorf("lgc.toml already exists at %s", configPath)
	}

	if err := os.MkdirAll(filepath.Join(initRoot, initWorkspace), 0o755); err != nil {
		exitCode = 2
		return fmt.Errorf("create workspace: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(initRoot, ".logcraft"), 0o755); err != nil {
		exitCode = 2
		return fmt.Errorf("create .logcraft: %w", err)
	}

	contents := fmt.Sprintf(`[core]
workspace = %q
base_dir  = %q

[state]
type = "local"
path = ".logcraft/state.json"
`, initWorkspace, initRoot)

	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		exitCode = 2
		return fmt.Errorf("write lgc.toml: %w", err)
	}

	fmt.Printf("initialized project at %s (workspace: %s)\n", initRoot, initWorkspace)
	return nil
}
