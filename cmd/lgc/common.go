package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/logcraftio/logcraft-cli/internal/config"
	"github.com/logcraftio/logcraft-cli/internal/domain"
	"github.com/logcraftio/logcraft-cli/internal/reconciler"
	"github.com/logcraftio/logcraft-cli/internal/registry"
	"github.com/logcraftio/logcraft-cli/internal/sandbox"
	"github.com/logcraftio/logcraft-cli/internal/sandbox/hostfuncs"
	"github.com/logcraftio/logcraft-cli/internal/state"
	"github.com/logcraftio/logcraft-cli/internal/workspace"
)

// exitCode is set by a subcommand's RunE before returning, letting Execute
// translate domain outcomes (no changes / changes planned / warnings-only)
// into the process exit codes of spec.md §6 without every RunE
// reimplementing os.Exit bookkeeping.
var exitCode int

// buildVersion and buildPlatform are overridden at link time; defaults keep
// local builds informative.
var (
	buildVersion  = "dev"
	buildPlatform = "local"
)

// env bundles the objects every subcommand needs, assembled once from the
// loaded configuration.
type env struct {
	cfg      *config.Config
	registry *registry.Registry
	runtime  *sandbox.Runtime
	store    state.Store
}

func loadEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	reg, err := registry.New(cfg.DomainServices())
	if err != nil {
		return nil, err
	}

	runtime, err := sandbox.New(ctx, hostfuncs.BuildInfo{Version: buildVersion, Platform: buildPlatform})
	if err != nil {
		return nil, err
	}

	store, err := storeFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	return &env{cfg: cfg, registry: reg, runtime: runtime, store: store}, nil
}

func storeFromConfig(cfg *config.Config) (state.Store, error) {
	switch cfg.State.Type {
	case "", "local":
		path := cfg.State.Path
		if path == "" {
			path = ".logcraft/state.json"
		}
		return state.NewLocalStore(path)
	case "http":
		headers := cfg.State.Headers
		return state.NewHTTPStore(state.HTTPConfig{
			Address:              cfg.State.Address,
			LockAddress:          cfg.State.LockAddress,
			UnlockAddress:        cfg.State.UnlockAddress,
			UpdateMethod:         cfg.State.UpdateMethod,
			LockMethod:           cfg.State.LockMethod,
			UnlockMethod:         cfg.State.UnlockMethod,
			Username:             cfg.State.Username,
			Password:             cfg.State.Password,
			Headers:              headers,
			ClientCertFile:       cfg.State.ClientCertPEM,
			ClientKeyFile:        cfg.State.ClientKeyPEM,
			CAFile:               cfg.State.ClientCACertPEM,
			SkipCertVerification: cfg.State.SkipCertVerification,
			Timeout:              time.Duration(cfg.State.Timeout) * time.Second,
		})
	default:
		return nil, &domain.ConfigError{Path: "state.type", Reason: fmt.Sprintf("unknown state backend %q", cfg.State.Type)}
	}
}

func pluginsDir(cfg *config.Config) string {
	return filepath.Join(cfg.Core.BaseDir, "plugins")
}

func (e *env) loadWorkspace() ([]workspace.Entry, error) {
	known := make(map[string]bool)
	for _, svc := range e.registry.All() {
		known[svc.Plugin] = true
	}
	root := e.cfg.Core.Workspace
	if root == "" {
		root = "rules"
	}
	return workspace.Load(root, known)
}

func (e *env) newReconciler(entries []workspace.Entry) *reconciler.Reconciler {
	dir := pluginsDir(e.cfg)
	return &reconciler.Reconciler{
		Store:     e.store,
		Registry:  e.registry,
		Workspace: entries,
		NewProxy: func(ctx context.Context, svc domain.Service) (*sandbox.PluginProxy, error) {
			data, err := sandbox.ReadPluginBytes(dir, svc.Plugin)
			if err != nil {
				return nil, err
			}
			return sandbox.NewProxy(ctx, e.runtime, svc, data)
		},
	}
}

// resolveArg resolves an optional positional service/environment argument,
// defaulting to every configured service when omitted (spec.md §4.8).
func (e *env) resolveArg(args []string) ([]domain.Service, error) {
	identifier := ""
	if len(args) > 0 {
		identifier = args[0]
	}
	return e.registry.Resolve(identifier)
}

// confirmPrompt reads a single y/N line from stdin, matching spec.md §1's
// exclusion of any interactive styling library.
func confirmPrompt(plan *reconciler.Plan) (bool, error) {
	printPlan(plan, false)
	fmt.Print("Apply these changes? [y/N]: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// printPlan renders a plan the way Scenario A/B/C of spec.md §8 describe:
// one line per operation, `[+]`/`[-]`/`[~]` markers.
func printPlan(plan *reconciler.Plan, verbose bool) {
	for _, sp := range plan.Services {
		for _, op := range sp.Operations {
			marker, verb, preposition := planMarker(op.Kind)
			fmt.Printf("%s %s will be %s %s %s\n", marker, op.Detection, verb, preposition, op.Service)
			if verbose && op.Kind == domain.Update {
				printUnifiedDiff(op.PriorBytes, op.NewBytes)
			}
		}
		for _, w := range sp.Warnings {
			fmt.Printf("[?] %s is present remotely but not managed on %s\n", w.Detection, w.Service)
		}
	}
}

// planMarker returns the `[+]`/`[~]`/`[-]` marker, verb, and preposition
// spec.md §8's scenarios render: "created on" (A), "updated on" (B, implied
// by the diff text), "removed from" (C: "r1 will be removed from s1").
func planMarker(kind domain.OperationKind) (string, string, string) {
	switch kind {
	case domain.Create:
		return "[+]", "created", "on"
	case domain.Update:
		return "[~]", "updated", "on"
	case domain.Delete:
		return "[-]", "removed", "from"
	default:
		return "[?]", "changed", "on"
	}
}

// printUnifiedDiff prints every line of prior marked `-`, then every line of
// next marked `+` (spec.md §8 Scenario B). Lines common to both are not
// detected; they appear on both sides.
func printUnifiedDiff(prior, next []byte) {
	priorLines := strings.Split(string(prior), "\n")
	nextLines := strings.Split(string(next), "\n")
	for _, l := range priorLines {
		fmt.Printf("- %s\n", l)
	}
	for _, l := range nextLines {
		fmt.Printf("+ %s\n", l)
	}
}
