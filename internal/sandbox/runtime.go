package sandbox

import (
	"context"
	"fmt"
	"sync"

	"github.com/logcraftio/logcraft-cli/internal/sandbox/hostfuncs"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// globalCache speeds up compilation across Runtime instances within a
// single process.
var globalCache = wazero.NewCompilationCache()

// Runtime owns the wazero runtime and the plugin_name -> compiled module
// cache (spec §3 Plugin instance, §4.1).
type Runtime struct {
	runtime wazero.Runtime
	plugins map[string]*Plugin
	mu      sync.RWMutex
	info    hostfuncs.BuildInfo
}

// New creates a Runtime with WASI instantiated and the outbound-http host
// capability registered.
func New(ctx context.Context, info hostfuncs.BuildInfo) (*Runtime, error) {
	config := wazero.NewRuntimeConfig().WithCompilationCache(globalCache)
	r := wazero.NewRuntimeWithConfig(ctx, config)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
	}

	if err := hostfuncs.Register(ctx, r, info); err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("failed to register host capabilities: %w", err)
	}

	return &Runtime{
		runtime: r,
		plugins: make(map[string]*Plugin),
		info:    info,
	}, nil
}

// Load compiles and caches a plugin module for name, loading wasmBytes only
// on cache miss (spec §3 Plugin instance lifecycle: "lazily loaded on first
// use, cached for process lifetime").
func (r *Runtime) Load(ctx context.Context, name string, wasmBytes []byte) (*Plugin, error) {
	r.mu.RLock()
	if p, ok := r.plugins[name]; ok {
		r.mu.RUnlock()
		return p, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.plugins[name]; ok {
		return p, nil
	}

	compiled, err := r.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, &PluginLoadError{Plugin: name, Reason: err.Error()}
	}

	if !exportsRequiredInterface(compiled) {
		_ = compiled.Close(ctx)
		return nil, &PluginLoadError{Plugin: name, Reason: "module does not export the required plugin interface"}
	}

	p := &Plugin{name: name, module: compiled, runtime: r.runtime}
	r.plugins[name] = p
	return p, nil
}

// requiredExports is the fixed interface every plugin module must expose
// (spec §4.1).
var requiredExports = []string{
	"load", "settings", "schema", "validate",
	"create", "update", "delete", "read", "ping",
	"allocate", "deallocate",
}

func exportsRequiredInterface(m wazero.CompiledModule) bool {
	defs := m.ExportedFunctions()
	for _, name := range requiredExports {
		if _, ok := defs[name]; !ok {
			return false
		}
	}
	return true
}

// Get returns a previously loaded plugin.
func (r *Runtime) Get(name string) (*Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// Close releases the wazero runtime and all compiled modules.
func (r *Runtime) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}

// PluginLoadError indicates a plugin module could not be compiled,
// instantiated, or does not expose the required interface (spec §7). It is
// the sandbox-internal form; toDomainError maps it onto
// domain.PluginLoadError, which ReadPluginBytes returns directly for a
// missing module file.
type PluginLoadError struct {
	Plugin string
	Reason string
}

func (e *PluginLoadError) Error() string {
	return fmt.Sprintf("plugin load %s: %s", e.Plugin, e.Reason)
}
