package sandbox

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/logcraftio/logcraft-cli/internal/sandbox/wire"
	"github.com/tetratelabs/wazero"
)

// Plugin wraps a compiled module and instantiates a fresh api.Module per
// call (spec §4.1: "no state is retained in the guest between operations").
// A mutex serializes calls against a single Plugin so that multiple
// goroutines sharing the runtime-wide plugin cache don't race while
// instantiating.
type Plugin struct {
	name    string
	module  wazero.CompiledModule
	runtime wazero.Runtime

	mu sync.Mutex
}

// Name returns the plugin's loaded name, as passed to Runtime.Load.
func (p *Plugin) Name() string {
	return p.name
}

// call instantiates a fresh guest module, marshals req to JSON, invokes the
// named export with a packed ptr/len argument, reads back the packed ptr/len
// result, and unmarshals it into resp.
func (p *Plugin) call(ctx context.Context, export string, req any, resp any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cfg := wazero.NewModuleConfig().WithName("") // anonymous: allows concurrent future instantiation
	instance, err := p.runtime.InstantiateModule(ctx, p.module, cfg)
	if err != nil {
		return &PluginLoadError{Plugin: p.name, Reason: fmt.Sprintf("instantiate: %v", err)}
	}
	defer func() { _ = instance.Close(ctx) }()

	var payload []byte
	if req != nil {
		payload, err = json.Marshal(req)
		if err != nil {
			return fmt.Errorf("sandbox: marshal request for %s.%s: %w", p.name, export, err)
		}
	}

	allocate := instance.ExportedFunction("allocate")
	if allocate == nil {
		return &PluginLoadError{Plugin: p.name, Reason: "missing allocate export"}
	}

	var argPacked uint64
	if len(payload) > 0 {
		results, err := allocate.Call(ctx, uint64(len(payload)))
		if err != nil || len(results) == 0 {
			return fmt.Errorf("sandbox: %s.allocate failed: %w", p.name, err)
		}
		ptr := uint32(results[0]) //nolint:gosec // G115: WASM32 pointer
		if !instance.Memory().Write(ptr, payload) {
			return fmt.Errorf("sandbox: %s: failed writing request into guest memory", p.name)
		}
		argPacked = wire.PackPtrLen(ptr, uint32(len(payload))) //nolint:gosec // G115: bounded
	}

	fn := instance.ExportedFunction(export)
	if fn == nil {
		return &PluginLoadError{Plugin: p.name, Reason: fmt.Sprintf("missing %s export", export)}
	}

	results, err := fn.Call(ctx, argPacked)
	if err != nil {
		return &PluginRuntimeError{Plugin: p.name, Operation: export, Cause: err}
	}
	if len(results) == 0 {
		return &PluginRuntimeError{Plugin: p.name, Operation: export, Cause: fmt.Errorf("no return value")}
	}

	resultPtr, resultLen := wire.UnpackPtrLen(results[0])
	if resultLen == 0 {
		return nil
	}

	out, ok := instance.Memory().Read(resultPtr, resultLen)
	if !ok {
		return &PluginRuntimeError{Plugin: p.name, Operation: export, Cause: fmt.Errorf("failed reading result from guest memory")}
	}

	if resp != nil {
		if err := json.Unmarshal(out, resp); err != nil {
			return &PluginRuntimeError{Plugin: p.name, Operation: export, Cause: fmt.Errorf("decode result: %w", err)}
		}
	}

	deallocate := instance.ExportedFunction("deallocate")
	if deallocate != nil {
		_, _ = deallocate.Call(ctx, wire.PackPtrLen(resultPtr, resultLen))
	}

	return nil
}

// Load invokes the plugin's load() export, returning its reported identity.
func (p *Plugin) Load(ctx context.Context) (Info, error) {
	var info Info
	if err := p.call(ctx, "load", nil, &info); err != nil {
		return Info{}, err
	}
	return info, nil
}

// Settings invokes settings(), returning the JSON Schema a plugin's
// configuration must satisfy.
func (p *Plugin) Settings(ctx context.Context) (json.RawMessage, error) {
	var result schemaResult
	if err := p.call(ctx, "settings", nil, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, &PluginRuntimeError{Plugin: p.name, Operation: "settings", Cause: fmt.Errorf("%s", result.Error)}
	}
	return result.Schema, nil
}

// Schema invokes schema(), returning the JSON Schema a detection body under
// this plugin must satisfy.
func (p *Plugin) Schema(ctx context.Context) (json.RawMessage, error) {
	var result schemaResult
	if err := p.call(ctx, "schema", nil, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, &PluginRuntimeError{Plugin: p.name, Operation: "schema", Cause: fmt.Errorf("%s", result.Error)}
	}
	return result.Schema, nil
}

// invocation is the common envelope passed to validate/create/update/delete:
// the service's settings plus the detection body under operation.
type invocation struct {
	Settings  json.RawMessage `json:"settings"`
	Detection []byte          `json:"detection"`
}

// Validate invokes validate() for a detection body against service settings.
func (p *Plugin) Validate(ctx context.Context, settings json.RawMessage, detection []byte) error {
	return p.invokeOK(ctx, "validate", settings, detection)
}

// Create invokes create().
func (p *Plugin) Create(ctx context.Context, settings json.RawMessage, detection []byte) error {
	return p.invokeOK(ctx, "create", settings, detection)
}

// Update invokes update().
func (p *Plugin) Update(ctx context.Context, settings json.RawMessage, detection []byte) error {
	return p.invokeOK(ctx, "update", settings, detection)
}

// Delete invokes delete().
func (p *Plugin) Delete(ctx context.Context, settings json.RawMessage, detection []byte) error {
	return p.invokeOK(ctx, "delete", settings, detection)
}

func (p *Plugin) invokeOK(ctx context.Context, export string, settings json.RawMessage, detection []byte) error {
	var result okResult
	err := p.call(ctx, export, invocation{Settings: settings, Detection: detection}, &result)
	if err != nil {
		return err
	}
	if !result.OK {
		return &PluginRuntimeError{Plugin: p.name, Operation: export, Cause: fmt.Errorf("%s", result.Error)}
	}
	return nil
}

// Read invokes read(), reporting whether a detection currently exists at
// the remote end and, if so, its canonical bytes as last observed by the
// plugin (spec §4.3, Scenario reads for drift detection).
func (p *Plugin) Read(ctx context.Context, settings json.RawMessage, localName string) (present bool, bytes []byte, err error) {
	type readReq struct {
		Settings  json.RawMessage `json:"settings"`
		LocalName string          `json:"local_name"`
	}
	var result readResult
	if err := p.call(ctx, "read", readReq{Settings: settings, LocalName: localName}, &result); err != nil {
		return false, nil, err
	}
	if result.Error != "" {
		return false, nil, &PluginRuntimeError{Plugin: p.name, Operation: "read", Cause: fmt.Errorf("%s", result.Error)}
	}
	if !result.Present {
		return false, nil, nil
	}
	decoded, decErr := base64.StdEncoding.DecodeString(result.Bytes)
	if decErr != nil {
		return false, nil, &PluginRuntimeError{Plugin: p.name, Operation: "read", Cause: fmt.Errorf("decode bytes: %w", decErr)}
	}
	return true, decoded, nil
}

// Ping invokes ping(), a lightweight connectivity check against a service's
// settings (spec §6, `lgc ping`).
func (p *Plugin) Ping(ctx context.Context, settings json.RawMessage) error {
	type pingReq struct {
		Settings json.RawMessage `json:"settings"`
	}
	var result pingResult
	if err := p.call(ctx, "ping", pingReq{Settings: settings}, &result); err != nil {
		return err
	}
	if !result.OK {
		return &PluginRuntimeError{Plugin: p.name, Operation: "ping", Cause: fmt.Errorf("%s", result.Error)}
	}
	return nil
}

// PluginRuntimeError wraps a failure surfaced by a plugin export call: a
// wazero-level trap, a missing or undecodable result, or an explicit
// {ok:false, error:"..."} result on the wire (spec §7). Instantiation
// failures are reported as PluginLoadError instead.
type PluginRuntimeError struct {
	Plugin    string
	Operation string
	Cause     error
}

func (e *PluginRuntimeError) Error() string {
	return fmt.Sprintf("plugin %s: %s: %v", e.Plugin, e.Operation, e.Cause)
}

func (e *PluginRuntimeError) Unwrap() error {
	return e.Cause
}
