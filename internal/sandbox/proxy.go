package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/logcraftio/logcraft-cli/internal/domain"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// PluginProxy is the typed facade the rest of the engine talks to. It owns
// a single service's settings: marshaled and schema-validated once per
// session, then reused across every operation call (spec §4.2, §4.3: "a
// service's settings are validated against the plugin's schema once, not
// on every detection").
type PluginProxy struct {
	plugin       *Plugin
	service      string
	settingsJSON json.RawMessage
}

// NewProxy loads plugin if necessary, validates settings against its
// settings() schema, and returns a proxy bound to that service.
func NewProxy(ctx context.Context, runtime *Runtime, service domain.Service, pluginBytes []byte) (*PluginProxy, error) {
	p, err := runtime.Load(ctx, service.Plugin, pluginBytes)
	if err != nil {
		return nil, toDomainError(service.Plugin, err)
	}

	settingsJSON, err := json.Marshal(service.Settings)
	if err != nil {
		return nil, &domain.ConfigError{Path: service.ID, Reason: fmt.Sprintf("marshal settings: %v", err)}
	}

	schemaBytes, err := p.Settings(ctx)
	if err != nil {
		return nil, toDomainError(service.Plugin, err)
	}
	if len(schemaBytes) > 0 {
		if err := validateAgainstSchema(schemaBytes, settingsJSON); err != nil {
			return nil, &domain.PluginSchemaError{Plugin: service.Plugin, Reason: fmt.Sprintf("settings for service %s: %v", service.ID, err)}
		}
	}

	return &PluginProxy{plugin: p, service: service.ID, settingsJSON: settingsJSON}, nil
}

// ValidateDetection checks a detection body against the plugin's schema()
// (static shape) and then its validate() export (semantic check, spec
// §4.3).
func (px *PluginProxy) ValidateDetection(ctx context.Context, detectionBytes []byte) error {
	schemaBytes, err := px.plugin.Schema(ctx)
	if err != nil {
		return toDomainError(px.plugin.name, err)
	}
	if len(schemaBytes) > 0 {
		if err := validateAgainstSchema(schemaBytes, detectionBytes); err != nil {
			return &domain.PluginSchemaError{Plugin: px.plugin.name, Reason: err.Error()}
		}
	}
	if err := px.plugin.Validate(ctx, px.settingsJSON, detectionBytes); err != nil {
		return toDomainError(px.plugin.name, err)
	}
	return nil
}

// Create deploys a new detection.
func (px *PluginProxy) Create(ctx context.Context, detectionBytes []byte) error {
	if err := px.plugin.Create(ctx, px.settingsJSON, detectionBytes); err != nil {
		return toDomainError(px.plugin.name, err)
	}
	return nil
}

// Update applies a changed detection.
func (px *PluginProxy) Update(ctx context.Context, detectionBytes []byte) error {
	if err := px.plugin.Update(ctx, px.settingsJSON, detectionBytes); err != nil {
		return toDomainError(px.plugin.name, err)
	}
	return nil
}

// Delete removes a detection no longer present locally.
func (px *PluginProxy) Delete(ctx context.Context, detectionBytes []byte) error {
	if err := px.plugin.Delete(ctx, px.settingsJSON, detectionBytes); err != nil {
		return toDomainError(px.plugin.name, err)
	}
	return nil
}

// Read fetches the remote detection's current bytes, for drift detection
// against recorded state (spec §4.6).
func (px *PluginProxy) Read(ctx context.Context, localName string) (present bool, bytes []byte, err error) {
	present, bytes, err = px.plugin.Read(ctx, px.settingsJSON, localName)
	if err != nil {
		return false, nil, toDomainError(px.plugin.name, err)
	}
	return present, bytes, nil
}

// Ping performs a connectivity check using this service's settings.
func (px *PluginProxy) Ping(ctx context.Context) error {
	if err := px.plugin.Ping(ctx, px.settingsJSON); err != nil {
		return toDomainError(px.plugin.name, err)
	}
	return nil
}

func validateAgainstSchema(schemaBytes, docBytes []byte) error {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	const resourceName = "schema.json"
	if err := compiler.AddResource(resourceName, bytes.NewReader(schemaBytes)); err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	schema, err := compiler.Compile(resourceName)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(docBytes, &doc); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return err
	}
	return nil
}

// toDomainError maps the sandbox package's wazero-facing error types onto
// the domain error taxonomy the rest of the engine understands.
func toDomainError(plugin string, err error) error {
	switch e := err.(type) {
	case *PluginLoadError:
		return &domain.PluginLoadError{Plugin: e.Plugin, Reason: e.Reason}
	case *PluginRuntimeError:
		return &domain.PluginRuntimeError{Plugin: e.Plugin, Message: e.Cause.Error()}
	default:
		return &domain.PluginRuntimeError{Plugin: plugin, Message: err.Error()}
	}
}
