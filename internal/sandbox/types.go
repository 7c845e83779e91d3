// Package sandbox implements the plugin runtime: a wazero-hosted execution
// environment that loads core WebAssembly modules exporting the fixed
// load/settings/schema/validate/create/update/delete/read/ping interface
// (spec §4.1) over a JSON ptr/len ABI, and mediates their only host
// capability, outbound HTTP. WebAssembly component-model binaries are not
// supported.
package sandbox

import "encoding/json"

// Info is the metadata a plugin reports from its load() export.
type Info struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// schemaResult is the wire shape of settings()/schema().
type schemaResult struct {
	Schema json.RawMessage `json:"schema,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// okResult is the wire shape of validate()/create()/update()/delete().
type okResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// readResult is the wire shape of read().
type readResult struct {
	Present bool   `json:"present"`
	Bytes   string `json:"bytes,omitempty"` // base64
	Error   string `json:"error,omitempty"`
}

// pingResult is the wire shape of ping().
type pingResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
