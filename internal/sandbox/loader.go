package sandbox

import (
	"os"
	"path/filepath"

	"github.com/logcraftio/logcraft-cli/internal/domain"
)

// ReadPluginBytes reads the compiled WebAssembly module for plugin from the
// configured plugins directory (default `${base_dir}/plugins`, spec.md
// §4.1). Modules are named `<plugin>.wasm`.
func ReadPluginBytes(pluginsDir, plugin string) ([]byte, error) {
	path := filepath.Join(pluginsDir, plugin+".wasm")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.PluginLoadError{Plugin: plugin, Reason: err.Error()}
	}
	return data, nil
}
