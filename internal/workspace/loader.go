// Package workspace enumerates detection files under a workspace tree,
// grouping them by owning plugin (spec.md §4.4).
package workspace

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/logcraftio/logcraft-cli/internal/domain"
)

// Entry is one detection file discovered under the workspace root.
type Entry struct {
	Plugin    string
	LocalName string
	Bytes     []byte
}

// Load recursively walks root, considering only first-level directories
// whose name appears in knownPlugins; any other top-level entry is ignored
// (spec.md §4.4: "only first-level directories that match a known plugin
// name are considered"). Duplicate local names within a plugin fail with
// domain.DuplicateDetectionError; non-UTF-8 filenames fail with
// domain.BadPathError.
func Load(root string, knownPlugins map[string]bool) ([]Entry, error) {
	var entries []Entry
	seen := make(map[string]map[string]bool)

	topLevel, err := os.ReadDir(root)
	if err != nil {
		return nil, &domain.WorkspaceIOError{Path: root, Reason: err.Error()}
	}

	for _, top := range topLevel {
		if !top.IsDir() {
			continue
		}
		plugin := top.Name()
		if !knownPlugins[plugin] {
			continue
		}

		pluginDir := filepath.Join(root, plugin)
		err := filepath.WalkDir(pluginDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if !utf8.ValidString(path) {
				return &domain.BadPathError{Path: path}
			}

			localName := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))

			if seen[plugin] == nil {
				seen[plugin] = make(map[string]bool)
			}
			if seen[plugin][localName] {
				return &domain.DuplicateDetectionError{Plugin: plugin, LocalName: localName}
			}
			seen[plugin][localName] = true

			data, readErr := os.ReadFile(path)
			if readErr != nil {
				return &domain.WorkspaceIOError{Path: path, Reason: readErr.Error()}
			}

			entries = append(entries, Entry{Plugin: plugin, LocalName: localName, Bytes: data})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Plugin != entries[j].Plugin {
			return entries[i].Plugin < entries[j].Plugin
		}
		return entries[i].LocalName < entries[j].LocalName
	})

	return entries, nil
}

// ByService groups entries into the `D` (desired) view per spec.md §4.6:
// detection local name -> bytes, scoped to one plugin.
func ByService(entries []Entry, plugin string) map[string][]byte {
	out := make(map[string][]byte)
	for _, e := range entries {
		if e.Plugin == plugin {
			out[e.LocalName] = e.Bytes
		}
	}
	return out
}
