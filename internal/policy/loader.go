package policy

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/logcraftio/logcraft-cli/internal/domain"
	"gopkg.in/yaml.v3"
)

// LoadPluginPolicies loads every `*.yaml`/`*.yml` file directly under
// `${root}/.logcraft/<plugin>/`, in deterministic lexicographic order of
// file basename (spec.md §4.5 evaluation order). A missing directory is not
// an error: a plugin with no policy files simply has none.
func LoadPluginPolicies(root, plugin string) ([]Policy, error) {
	dir := filepath.Join(root, ".logcraft", plugin)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.WorkspaceIOError{Path: dir, Reason: err.Error()}
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	policies := make([]Policy, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &domain.WorkspaceIOError{Path: path, Reason: err.Error()}
		}

		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)

		var p Policy
		if err := decoder.Decode(&p); err != nil {
			return nil, &domain.ConfigError{Path: path, Reason: err.Error()}
		}
		p.sourceFile = name
		policies = append(policies, p)
	}
	return policies, nil
}
