package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/logcraftio/logcraft-cli/internal/domain"
)

// envPattern matches `${ENV_VAR}` references in scalar config fields
// (spec.md §6: "all scalar fields accept ${ENV_VAR} substitution prior to
// parsing").
var envPattern = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)

// substitute replaces every ${ENV_VAR} reference in s with the named
// environment variable's value, failing closed if any referenced variable
// is unset (spec.md §6: "missing required substitutions fail with
// ConfigSubstitution").
func substitute(path, s string) (string, error) {
	var missing string
	result := envPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envPattern.FindStringSubmatch(match)[1]
		value, ok := os.LookupEnv(name)
		if !ok {
			missing = name
			return match
		}
		return value
	})
	if missing != "" {
		return "", &domain.ConfigError{Path: path, Reason: fmt.Sprintf("unresolved substitution ${%s}", missing)}
	}
	return result, nil
}

// substituteConfig walks every scalar string field of cfg, in place,
// resolving ${ENV_VAR} references.
func substituteConfig(cfg *Config) error {
	var err error

	if cfg.Core.Workspace, err = substitute("core.workspace", cfg.Core.Workspace); err != nil {
		return err
	}
	if cfg.Core.BaseDir, err = substitute("core.base_dir", cfg.Core.BaseDir); err != nil {
		return err
	}

	stateFields := []*string{
		&cfg.State.Path, &cfg.State.Address, &cfg.State.Username, &cfg.State.Password,
		&cfg.State.LockAddress, &cfg.State.UnlockAddress, &cfg.State.UpdateMethod,
		&cfg.State.LockMethod, &cfg.State.UnlockMethod,
		&cfg.State.ClientCACertPEM, &cfg.State.ClientCertPEM, &cfg.State.ClientKeyPEM,
	}
	for _, f := range stateFields {
		if *f, err = substitute("state", *f); err != nil {
			return err
		}
	}
	for k, v := range cfg.State.Headers {
		if cfg.State.Headers[k], err = substitute("state.headers."+k, v); err != nil {
			return err
		}
	}

	for id, svc := range cfg.Services {
		if svc.Plugin, err = substitute("services."+id+".plugin", svc.Plugin); err != nil {
			return err
		}
		if svc.Environment, err = substitute("services."+id+".environment", svc.Environment); err != nil {
			return err
		}
		if err := substituteMap(svc.Settings, "services."+id+".settings"); err != nil {
			return err
		}
		cfg.Services[id] = svc
	}

	return nil
}

// substituteMap recursively substitutes string values within an opaque
// settings table, the way the teacher's substituteInMap walks nested
// observation config.
func substituteMap(m map[string]any, path string) error {
	for k, v := range m {
		switch val := v.(type) {
		case string:
			resolved, err := substitute(path+"."+k, val)
			if err != nil {
				return err
			}
			m[k] = resolved
		case map[string]any:
			if err := substituteMap(val, path+"."+k); err != nil {
				return err
			}
		case []any:
			for i, elem := range val {
				if s, ok := elem.(string); ok {
					resolved, err := substitute(fmt.Sprintf("%s.%s[%d]", path, k, i), s)
					if err != nil {
						return err
					}
					val[i] = resolved
				}
			}
		}
	}
	return nil
}
