package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/logcraftio/logcraft-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
[core]
workspace = "rules"
base_dir = "/opt/logcraft-cli"

[state]
type = "local"
path = ".logcraft/state.json"

[services.prod_splunk]
plugin = "splunk"
environment = "prod"

[services.prod_splunk.settings]
url = "${LGC_TEST_LOADER_URL}"
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "lgc.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_DecodesAndSubstitutes(t *testing.T) {
	t.Setenv("LGC_TEST_LOADER_URL", "https://splunk.example.com")
	path := writeTempConfig(t, sampleTOML)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "rules", cfg.Core.Workspace)
	assert.Equal(t, "/opt/logcraft-cli", cfg.Core.BaseDir)
	assert.Equal(t, "local", cfg.State.Type)

	svc, ok := cfg.Services["prod_splunk"]
	require.True(t, ok)
	assert.Equal(t, "splunk", svc.Plugin)
	assert.Equal(t, "prod", svc.Environment)
	assert.Equal(t, "https://splunk.example.com", svc.Settings["url"])
}

func TestLoad_MissingFileReturnsConfigError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	var cfgErr *domain.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoad_MissingSubstitutionVarFails(t *testing.T) {
	require.NoError(t, os.Unsetenv("LGC_TEST_LOADER_URL"))
	path := writeTempConfig(t, sampleTOML)

	_, err := Load(path)
	require.Error(t, err)
}

func TestConfig_DomainServices(t *testing.T) {
	cfg := &Config{
		Services: map[string]ServiceConfig{
			"s1": {Plugin: "splunk", Environment: "prod", Settings: map[string]any{"a": "b"}},
		},
	}
	svcs := cfg.DomainServices()
	require.Len(t, svcs, 1)
	assert.Equal(t, "s1", svcs[0].ID)
	assert.Equal(t, "splunk", svcs[0].Plugin)
	assert.Equal(t, "prod", svcs[0].Environment)
}
