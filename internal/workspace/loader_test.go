package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/logcraftio/logcraft-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestLoad_GroupsByPlugin(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "splunk", "r1.yaml"), "B1")
	writeFile(t, filepath.Join(root, "splunk", "r2.yaml"), "B2")
	writeFile(t, filepath.Join(root, "sentinel", "r1.yaml"), "B3")
	// Unknown top-level directory is ignored entirely.
	writeFile(t, filepath.Join(root, "unknown-plugin", "r1.yaml"), "ignored")
	// A stray top-level file (not a directory) is ignored.
	writeFile(t, filepath.Join(root, "README.md"), "ignored")

	known := map[string]bool{"splunk": true, "sentinel": true}
	entries, err := Load(root, known)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	splunk := ByService(entries, "splunk")
	assert.Equal(t, []byte("B1"), splunk["r1"])
	assert.Equal(t, []byte("B2"), splunk["r2"])

	sentinel := ByService(entries, "sentinel")
	assert.Equal(t, []byte("B3"), sentinel["r1"])
}

func TestLoad_DuplicateLocalNameFails(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "splunk", "r1.yaml"), "B1")
	writeFile(t, filepath.Join(root, "splunk", "r1.yml"), "B2")

	_, err := Load(root, map[string]bool{"splunk": true})
	require.Error(t, err)
	var dup *domain.DuplicateDetectionError
	assert.ErrorAs(t, err, &dup)
}

func TestLoad_NestedSubdirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "splunk", "sub", "r1.yaml"), "B1")

	entries, err := Load(root, map[string]bool{"splunk": true})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "r1", entries[0].LocalName)
}

func TestLoad_EmptyWorkspace(t *testing.T) {
	root := t.TempDir()
	entries, err := Load(root, map[string]bool{"splunk": true})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestByService_NoMatchReturnsEmptyMap(t *testing.T) {
	entries := []Entry{{Plugin: "splunk", LocalName: "r1", Bytes: []byte("B1")}}
	out := ByService(entries, "sentinel")
	assert.Empty(t, out)
}
