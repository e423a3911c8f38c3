package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExport = `{
  "version": 1,
  "timestamp": "2026-03-14T09:30:00Z",
  "data": {
    "projects": [{"id": "p1", "title": "Salt and Iron", "status": "drafting", "genre": [], "themes": [], "createdAt": "2026-03-14T09:30:00Z", "updatedAt": "2026-03-14T09:30:00Z"}],
    "characters": [{"id": "c1", "projectId": "p1", "name": "Mara", "role": "protagonist", "createdAt": "2026-03-14T09:30:00Z", "updatedAt": "2026-03-14T09:30:00Z"}],
    "locations": [], "items": [], "plotNodes": [], "variables": [], "continuityIssues": []
  }
}`

// run 在临时数据目录上执行一条命令
func run(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_DIR", t.TempDir())
	t.Setenv("LLM_API_KEY", "unused")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--driver", "file", "--data-dir", dataDir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestImportStatsExportReset(t *testing.T) {
	dataDir := t.TempDir()
	in := filepath.Join(t.TempDir(), "in.json")
	require.NoError(t, os.WriteFile(in, []byte(sampleExport), 0644))

	out, err := run(t, dataDir, "import", "--mode", "replace", in)
	require.NoError(t, err, out)
	assert.Regexp(t, `projects\s+1`, out)
	assert.Regexp(t, `characters\s+1`, out)

	out, err = run(t, dataDir, "stats")
	require.NoError(t, err, out)
	assert.Regexp(t, `projects\s+1`, out)

	exported := filepath.Join(t.TempDir(), "out.json")
	_, err = run(t, dataDir, "export", "--out", exported)
	require.NoError(t, err)
	raw, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"title": "Salt and Iron"`)

	_, err = run(t, dataDir, "reset")
	assert.Error(t, err, "reset without --yes must refuse")

	_, err = run(t, dataDir, "reset", "--yes")
	require.NoError(t, err)

	out, err = run(t, dataDir, "stats", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"projects": 0`)
}

func TestImportFailures(t *testing.T) {
	dataDir := t.TempDir()

	_, err := run(t, dataDir, "import", filepath.Join(dataDir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"version": 1}`), 0644))
	_, err = run(t, dataDir, "import", bad)
	assert.Error(t, err)

	_, err = run(t, dataDir, "--driver", "tape", "stats")
	assert.Error(t, err)
}
