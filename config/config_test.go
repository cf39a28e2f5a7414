package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "purku.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_Minimal(t *testing.T) {
	path := writeConfig(t, `
version: "1.0"
domain: vpc
accounts:
  - id: "123456789012"
regions:
  selection: all
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "vpc", cfg.Domain)
	assert.Len(t, cfg.Accounts, 1)

	// Defaults applied.
	assert.Equal(t, 3, cfg.Concurrency.MaxScopes)
	assert.Equal(t, 8, cfg.Concurrency.MaxDeletes)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, DefaultRegions(), cfg.Regions.Available)
	assert.Equal(t, "./audit", cfg.Audit.Dir)
	assert.Equal(t, "./purku.db", cfg.Report.Path)
}

func TestLoadConfig_SelectionScalar(t *testing.T) {
	path := writeConfig(t, `
version: "1.0"
domain: rds
accounts:
  - id: "123456789012"
regions:
  available: [us-east-1, us-west-2, eu-west-1]
  selection: "1-2"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "1-2", cfg.Regions.Selection.Raw)
	assert.Empty(t, cfg.Regions.Selection.List)
}

func TestLoadConfig_SelectionList(t *testing.T) {
	path := writeConfig(t, `
version: "1.0"
domain: rds
accounts:
  - id: "123456789012"
regions:
  available: [us-east-1, us-west-2]
  selection:
    - us-east-1
    - us-west-2
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"us-east-1", "us-west-2"}, cfg.Regions.Selection.List)
}

func TestLoadConfig_MissingDomain(t *testing.T) {
	path := writeConfig(t, `
version: "1.0"
accounts:
  - id: "123456789012"
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "domain is required")
}

func TestLoadConfig_AccessKeyWithoutSecret(t *testing.T) {
	path := writeConfig(t, `
version: "1.0"
domain: vpc
accounts:
  - id: "123456789012"
    access_key: AKIAEXAMPLE
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret_key")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/purku.yaml")
	assert.Error(t, err)
}

func TestSelection_IsEmpty(t *testing.T) {
	assert.True(t, Selection{}.IsEmpty())
	assert.True(t, Selection{Raw: "  "}.IsEmpty())
	assert.False(t, Selection{Raw: "all"}.IsEmpty())
	assert.False(t, Selection{List: []string{"us-east-1"}}.IsEmpty())
}
