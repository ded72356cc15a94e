package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadReconcile(t *testing.T) {
	path := writeConfig(t, `
user: alice
device: phone
endpoint: http://localhost:8035/pub
data_folder: /var/lib/recorder/store/rec
dry_run: true
limit: 10
rate: 2.5
journal: journal.db
skip_invalid: true
`)

	cfg, err := LoadReconcile(path)
	require.NoError(t, err)
	assert.Equal(t, Reconcile{
		User:        "alice",
		Device:      "phone",
		Endpoint:    "http://localhost:8035/pub",
		DataFolder:  "/var/lib/recorder/store/rec",
		DryRun:      true,
		Limit:       10,
		Rate:        2.5,
		Journal:     "journal.db",
		SkipInvalid: true,
	}, cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadReconcileRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "user: alice\nendpont: typo\n")

	_, err := LoadReconcile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
	assert.Contains(t, err.Error(), "endpont")
}

func TestLoadReconcileEmptyFile(t *testing.T) {
	cfg, err := LoadReconcile(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Reconcile{}, cfg)
}

func TestLoadReconcileMissingFile(t *testing.T) {
	_, err := LoadReconcile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestReconcileValidate(t *testing.T) {
	valid := Reconcile{User: "u", Device: "d", Endpoint: "http://x/pub", DataFolder: "/data"}

	tests := []struct {
		name    string
		mutate  func(*Reconcile)
		wantErr string
	}{
		{"valid", func(*Reconcile) {}, ""},
		{"missing user and device", func(c *Reconcile) { c.User, c.Device = "", "" }, "required settings not set: [user device]"},
		{"missing data folder", func(c *Reconcile) { c.DataFolder = "" }, "[data-folder]"},
		{"negative limit", func(c *Reconcile) { c.Limit = -1 }, "limit must be >= 0"},
		{"negative rate", func(c *Reconcile) { c.Rate = -0.5 }, "rate must be >= 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadServeDefaults(t *testing.T) {
	cfg, err := LoadServe()
	require.NoError(t, err)
	assert.Equal(t, Serve{Host: "localhost", Port: 8035, DataDir: "data"}, cfg)
	assert.Equal(t, "localhost:8035", cfg.Addr())
	assert.NoError(t, cfg.Validate())
}

func TestLoadServeFromEnv(t *testing.T) {
	t.Setenv("RECSYNC_HOST", "::1")
	t.Setenv("RECSYNC_PORT", "9000")
	t.Setenv("RECSYNC_DATA_DIR", "/srv/rec")

	cfg, err := LoadServe()
	require.NoError(t, err)
	assert.Equal(t, "[::1]:9000", cfg.Addr())
	assert.Equal(t, "/srv/rec", cfg.DataDir)
}

func TestLoadServeBadPort(t *testing.T) {
	t.Setenv("RECSYNC_PORT", "not-an-int")

	_, err := LoadServe()
	assert.ErrorContains(t, err, "parse env:")
}

func TestServeValidate(t *testing.T) {
	assert.ErrorContains(t, Serve{Port: 0, DataDir: "d"}.Validate(), "port must be between")
	assert.ErrorContains(t, Serve{Port: 80}.Validate(), "data dir is required")
}
