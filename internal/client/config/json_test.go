package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseFile_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"server_url":           "http://www.example:9000",
		"reconnect_base_delay": "250ms",
		"reconnect_max_delay":  int64(2 * time.Second),
		"reconnect_attempts":   0,
	})

	t.Run("loads json from flags", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{APIPrefix: "/api", ReconnectAttempts: 5}
		parseFile(cfg)

		assert.Equal(t, "http://www.example:9000", cfg.ServerURL)
		assert.Equal(t, 250*time.Millisecond, cfg.ReconnectBaseDelay)
		assert.Equal(t, 2*time.Second, cfg.ReconnectMaxDelay)
		assert.Equal(t, 0, cfg.ReconnectAttempts, "explicit zero overrides")
		assert.Equal(t, "/api", cfg.APIPrefix, "absent keys keep their value")
	})

	t.Run("loads yaml by extension", func(t *testing.T) {
		p := filepath.Join(dir, "cfg.yaml")
		require.NoError(t, os.WriteFile(p, []byte("server_url: https://yaml\nrequest_timeout: 7s\nexport_bucket: b\n"), 0o600))
		os.Args = []string{"testbin", "-c", p}

		cfg := &Config{}
		parseFile(cfg)

		assert.Equal(t, "https://yaml", cfg.ServerURL)
		assert.Equal(t, 7*time.Second, cfg.RequestTimeout)
		assert.Equal(t, "b", cfg.ExportBucket)
	})

	t.Run("no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{ServerURL: "http://defaults:1234", RequestTimeout: 42 * time.Second}
		parseFile(cfg)

		assert.Equal(t, "http://defaults:1234", cfg.ServerURL)
		assert.Equal(t, 42*time.Second, cfg.RequestTimeout)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))
		os.Args = []string{"testbin", "-config", bad}

		require.Panics(t, func() { parseFile(&Config{}) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseFile(&Config{}) })
	})
}
