package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeConfig(t *testing.T, format string, getenv func(string) string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newConfigCommand(&ConfigOptions{RootOptions: &RootOptions{Format: format}, Getenv: getenv})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestConfig_TextRedactsKey(t *testing.T) {
	out, err := executeConfig(t, "text", testEnv(nil))
	require.NoError(t, err)

	assert.Contains(t, out, "project_id:         aqm5-monitor")
	assert.Contains(t, out, "api_key:            REDACTED")
	assert.Contains(t, out, "page_limit:         10,000")
	assert.Contains(t, out, "ledger:             (disabled)")
	assert.NotContains(t, out, "test-key")
}

func TestConfig_JSONFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aqsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("history_collection: samples\nretention: 24h\n"), 0o644))

	out, err := executeConfig(t, "json", testEnv(nil), "--config", path)
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "samples", resp.Data["history_collection"])
	assert.Equal(t, "24h0m0s", resp.Data["retention"])
	assert.Equal(t, "REDACTED", resp.Data["api_key"])
}

func TestConfig_InvalidIsCommandError(t *testing.T) {
	out, err := executeConfig(t, "json", func(string) string { return "" })
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeConfig, resp.Error.Code)
}
