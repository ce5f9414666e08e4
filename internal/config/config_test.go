package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aqsync/internal/firestore"
)

func noEnv(string) string { return "" }

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aqsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsFromSchema(t *testing.T) {
	path := writeConfig(t, "project_id: aqm5-monitor\napi_key: k\n")

	cfg, err := Load(Options{Path: path, Getenv: noEnv})
	require.NoError(t, err)

	assert.Equal(t, "aqm5-monitor", cfg.ProjectID)
	assert.Equal(t, "https://firestore.googleapis.com/v1", cfg.BaseURL)
	assert.Equal(t, "(default)", cfg.Database)
	assert.Equal(t, "airquality/current", cfg.CurrentDocument)
	assert.Equal(t, "history", cfg.HistoryCollection)
	assert.Equal(t, "timestamp", cfg.TimestampField)
	assert.Equal(t, "timestamp", cfg.TimestampEncoding)
	assert.Equal(t, 7*24*time.Hour, time.Duration(cfg.Retention))
	assert.Equal(t, 10000, cfg.PageLimit)
	assert.Equal(t, 30*time.Second, time.Duration(cfg.RequestTimeout))
	assert.Equal(t, "current-data.json", cfg.CurrentOutput)
	assert.Equal(t, "history-data.json", cfg.HistoryOutput)
	assert.Equal(t, "", cfg.Ledger)
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
project_id: p
api_key: k
history_collection: samples
timestamp_encoding: string
retention: 48h
page_limit: 250
request_timeout: 1m30s
ledger: runs.db
`)

	cfg, err := Load(Options{Path: path, Getenv: noEnv})
	require.NoError(t, err)

	assert.Equal(t, "samples", cfg.HistoryCollection)
	assert.Equal(t, "string", cfg.TimestampEncoding)
	assert.Equal(t, 48*time.Hour, time.Duration(cfg.Retention))
	assert.Equal(t, 250, cfg.PageLimit)
	assert.Equal(t, 90*time.Second, time.Duration(cfg.RequestTimeout))
	assert.Equal(t, "runs.db", cfg.Ledger)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, "project_id: from-file\napi_key: file-key\npage_limit: 10\n")
	env := map[string]string{EnvAPIKey: "env-key", EnvProjectID: "from-env"}

	cfg, err := Load(Options{
		Path:      path,
		Getenv:    func(k string) string { return env[k] },
		Overrides: map[string]any{"project_id": "from-flag", "page_limit": 20},
	})
	require.NoError(t, err)

	assert.Equal(t, "from-flag", cfg.ProjectID)
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, 20, cfg.PageLimit)
}

func TestLoad_EnvOnly(t *testing.T) {
	env := map[string]string{EnvAPIKey: "k", EnvProjectID: "p", EnvBaseURL: "http://localhost:8080/v1"}

	cfg, err := Load(Options{Getenv: func(k string) string { return env[k] }})
	require.NoError(t, err)
	assert.Equal(t, "p", cfg.ProjectID)
	assert.Equal(t, "http://localhost:8080/v1", cfg.BaseURL)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing api key", "project_id: p\n"},
		{"empty project", "project_id: ''\napi_key: k\n"},
		{"unknown key", "project_id: p\napi_key: k\ncolour: blue\n"},
		{"page limit too large", "project_id: p\napi_key: k\npage_limit: 20000\n"},
		{"page limit zero", "project_id: p\napi_key: k\npage_limit: 0\n"},
		{"bad retention", "project_id: p\napi_key: k\nretention: a week\n"},
		{"zero retention", "project_id: p\napi_key: k\nretention: 0s\n"},
		{"zero compound retention", "project_id: p\napi_key: k\nretention: 0h0m\n"},
		{"zero request timeout", "project_id: p\napi_key: k\nrequest_timeout: 0ms\n"},
		{"bad encoding", "project_id: p\napi_key: k\ntimestamp_encoding: epoch\n"},
		{"bad base url", "project_id: p\napi_key: k\nbase_url: ftp://x\n"},
		{"not yaml", "project_id: [unterminated\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(Options{Path: writeConfig(t, tt.content), Getenv: noEnv})
			require.Error(t, err)
			assert.True(t, IsValidationError(err), "got %T: %v", err, err)
		})
	}
}

func TestLoad_FractionalDurationAccepted(t *testing.T) {
	path := writeConfig(t, "project_id: p\napi_key: k\nretention: 0.5h\nrequest_timeout: 2s\n")

	cfg, err := Load(Options{Path: path, Getenv: noEnv})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.Retention.Std())
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout.Std())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(Options{Path: filepath.Join(t.TempDir(), "nope.yaml"), Getenv: noEnv})
	require.Error(t, err)
	assert.False(t, IsValidationError(err))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfig_Redacted(t *testing.T) {
	cfg := Config{ProjectID: "p", APIKey: "secret"}
	r := cfg.Redacted()

	assert.Equal(t, "REDACTED", r.APIKey)
	assert.Equal(t, "secret", cfg.APIKey, "original must not change")
}

func TestConfig_FirestoreConfig(t *testing.T) {
	cfg, err := Load(Options{Getenv: noEnv, Overrides: map[string]any{
		"project_id": "p", "api_key": "k", "timestamp_encoding": "string", "request_timeout": "5s",
	}})
	require.NoError(t, err)

	fc := cfg.FirestoreConfig()
	assert.Equal(t, "p", fc.ProjectID)
	assert.Equal(t, "k", fc.APIKey)
	assert.Equal(t, firestore.EncodingString, fc.TimestampEncoding)
	require.NotNil(t, fc.HTTPClient)
	assert.Equal(t, 5*time.Second, fc.HTTPClient.Timeout)
}

func TestOutputPaths(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		current, history := OutputPaths(Options{})
		assert.Equal(t, "current-data.json", current)
		assert.Equal(t, "history-data.json", history)
	})

	t.Run("invalid file still yields its paths", func(t *testing.T) {
		// No api_key, so Load rejects this file.
		path := writeConfig(t, "project_id: p\ncurrent_output: site/current.json\nhistory_output: site/history.json\n")
		_, err := Load(Options{Path: path, Getenv: noEnv})
		require.Error(t, err)

		current, history := OutputPaths(Options{Path: path})
		assert.Equal(t, "site/current.json", current)
		assert.Equal(t, "site/history.json", history)
	})

	t.Run("overrides win", func(t *testing.T) {
		path := writeConfig(t, "current_output: a.json\n")
		current, history := OutputPaths(Options{
			Path:      path,
			Overrides: map[string]any{"current_output": "b.json"},
		})
		assert.Equal(t, "b.json", current)
		assert.Equal(t, "history-data.json", history)
	})

	t.Run("unreadable file falls back to defaults", func(t *testing.T) {
		current, history := OutputPaths(Options{Path: filepath.Join(t.TempDir(), "missing.yaml")})
		assert.Equal(t, "current-data.json", current)
		assert.Equal(t, "history-data.json", history)

		path := writeConfig(t, "{not yaml")
		current, _ = OutputPaths(Options{Path: path})
		assert.Equal(t, "current-data.json", current)
	})
}
