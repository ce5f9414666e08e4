package sitedata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aqsync/internal/reading"
)

func sampleHistory() []reading.Reading {
	return []reading.Reading{
		{PM1_0: reading.Metric(4), PM2_5: reading.Metric(7.5), PM10: reading.Metric(11), Timestamp: "2026-10-19T10:00:00Z"},
		{PM2_5: reading.Metric(12), Timestamp: "2026-10-19T11:00:00.000Z"},
	}
}

func TestHistoryFile_LoadMissing(t *testing.T) {
	h := NewHistoryFile(filepath.Join(t.TempDir(), DefaultHistoryPath))

	got := h.Load()
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.False(t, h.Valid())
}

func TestHistoryFile_LoadMalformed(t *testing.T) {
	cases := map[string]string{
		"truncated": `[{"pm2_5": 3, "timestamp": "2026-`,
		"object":    `{"pm2_5": 3}`,
		"null":      `null`,
		"empty":     ``,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), DefaultHistoryPath)
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			h := NewHistoryFile(path)

			got := h.Load()
			assert.NotNil(t, got)
			assert.Empty(t, got)
			assert.False(t, h.Valid())
		})
	}
}

func TestHistoryFile_SaveLoadPreservesOrderAndNulls(t *testing.T) {
	h := NewHistoryFile(filepath.Join(t.TempDir(), DefaultHistoryPath))
	want := sampleHistory()

	require.NoError(t, h.Save(want))

	assert.True(t, h.Valid())
	assert.Equal(t, want, h.Load())
}

func TestHistoryFile_SaveNilWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultHistoryPath)
	h := NewHistoryFile(path)

	require.NoError(t, h.Save(nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
	assert.True(t, h.Valid())
}

func TestHistoryFile_SaveOverwritesWithoutLeftovers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultHistoryPath)
	h := NewHistoryFile(path)

	require.NoError(t, h.Save(sampleHistory()))
	require.NoError(t, h.Save(sampleHistory()[:1]))

	assert.Len(t, h.Load(), 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, DefaultHistoryPath, entries[0].Name())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestHistoryFile_SaveIntoMissingDirectory(t *testing.T) {
	h := NewHistoryFile(filepath.Join(t.TempDir(), "missing", DefaultHistoryPath))

	err := h.Save(sampleHistory())
	require.Error(t, err)
	assert.True(t, IsWriteError(err))
}

func TestHistoryFile_BadEntryTimestampDoesNotPoisonFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultHistoryPath)
	content := `[{"pm2_5": 1, "timestamp": 17}, {"pm2_5": 2, "timestamp": "2026-10-19T10:00:00Z"}]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got := NewHistoryFile(path).Load()

	require.Len(t, got, 2)
	assert.Equal(t, reading.Timestamp(""), got[0].Timestamp)
	assert.Equal(t, reading.Timestamp("2026-10-19T10:00:00Z"), got[1].Timestamp)
}
