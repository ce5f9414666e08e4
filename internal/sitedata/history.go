package sitedata

import (
	"errors"
	"log/slog"
	"os"

	"github.com/roach88/aqsync/internal/reading"
)

// DefaultHistoryPath is the history output file name the site loads.
const DefaultHistoryPath = "history-data.json"

// HistoryFile is the persisted history window.
type HistoryFile struct {
	Path string
}

// NewHistoryFile returns a HistoryFile at path.
func NewHistoryFile(path string) *HistoryFile {
	return &HistoryFile{Path: path}
}

// Load returns the persisted readings in file order.
//
// A missing file is normal on the first run and returns empty history.
// A malformed file also returns empty history, with a warning; the next
// Save replaces it.
func (h *HistoryFile) Load() []reading.Reading {
	readings, err := h.read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("no history file yet", "path", h.Path)
		} else {
			slog.Warn("ignoring unreadable history file", "path", h.Path, "error", err)
		}
		return []reading.Reading{}
	}
	slog.Debug("loaded history", "path", h.Path, "readings", len(readings))
	return readings
}

// Valid reports whether the file exists and holds a JSON array of readings.
func (h *HistoryFile) Valid() bool {
	_, err := h.read()
	return err == nil
}

// Save overwrites the file with readings. A nil slice is written as [].
func (h *HistoryFile) Save(readings []reading.Reading) error {
	if readings == nil {
		readings = []reading.Reading{}
	}
	return writeJSON(h.Path, readings)
}

func (h *HistoryFile) read() ([]reading.Reading, error) {
	// A pointer-to-slice target rejects objects and scalars but accepts
	// "null"; the nil check below closes that gap.
	var readings []reading.Reading
	if err := readJSON(h.Path, &readings); err != nil {
		return nil, err
	}
	if readings == nil {
		return nil, &ReadError{Path: h.Path, Err: errors.New("history is not a JSON array")}
	}
	return readings, nil
}
