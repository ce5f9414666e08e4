package sitedata

import (
	"errors"

	"github.com/roach88/aqsync/internal/reading"
)

// DefaultCurrentPath is the snapshot output file name the site loads.
const DefaultCurrentPath = "current-data.json"

// CurrentFile is the persisted current snapshot.
type CurrentFile struct {
	Path string
}

// NewCurrentFile returns a CurrentFile at path.
func NewCurrentFile(path string) *CurrentFile {
	return &CurrentFile{Path: path}
}

// Load returns the persisted snapshot.
func (c *CurrentFile) Load() (reading.Reading, error) {
	var raw *reading.Reading
	if err := readJSON(c.Path, &raw); err != nil {
		return reading.Reading{}, err
	}
	if raw == nil {
		return reading.Reading{}, &ReadError{Path: c.Path, Err: errors.New("snapshot is not a JSON object")}
	}
	return *raw, nil
}

// Valid reports whether the file exists and holds a snapshot object.
func (c *CurrentFile) Valid() bool {
	_, err := c.Load()
	return err == nil
}

// Save overwrites the file with r.
func (c *CurrentFile) Save(r reading.Reading) error {
	return writeJSON(c.Path, r)
}
