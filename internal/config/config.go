// Package config loads aqsync settings from an optional YAML file,
// environment variables and command-line overrides, in increasing order of
// precedence. The merged document is checked against an embedded CUE schema
// that also supplies defaults.
package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/aqsync/internal/firestore"
	"github.com/roach88/aqsync/internal/sitedata"
)

//go:embed schema.cue
var schemaCUE string

// Environment variables consulted by Load.
const (
	EnvProjectID = "AQSYNC_PROJECT_ID"
	EnvAPIKey    = "AQSYNC_API_KEY"
	EnvBaseURL   = "AQSYNC_BASE_URL"
)

var envKeys = map[string]string{
	EnvProjectID: "project_id",
	EnvAPIKey:    "api_key",
	EnvBaseURL:   "base_url",
}

// Config is the resolved configuration.
type Config struct {
	ProjectID         string   `json:"project_id"`
	APIKey            string   `json:"api_key"`
	BaseURL           string   `json:"base_url"`
	Database          string   `json:"database"`
	CurrentDocument   string   `json:"current_document"`
	HistoryCollection string   `json:"history_collection"`
	TimestampField    string   `json:"timestamp_field"`
	TimestampEncoding string   `json:"timestamp_encoding"`
	Retention         Duration `json:"retention"`
	PageLimit         int      `json:"page_limit"`
	RequestTimeout    Duration `json:"request_timeout"`
	CurrentOutput     string   `json:"current_output"`
	HistoryOutput     string   `json:"history_output"`
	Ledger            string   `json:"ledger"`
}

// Duration is a time.Duration written as a Go duration string ("168h").
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	parsed, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ValidationError reports a configuration that does not satisfy the schema.
type ValidationError struct {
	Source string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration (%s): %v", e.Source, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError returns true if err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Options controls where Load reads from.
type Options struct {
	// Path to a YAML file. Empty means no file.
	Path string

	// Getenv looks up environment variables. Defaults to os.Getenv.
	Getenv func(string) string

	// Overrides are applied last, keyed by schema field name.
	Overrides map[string]any
}

// Load reads, merges, validates and defaults the configuration.
func Load(opts Options) (*Config, error) {
	doc := map[string]any{}
	source := "defaults"

	if opts.Path != "" {
		data, err := os.ReadFile(opts.Path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &ValidationError{Source: opts.Path, Err: err}
		}
		if doc == nil {
			doc = map[string]any{}
		}
		source = opts.Path
	}

	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	for env, key := range envKeys {
		if v := getenv(env); v != "" {
			doc[key] = v
		}
	}

	for key, v := range opts.Overrides {
		doc[key] = v
	}

	return resolve(doc, source)
}

// OutputPaths returns the output file paths opts would configure, without
// validating anything else. Values come from overrides, then the YAML file
// when it can be read, then the defaults. It lets a run that cannot load its
// configuration still leave both output files in place.
func OutputPaths(opts Options) (current, history string) {
	current, history = sitedata.DefaultCurrentPath, sitedata.DefaultHistoryPath

	doc := map[string]any{}
	if opts.Path != "" {
		if data, err := os.ReadFile(opts.Path); err == nil {
			if err := yaml.Unmarshal(data, &doc); err != nil || doc == nil {
				doc = map[string]any{}
			}
		}
	}
	for key, v := range opts.Overrides {
		doc[key] = v
	}

	if v, ok := doc["current_output"].(string); ok && v != "" {
		current = v
	}
	if v, ok := doc["history_output"].(string); ok && v != "" {
		history = v
	}
	return current, history
}

// resolve unifies doc with the schema and decodes the result.
func resolve(doc map[string]any, source string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	value := def.Unify(ctx.Encode(doc))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, &ValidationError{Source: source, Err: err}
	}

	data, err := value.MarshalJSON()
	if err != nil {
		return nil, &ValidationError{Source: source, Err: err}
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ValidationError{Source: source, Err: err}
	}
	return &cfg, nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.APIKey != "" {
		c.APIKey = "REDACTED"
	}
	return c
}

// FirestoreConfig builds the remote reader configuration.
func (c Config) FirestoreConfig() firestore.Config {
	return firestore.Config{
		BaseURL:           c.BaseURL,
		ProjectID:         c.ProjectID,
		Database:          c.Database,
		APIKey:            c.APIKey,
		CurrentDocument:   c.CurrentDocument,
		HistoryCollection: c.HistoryCollection,
		TimestampField:    c.TimestampField,
		TimestampEncoding: firestore.Encoding(c.TimestampEncoding),
		HTTPClient:        &http.Client{Timeout: c.RequestTimeout.Std()},
	}
}
