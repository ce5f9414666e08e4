package firestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/aqsync/internal/reading"
)

const (
	// DefaultBaseURL is the Firestore REST v1 endpoint.
	DefaultBaseURL = "https://firestore.googleapis.com/v1"

	// DefaultDatabase is the id of a project's default database.
	DefaultDatabase = "(default)"

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 64 << 20
)

// Config identifies the Firestore project and the documents aqsync reads.
type Config struct {
	BaseURL   string
	ProjectID string
	Database  string
	APIKey    string

	// CurrentDocument is the document path of the latest snapshot,
	// relative to the database root (e.g. "airquality/current").
	CurrentDocument string

	// HistoryCollection is the collection id holding one document per sample.
	HistoryCollection string

	// TimestampField is the field every reading document is ordered by.
	TimestampField string

	TimestampEncoding Encoding

	// HTTPClient is used for all requests. Defaults to a client with a 30s timeout.
	HTTPClient *http.Client
}

// Client reads air-quality documents over the Firestore REST API.
// It performs no retries; callers decide what to do with a RemoteError.
type Client struct {
	cfg  Config
	http *http.Client
}

// New validates cfg, fills in defaults and returns a Client.
// Only the presence of the project id and API key is checked.
func New(cfg Config) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firestore: project id is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("firestore: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.CurrentDocument == "" {
		cfg.CurrentDocument = "airquality/current"
	}
	if cfg.HistoryCollection == "" {
		cfg.HistoryCollection = "history"
	}
	if cfg.TimestampField == "" {
		cfg.TimestampField = "timestamp"
	}
	if cfg.TimestampEncoding == "" {
		cfg.TimestampEncoding = EncodingTimestamp
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{cfg: cfg, http: httpClient}, nil
}

// document is a Firestore document as returned by get and runQuery.
type document struct {
	Name   string                `json:"name"`
	Fields map[string]*wireValue `json:"fields"`
}

// toReading maps document fields onto a Reading.
func (c *Client) toReading(doc *document) reading.Reading {
	return reading.Reading{
		PM1_0:     Number(Decode(doc.Fields["pm1_0"])),
		PM2_5:     Number(Decode(doc.Fields["pm2_5"])),
		PM10:      Number(Decode(doc.Fields["pm10"])),
		Timestamp: TimestampString(Decode(doc.Fields[c.cfg.TimestampField])),
	}
}

// FetchCurrent reads the latest snapshot document.
func (c *Client) FetchCurrent(ctx context.Context) (reading.Reading, error) {
	const op = "fetch_current"

	endpoint := c.documentsURL() + "/" + escapePath(c.cfg.CurrentDocument)
	body, err := c.do(ctx, op, http.MethodGet, endpoint, nil)
	if err != nil {
		return reading.Reading{}, err
	}

	var payload struct {
		document
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return reading.Reading{}, &RemoteError{Op: op, Message: "decode document", Err: err}
	}
	if payload.Error != nil {
		return reading.Reading{}, payloadError(op, payload.Error)
	}
	if payload.Fields == nil {
		return reading.Reading{}, &RemoteError{Op: op, Message: fmt.Sprintf("document %q has no fields", c.cfg.CurrentDocument)}
	}

	r := c.toReading(&payload.document)
	slog.Debug("fetched current document", "document", payload.Name, "timestamp", r.Timestamp)
	return r, nil
}

// FetchHistorySince reads history documents ordered by timestamp, oldest first.
//
// The lower bound is cursor when it is set (non-zero) and after
// retentionStart, otherwise retentionStart. Both are exclusive and applied
// server-side. At most pageLimit readings are returned.
func (c *Client) FetchHistorySince(ctx context.Context, cursor, retentionStart time.Time, pageLimit int) ([]reading.Reading, error) {
	const op = "fetch_history"

	if pageLimit <= 0 {
		return nil, &RemoteError{Op: op, Message: fmt.Sprintf("page limit must be positive, got %d", pageLimit)}
	}

	bound := HistoryBound(cursor, retentionStart)
	query := c.historyQuery(bound, pageLimit)

	reqBody, err := json.Marshal(runQueryRequest{StructuredQuery: query})
	if err != nil {
		return nil, &RemoteError{Op: op, Message: "encode query", Err: err}
	}

	slog.Debug("running history query",
		"collection", c.cfg.HistoryCollection,
		"after", bound.UTC().Format(time.RFC3339Nano),
		"limit", pageLimit,
	)

	body, err := c.do(ctx, op, http.MethodPost, c.documentsURL()+":runQuery", reqBody)
	if err != nil {
		return nil, err
	}

	rows, err := decodeRunQuery(body)
	if err != nil {
		return nil, &RemoteError{Op: op, Message: "decode query response", Err: err}
	}

	readings := make([]reading.Reading, 0, len(rows))
	for _, row := range rows {
		if row.Error != nil {
			return nil, payloadError(op, row.Error)
		}
		if row.Document == nil {
			continue
		}
		readings = append(readings, c.toReading(row.Document))
		if len(readings) == pageLimit {
			break
		}
	}
	return readings, nil
}

// HistoryBound picks the exclusive lower bound for a history query.
func HistoryBound(cursor, retentionStart time.Time) time.Time {
	if !cursor.IsZero() && cursor.After(retentionStart) {
		return cursor
	}
	return retentionStart
}

func (c *Client) documentsURL() string {
	return fmt.Sprintf("%s/projects/%s/databases/%s/documents",
		c.cfg.BaseURL, url.PathEscape(c.cfg.ProjectID), url.PathEscape(c.cfg.Database))
}

// do sends a request with the API key attached and returns the body of a
// 2xx response. Everything else becomes a *RemoteError.
func (c *Client) do(ctx context.Context, op, method, endpoint string, body []byte) ([]byte, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, &RemoteError{Op: op, Message: "build url", Err: err}
	}
	q := u.Query()
	q.Set("key", c.cfg.APIKey)
	u.RawQuery = q.Encode()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, &RemoteError{Op: op, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RemoteError{Op: op, Message: "request failed", Err: redactKey(err, c.cfg.APIKey)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &RemoteError{Op: op, StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		remoteErr := &RemoteError{Op: op, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if apiErr := extractAPIError(data); apiErr != nil {
			remoteErr.Status = apiErr.Status
			remoteErr.Message = apiErr.Message
		}
		return nil, remoteErr
	}

	return data, nil
}

// payloadError converts an error payload embedded in a 2xx body.
func payloadError(op string, apiErr *apiError) *RemoteError {
	return &RemoteError{Op: op, StatusCode: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message}
}

// extractAPIError finds an error payload in either the object form
// {"error": {...}} or the runQuery array form [{"error": {...}}].
func extractAPIError(data []byte) *apiError {
	var obj struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.Error != nil {
		return obj.Error
	}
	var arr []struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(data, &arr); err == nil {
		for _, row := range arr {
			if row.Error != nil {
				return row.Error
			}
		}
	}
	return nil
}

// escapePath escapes each segment of a slash-separated document path.
func escapePath(p string) string {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// redactKey strips the API key from transport errors, which quote the URL.
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, "REDACTED"))
}
