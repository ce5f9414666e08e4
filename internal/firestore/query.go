package firestore

import (
	"encoding/json"
	"errors"
	"time"
)

// Structured query wire types. Only the subset aqsync sends is modelled.

type runQueryRequest struct {
	StructuredQuery structuredQuery `json:"structuredQuery"`
}

type structuredQuery struct {
	From    []collectionSelector `json:"from"`
	Where   *filter              `json:"where,omitempty"`
	OrderBy []order              `json:"orderBy,omitempty"`
	Limit   int                  `json:"limit,omitempty"`
}

type collectionSelector struct {
	CollectionID string `json:"collectionId"`
}

type fieldReference struct {
	FieldPath string `json:"fieldPath"`
}

type filter struct {
	FieldFilter *fieldFilter `json:"fieldFilter,omitempty"`
}

type fieldFilter struct {
	Field fieldReference `json:"field"`
	Op    string         `json:"op"`
	Value wireValue      `json:"value"`
}

type order struct {
	Field     fieldReference `json:"field"`
	Direction string         `json:"direction"`
}

// runQueryRow is one element of the runQuery response stream.
// A row with only readTime marks an empty result.
type runQueryRow struct {
	Document *document `json:"document,omitempty"`
	ReadTime string    `json:"readTime,omitempty"`
	Error    *apiError `json:"error,omitempty"`
}

// historyQuery selects readings strictly after bound, oldest first.
func (c *Client) historyQuery(bound time.Time, limit int) structuredQuery {
	field := fieldReference{FieldPath: c.cfg.TimestampField}
	return structuredQuery{
		From: []collectionSelector{{CollectionID: c.cfg.HistoryCollection}},
		Where: &filter{FieldFilter: &fieldFilter{
			Field: field,
			Op:    "GREATER_THAN",
			Value: encodeTimestamp(bound, c.cfg.TimestampEncoding),
		}},
		OrderBy: []order{{Field: field, Direction: "ASCENDING"}},
		Limit:   limit,
	}
}

// decodeRunQuery accepts the JSON array Firestore returns for runQuery.
// A bare object is treated as a single row so error payloads are not lost.
func decodeRunQuery(body []byte) ([]runQueryRow, error) {
	var rows []runQueryRow
	if err := json.Unmarshal(body, &rows); err == nil {
		return rows, nil
	}
	var row runQueryRow
	if err := json.Unmarshal(body, &row); err != nil {
		return nil, err
	}
	if row.Document == nil && row.Error == nil && row.ReadTime == "" {
		return nil, errors.New("unrecognised runQuery response")
	}
	return []runQueryRow{row}, nil
}
