// Package search holds the search engine side of fbindex: the bulk write and
// query contract the rest of the tool relies on, and its Elasticsearch
// implementation.
package search

import (
	"context"
	"encoding/json"
)

// Action is the metadata line of a bulk item.
type Action struct {
	Op    string // index, create, update or delete
	Index string
	ID    string
}

// Metadata returns the action as it is sent on the wire, for example
// {"index": {"_index": "freebase"}}.
func (a Action) Metadata() map[string]any {
	inner := map[string]any{"_index": a.Index}
	if a.ID != "" {
		inner["_id"] = a.ID
	}
	return map[string]any{a.Op: inner}
}

type BulkItem struct {
	Action   Action
	Document any
}

// BulkRequest is one bulk write. Refresh asks the engine to make the
// documents searchable before answering.
type BulkRequest struct {
	Items   []BulkItem
	Refresh bool
}

// ItemResult is the outcome of one bulk item.
type ItemResult struct {
	Op     string
	ID     string
	Status int
	Error  json.RawMessage
}

func (r ItemResult) Failed() bool {
	return len(r.Error) > 0 && string(r.Error) != "null"
}

// BulkResponse holds one ItemResult per request item, in request order.
type BulkResponse struct {
	Errors bool
	Items  []ItemResult
}

// Bucket is one bucket of a terms aggregation.
type Bucket struct {
	Key   string `json:"key"`
	Count int64  `json:"doc_count"`
}

// Client is what fbindex needs from a search engine.
type Client interface {
	Bulk(ctx context.Context, req BulkRequest) (*BulkResponse, error)
	// Refresh makes everything indexed so far searchable.
	Refresh(ctx context.Context) error
	// ResetIndex drops and recreates the index with the entity mapping.
	ResetIndex(ctx context.Context) error
	// Search runs a full text match over titles and aliases.
	Search(ctx context.Context, text string, size int) ([]json.RawMessage, error)
	// OfType returns documents having typ among their types.
	OfType(ctx context.Context, typ string, size int) ([]json.RawMessage, error)
	// TypeCounts returns the most frequent types.
	TypeCounts(ctx context.Context, size int) ([]Bucket, error)
	Close() error
}
