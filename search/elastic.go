package search

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/flowbase/flowbase"
)

// Config configures an Elastic client.
type Config struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
}

// Elastic is a Client backed by Elasticsearch. Create one per run and Close
// it when done.
type Elastic struct {
	es        *elasticsearch.Client
	transport *http.Transport
	index     string
	closed    bool
}

var _ Client = (*Elastic)(nil)

func NewElastic(cfg Config) (*Elastic, error) {
	if cfg.Index == "" {
		return nil, errors.New("elasticsearch: index name is required")
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create elasticsearch client")
	}
	return &Elastic{es: es, transport: transport, index: cfg.Index}, nil
}

// indexMapping keeps mid exact, analyzes every language slot of title and
// aliases as english text, and adds a keyword sub-field to types for
// filtering and aggregation.
const indexMapping = `{
  "mappings": {
    "dynamic_templates": [
      {"titles": {"path_match": "title.*", "mapping": {"type": "text", "analyzer": "english"}}},
      {"aliases": {"path_match": "aliases.*", "mapping": {"type": "text", "analyzer": "english"}}}
    ],
    "properties": {
      "mid": {"type": "keyword"},
      "title": {"type": "object"},
      "aliases": {"type": "object"},
      "types": {"type": "text", "fields": {"raw": {"type": "keyword"}}}
    }
  }
}`

func (c *Elastic) ResetIndex(ctx context.Context) error {
	res, err := c.es.Indices.Delete([]string{c.index},
		c.es.Indices.Delete.WithContext(ctx),
		c.es.Indices.Delete.WithIgnoreUnavailable(true))
	if err := checkResponse(res, err, "delete index "+c.index); err != nil {
		return err
	}

	res, err = c.es.Indices.Create(c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader([]byte(indexMapping))))
	if err != nil {
		return errors.Wrap(err, "create index "+c.index)
	}
	defer res.Body.Close()
	if !res.IsError() {
		return nil
	}
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode == http.StatusBadRequest && errorType(body) == "resource_already_exists_exception" {
		flowbase.Debug.Printf("Index %s already exists\n", c.index)
		return nil
	}
	return errors.Newf("create index %s: status %d: %s", c.index, res.StatusCode, bytes.TrimSpace(body))
}

// errorType returns error.type of an Elasticsearch error body, or "".
func errorType(body []byte) string {
	var e struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	return e.Error.Type
}

func (c *Elastic) Bulk(ctx context.Context, req BulkRequest) (*BulkResponse, error) {
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, item := range req.Items {
		action := item.Action
		if action.Index == "" {
			action.Index = c.index
		}
		if err := enc.Encode(action.Metadata()); err != nil {
			return nil, errors.Wrap(err, "encode bulk action")
		}
		if err := enc.Encode(item.Document); err != nil {
			return nil, errors.Wrap(err, "encode bulk document")
		}
	}

	res, err := c.es.Bulk(&body,
		c.es.Bulk.WithContext(ctx),
		c.es.Bulk.WithIndex(c.index),
		c.es.Bulk.WithRefresh(strconv.FormatBool(req.Refresh)))
	if err != nil {
		return nil, errors.Wrap(err, "bulk request")
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError(res, "bulk request")
	}
	return decodeBulkResponse(res.Body)
}

func decodeBulkResponse(r io.Reader) (*BulkResponse, error) {
	var raw struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string          `json:"_id"`
			Status int             `json:"status"`
			Error  json.RawMessage `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode bulk response")
	}
	out := &BulkResponse{Errors: raw.Errors, Items: make([]ItemResult, 0, len(raw.Items))}
	for _, item := range raw.Items {
		for op, result := range item {
			out.Items = append(out.Items, ItemResult{
				Op:     op,
				ID:     result.ID,
				Status: result.Status,
				Error:  result.Error,
			})
		}
	}
	return out, nil
}

func (c *Elastic) Refresh(ctx context.Context) error {
	res, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithContext(ctx),
		c.es.Indices.Refresh.WithIndex(c.index))
	return checkResponse(res, err, "refresh index "+c.index)
}

func (c *Elastic) Search(ctx context.Context, text string, size int) ([]json.RawMessage, error) {
	query := map[string]any{
		"size": size,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  text,
				"fields": []string{"title.*^2", "aliases.*"},
			},
		},
	}
	var hits hitsResponse
	if err := c.search(ctx, query, &hits); err != nil {
		return nil, err
	}
	return hits.sources(), nil
}

func (c *Elastic) OfType(ctx context.Context, typ string, size int) ([]json.RawMessage, error) {
	query := map[string]any{
		"size": size,
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"types.raw": typ}},
				},
			},
		},
	}
	var hits hitsResponse
	if err := c.search(ctx, query, &hits); err != nil {
		return nil, err
	}
	return hits.sources(), nil
}

func (c *Elastic) TypeCounts(ctx context.Context, size int) ([]Bucket, error) {
	query := map[string]any{
		"size": 0,
		"aggs": map[string]any{
			"types": map[string]any{
				"terms": map[string]any{"field": "types.raw", "size": size},
			},
		},
	}
	var aggs struct {
		Aggregations struct {
			Types struct {
				Buckets []Bucket `json:"buckets"`
			} `json:"types"`
		} `json:"aggregations"`
	}
	if err := c.search(ctx, query, &aggs); err != nil {
		return nil, err
	}
	return aggs.Aggregations.Types.Buckets, nil
}

// Close releases the connections of the client. It is safe to call twice.
func (c *Elastic) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.transport.CloseIdleConnections()
	return nil
}

type hitsResponse struct {
	Hits struct {
		Hits []struct {
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (h hitsResponse) sources() []json.RawMessage {
	out := make([]json.RawMessage, 0, len(h.Hits.Hits))
	for _, hit := range h.Hits.Hits {
		out = append(out, hit.Source)
	}
	return out
}

func (c *Elastic) search(ctx context.Context, query map[string]any, out any) error {
	body, err := json.Marshal(query)
	if err != nil {
		return errors.Wrap(err, "encode search query")
	}
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(body)))
	if err != nil {
		return errors.Wrap(err, "search")
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError(res, "search")
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode search response")
	}
	return nil
}

func checkResponse(res *esapi.Response, err error, op string) error {
	if err != nil {
		return errors.Wrap(err, op)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError(res, op)
	}
	return nil
}

func responseError(res *esapi.Response, op string) error {
	body, _ := io.ReadAll(res.Body)
	return errors.Newf("%s: status %d: %s", op, res.StatusCode, bytes.TrimSpace(body))
}
