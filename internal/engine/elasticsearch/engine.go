// Package elasticsearch implements engine.SearchEngine on go-elasticsearch.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/NurulloMahmud/tafakkur/internal/domain"
	"github.com/NurulloMahmud/tafakkur/internal/engine"
	"github.com/NurulloMahmud/tafakkur/internal/search/query"
)

const errAlreadyExists = "resource_already_exists_exception"

// Config configures the cluster connection.
type Config struct {
	Addresses []string
	Username  string
	Password  string

	// Transport carries every request. The service passes a circuit-breaking
	// transport here.
	Transport http.RoundTripper
}

// Engine is an Elasticsearch-backed SearchEngine.
type Engine struct {
	client *elasticsearch.Client
	logger *slog.Logger
}

var _ engine.SearchEngine = (*Engine)(nil)

type esSearchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string            `json:"_id"`
			Score  float64           `json:"_score"`
			Source map[string]string `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates an engine. Client retries are disabled so failures surface to
// the caller and the breaker sees every attempt. No request is sent.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    cfg.Addresses,
		Username:     cfg.Username,
		Password:     cfg.Password,
		Transport:    cfg.Transport,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}
	return &Engine{client: client, logger: logger}, nil
}

// Ping checks whether the cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// EnsureIndex creates index unless it exists. Losing a creation race to
// another process counts as success.
func (e *Engine) EnsureIndex(ctx context.Context, index string, fields []string) error {
	res, err := e.client.Indices.Exists([]string{index}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ensure index %s: %w", index, err)
	}
	closeBody(res)

	switch res.StatusCode {
	case http.StatusOK:
		e.logger.DebugContext(ctx, "elasticsearch index already exists", slog.String("index", index))
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("elasticsearch ensure index %s: unexpected status %s", index, res.Status())
	}

	mapping, err := indexMapping(fields)
	if err != nil {
		return fmt.Errorf("elasticsearch ensure index %s: %w", index, err)
	}

	res, err = e.client.Indices.Create(index,
		e.client.Indices.Create.WithBody(bytes.NewReader(mapping)),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch create index %s: %w", index, err)
	}
	defer closeBody(res)

	if res.IsError() {
		errResp, rerr := responseError(res)
		if errResp.Error.Type == errAlreadyExists {
			e.logger.InfoContext(ctx, "elasticsearch index created concurrently", slog.String("index", index))
			return nil
		}
		return fmt.Errorf("elasticsearch create index %s: %w", index, rerr)
	}

	e.logger.InfoContext(ctx, "elasticsearch index created", slog.String("index", index))
	return nil
}

// Upsert indexes one document under its id. The write becomes searchable
// on the cluster's next refresh.
func (e *Engine) Upsert(ctx context.Context, index string, doc domain.SearchDocument) error {
	data, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("elasticsearch upsert: marshal document: %w", err)
	}

	res, err := e.client.Index(index, bytes.NewReader(data),
		e.client.Index.WithDocumentID(doc.ID),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch upsert: %w", err)
	}
	defer closeBody(res)

	if res.IsError() {
		_, rerr := responseError(res)
		return fmt.Errorf("elasticsearch upsert %s/%s: %w", index, doc.ID, rerr)
	}
	return nil
}

// BulkUpsert indexes docs with one _bulk request.
func (e *Engine) BulkUpsert(ctx context.Context, index string, docs []domain.SearchDocument) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range docs {
		action := map[string]any{"index": map[string]any{"_index": index, "_id": d.ID}}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("elasticsearch bulk: encode action: %w", err)
		}
		if err := enc.Encode(d.Fields); err != nil {
			return fmt.Errorf("elasticsearch bulk: encode document: %w", err)
		}
	}

	res, err := e.client.Bulk(bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithIndex(index),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk: %w", err)
	}
	defer closeBody(res)

	if res.IsError() {
		_, rerr := responseError(res)
		return fmt.Errorf("elasticsearch bulk: %w", rerr)
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("elasticsearch bulk: decode response: %w", err)
	}
	if !bulkResp.Errors {
		return nil
	}

	var failed []string
	for _, item := range bulkResp.Items {
		for _, result := range item {
			if result.Status >= http.StatusMultipleChoices {
				failed = append(failed, fmt.Sprintf("%s: %s: %s", result.ID, result.Error.Type, result.Error.Reason))
			}
		}
	}
	return fmt.Errorf("elasticsearch bulk: %d of %d documents failed: %s",
		len(failed), len(docs), strings.Join(failed, "; "))
}

// Refresh makes all writes to index searchable.
func (e *Engine) Refresh(ctx context.Context, index string) error {
	res, err := e.client.Indices.Refresh(
		e.client.Indices.Refresh.WithIndex(index),
		e.client.Indices.Refresh.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch refresh %s: %w", index, err)
	}
	defer closeBody(res)

	if res.IsError() {
		_, rerr := responseError(res)
		return fmt.Errorf("elasticsearch refresh %s: %w", index, rerr)
	}
	return nil
}

// Search renders req and runs it against index.
func (e *Engine) Search(ctx context.Context, index string, req *query.Request) (*engine.Result, error) {
	data, err := json.Marshal(renderRequest(req))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(index),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithTrackTotalHits(true),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer closeBody(res)

	if res.IsError() {
		_, rerr := responseError(res)
		return nil, fmt.Errorf("elasticsearch search %s: %w", index, rerr)
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}

	hits := make([]domain.Hit, 0, len(esResp.Hits.Hits))
	for _, h := range esResp.Hits.Hits {
		hits = append(hits, domain.Hit{ID: h.ID, Score: h.Score, Fields: h.Source})
	}

	return &engine.Result{
		Hits:   hits,
		Total:  esResp.Hits.Total.Value,
		TookMs: esResp.Took,
	}, nil
}

// DeleteIndex drops index. A missing index is not an error. It is meant for
// tests and maintenance.
func (e *Engine) DeleteIndex(ctx context.Context, index string) error {
	res, err := e.client.Indices.Delete([]string{index}, e.client.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch delete index %s: %w", index, err)
	}
	defer closeBody(res)

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		_, rerr := responseError(res)
		return fmt.Errorf("elasticsearch delete index %s: %w", index, rerr)
	}
	return nil
}

// responseError decodes an error body. A missing index maps to
// engine.ErrIndexNotFound.
func responseError(res *esapi.Response) (esErrorResponse, error) {
	var errResp esErrorResponse
	if err := json.NewDecoder(res.Body).Decode(&errResp); err != nil || errResp.Error.Type == "" {
		return errResp, fmt.Errorf("unexpected status %s", res.Status())
	}
	err := fmt.Errorf("%s: %s", errResp.Error.Type, errResp.Error.Reason)
	if errResp.Error.Type == "index_not_found_exception" {
		err = errors.Join(engine.ErrIndexNotFound, err)
	}
	return errResp, err
}

func closeBody(res *esapi.Response) {
	if res != nil && res.Body != nil {
		_ = res.Body.Close()
	}
}
