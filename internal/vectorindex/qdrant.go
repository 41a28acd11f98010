package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

type qdrantConfig struct {
	URL            string `json:"url"`
	APIKey         string `json:"api_key"`
	Collection     string `json:"collection"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// qdrantStore is a minimal REST client; it assumes cosine distance and creates
// the collection if missing.
type qdrantStore struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
}

type qdrantEnvelope[T any] struct {
	Status json.RawMessage `json:"status"`
	Result T               `json:"result"`
}

type qdrantPoint struct {
	ID      string            `json:"id"`
	Vector  []float32         `json:"vector"`
	Payload map[string]string `json:"payload"`
}

type qdrantScoredPoint struct {
	ID      interface{}       `json:"id"`
	Score   float32           `json:"score"`
	Payload map[string]string `json:"payload"`
}

func init() {
	Register("qdrant", createQdrantStore)
}

func createQdrantStore(args interface{}, dimension int) (Store, error) {
	cfg := &qdrantConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.URL == "" || cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant url and collection are required")
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	store := &qdrantStore{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimension:  dimension,
		client:     &http.Client{Timeout: timeout},
	}
	if err := store.ensureCollection(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *qdrantStore) ensureCollection() error {
	// Qdrant returns 200 for an existing collection with the same schema.
	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimension,
			"distance": "Cosine",
		},
	}
	path := fmt.Sprintf("/collections/%s", url.PathEscape(s.collection))
	return s.do(context.Background(), http.MethodPut, path, body, nil)
}

func (s *qdrantStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]qdrantPoint, 0, len(records))
	for _, rec := range records {
		if len(rec.Vector) != s.dimension {
			return fmt.Errorf("record %s has dimension %d, index expects %d", rec.ID, len(rec.Vector), s.dimension)
		}
		payload := map[string]string{"point_id": rec.ID}
		for key, value := range rec.Metadata {
			payload[key] = value
		}
		points = append(points, qdrantPoint{
			// Qdrant point ids must be UUIDs or integers; keep ours in the payload.
			ID:      deterministicUUID(rec.ID),
			Vector:  rec.Vector,
			Payload: payload,
		})
	}
	req := map[string]any{"points": points}
	path := fmt.Sprintf("/collections/%s/points?wait=true", url.PathEscape(s.collection))
	return s.do(ctx, http.MethodPut, path, req, nil)
}

func (s *qdrantStore) Query(ctx context.Context, vector []float32, topK int, filter Filter, includeMetadata bool) ([]Match, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, index expects %d", len(vector), s.dimension)
	}
	if topK <= 0 {
		return nil, nil
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if len(filter) > 0 {
		var must []map[string]any
		for key, value := range filter {
			must = append(must, map[string]any{
				"key":   key,
				"match": map[string]any{"value": value},
			})
		}
		req["filter"] = map[string]any{"must": must}
	}
	var rsp qdrantEnvelope[[]qdrantScoredPoint]
	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(s.collection))
	if err := s.do(ctx, http.MethodPost, path, req, &rsp); err != nil {
		return nil, err
	}
	matches := make([]Match, 0, len(rsp.Result))
	for _, point := range rsp.Result {
		id := point.Payload["point_id"]
		if id == "" {
			id = fmt.Sprint(point.ID)
		}
		match := Match{ID: id, Score: point.Score}
		if includeMetadata {
			metadata := make(map[string]string, len(point.Payload))
			for key, value := range point.Payload {
				if key == "point_id" {
					continue
				}
				metadata[key] = value
			}
			match.Metadata = metadata
		}
		matches = append(matches, match)
	}
	return matches, nil
}

func (s *qdrantStore) DeleteAll(ctx context.Context) error {
	// An empty must-clause matches every point.
	req := map[string]any{
		"filter": map[string]any{"must": []map[string]any{}},
	}
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", url.PathEscape(s.collection))
	return s.do(ctx, http.MethodPost, path, req, nil)
}

func deterministicUUID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

func (s *qdrantStore) do(ctx context.Context, method, path string, reqBody, out interface{}) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.url+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(resp.Body)
		return errors.New("qdrant request failed: " + resp.Status + ": " + strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
