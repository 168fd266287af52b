// Package qdrantstore implements vertical.Store against the Qdrant HTTP
// API. Each vertical is one point: a fixed-dimension vector plus the
// record as JSON payload. Payload indexes on slug, is_active, and
// parent_id keep filtered scrolls off the full collection.
package qdrantstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/atlasgtm/atlas/internal/vertical"
)

const (
	maxErrorBodyBytes = 1024
	scrollPageSize    = 256
	httpTimeout       = 10 * time.Second
)

// Config holds the Qdrant connection settings.
type Config struct {
	URL        string
	APIKey     string
	Collection string
}

// Store talks to a single Qdrant collection.
type Store struct {
	cfg     Config
	baseURL string
	logger  log.Logger
	http    *http.Client
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type scrollPage struct {
	Points []point         `json:"points"`
	Next   json.RawMessage `json:"next_page_offset"`
}

type point struct {
	ID      json.RawMessage `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// New validates the config, ensures the collection and its payload
// indexes exist, and returns a ready Store.
func New(ctx context.Context, cfg Config, logger log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Nop()
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, opErr("bootstrap", OperationErrorValidation, "qdrant url is required", nil)
	}
	if strings.TrimSpace(cfg.Collection) == "" {
		return nil, opErr("bootstrap", OperationErrorValidation, "qdrant collection is required", nil)
	}

	s := &Store{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		logger:  logger.With("component", "qdrantstore"),
		http:    &http.Client{Timeout: httpTimeout},
	}

	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}

	logger.Info(ctx, "qdrant store ready",
		"url", s.baseURL,
		"collection", cfg.Collection,
		"vector_dim", vertical.VectorDim,
	)
	return s, nil
}

// List scrolls the collection, following pagination. With includeInactive
// unset, the is_active payload index narrows the scroll.
func (s *Store) List(ctx context.Context, includeInactive bool) ([]*vertical.Vertical, error) {
	const op = "list"

	var filter map[string]any
	if !includeInactive {
		filter = mustFilter(matchCondition("is_active", true))
	}

	var out []*vertical.Vertical
	var offset json.RawMessage
	for {
		req := map[string]any{
			"limit":        scrollPageSize,
			"with_payload": true,
			"with_vector":  false,
		}
		if filter != nil {
			req["filter"] = filter
		}
		if offset != nil {
			req["offset"] = offset
		}

		var page scrollPage
		if err := s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/scroll"), req, &page); err != nil {
			return nil, err
		}

		for _, p := range page.Points {
			v, err := decodePoint(op, p)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}

		if len(page.Next) == 0 || string(page.Next) == "null" {
			break
		}
		offset = page.Next
	}
	return out, nil
}

// GetBySlug fetches a single record through the slug payload index.
func (s *Store) GetBySlug(ctx context.Context, slug string) (*vertical.Vertical, bool, error) {
	const op = "get_by_slug"

	req := map[string]any{
		"filter":       mustFilter(matchCondition("slug", strings.ToLower(slug))),
		"limit":        1,
		"with_payload": true,
		"with_vector":  false,
	}

	var page scrollPage
	if err := s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/scroll"), req, &page); err != nil {
		return nil, false, err
	}
	if len(page.Points) == 0 {
		return nil, false, nil
	}

	v, err := decodePoint(op, page.Points[0])
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Create upserts a new point with its vector and payload.
func (s *Store) Create(ctx context.Context, v *vertical.Vertical, vec []float32) error {
	const op = "create"
	if len(vec) != vertical.VectorDim {
		return opErr(op, OperationErrorValidation,
			fmt.Sprintf("vector dimension mismatch: expected=%d got=%d", vertical.VectorDim, len(vec)), nil)
	}

	payload, err := encodePayload(op, v)
	if err != nil {
		return err
	}

	req := map[string]any{
		"points": []map[string]any{{
			"id":      v.ID,
			"vector":  vec,
			"payload": payload,
		}},
	}
	return s.doJSON(ctx, op, http.MethodPut, s.collectionPath("/points?wait=true"), req, nil)
}

// Update overwrites the payload of an existing point. The stored vector
// is untouched (overwrite-payload only replaces payload keys).
func (s *Store) Update(ctx context.Context, v *vertical.Vertical) error {
	const op = "update"

	payload, err := encodePayload(op, v)
	if err != nil {
		return err
	}

	req := map[string]any{
		"payload": payload,
		"points":  []string{v.ID},
	}
	return s.doJSON(ctx, op, http.MethodPut, s.collectionPath("/points/payload?wait=true"), req, nil)
}

// Delete physically removes the point.
func (s *Store) Delete(ctx context.Context, id string) error {
	const op = "delete"
	req := map[string]any{"points": []string{id}}
	return s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/delete?wait=true"), req, nil)
}

// ensureCollection creates the collection and its payload indexes when
// they do not exist yet. Index creation is idempotent on the Qdrant side.
func (s *Store) ensureCollection(ctx context.Context) error {
	const op = "bootstrap"

	exists, err := s.collectionExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	create := map[string]any{
		"vectors": map[string]any{
			"size":     vertical.VectorDim,
			"distance": "Cosine",
		},
	}
	if err := s.doJSON(ctx, op, http.MethodPut, s.collectionPath(""), create, nil); err != nil {
		return err
	}

	indexes := []struct {
		field  string
		schema string
	}{
		{"slug", "keyword"},
		{"is_active", "bool"},
		{"parent_id", "keyword"},
	}
	for _, idx := range indexes {
		req := map[string]any{
			"field_name":   idx.field,
			"field_schema": idx.schema,
		}
		if err := s.doJSON(ctx, op, http.MethodPut, s.collectionPath("/index?wait=true"), req, nil); err != nil {
			return err
		}
	}

	s.logger.Info(ctx, "created qdrant collection",
		"collection", s.cfg.Collection, "indexes", len(indexes))
	return nil
}

func (s *Store) collectionExists(ctx context.Context) (bool, error) {
	const op = "bootstrap"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+s.collectionPath(""), nil)
	if err != nil {
		return false, opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	s.setHeaders(req)

	resp, err := s.http.Do(req)
	if err != nil {
		return false, classifyCallError(op, "qdrant request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	default:
		return false, &OperationError{
			Code:       OperationErrorRequestFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("collection check returned status=%d", resp.StatusCode),
		}
	}
}

func (s *Store) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	s.setHeaders(req)

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyCallError(op, "qdrant request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 10*maxErrorBodyBytes))
	if readErr != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorRequestFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if statusErr := parseEnvelopeStatus(env.Status); statusErr != "" {
		return &OperationError{
			Code:       OperationErrorRequestFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    statusErr,
		}
	}

	if out == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func (s *Store) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("api-key", s.cfg.APIKey)
	}
}

func (s *Store) collectionPath(suffix string) string {
	path := "/collections/" + s.cfg.Collection
	if suffix == "" {
		return path
	}
	return path + suffix
}

func encodePayload(op string, v *vertical.Vertical) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, opErr(op, OperationErrorEncodeFailed, "encode payload failed", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, opErr(op, OperationErrorEncodeFailed, "encode payload failed", err)
	}
	// The point carries its own ID; keeping it out of the payload avoids
	// a second source of truth.
	delete(payload, "id")
	return payload, nil
}

func decodePoint(op string, p point) (*vertical.Vertical, error) {
	var v vertical.Vertical
	if err := json.Unmarshal(p.Payload, &v); err != nil {
		return nil, opErr(op, OperationErrorDecodeFailed, "decode point payload failed", err)
	}
	v.ID = decodePointID(p.ID)
	return &v, nil
}

func decodePointID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return strings.TrimSpace(id)
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return fmt.Sprintf("%d", n)
	}
	return strings.TrimSpace(string(raw))
}

func classifyCallError(op, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	return opErr(op, OperationErrorTransportFailed, message, err)
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.EqualFold(s, "ok") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", s)
	}

	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && strings.TrimSpace(obj.Error) != "" {
		return strings.TrimSpace(obj.Error)
	}
	return fmt.Sprintf("qdrant status=%s", status)
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func matchCondition(key string, value any) map[string]any {
	return map[string]any{
		"key":   key,
		"match": map[string]any{"value": value},
	}
}

func mustFilter(conditions ...map[string]any) map[string]any {
	must := make([]any, 0, len(conditions))
	for _, c := range conditions {
		must = append(must, c)
	}
	return map[string]any{"must": must}
}
