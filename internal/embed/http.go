// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/pdiddy/reviewer-match/internal/httputil"
	"github.com/pdiddy/reviewer-match/pkg/types"
)

const defaultBatchSize = 32

// HTTPProvider calls an embedding service speaking the plain
// POST-texts/receive-embeddings protocol:
//
//	POST <endpoint>/embed  {"texts": [...], "model": "...", "device": "..."}
//	→ {"embeddings": [[...], ...]}
//
// Requests larger than the configured batch size are split transparently;
// callers still observe a single logical batch call.
type HTTPProvider struct {
	endpoint  string
	model     string
	device    string
	apiKey    string
	batchSize int
	client    *http.Client
}

type embedRequest struct {
	Texts  []string `json:"texts"`
	Model  string   `json:"model"`
	Device string   `json:"device,omitempty"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewHTTPProvider builds a provider from config. The endpoint must be set;
// model and device default to the service's own defaults when empty.
func NewHTTPProvider(cfg types.EmbeddingConfig) (*HTTPProvider, error) {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		return nil, fmt.Errorf("embedding endpoint not configured")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid embedding endpoint: %w", err)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/embed"
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &HTTPProvider{
		endpoint:  u.String(),
		model:     cfg.Model,
		device:    cfg.Device,
		apiKey:    cfg.APIKey,
		batchSize: batchSize,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

// Embed implements Provider. Vectors come back in input order, normalized.
func (p *HTTPProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += p.batchSize {
		end := i + p.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vecs, err := p.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		if len(vecs) != end-i {
			return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(vecs), end-i)
		}
		all = append(all, vecs...)
	}

	if err := normalize(all); err != nil {
		return nil, err
	}

	// All vectors must share one dimension.
	dim := len(all[0])
	for i, v := range all {
		if len(v) != dim {
			return nil, fmt.Errorf("embedding %d has dimension %d, want %d", i, len(v), dim)
		}
	}

	return all, nil
}

func (p *HTTPProvider) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := gojson.Marshal(embedRequest{Texts: texts, Model: p.model, Device: p.device})
	if err != nil {
		return nil, fmt.Errorf("marshaling embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := httputil.DoWithRetry(ctx, p.client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned HTTP %d", resp.StatusCode)
	}

	var er embedResponse
	if err := gojson.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}
	return er.Embeddings, nil
}
