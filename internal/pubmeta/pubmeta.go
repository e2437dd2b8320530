// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pubmeta resolves publication URLs to title/abstract metadata.
// Supported hosts: arXiv (Atom API), OpenReview and NeurIPS proceedings
// (citation meta tags / page structure).
package pubmeta

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/reviewer-match/pkg/types"
)

// Resolver fetches metadata for one publication URL.
type Resolver struct {
	Client    *http.Client
	UserAgent string
}

// Resolve dispatches on the URL's host and returns the publication's
// title and abstract. Hosts without a fetcher are an error; the profile
// build treats that as fatal rather than skipping the publication.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (types.Publication, error) {
	switch {
	case strings.HasPrefix(rawURL, "https://arxiv.org") || strings.HasPrefix(rawURL, "http://arxiv.org"):
		return r.resolveArxiv(ctx, rawURL)
	case strings.HasPrefix(rawURL, "https://openreview.net"):
		return r.resolveOpenReview(ctx, rawURL)
	case strings.HasPrefix(rawURL, "https://proceedings.neurips.cc"):
		return r.resolveNeurIPS(ctx, rawURL)
	default:
		return types.Publication{}, fmt.Errorf("unsupported publication host in %q", rawURL)
	}
}

func (r *Resolver) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if r.UserAgent != "" {
		req.Header.Set("User-Agent", r.UserAgent)
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}
	return resp, nil
}

// collapseSpace squeezes all runs of whitespace (including newlines) into
// single spaces, matching how page abstracts are cleaned.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
