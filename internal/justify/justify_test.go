// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package justify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/reviewer-match/internal/claude"
	"github.com/pdiddy/reviewer-match/pkg/types"
)

func TestClaudeExplainerPrompt(t *testing.T) {
	var got struct {
		System   string `json:"system"`
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{"content": []map[string]string{
			{"type": "text", "text": "strong topical overlap"},
		}})
	}))
	defer srv.Close()

	orig := claude.APIURL
	claude.APIURL = srv.URL
	t.Cleanup(func() { claude.APIURL = orig })

	e := &ClaudeExplainer{Client: &claude.Client{APIKey: "k", Model: "m"}}
	q := types.Query{Title: "Sparse Attention", Abstract: "We prune attention heads."}

	text, err := e.Explain(context.Background(), q, "works on transformer efficiency", 87)
	require.NoError(t, err)
	assert.Equal(t, "strong topical overlap", text)

	assert.Contains(t, got.System, "academic chair")
	require.Len(t, got.Messages, 1)
	prompt := got.Messages[0].Content
	assert.Contains(t, prompt, "Paper Title: Sparse Attention")
	assert.Contains(t, prompt, "Paper Abstract: We prune attention heads.")
	assert.Contains(t, prompt, "Summary of Research by the Reviewer: works on transformer efficiency")
	assert.Contains(t, prompt, "Fitness Score (out of 100): 87")
}

func TestClaudeExplainerPropagatesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	origURL := claude.APIURL
	origBackoff := claude.BackoffBase
	claude.APIURL = srv.URL
	claude.BackoffBase = 0
	t.Cleanup(func() {
		claude.APIURL = origURL
		claude.BackoffBase = origBackoff
	})

	e := &ClaudeExplainer{Client: &claude.Client{APIKey: "k", Model: "m", MaxRetries: 1}}
	_, err := e.Explain(context.Background(), types.Query{Title: "T", Abstract: "A"}, "s", 50)
	require.Error(t, err)
}
