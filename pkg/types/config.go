// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that call remote
// collaborators.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "reviewer-match/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// EmbeddingConfig holds settings for the embedding provider.
type EmbeddingConfig struct {
	HTTPConfig `yaml:",inline"`

	// Endpoint is the base URL of the embedding service.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Model is the embedding model identifier (e.g. "all-MiniLM-L6-v2").
	Model string `json:"model" yaml:"model"`

	// Device is the compute device the service should place the model on
	// (e.g. "cpu", "cuda:0"). Passed through verbatim.
	Device string `json:"device" yaml:"device"`

	// BatchSize is the maximum number of texts per request (default 32).
	// Sub-batching is internal to the provider; callers always see one
	// logical batch call.
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// APIKey is an optional bearer token for the embedding service.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// ProfileConfig holds settings for the author profile store.
type ProfileConfig struct {
	AIConfig `yaml:",inline"`

	// DataPath is the raw reviewer database (JSONL, one author per line).
	DataPath string `json:"data_path" yaml:"data_path"`

	// CachePath is the location of the derived profile artifact. Presence
	// of this file gates whether a rebuild occurs.
	CachePath string `json:"cache_path" yaml:"cache_path"`

	// Verify opts into integrity stamping: a checksum of the raw database
	// is stored next to the artifact and validated on load. Off by
	// default, preserving presence-only cache semantics.
	Verify bool `json:"verify" yaml:"verify"`

	// PubCachePath is the SQLite database caching resolved publication
	// metadata so an interrupted build does not refetch. Empty disables it.
	PubCachePath string `json:"pub_cache_path" yaml:"pub_cache_path"`

	HTTPConfig `yaml:",inline"`
}

// AggregationPolicy selects how a multi-publication author is reduced to
// a single representation vector.
type AggregationPolicy string

const (
	// PolicySummarize embeds the author's pre-generated summary text.
	PolicySummarize AggregationPolicy = "summarize"

	// PolicyAggregate embeds every publication and averages the vectors
	// without re-normalizing.
	PolicyAggregate AggregationPolicy = "aggregate"
)

// MatchConfig holds settings for the matching pipeline.
type MatchConfig struct {
	// QueryPath is the candidate paper file (single JSON object).
	QueryPath string `json:"query_path" yaml:"query_path"`

	// OutputDir receives output_<policy>.jsonl.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Policy selects the aggregation strategy.
	Policy AggregationPolicy `json:"policy" yaml:"policy"`

	// JustifyWorkers bounds concurrent justification calls. Values <= 1
	// keep the sequential, rank-ordered default.
	JustifyWorkers int `json:"justify_workers" yaml:"justify_workers"`

	// Flush streams each result line as soon as it is justified, so a
	// late failure keeps the completed prefix on disk.
	Flush bool `json:"flush" yaml:"flush"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
	Profile   ProfileConfig   `json:"profile" yaml:"profile"`
	Justify   AIConfig        `json:"justify" yaml:"justify"`
	Match     MatchConfig     `json:"match" yaml:"match"`
}
