// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/reviewer-match/internal/claude"
	"github.com/pdiddy/reviewer-match/internal/embed"
	"github.com/pdiddy/reviewer-match/internal/justify"
	"github.com/pdiddy/reviewer-match/internal/pipeline"
	"github.com/pdiddy/reviewer-match/internal/profile"
	"github.com/pdiddy/reviewer-match/internal/pubmeta"
	"github.com/pdiddy/reviewer-match/pkg/types"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank the reviewer pool against a paper and justify each entry",
	Long: `Match embeds the query paper and every reviewer representation, ranks
reviewers by cosine similarity under the selected aggregation policy, and
writes one justified result per line to output_<policy>.jsonl.

Reviewer profiles are loaded from the cache artifact when it exists;
otherwise they are built from the raw database first (see "profile build").`,
	RunE: runMatch,
}

func runMatch(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	embCfg, err := embeddingConfig(cmd)
	if err != nil {
		return err
	}
	provider, err := embed.NewHTTPProvider(embCfg)
	if err != nil {
		return err
	}

	store, closeStore, err := profileStore(cmd, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	model, _ := cmd.Flags().GetString("model")
	explainer := &justify.ClaudeExplainer{
		Client: &claude.Client{
			APIKey: secretDefault("anthropic-api-key", viper.GetString("justify.api_key")),
			Model:  flagOrConfig(model, "justify.model", "claude-sonnet-4-5-20250929"),
		},
	}

	policy, _ := cmd.Flags().GetString("policy")
	queryPath, _ := cmd.Flags().GetString("query")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	workers, _ := cmd.Flags().GetInt("justify-workers")
	flush, _ := cmd.Flags().GetBool("flush")

	matchCfg := types.MatchConfig{
		QueryPath:      queryPath,
		OutputDir:      outputDir,
		Policy:         types.AggregationPolicy(policy),
		JustifyWorkers: workers,
		Flush:          flush,
	}

	p := &pipeline.Pipeline{
		Provider:  provider,
		Profiles:  store,
		Explainer: explainer,
		Logger:    logger,
	}

	summary, err := p.Run(context.Background(), matchCfg)
	if err != nil {
		return err
	}

	runPath := filepath.Join(outputDir, fmt.Sprintf("run_%s.yaml", policy))
	if err := pipeline.WriteRunFile(runPath, summary); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Ranked %d reviewers in %s; results in %s\n",
		summary.Authors, summary.Elapsed.Round(time.Millisecond), summary.OutputPath)
	return nil
}

// --- shared construction helpers ---

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func embeddingConfig(cmd *cobra.Command) (types.EmbeddingConfig, error) {
	endpoint, _ := cmd.Flags().GetString("embedding-endpoint")
	model, _ := cmd.Flags().GetString("embedding-model")
	device, _ := cmd.Flags().GetString("device")
	batch, _ := cmd.Flags().GetInt("embedding-batch")

	cfg := types.EmbeddingConfig{
		Endpoint:  flagOrConfig(endpoint, "embedding.endpoint", ""),
		Model:     flagOrConfig(model, "embedding.model", "all-MiniLM-L6-v2"),
		Device:    flagOrConfig(device, "embedding.device", "cpu"),
		BatchSize: batch,
		APIKey:    secretDefault("embedding-api-key", viper.GetString("embedding.api_key")),
	}
	if cfg.Endpoint == "" {
		return cfg, fmt.Errorf("embedding endpoint required: set --embedding-endpoint or embedding.endpoint in the config file")
	}
	return cfg, nil
}

// profileStore assembles the author profile store from flags. The
// returned cleanup closes the publication cache when one is open.
func profileStore(cmd *cobra.Command, logger *slog.Logger) (*profile.Store, func(), error) {
	dataPath, _ := cmd.Flags().GetString("data")
	cachePath, _ := cmd.Flags().GetString("profile-cache")
	pubCachePath, _ := cmd.Flags().GetString("pub-cache")
	verify, _ := cmd.Flags().GetBool("verify-cache")
	model, _ := cmd.Flags().GetString("model")

	cfg := types.ProfileConfig{
		DataPath:  dataPath,
		CachePath: cachePath,
		Verify:    verify,
	}

	resolver := &pubmeta.Resolver{
		Client:    &http.Client{Timeout: 30 * time.Second},
		UserAgent: "reviewer-match/" + version,
	}

	summarizer := &profile.ClaudeSummarizer{
		Client: &claude.Client{
			APIKey: secretDefault("anthropic-api-key", viper.GetString("justify.api_key")),
			Model:  flagOrConfig(model, "justify.model", "claude-sonnet-4-5-20250929"),
		},
	}

	var pubCache *profile.PubCache
	closeFn := func() {}
	if pubCachePath != "" {
		pc, err := profile.OpenPubCache(pubCachePath)
		if err != nil {
			return nil, nil, err
		}
		pubCache = pc
		closeFn = func() { pc.Close() }
	}

	return profile.NewStore(cfg, resolver, summarizer, pubCache, logger), closeFn, nil
}

// flagOrConfig picks the flag value, then the config file value, then the
// built-in default.
func flagOrConfig(flagValue, viperKey, fallback string) string {
	if strings.TrimSpace(flagValue) != "" {
		return flagValue
	}
	if v := viper.GetString(viperKey); v != "" {
		return v
	}
	return fallback
}

func init() {
	matchCmd.Flags().String("data", "data/reviewers.jsonl", "raw reviewer database (JSONL)")
	matchCmd.Flags().String("query", "data/query.json", "candidate paper file (JSON object with title and abstract)")
	matchCmd.Flags().String("output-dir", "log", "directory for output_<policy>.jsonl and the run record")
	matchCmd.Flags().String("profile-cache", "log/author_profile.json", "author profile cache artifact")
	matchCmd.Flags().String("pub-cache", "", "SQLite cache for fetched publication metadata (empty = disabled)")
	matchCmd.Flags().Bool("verify-cache", false, "stamp the cache with a raw-database checksum and rebuild on mismatch")
	matchCmd.Flags().String("policy", string(types.PolicySummarize), "aggregation policy: aggregate or summarize")
	matchCmd.Flags().String("embedding-endpoint", "", "embedding service base URL")
	matchCmd.Flags().String("embedding-model", "", "embedding model identifier")
	matchCmd.Flags().Int("embedding-batch", 0, "texts per embedding request (0 = default)")
	matchCmd.Flags().String("device", "", "compute device for the embedding service (e.g. cpu, cuda:0)")
	matchCmd.Flags().String("model", "", "AI model for summaries and justifications")
	matchCmd.Flags().Int("justify-workers", 1, "concurrent justification calls (1 = sequential)")
	matchCmd.Flags().Bool("flush", false, "write each result line as soon as it is justified")
	matchCmd.Flags().Bool("quiet", false, "suppress progress logging")

	rootCmd.AddCommand(matchCmd)
}
