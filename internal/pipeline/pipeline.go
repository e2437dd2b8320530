// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences the matching run: load query, load or build
// author profiles, rank by fitness, justify each entry, persist results
// in rank order.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	gojson "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/reviewer-match/internal/embed"
	"github.com/pdiddy/reviewer-match/internal/fitness"
	"github.com/pdiddy/reviewer-match/internal/justify"
	"github.com/pdiddy/reviewer-match/pkg/types"
)

// ProfileSource yields the author pool. Implemented by profile.Store;
// tests supply fixed pools.
type ProfileSource interface {
	LoadOrBuild(ctx context.Context) ([]types.Author, error)
}

// Pipeline holds the collaborators of one matching run.
type Pipeline struct {
	Provider  embed.Provider
	Profiles  ProfileSource
	Explainer justify.Explainer
	Logger    *slog.Logger
}

// Summary reports what a run produced.
type Summary struct {
	Query      types.Query
	Policy     types.AggregationPolicy
	Authors    int
	OutputPath string
	Elapsed    time.Duration
}

// Run executes the full pipeline and writes output_<policy>.jsonl into
// the output directory. Results appear in rank order; each line is one
// Result object.
//
// Justifications run sequentially by default. With JustifyWorkers > 1
// they run concurrently but are still emitted strictly in rank order
// through an index-keyed buffer, so the output contract is identical.
// A justification failure aborts the run; with Flush enabled the
// already-written prefix survives on disk.
func (p *Pipeline) Run(ctx context.Context, cfg types.MatchConfig) (Summary, error) {
	start := time.Now()
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	query, err := LoadQuery(cfg.QueryPath)
	if err != nil {
		return Summary{}, err
	}
	queryText := query.Text()

	authors, err := p.Profiles.LoadOrBuild(ctx)
	if err != nil {
		return Summary{}, err
	}
	logger.Info("author pool ready", "authors", len(authors), "policy", cfg.Policy)

	authorVecs, err := fitness.AuthorVectors(ctx, p.Provider, authors, cfg.Policy)
	if err != nil {
		return Summary{}, err
	}

	queryVec, err := embed.EmbedOne(ctx, p.Provider, queryText)
	if err != nil {
		return Summary{}, fmt.Errorf("embedding query: %w", err)
	}

	ranking, err := fitness.Rank(queryVec, authorVecs)
	if err != nil {
		return Summary{}, err
	}
	logger.Info("ranking computed", "entries", len(ranking))

	outputPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("output_%s.jsonl", cfg.Policy))
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("creating output directory: %w", err)
	}

	if err := p.justifyAndWrite(ctx, cfg, logger, query, authors, ranking, outputPath); err != nil {
		return Summary{}, err
	}

	return Summary{
		Query:      query,
		Policy:     cfg.Policy,
		Authors:    len(authors),
		OutputPath: outputPath,
		Elapsed:    time.Since(start),
	}, nil
}

// rankedResult pairs a completed justification with its rank position.
type rankedResult struct {
	rank   int
	result types.Result
}

func (p *Pipeline) justifyAndWrite(ctx context.Context, cfg types.MatchConfig, logger *slog.Logger, query types.Query, authors []types.Author, ranking []fitness.RankedEntry, outputPath string) error {
	workers := cfg.JustifyWorkers
	if workers < 1 {
		workers = 1
	}

	// With limit 1 the group admits goroutines in submission order, so
	// the default run is strictly sequential in rank order.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	completed := make(chan rankedResult, len(ranking))

	// Submissions happen off the main goroutine so that g.Go's limit
	// blocking never deadlocks against the drain loop below.
	go func() {
		defer close(completed)
		for rank, entry := range ranking {
			if gctx.Err() != nil {
				break
			}
			rank, entry := rank, entry
			author := authors[entry.AuthorIndex]
			g.Go(func() error {
				logger.Info("generating explanation", "rank", rank+1, "author", author.Name)
				text, err := p.Explainer.Explain(gctx, query, author.Summary, scorePercent(entry.Score))
				if err != nil {
					return fmt.Errorf("justifying %q (rank %d): %w", author.Name, rank+1, err)
				}
				completed <- rankedResult{
					rank: rank,
					result: types.Result{
						Name:        author.Name,
						Fitness:     entry.Score,
						Explanation: text,
					},
				}
				return nil
			})
		}
		g.Wait()
	}()

	var out *os.File
	var enc *gojson.Encoder
	if cfg.Flush {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
		enc = gojson.NewEncoder(out)
	}

	// Index-keyed buffer: completions arrive in any order but results are
	// emitted strictly by rank.
	results := make([]types.Result, 0, len(ranking))
	pending := make(map[int]types.Result)
	next := 0
	for rr := range completed {
		pending[rr.rank] = rr.result
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			results = append(results, r)
			if enc != nil {
				if err := enc.Encode(r); err != nil {
					return fmt.Errorf("writing result line: %w", err)
				}
			}
		}
	}

	if err := g.Wait(); err != nil {
		// The flushed prefix, if any, stays on disk.
		return err
	}

	if cfg.Flush {
		return nil
	}
	return writeResults(outputPath, results)
}

// writeResults persists all results at once, one JSON object per line, in
// the order given.
func writeResults(path string, results []types.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	enc := gojson.NewEncoder(f)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("writing result line: %w", err)
		}
	}
	return f.Close()
}

// LoadQuery reads the candidate paper file: a single JSON object with
// title and abstract. Missing fields are fatal here, before any
// embedding work.
func LoadQuery(path string) (types.Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Query{}, fmt.Errorf("reading query file %s: %w", path, err)
	}

	var q types.Query
	if err := gojson.Unmarshal(data, &q); err != nil {
		return types.Query{}, fmt.Errorf("parsing query file %s: %w", path, err)
	}
	if q.Title == "" || q.Abstract == "" {
		return types.Query{}, fmt.Errorf("query file %s: title and abstract are required", path)
	}
	return q, nil
}

// scorePercent converts a similarity in [-1, 1] to the 0-100 scale the
// justification prompt expects.
func scorePercent(score float64) int {
	return int(math.Round(score * 100))
}
