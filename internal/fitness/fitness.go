// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fitness ranks candidate reviewers against a query embedding by
// cosine similarity under a selectable aggregation policy.
package fitness

import (
	"context"
	"fmt"
	"sort"

	"github.com/hupe1980/vecgo/distance"

	"github.com/pdiddy/reviewer-match/internal/embed"
	"github.com/pdiddy/reviewer-match/pkg/types"
)

// RankedEntry is one position in the full ranking of the pool.
type RankedEntry struct {
	// AuthorIndex is the author's position in the pool passed to
	// AuthorVectors.
	AuthorIndex int `json:"author_index"`

	// Score is the similarity against the unit query vector, in [-1, 1].
	Score float64 `json:"score"`
}

// AuthorVectors derives one representation vector per author, in pool
// order, according to the aggregation policy.
//
// Under PolicySummarize each author contributes its Summary text; all
// summaries are embedded in one batch and the resulting unit vectors are
// used directly.
//
// Under PolicyAggregate every publication of every author is composed and
// embedded in one batch across the whole pool; each author's contiguous
// slice of that batch is recovered from a prefix sum over publication
// counts and reduced by arithmetic mean. The mean is deliberately not
// re-normalized, so an author vector may have norm < 1 and scores under
// this policy are cosine similarity against the unit query vector only.
//
// An unknown policy or an empty pool is an error before any embedding
// work is done.
func AuthorVectors(ctx context.Context, provider embed.Provider, authors []types.Author, policy types.AggregationPolicy) ([][]float32, error) {
	if len(authors) == 0 {
		return nil, fmt.Errorf("author pool is empty: nothing to rank")
	}

	switch policy {
	case types.PolicySummarize:
		texts := make([]string, len(authors))
		for i, a := range authors {
			texts[i] = a.Summary
		}
		return provider.Embed(ctx, texts)

	case types.PolicyAggregate:
		return aggregateVectors(ctx, provider, authors)

	default:
		return nil, fmt.Errorf("unknown aggregation policy %q: use %q or %q",
			policy, types.PolicyAggregate, types.PolicySummarize)
	}
}

func aggregateVectors(ctx context.Context, provider embed.Provider, authors []types.Author) ([][]float32, error) {
	// Prefix sum over publication counts gives each author's slice
	// boundaries inside the stacked batch.
	bounds := make([]int, len(authors)+1)
	for i, a := range authors {
		if len(a.Publications) == 0 {
			return nil, fmt.Errorf("author %q has no publications to aggregate", a.Name)
		}
		bounds[i+1] = bounds[i] + len(a.Publications)
	}

	stacked := make([]string, 0, bounds[len(authors)])
	for _, a := range authors {
		for _, pub := range a.Publications {
			stacked = append(stacked, pub.Text())
		}
	}

	// One batched call for the whole pool, not one per author.
	pubVecs, err := provider.Embed(ctx, stacked)
	if err != nil {
		return nil, fmt.Errorf("embedding publications: %w", err)
	}
	if len(pubVecs) != len(stacked) {
		return nil, fmt.Errorf("embedding provider returned %d vectors for %d publications", len(pubVecs), len(stacked))
	}

	vecs := make([][]float32, len(authors))
	for i := range authors {
		vecs[i] = meanVector(pubVecs[bounds[i]:bounds[i+1]])
	}
	return vecs, nil
}

// meanVector returns the arithmetic mean of the given unit vectors. The
// result is not re-normalized.
func meanVector(vecs [][]float32) []float32 {
	dim := len(vecs[0])
	mean := make([]float32, dim)
	for _, v := range vecs {
		for j, x := range v {
			mean[j] += x
		}
	}
	inv := 1 / float32(len(vecs))
	for j := range mean {
		mean[j] *= inv
	}
	return mean
}

// Rank scores every author vector against the unit query vector and
// returns the full ranking: a permutation of all author indices, ordered
// by non-increasing score with ties broken by ascending author index. The
// tie-break is a property of the comparator, not of sort stability.
func Rank(queryVec []float32, authorVecs [][]float32) ([]RankedEntry, error) {
	if len(authorVecs) == 0 {
		return nil, fmt.Errorf("author pool is empty: nothing to rank")
	}

	entries := make([]RankedEntry, len(authorVecs))
	for i, v := range authorVecs {
		if len(v) != len(queryVec) {
			return nil, fmt.Errorf("author vector %d has dimension %d, query has %d", i, len(v), len(queryVec))
		}
		entries[i] = RankedEntry{
			AuthorIndex: i,
			Score:       float64(distance.Dot(queryVec, v)),
		}
	}

	sort.Slice(entries, func(a, b int) bool {
		if entries[a].Score != entries[b].Score {
			return entries[a].Score > entries[b].Score
		}
		return entries[a].AuthorIndex < entries[b].AuthorIndex
	})

	return entries, nil
}
