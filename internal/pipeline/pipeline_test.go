// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/reviewer-match/pkg/types"
)

// mapProvider returns fixed vectors per text.
type mapProvider struct {
	vectors map[string][]float32
}

func (m *mapProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, ok := m.vectors[text]
		if !ok {
			return nil, fmt.Errorf("no fixture vector for %q", text)
		}
		out[i] = v
	}
	return out, nil
}

// fixedPool is a ProfileSource over a literal author slice.
type fixedPool []types.Author

func (p fixedPool) LoadOrBuild(context.Context) ([]types.Author, error) { return p, nil }

// stubExplainer renders a deterministic explanation per summary, with an
// optional artificial delay per summary and an optional failure.
type stubExplainer struct {
	mu     sync.Mutex
	delays map[string]time.Duration
	failOn string
	calls  []string
}

func (s *stubExplainer) Explain(_ context.Context, _ types.Query, summary string, score int) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, summary)
	s.mu.Unlock()

	if d, ok := s.delays[summary]; ok {
		time.Sleep(d)
	}
	if s.failOn != "" && summary == s.failOn {
		return "", fmt.Errorf("explainer refused %q", summary)
	}
	return fmt.Sprintf("explained %s at %d", summary, score), nil
}

func writeQuery(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "query.json")
	q := `{"title":"Sparse Attention","abstract":"We prune attention heads."}`
	require.NoError(t, os.WriteFile(path, []byte(q), 0o644))
	return path
}

// threeAuthorFixture builds a pool whose summarize-policy ranking is
// Bob (cos 0 = 1.0), then Ada (cos 0.4), then Carol (cos 1.2) against the
// query vector (1, 0, 0).
func threeAuthorFixture() (fixedPool, *mapProvider) {
	unit := func(angle float64) []float32 {
		return []float32{float32(math.Cos(angle)), float32(math.Sin(angle)), 0}
	}
	pool := fixedPool{
		{Name: "Ada", Summary: "sum-ada", Publications: []types.Publication{{Title: "a", Abstract: "a"}}},
		{Name: "Bob", Summary: "sum-bob", Publications: []types.Publication{{Title: "b", Abstract: "b"}}},
		{Name: "Carol", Summary: "sum-carol", Publications: []types.Publication{{Title: "c", Abstract: "c"}}},
	}
	queryText := types.Query{Title: "Sparse Attention", Abstract: "We prune attention heads."}.Text()
	provider := &mapProvider{vectors: map[string][]float32{
		"sum-ada":   unit(0.4),
		"sum-bob":   unit(0.0),
		"sum-carol": unit(1.2),
		queryText:   unit(0.0),
	}}
	return pool, provider
}

func readResults(t *testing.T, path string) []types.Result {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var results []types.Result
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var r types.Result
		require.NoError(t, gojson.Unmarshal(scanner.Bytes(), &r))
		results = append(results, r)
	}
	require.NoError(t, scanner.Err())
	return results
}

func TestRunSummarizePolicy(t *testing.T) {
	dir := t.TempDir()
	pool, provider := threeAuthorFixture()
	explainer := &stubExplainer{}

	p := &Pipeline{Provider: provider, Profiles: pool, Explainer: explainer}
	summary, err := p.Run(context.Background(), types.MatchConfig{
		QueryPath: writeQuery(t, dir),
		OutputDir: dir,
		Policy:    types.PolicySummarize,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Authors)
	assert.Equal(t, types.PolicySummarize, summary.Policy)
	assert.Equal(t, filepath.Join(dir, "output_summarize.jsonl"), summary.OutputPath)
	assert.Equal(t, "Sparse Attention", summary.Query.Title)

	results := readResults(t, summary.OutputPath)
	require.Len(t, results, 3)

	assert.Equal(t, "Bob", results[0].Name)
	assert.Equal(t, "Ada", results[1].Name)
	assert.Equal(t, "Carol", results[2].Name)

	for i, r := range results {
		assert.GreaterOrEqual(t, r.Fitness, -1.0)
		assert.LessOrEqual(t, r.Fitness, 1.0)
		assert.NotEmpty(t, r.Explanation, "result %d has no explanation", i)
		if i > 0 {
			assert.GreaterOrEqual(t, results[i-1].Fitness, r.Fitness)
		}
	}

	assert.InDelta(t, 1.0, results[0].Fitness, 1e-6)
	assert.Equal(t, "explained sum-bob at 100", results[0].Explanation)

	// Sequential default: explanations requested strictly in rank order.
	assert.Equal(t, []string{"sum-bob", "sum-ada", "sum-carol"}, explainer.calls)
}

func TestRunAggregatePolicy(t *testing.T) {
	dir := t.TempDir()
	ada := types.Author{Name: "Ada", Publications: []types.Publication{
		{Title: "x", Abstract: "x"},
		{Title: "y", Abstract: "y"},
	}}
	queryText := types.Query{Title: "Sparse Attention", Abstract: "We prune attention heads."}.Text()
	provider := &mapProvider{vectors: map[string][]float32{
		ada.Publications[0].Text(): {1, 0, 0},
		ada.Publications[1].Text(): {0, 1, 0},
		queryText:                  {1, 0, 0},
	}}

	p := &Pipeline{Provider: provider, Profiles: fixedPool{ada}, Explainer: &stubExplainer{}}
	summary, err := p.Run(context.Background(), types.MatchConfig{
		QueryPath: writeQuery(t, dir),
		OutputDir: dir,
		Policy:    types.PolicyAggregate,
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "output_aggregate.jsonl"), summary.OutputPath)
	results := readResults(t, summary.OutputPath)
	require.Len(t, results, 1)
	// Mean of two orthogonal unit vectors against the first one: 0.5.
	assert.InDelta(t, 0.5, results[0].Fitness, 1e-6)
	assert.Equal(t, "explained  at 50", results[0].Explanation)
}

func TestRunConcurrentWorkersPreserveRankOrder(t *testing.T) {
	dir := t.TempDir()
	pool, provider := threeAuthorFixture()
	// The top-ranked author is the slowest to justify, so completions
	// arrive in reverse rank order.
	explainer := &stubExplainer{delays: map[string]time.Duration{
		"sum-bob":   60 * time.Millisecond,
		"sum-ada":   30 * time.Millisecond,
		"sum-carol": 0,
	}}

	p := &Pipeline{Provider: provider, Profiles: pool, Explainer: explainer}
	summary, err := p.Run(context.Background(), types.MatchConfig{
		QueryPath:      writeQuery(t, dir),
		OutputDir:      dir,
		Policy:         types.PolicySummarize,
		JustifyWorkers: 4,
	})
	require.NoError(t, err)

	results := readResults(t, summary.OutputPath)
	require.Len(t, results, 3)
	assert.Equal(t, "Bob", results[0].Name)
	assert.Equal(t, "Ada", results[1].Name)
	assert.Equal(t, "Carol", results[2].Name)
}

func TestRunFlushKeepsPrefixOnFailure(t *testing.T) {
	dir := t.TempDir()
	pool, provider := threeAuthorFixture()
	// Rank order is Bob, Ada, Carol; Ada's justification fails.
	explainer := &stubExplainer{failOn: "sum-ada"}

	p := &Pipeline{Provider: provider, Profiles: pool, Explainer: explainer}
	_, err := p.Run(context.Background(), types.MatchConfig{
		QueryPath: writeQuery(t, dir),
		OutputDir: dir,
		Policy:    types.PolicySummarize,
		Flush:     true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ada")

	results := readResults(t, filepath.Join(dir, "output_summarize.jsonl"))
	require.Len(t, results, 1, "the flushed prefix before the failure must survive")
	assert.Equal(t, "Bob", results[0].Name)
}

func TestRunFailureWithoutFlushWritesNothing(t *testing.T) {
	dir := t.TempDir()
	pool, provider := threeAuthorFixture()
	explainer := &stubExplainer{failOn: "sum-ada"}

	p := &Pipeline{Provider: provider, Profiles: pool, Explainer: explainer}
	_, err := p.Run(context.Background(), types.MatchConfig{
		QueryPath: writeQuery(t, dir),
		OutputDir: dir,
		Policy:    types.PolicySummarize,
	})
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "output_summarize.jsonl"))
	assert.True(t, os.IsNotExist(statErr), "failed run must not leave a partial output file")
}

func TestRunUnknownPolicy(t *testing.T) {
	dir := t.TempDir()
	pool, provider := threeAuthorFixture()

	p := &Pipeline{Provider: provider, Profiles: pool, Explainer: &stubExplainer{}}
	_, err := p.Run(context.Background(), types.MatchConfig{
		QueryPath: writeQuery(t, dir),
		OutputDir: dir,
		Policy:    types.AggregationPolicy("centroid"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "centroid")
}

func TestLoadQuery(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "valid",
			content: `{"title":"T","abstract":"A"}`,
		},
		{
			name:    "missing title",
			content: `{"abstract":"A"}`,
			wantErr: "required",
		},
		{
			name:    "missing abstract",
			content: `{"title":"T"}`,
			wantErr: "required",
		},
		{
			name:    "invalid JSON",
			content: `{"title":`,
			wantErr: "parsing",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "query.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			q, err := LoadQuery(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "T", q.Title)
			assert.Equal(t, "A", q.Abstract)
		})
	}
}

func TestLoadQueryMissingFile(t *testing.T) {
	_, err := LoadQuery(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestScorePercent(t *testing.T) {
	tests := []struct {
		score float64
		want  int
	}{
		{1.0, 100},
		{0.874, 87},
		{0.875, 88},
		{0.0, 0},
		{-0.5, -50},
		{-1.0, -100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, scorePercent(tt.score), "score %v", tt.score)
	}
}
