// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package justify produces natural-language explanations for fitness
// scores via a remote text-generation service.
package justify

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/pdiddy/reviewer-match/internal/claude"
	"github.com/pdiddy/reviewer-match/pkg/types"
)

// Explainer explains one paper/reviewer fitness score. The pipeline calls
// it once per ranked entry; results are neither retried beyond the
// client's own policy nor cached.
type Explainer interface {
	Explain(ctx context.Context, q types.Query, authorSummary string, scorePercent int) (string, error)
}

// justifySystemPrompt frames the model as a conference chair assessing
// reviewer fit.
const justifySystemPrompt = "You are an academic chair of a conference. Given the information of a paper (title and abstract) and a reviewer, explain why the reviewer is a good or bad fit to review the paper according to the provided fitness score."

// justifyPromptTmpl composes the per-entry user prompt.
var justifyPromptTmpl = template.Must(template.New("justify").Parse(`Paper Title: {{.Title}}
Paper Abstract: {{.Abstract}}
Summary of Research by the Reviewer: {{.Summary}}
Fitness Score (out of 100): {{.Score}}

Explain whether the reviewer is a good fit to review the paper based on the given fitness score:
`))

// ClaudeExplainer generates justifications through the Claude Messages
// API.
type ClaudeExplainer struct {
	Client *claude.Client
}

// Explain renders the justification prompt and returns the model's prose.
func (c *ClaudeExplainer) Explain(ctx context.Context, q types.Query, authorSummary string, scorePercent int) (string, error) {
	var buf bytes.Buffer
	err := justifyPromptTmpl.Execute(&buf, struct {
		Title    string
		Abstract string
		Summary  string
		Score    int
	}{
		Title:    q.Title,
		Abstract: q.Abstract,
		Summary:  authorSummary,
		Score:    scorePercent,
	})
	if err != nil {
		return "", fmt.Errorf("rendering justification prompt: %w", err)
	}

	return c.Client.Complete(ctx, justifySystemPrompt, buf.String())
}
