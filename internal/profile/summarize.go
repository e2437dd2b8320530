// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package profile

import (
	"context"
	"strings"

	"github.com/pdiddy/reviewer-match/internal/claude"
	"github.com/pdiddy/reviewer-match/pkg/types"
)

// Summarizer condenses an author's publications into a single descriptive
// text. The production implementation is a remote text-generation
// service; tests supply a mock.
type Summarizer interface {
	Summarize(ctx context.Context, pubs []types.Publication) (string, error)
}

// summarySystemPrompt instructs the model to act as an academic expert
// summarizing one author's research contributions.
const summarySystemPrompt = "You are an academic expert. Given the information of several papers (title and abstract) from one author, summarize the main research contributions of this author."

// ClaudeSummarizer generates author summaries through the Claude Messages
// API.
type ClaudeSummarizer struct {
	Client *claude.Client
}

// Summarize joins the author's publications into one prompt and returns
// the model's research summary.
func (c *ClaudeSummarizer) Summarize(ctx context.Context, pubs []types.Publication) (string, error) {
	var b strings.Builder
	for i, pub := range pubs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(pub.Text())
	}
	b.WriteString("\n\nSummary of Research:")

	return c.Client.Complete(ctx, summarySystemPrompt, b.String())
}
