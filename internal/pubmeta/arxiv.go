// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmeta

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/pdiddy/reviewer-match/pkg/types"
)

// arxivAPIBase is the arXiv metadata endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// resolveArxiv fetches title and abstract for an abstract-page URL like
// https://arxiv.org/abs/1706.03762 through the arXiv Atom API.
func (r *Resolver) resolveArxiv(ctx context.Context, rawURL string) (types.Publication, error) {
	id := arxivIDFromURL(rawURL)
	if id == "" {
		return types.Publication{}, fmt.Errorf("no arXiv ID in %q", rawURL)
	}

	resp, err := r.get(ctx, fmt.Sprintf("%s?id_list=%s", arxivAPIBase, id))
	if err != nil {
		return types.Publication{}, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return types.Publication{}, fmt.Errorf("parsing arXiv response: %w", err)
	}
	if len(feed.Entries) == 0 {
		return types.Publication{}, fmt.Errorf("arXiv returned no entry for %s", id)
	}

	entry := feed.Entries[0]
	return types.Publication{
		Title:    collapseSpace(entry.Title),
		Abstract: collapseSpace(entry.Summary),
	}, nil
}

// arxivIDFromURL pulls the ID out of an abstract-page URL
// (e.g. "https://arxiv.org/abs/1706.03762" → "1706.03762").
func arxivIDFromURL(rawURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(rawURL, prefix)
	if idx < 0 {
		return ""
	}
	id := rawURL[idx+len(prefix):]
	if cut := strings.IndexAny(id, "?#"); cut >= 0 {
		id = id[:cut]
	}
	return id
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	Title   string `xml:"title"`
	Summary string `xml:"summary"`
}
