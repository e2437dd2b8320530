// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmeta

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/reviewer-match/pkg/types"
)

// resolveOpenReview reads citation_title and citation_abstract meta tags
// from an OpenReview forum page.
func (r *Resolver) resolveOpenReview(ctx context.Context, rawURL string) (types.Publication, error) {
	page, err := r.fetchPage(ctx, rawURL)
	if err != nil {
		return types.Publication{}, fmt.Errorf("OpenReview request: %w", err)
	}

	title := metaContent(page, "citation_title")
	abstract := metaContent(page, "citation_abstract")
	if title == "" || abstract == "" {
		return types.Publication{}, fmt.Errorf("citation meta tags missing from %s", rawURL)
	}

	return types.Publication{
		Title:    collapseSpace(title),
		Abstract: collapseSpace(abstract),
	}, nil
}

// resolveNeurIPS reads the paper title (first h4) and the paragraph
// following the Abstract heading from a NeurIPS proceedings page.
func (r *Resolver) resolveNeurIPS(ctx context.Context, rawURL string) (types.Publication, error) {
	page, err := r.fetchPage(ctx, rawURL)
	if err != nil {
		return types.Publication{}, fmt.Errorf("NeurIPS request: %w", err)
	}

	title := firstTagText(page, "h4")
	abstract := textAfterHeading(page, "Abstract")
	if title == "" || abstract == "" {
		return types.Publication{}, fmt.Errorf("title or abstract not found in %s", rawURL)
	}

	return types.Publication{
		Title:    collapseSpace(title),
		Abstract: collapseSpace(abstract),
	}, nil
}

func (r *Resolver) fetchPage(ctx context.Context, url string) (string, error) {
	resp, err := r.get(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading page body: %w", err)
	}
	return string(data), nil
}

// metaContent extracts the content attribute of <meta name="..."> from raw
// HTML. The two citation tags this package needs don't justify a full HTML
// parser; the scan tolerates attribute order and quoting style.
func metaContent(page, name string) string {
	for _, quote := range []string{`"`, `'`} {
		marker := "name=" + quote + name + quote
		idx := strings.Index(page, marker)
		if idx < 0 {
			continue
		}

		tagStart := strings.LastIndex(page[:idx], "<")
		tagEnd := strings.Index(page[idx:], ">")
		if tagStart < 0 || tagEnd < 0 {
			continue
		}
		tag := page[tagStart : idx+tagEnd]

		if v := attrValue(tag, "content"); v != "" {
			return v
		}
	}
	return ""
}

// attrValue pulls attr="..." or attr='...' out of a single tag.
func attrValue(tag, attr string) string {
	for _, quote := range []string{`"`, `'`} {
		marker := attr + "=" + quote
		idx := strings.Index(tag, marker)
		if idx < 0 {
			continue
		}
		rest := tag[idx+len(marker):]
		end := strings.Index(rest, quote)
		if end < 0 {
			continue
		}
		return rest[:end]
	}
	return ""
}

// firstTagText returns the inner text of the first <tag>...</tag> element.
func firstTagText(page, tag string) string {
	open := strings.Index(page, "<"+tag)
	if open < 0 {
		return ""
	}
	start := strings.Index(page[open:], ">")
	if start < 0 {
		return ""
	}
	start += open + 1
	end := strings.Index(page[start:], "</"+tag+">")
	if end < 0 {
		return ""
	}
	return stripTags(page[start : start+end])
}

// textAfterHeading returns the text of the first <p> element following a
// heading whose text is exactly the given string.
func textAfterHeading(page, heading string) string {
	idx := strings.Index(page, ">"+heading+"<")
	if idx < 0 {
		return ""
	}
	rest := page[idx:]

	open := strings.Index(rest, "<p")
	if open < 0 {
		return ""
	}
	start := strings.Index(rest[open:], ">")
	if start < 0 {
		return ""
	}
	start += open + 1
	end := strings.Index(rest[start:], "</p>")
	if end < 0 {
		return ""
	}
	return stripTags(rest[start : start+end])
}

// stripTags removes HTML elements from a fragment, keeping inner text.
func stripTags(fragment string) string {
	var b strings.Builder
	inTag := false
	for _, r := range fragment {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
