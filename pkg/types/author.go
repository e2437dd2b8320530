// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data model shared across pipeline stages.
package types

import "fmt"

// Publication is one paper in an author's publication history. Owned by
// exactly one Author; publications are never shared between authors.
type Publication struct {
	Title    string `json:"title" yaml:"title"`
	Abstract string `json:"abstract" yaml:"abstract"`
}

// Text returns the composed embedding input for the publication. The
// format must stay byte-identical across runs; cached profiles and debug
// transcripts depend on it.
func (p Publication) Text() string {
	return fmt.Sprintf("Title: %s\nAbstract: %s", p.Title, p.Abstract)
}

// Author is one candidate reviewer. Identity within a run is the author's
// index in the pool; Name is the human-facing key. Authors are built once
// by the profile store and immutable afterwards.
type Author struct {
	Name         string        `json:"name" yaml:"name"`
	Publications []Publication `json:"publications" yaml:"publications"`

	// Summary is a single descriptive text covering the author's research,
	// produced by the summarizer collaborator during profile build.
	Summary string `json:"summary" yaml:"summary"`
}

// Query is the candidate paper being matched against the reviewer pool.
type Query struct {
	Title    string `json:"title" yaml:"title"`
	Abstract string `json:"abstract" yaml:"abstract"`
}

// Text composes the retrieval query string. Pure and deterministic:
// identical input yields a byte-identical string on every run.
func (q Query) Text() string {
	return fmt.Sprintf("Title: %s\nAbstract: %s", q.Title, q.Abstract)
}

// Result is one justified match, serialized as a single JSONL line in
// rank order.
type Result struct {
	Name        string  `json:"name"`
	Fitness     float64 `json:"fitness"`
	Explanation string  `json:"explanation"`
}
